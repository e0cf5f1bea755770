package handler

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"leave-ledger/internal/i18n"
	"leave-ledger/internal/models"
	"leave-ledger/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeDirectory map[int64]*models.Employee

func (d fakeDirectory) GetByChatID(_ context.Context, chatID int64) (*models.Employee, error) {
	if emp, ok := d[chatID]; ok {
		return emp, nil
	}
	return nil, service.ErrEmployeeNotFound
}

type fakeLeave struct {
	decisions []service.DecideInput
	processed []string
	decideErr error
	pending   []models.LeaveRequest
	mine      []models.LeaveRequest
}

func (f *fakeLeave) GetBalance(_ context.Context, employeeID uint, year int) (*service.BalanceSnapshot, error) {
	return &service.BalanceSnapshot{EmployeeID: employeeID, Year: year, Pools: []service.PoolBalance{
		{Pool: models.PoolSickPaid, Total: 10, Used: 4, Remaining: 6},
	}}, nil
}

func (f *fakeLeave) ListByEmployee(context.Context, uint) ([]models.LeaveRequest, error) {
	return f.mine, nil
}

func (f *fakeLeave) ListPendingFor(context.Context, uint) ([]models.LeaveRequest, error) {
	return f.pending, nil
}

func (f *fakeLeave) Decide(_ context.Context, in service.DecideInput) (*models.LeaveRequest, error) {
	f.decisions = append(f.decisions, in)
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	return &models.LeaveRequest{ID: in.RequestID, Status: in.Outcome}, nil
}

func (f *fakeLeave) ProcessAdministratively(_ context.Context, requestID string, _ uint) (*models.LeaveRequest, error) {
	f.processed = append(f.processed, requestID)
	return &models.LeaveRequest{ID: requestID, AdminProcessed: true}, nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeSender, *fakeLeave) {
	t.Helper()
	tr, err := i18n.New("en")
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	sender := &fakeSender{}
	leave := &fakeLeave{}
	dir := fakeDirectory{
		100: {ID: 1, FirstName: "Helen", LastName: "Hart", Role: models.RoleHR},
	}
	return NewHandler(sender, dir, leave, tr, log), sender, leave
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.SplitN(text, " ", 2)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID, UserName: "tester", LanguageCode: "en"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestHandler_Start(t *testing.T) {
	h, sender, _ := newTestHandler(t)

	h.handleMessage(context.Background(), command(100, "/start"))
	assert.Contains(t, sender.last(t).Text, "Helen Hart")

	h.handleMessage(context.Background(), command(200, "/start"))
	assert.Contains(t, sender.last(t).Text, "200")
	assert.Equal(t, int64(200), sender.last(t).ChatID)
}

func TestHandler_Balance(t *testing.T) {
	h, sender, _ := newTestHandler(t)

	h.handleMessage(context.Background(), command(100, "/balance 2026"))
	text := sender.last(t).Text
	assert.Contains(t, text, "2026")
	assert.Contains(t, text, "sick_paid: used 4 of 10, 6 left")

	h.handleMessage(context.Background(), command(100, "/balance soon"))
	assert.Equal(t, "Year must be a number.", sender.last(t).Text)
}

func TestHandler_MyLeave(t *testing.T) {
	h, sender, leave := newTestHandler(t)

	h.handleMessage(context.Background(), command(100, "/myleave"))
	assert.Equal(t, "You have no leave requests.", sender.last(t).Text)

	leave.mine = []models.LeaveRequest{{
		ID: "req-9", Category: models.CategoryCasual, TotalDays: 3, Status: models.StatusApproved,
		StartDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
	}}
	h.handleMessage(context.Background(), command(100, "/myleave"))
	assert.Equal(t, "req-9: casual, 2026-09-07 to 2026-09-09 (3 day(s)), approved", sender.last(t).Text)
}

func TestHandler_Decisions(t *testing.T) {
	h, sender, leave := newTestHandler(t)
	ctx := context.Background()

	h.handleMessage(ctx, command(100, "/approve"))
	assert.Contains(t, sender.last(t).Text, "Usage: /approve")

	h.handleMessage(ctx, command(100, "/approve req-1"))
	assert.Equal(t, "Request req-1 is now approved.", sender.last(t).Text)

	h.handleMessage(ctx, command(100, "/reject req-2"))
	assert.Contains(t, sender.last(t).Text, "Usage: /reject")

	h.handleMessage(ctx, command(100, "/reject req-2 team is at capacity"))
	require.Len(t, leave.decisions, 2)
	assert.Equal(t, service.DecideInput{
		RequestID: "req-2", ApproverID: 1, Outcome: models.StatusRejected, Reason: "team is at capacity",
	}, leave.decisions[1])

	leave.decideErr = service.ErrMissingAttachment
	h.handleMessage(ctx, command(100, "/approve req-3"))
	assert.Equal(t, "Error: sick leave requires a medical certificate", sender.last(t).Text)
}

func TestHandler_PendingAndProcessed(t *testing.T) {
	h, sender, leave := newTestHandler(t)
	ctx := context.Background()

	h.handleMessage(ctx, command(100, "/pending"))
	assert.Equal(t, "No pending leave requests.", sender.last(t).Text)

	leave.pending = []models.LeaveRequest{{
		ID: "req-9", EmployeeID: 4, Category: models.CategoryCasual, TotalDays: 2,
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}}
	h.handleMessage(ctx, command(100, "/pending"))
	assert.Equal(t, "req-9: employee 4, casual, 2026-03-02 to 2026-03-03 (2 day(s))", sender.last(t).Text)

	h.handleMessage(ctx, command(100, "/processed req-9"))
	assert.Equal(t, []string{"req-9"}, leave.processed)
	assert.Equal(t, "Request req-9 marked as processed.", sender.last(t).Text)
}

func TestHandler_HandleUpdates(t *testing.T) {
	h, sender, _ := newTestHandler(t)

	updates := make(chan tgbotapi.Update, 3)
	updates <- tgbotapi.Update{}
	updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 100}}}
	updates <- tgbotapi.Update{Message: command(100, "/vacation")}
	close(updates)

	h.HandleUpdates(context.Background(), updates)

	require.Len(t, sender.sent, 2)
	for _, msg := range sender.sent {
		assert.Equal(t, "Unknown command. Send /start for help.", msg.Text)
	}
}

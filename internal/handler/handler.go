package handler

import (
	"context"

	"leave-ledger/internal/apperror"
	"leave-ledger/internal/models"
	"leave-ledger/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender is the part of the bot client the handler talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Translator interface {
	T(locale, messageID string, data map[string]any) string
}

type EmployeeDirectory interface {
	GetByChatID(ctx context.Context, chatID int64) (*models.Employee, error)
}

type LeaveService interface {
	GetBalance(ctx context.Context, employeeID uint, year int) (*service.BalanceSnapshot, error)
	ListByEmployee(ctx context.Context, employeeID uint) ([]models.LeaveRequest, error)
	ListPendingFor(ctx context.Context, approverID uint) ([]models.LeaveRequest, error)
	Decide(ctx context.Context, in service.DecideInput) (*models.LeaveRequest, error)
	ProcessAdministratively(ctx context.Context, requestID string, adminID uint) (*models.LeaveRequest, error)
}

type Handler struct {
	sender    Sender
	employees EmployeeDirectory
	leave     LeaveService
	tr        Translator
	logger    *logrus.Logger
}

func NewHandler(
	sender Sender,
	employees EmployeeDirectory,
	leave LeaveService,
	tr Translator,
	logger *logrus.Logger,
) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		sender:    sender,
		employees: employees,
		leave:     leave,
		tr:        tr,
		logger:    logger,
	}
}

// HandleUpdates serves chat updates until ctx ends or the channel closes.
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}

	fields := logrus.Fields{"chat_id": message.Chat.ID}
	if message.From != nil {
		fields["username"] = message.From.UserName
	}
	h.logger.WithFields(fields).Debug(message.Text)

	if !message.IsCommand() {
		h.sendUnknownCommand(message)
		return
	}
	h.handleCommand(ctx, message)
}

// currentEmployee resolves the employee linked to the chat, replying when
// there is none.
func (h *Handler) currentEmployee(ctx context.Context, message *tgbotapi.Message) (*models.Employee, bool) {
	emp, err := h.employees.GetByChatID(ctx, message.Chat.ID)
	if err != nil {
		if apperror.CodeOf(err) == apperror.CodeNotFound {
			h.reply(message, "bot.unknown_employee", map[string]any{"ChatID": message.Chat.ID})
		} else {
			h.replyError(message, err)
		}
		return nil, false
	}
	return emp, true
}

func (h *Handler) reply(message *tgbotapi.Message, messageID string, data map[string]any) {
	h.send(message.Chat.ID, h.tr.T(locale(message), messageID, data))
}

func (h *Handler) replyError(message *tgbotapi.Message, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Code == apperror.CodeInternalError {
		h.logger.WithError(err).WithField("chat_id", message.Chat.ID).Error("bot command failed")
	}
	h.reply(message, "bot.error", map[string]any{"Message": httpErr.Message})
}

func (h *Handler) send(chatID int64, text string) {
	if _, err := h.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("failed to send telegram message")
	}
}

func locale(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}
	return message.From.LanguageCode
}

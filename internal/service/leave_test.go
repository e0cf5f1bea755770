package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"leave-ledger/internal/apperror"
	"leave-ledger/internal/models"
	"leave-ledger/internal/notify"
	"leave-ledger/internal/repository"
	"leave-ledger/pkg/weekends"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func approve(req *models.LeaveRequest, approver *models.Employee) DecideInput {
	return DecideInput{RequestID: req.ID, ApproverID: approver.ID, Outcome: models.StatusApproved}
}

func TestLeaveService_SickScenarioOverflowsIntoUnpaid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.SetEntitlements(ctx, env.alice.ID, 2026, models.Entitlements{SickPaid: 10})
	require.NoError(t, err)
	_, err = env.ledger.Reserve(ctx, env.alice.ID, 2026, models.CategorySick, 8)
	require.NoError(t, err)

	req := env.submit(t, env.alice, models.CategorySick, date(2026, 3, 2), date(2026, 3, 6), "cert-001.pdf")
	assert.Equal(t, 5, req.TotalDays)
	assert.Equal(t, models.StatusPending, req.Status)

	decided, err := env.leave.Decide(ctx, approve(req, env.manager))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, decided.Status)
	assert.Equal(t, 2, decided.ReservedPaidDays)
	assert.Equal(t, 3, decided.ReservedUnpaidDays)
	require.NotNil(t, decided.ApproverID)
	assert.Equal(t, env.manager.ID, *decided.ApproverID)

	snap, err := env.leave.GetBalance(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Pool(models.PoolSickPaid).Used)
	assert.Equal(t, 3, snap.Pool(models.PoolSickUnpaid).Used)

	assert.Equal(t, []notify.EventType{notify.EventSubmitted, notify.EventApproved}, env.notifier.types())
}

func TestLeaveService_TwoApproverScenario(t *testing.T) {
	env := newTestEnv(t, withSteps(2))
	ctx := context.Background()

	req := env.submit(t, env.bob, models.CategoryCasual, date(2026, 4, 6), date(2026, 4, 8), "")

	afterFirst, err := env.leave.Decide(ctx, approve(req, env.manager))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, afterFirst.Status)

	snap, err := env.leave.GetBalance(ctx, env.bob.ID, 2026)
	require.NoError(t, err)
	assert.Zero(t, snap.Pool(models.PoolCasualPaid).Used, "no debit before the last step")

	_, err = env.leave.Decide(ctx, approve(req, env.manager))
	assert.ErrorIs(t, err, ErrNotAuthorized)

	final, err := env.leave.Decide(ctx, approve(req, env.hr))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, final.Status)
	assert.Equal(t, 3, final.ReservedPaidDays)

	snap, err = env.leave.GetBalance(ctx, env.bob.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Pool(models.PoolCasualPaid).Used)

	w, err := env.workflowR.GetByItem(ctx, models.ItemTypeLeaveRequest, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, w.Status)
	assert.Len(t, w.Approvals, 2)

	assert.Equal(t, []notify.EventType{
		notify.EventSubmitted, notify.EventStepApproved, notify.EventApproved,
	}, env.notifier.types())
}

func TestLeaveService_RejectNeverTouchesLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.submit(t, env.alice, models.CategoryCasual, date(2026, 5, 4), date(2026, 5, 5), "")

	_, err := env.leave.Decide(ctx, DecideInput{RequestID: req.ID, ApproverID: env.hr.ID, Outcome: models.StatusRejected})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	decided, err := env.leave.Decide(ctx, DecideInput{
		RequestID: req.ID, ApproverID: env.hr.ID, Outcome: models.StatusRejected, Reason: "release week",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, decided.Status)
	require.NotNil(t, decided.RejectionReason)
	assert.Equal(t, "release week", *decided.RejectionReason)

	stored, err := env.balances.GetByEmployeeYear(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestLeaveService_DecisionIsFinal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.submit(t, env.alice, models.CategoryCasual, date(2026, 6, 1), date(2026, 6, 2), "")
	_, err := env.leave.Decide(ctx, approve(req, env.manager))
	require.NoError(t, err)

	_, err = env.leave.Decide(ctx, approve(req, env.hr))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, apperror.CodeInvalidState, apperror.CodeOf(err))

	_, err = env.leave.Decide(ctx, DecideInput{RequestID: req.ID, ApproverID: env.hr.ID, Outcome: models.StatusRejected, Reason: "x"})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.leave.Decide(ctx, DecideInput{RequestID: "missing", ApproverID: env.hr.ID, Outcome: models.StatusApproved})
	assert.ErrorIs(t, err, ErrLeaveRequestNotFound)
}

func TestLeaveService_DecideAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.submit(t, env.alice, models.CategoryCasual, date(2026, 6, 1), date(2026, 6, 2), "")

	_, err := env.leave.Decide(ctx, approve(req, env.alice))
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = env.leave.Decide(ctx, approve(req, env.bob))
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = env.leave.Decide(ctx, DecideInput{RequestID: req.ID, ApproverID: env.hr.ID, Outcome: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	stored, err := env.leave.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPending())
}

func TestLeaveService_SickLeaveNeedsCertificate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.submit(t, env.alice, models.CategorySick, date(2026, 2, 2), date(2026, 2, 3), "")

	_, err := env.leave.Decide(ctx, approve(req, env.hr))
	assert.ErrorIs(t, err, ErrMissingAttachment)

	stored, err := env.balances.GetByEmployeeYear(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Nil(t, stored, "ledger untouched")

	_, err = env.leave.AttachDocument(ctx, AttachDocumentInput{RequestID: req.ID, UploaderID: env.bob.ID, FileName: "x.pdf"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	doc, err := env.leave.AttachDocument(ctx, AttachDocumentInput{
		RequestID: req.ID, UploaderID: env.alice.ID, FileName: "note.pdf", ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentKindMedicalCertificate, doc.Kind)

	decided, err := env.leave.Decide(ctx, approve(req, env.hr))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, decided.Status)

	_, err = env.leave.AttachDocument(ctx, AttachDocumentInput{RequestID: req.ID, UploaderID: env.alice.ID, FileName: "late.pdf"})
	assert.ErrorIs(t, err, ErrInvalidState)

	docs, err := env.leave.ListDocuments(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "note.pdf", docs[0].FileName)

	_, err = env.leave.ListDocuments(ctx, "missing")
	assert.ErrorIs(t, err, ErrLeaveRequestNotFound)
}

// failingDecisions breaks the final status write of a decision.
type failingDecisions struct {
	repository.LeaveRequestRepository
}

func (f failingDecisions) WithTx(tx *gorm.DB) repository.LeaveRequestRepository {
	return failingDecisions{f.LeaveRequestRepository.WithTx(tx)}
}

func (f failingDecisions) UpdateDecision(context.Context, *models.LeaveRequest) error {
	return errors.New("disk full")
}

func TestLeaveService_DecideIsAtomic(t *testing.T) {
	env := newTestEnv(t, withRequests(func(r repository.LeaveRequestRepository) repository.LeaveRequestRepository {
		return failingDecisions{r}
	}))
	ctx := context.Background()

	_, err := env.ledger.Reserve(ctx, env.alice.ID, 2026, models.CategoryCasual, 1)
	require.NoError(t, err)
	before, err := env.balances.GetByEmployeeYear(ctx, env.alice.ID, 2026)
	require.NoError(t, err)

	req := env.submit(t, env.alice, models.CategoryCasual, date(2026, 7, 6), date(2026, 7, 10), "")
	_, err = env.leave.Decide(ctx, approve(req, env.manager))
	require.Error(t, err)

	after, err := env.balances.GetByEmployeeYear(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, before.CasualPaidUsed, after.CasualPaidUsed)
	assert.Equal(t, before.Version, after.Version)

	stored, err := env.leave.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPending())

	w, err := env.workflowR.GetByItem(ctx, models.ItemTypeLeaveRequest, req.ID)
	require.NoError(t, err)
	assert.True(t, w.IsPending())
	assert.Equal(t, 1, w.CurrentStep)
	assert.Empty(t, w.Approvals)

	assert.Equal(t, []notify.EventType{notify.EventSubmitted}, env.notifier.types())
}

func TestLeaveService_ReservationConflictKeepsRequestPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.leave.ledger = NewBalanceLedger(env.db, newConflictingBalances(env.balances, 100), testDefaults, 5, env.logger)

	req := env.submit(t, env.alice, models.CategoryCasual, date(2026, 8, 3), date(2026, 8, 4), "")
	_, err := env.leave.Decide(ctx, approve(req, env.manager))
	assert.ErrorIs(t, err, ErrReservationConflict)
	assert.True(t, apperror.IsRetryable(err))

	stored, err := env.leave.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPending())
}

func TestLeaveService_ConcurrentDecisionsConserveBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var reqs []*models.LeaveRequest
	for week := 0; week < 5; week++ {
		start := date(2026, 9, 7+7*week)
		reqs = append(reqs, env.submit(t, env.alice, models.CategoryCasual, start, start.AddDate(0, 0, 2), ""))
	}

	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req *models.LeaveRequest) {
			defer wg.Done()
			_, err := env.leave.Decide(ctx, approve(req, env.manager))
			assert.NoError(t, err)
		}(req)
	}
	wg.Wait()

	paid, unpaid := 0, 0
	for _, req := range reqs {
		stored, err := env.leave.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, stored.Status)
		assert.Equal(t, stored.TotalDays, stored.ReservedPaidDays+stored.ReservedUnpaidDays)
		paid += stored.ReservedPaidDays
		unpaid += stored.ReservedUnpaidDays
	}

	snap, err := env.leave.GetBalance(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 12, paid)
	assert.Equal(t, 3, unpaid)
	assert.Equal(t, paid, snap.Pool(models.PoolCasualPaid).Used)
	assert.Equal(t, unpaid, snap.Pool(models.PoolCasualUnpaid).Used)
}

func TestLeaveService_ConcurrentDecisionsOnOneRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.submit(t, env.alice, models.CategoryCasual, date(2026, 10, 5), date(2026, 10, 6), "")

	approvers := []*models.Employee{env.manager, env.hr, env.hr2, env.manager, env.hr}
	errs := make([]error, len(approvers))
	var wg sync.WaitGroup
	for i, a := range approvers {
		wg.Add(1)
		go func(i int, a *models.Employee) {
			defer wg.Done()
			_, errs[i] = env.leave.Decide(ctx, approve(req, a))
		}(i, a)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, apperror.CodeInvalidState, apperror.CodeOf(err))
	}
	assert.Equal(t, 1, wins)

	snap, err := env.leave.GetBalance(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Pool(models.PoolCasualPaid).Used)
}

func TestLeaveService_ProcessAdministratively(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.submit(t, env.alice, models.CategoryBereavement, date(2026, 11, 2), date(2026, 11, 3), "")

	_, err := env.leave.ProcessAdministratively(ctx, req.ID, env.hr.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.leave.Decide(ctx, approve(req, env.manager))
	require.NoError(t, err)
	before, err := env.leave.GetBalance(ctx, env.alice.ID, 2026)
	require.NoError(t, err)

	_, err = env.leave.ProcessAdministratively(ctx, req.ID, env.manager.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	first, err := env.leave.ProcessAdministratively(ctx, req.ID, env.hr.ID)
	require.NoError(t, err)
	assert.True(t, first.AdminProcessed)
	assert.True(t, first.NotificationSent)
	assert.Equal(t, models.StatusApproved, first.Status)

	second, err := env.leave.ProcessAdministratively(ctx, req.ID, env.hr2.ID)
	require.NoError(t, err)
	assert.Equal(t, first.AdminProcessedBy, second.AdminProcessedBy)

	after, err := env.leave.GetBalance(ctx, env.alice.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, before.Pools, after.Pools)

	assert.Equal(t, []notify.EventType{
		notify.EventSubmitted, notify.EventApproved, notify.EventProcessed,
	}, env.notifier.types())
}

func TestLeaveService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.calendar.Load(ctx, &weekends.Calendar{Year: 2026, Days: []weekends.Day{
		{Date: date(2026, 3, 7), Year: 2026, Month: 3},
		{Date: date(2026, 3, 8), Year: 2026, Month: 3},
	}})
	require.NoError(t, err)

	base := SubmitLeaveInput{
		EmployeeID: env.alice.ID, RequesterID: env.alice.ID, Category: models.CategoryCasual,
		StartDate: date(2026, 3, 2), EndDate: date(2026, 3, 10),
	}

	req, err := env.leave.Submit(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 7, req.TotalDays, "weekend is not charged")

	overlapping := base
	overlapping.StartDate, overlapping.EndDate = date(2026, 3, 10), date(2026, 3, 12)
	_, err = env.leave.Submit(ctx, overlapping)
	assert.ErrorIs(t, err, ErrLeaveOverlap)

	weekendOnly := base
	weekendOnly.StartDate, weekendOnly.EndDate = date(2026, 3, 7), date(2026, 3, 8)
	_, err = env.leave.Submit(ctx, weekendOnly)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	reversed := base
	reversed.StartDate, reversed.EndDate = date(2026, 4, 10), date(2026, 4, 1)
	_, err = env.leave.Submit(ctx, reversed)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	unknownCategory := base
	unknownCategory.Category = "sabbatical"
	_, err = env.leave.Submit(ctx, unknownCategory)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ghost := base
	ghost.EmployeeID, ghost.RequesterID = 999, 999
	_, err = env.leave.Submit(ctx, ghost)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	byPeer := base
	byPeer.RequesterID = env.bob.ID
	byPeer.StartDate, byPeer.EndDate = date(2026, 5, 4), date(2026, 5, 4)
	_, err = env.leave.Submit(ctx, byPeer)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	byManager := byPeer
	byManager.RequesterID = env.manager.ID
	proxied, err := env.leave.Submit(ctx, byManager)
	require.NoError(t, err)
	assert.Equal(t, env.manager.ID, proxied.RequesterID)
	assert.Equal(t, env.alice.ID, proxied.EmployeeID)
}

func TestLeaveService_NotificationFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.notifier.err = errors.New("telegram down")

	req := env.submit(t, env.bob, models.CategoryPublicHoliday, date(2026, 12, 31), date(2026, 12, 31), "")
	decided, err := env.leave.Decide(ctx, approve(req, env.hr))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, decided.Status)
}

func TestLeaveService_GetBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.leave.GetBalance(ctx, 999, 2026)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	_, err = env.leave.GetBalance(ctx, env.alice.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	snap, err := env.leave.GetBalance(ctx, env.alice.ID, 2031)
	require.NoError(t, err)
	assert.Len(t, snap.Pools, len(models.AllPools))
	for _, p := range snap.Pools {
		assert.Zero(t, p.Used)
	}
}

func TestLeaveService_ListPendingFor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.submit(t, env.alice, models.CategoryCasual, date(2026, 3, 2), date(2026, 3, 3), "")
	env.submit(t, env.manager, models.CategoryCasual, date(2026, 3, 2), date(2026, 3, 3), "")

	forManager, err := env.leave.ListPendingFor(ctx, env.manager.ID)
	require.NoError(t, err)
	require.Len(t, forManager, 1)
	assert.Equal(t, env.alice.ID, forManager[0].EmployeeID)

	forHR, err := env.leave.ListPendingFor(ctx, env.hr.ID)
	require.NoError(t, err)
	assert.Len(t, forHR, 2)

	mine, err := env.leave.ListByEmployee(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = env.leave.ListByEmployee(ctx, 9999)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"leave-ledger/internal/authz"
	"leave-ledger/internal/models"
	"leave-ledger/internal/notify"
	"leave-ledger/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDefaults = models.Entitlements{SickPaid: 10, CasualPaid: 12, Bereavement: 3}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, e notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *captureNotifier) types() []notify.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]notify.EventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	dels int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) key(emp uint, year int) string {
	return fmt.Sprintf("%d:%d", emp, year)
}

func (c *mapCache) Get(_ context.Context, emp uint, year int, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[c.key(emp, year)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Set(_ context.Context, emp uint, year int, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[c.key(emp, year)] = raw
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, emp uint, year int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, c.key(emp, year))
	c.dels++
	return nil
}

type testEnv struct {
	db        *gorm.DB
	logger    *logrus.Logger
	authz     *authz.Authorizer
	notifier  *captureNotifier
	cache     *mapCache
	requests  *repository.GormLeaveRequestRepository
	balances  *repository.GormLeaveBalanceRepository
	workflowR *repository.GormApprovalWorkflowRepository

	employees *EmployeeService
	calendar  *NonWorkingDayService
	documents *DocumentService
	ledger    *BalanceLedger
	workflows *WorkflowService
	leave     *LeaveService

	hr, hr2, manager, alice, bob *models.Employee
}

type envOption func(*LeaveServiceDeps)

func withSteps(n int) envOption {
	return func(d *LeaveServiceDeps) { d.ApprovalSteps = n }
}

func withRequests(wrap func(repository.LeaveRequestRepository) repository.LeaveRequestRepository) envOption {
	return func(d *LeaveServiceDeps) { d.Requests = wrap(d.Requests) }
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "leave.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	log := logrus.New()
	log.SetOutput(io.Discard)

	db := newTestDB(t)
	empRepo, err := repository.NewGormEmployeeRepository(db)
	require.NoError(t, err)
	balRepo, err := repository.NewGormLeaveBalanceRepository(db)
	require.NoError(t, err)
	reqRepo, err := repository.NewGormLeaveRequestRepository(db)
	require.NoError(t, err)
	wfRepo, err := repository.NewGormApprovalWorkflowRepository(db)
	require.NoError(t, err)
	docRepo, err := repository.NewGormLeaveDocumentRepository(db)
	require.NoError(t, err)
	nwdRepo, err := repository.NewGormNonWorkingDayRepository(db)
	require.NoError(t, err)

	az, err := authz.New("", log)
	require.NoError(t, err)

	env := &testEnv{
		db:        db,
		logger:    log,
		authz:     az,
		notifier:  &captureNotifier{},
		cache:     newMapCache(),
		requests:  reqRepo,
		balances:  balRepo,
		workflowR: wfRepo,
	}
	env.employees = NewEmployeeService(empRepo, az, log)
	env.calendar = NewNonWorkingDayService(nwdRepo, log)
	env.documents = NewDocumentService(docRepo, log)
	env.ledger = NewBalanceLedger(db, balRepo, testDefaults, 5, log).WithCache(env.cache)
	env.workflows = NewWorkflowService(db, wfRepo, az, 5, log)

	deps := LeaveServiceDeps{
		DB:            db,
		Requests:      reqRepo,
		Employees:     empRepo,
		Ledger:        env.ledger,
		Workflows:     env.workflows,
		Documents:     env.documents,
		Calendar:      env.calendar,
		Authz:         az,
		Notifier:      env.notifier,
		ApprovalSteps: 1,
		MaxRetries:    5,
		Logger:        log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.leave = NewLeaveService(deps)

	env.hr = env.mustEmployee(t, ctx, CreateEmployeeInput{FirstName: "Helen", Role: models.RoleHR})
	env.hr2 = env.mustEmployee(t, ctx, CreateEmployeeInput{FirstName: "Harry", Role: models.RoleHR})
	env.manager = env.mustEmployee(t, ctx, CreateEmployeeInput{FirstName: "Maria", Role: models.RoleManager})
	env.alice = env.mustEmployee(t, ctx, CreateEmployeeInput{FirstName: "Alice", ManagerID: &env.manager.ID})
	env.bob = env.mustEmployee(t, ctx, CreateEmployeeInput{FirstName: "Bob", ManagerID: &env.manager.ID})
	return env
}

func (env *testEnv) mustEmployee(t *testing.T, ctx context.Context, in CreateEmployeeInput) *models.Employee {
	t.Helper()
	emp, err := env.employees.Create(ctx, in)
	require.NoError(t, err)
	return emp
}

func (env *testEnv) submit(t *testing.T, emp *models.Employee, cat models.LeaveCategory, start, end time.Time, cert string) *models.LeaveRequest {
	t.Helper()
	req, err := env.leave.Submit(context.Background(), SubmitLeaveInput{
		EmployeeID:    emp.ID,
		RequesterID:   emp.ID,
		Category:      cat,
		StartDate:     start,
		EndDate:       end,
		AttachmentRef: cert,
	})
	require.NoError(t, err)
	return req
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// conflictingBalances fails the first n usage updates with a write conflict.
type conflictingBalances struct {
	repository.LeaveBalanceRepository
	mu       *sync.Mutex
	failures *int
}

func newConflictingBalances(inner repository.LeaveBalanceRepository, n int) *conflictingBalances {
	return &conflictingBalances{LeaveBalanceRepository: inner, mu: &sync.Mutex{}, failures: &n}
}

func (c *conflictingBalances) WithTx(tx *gorm.DB) repository.LeaveBalanceRepository {
	return &conflictingBalances{LeaveBalanceRepository: c.LeaveBalanceRepository.WithTx(tx), mu: c.mu, failures: c.failures}
}

func (c *conflictingBalances) fail() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *c.failures > 0 {
		*c.failures--
		return true
	}
	return false
}

func (c *conflictingBalances) Create(ctx context.Context, b *models.LeaveBalance) error {
	if c.fail() {
		return repository.ErrDuplicate
	}
	return c.LeaveBalanceRepository.Create(ctx, b)
}

func (c *conflictingBalances) UpdateUsage(ctx context.Context, b *models.LeaveBalance) error {
	if c.fail() {
		return repository.ErrConcurrentModification
	}
	return c.LeaveBalanceRepository.UpdateUsage(ctx, b)
}

// hookedBalances runs after once, right after the first successful read.
type hookedBalances struct {
	repository.LeaveBalanceRepository
	once  *sync.Once
	after func()
}

func newHookedBalances(inner repository.LeaveBalanceRepository, after func()) *hookedBalances {
	return &hookedBalances{LeaveBalanceRepository: inner, once: &sync.Once{}, after: after}
}

func (h *hookedBalances) WithTx(tx *gorm.DB) repository.LeaveBalanceRepository {
	return &hookedBalances{LeaveBalanceRepository: h.LeaveBalanceRepository.WithTx(tx), once: h.once, after: h.after}
}

func (h *hookedBalances) GetByEmployeeYear(ctx context.Context, employeeID uint, year int) (*models.LeaveBalance, error) {
	b, err := h.LeaveBalanceRepository.GetByEmployeeYear(ctx, employeeID, year)
	if err == nil {
		h.once.Do(h.after)
	}
	return b, err
}

package service

import (
	"context"
	"fmt"

	"leave-ledger/internal/models"
	"leave-ledger/internal/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// BalanceCache is an optional read-through store for balance snapshots.
type BalanceCache interface {
	Get(ctx context.Context, employeeID uint, year int, dst any) (bool, error)
	Set(ctx context.Context, employeeID uint, year int, v any) error
	Invalidate(ctx context.Context, employeeID uint, year int) error
}

type PoolBalance struct {
	Pool      models.Pool `json:"pool"`
	Total     int         `json:"total"`
	Used      int         `json:"used"`
	Remaining int         `json:"remaining"`
}

// BalanceSnapshot is a read-only view of committed reservations.
type BalanceSnapshot struct {
	EmployeeID uint          `json:"employee_id"`
	Year       int           `json:"year"`
	Pools      []PoolBalance `json:"pools"`
	Version    int           `json:"version"`
}

func (s *BalanceSnapshot) Pool(p models.Pool) PoolBalance {
	for _, pb := range s.Pools {
		if pb.Pool == p {
			return pb
		}
	}
	return PoolBalance{Pool: p}
}

func (s *BalanceSnapshot) clone() *BalanceSnapshot {
	out := *s
	out.Pools = append([]PoolBalance(nil), s.Pools...)
	return &out
}

func snapshotOf(b *models.LeaveBalance) *BalanceSnapshot {
	snap := &BalanceSnapshot{EmployeeID: b.EmployeeID, Year: b.Year, Version: b.Version}
	for _, p := range models.AllPools {
		snap.Pools = append(snap.Pools, PoolBalance{
			Pool:      p,
			Total:     b.Total(p),
			Used:      b.Used(p),
			Remaining: b.Remaining(p),
		})
	}
	return snap
}

// BalanceLedger owns every mutation of leave_balances.
type BalanceLedger struct {
	db         *gorm.DB
	balances   repository.LeaveBalanceRepository
	defaults   models.Entitlements
	maxRetries int
	cache      BalanceCache
	sf         singleflight.Group
	logger     *logrus.Logger
}

func NewBalanceLedger(
	db *gorm.DB,
	balances repository.LeaveBalanceRepository,
	defaults models.Entitlements,
	maxRetries int,
	logger *logrus.Logger,
) *BalanceLedger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BalanceLedger{
		db:         db,
		balances:   balances,
		defaults:   defaults,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// WithCache enables read-through caching of snapshots.
func (l *BalanceLedger) WithCache(c BalanceCache) *BalanceLedger {
	l.cache = c
	return l
}

// Reserve debits days in its own transaction, retrying on write conflicts.
func (l *BalanceLedger) Reserve(ctx context.Context, employeeID uint, year int, category models.LeaveCategory, days int) (models.Reservation, error) {
	var res models.Reservation
	err := retryOnConflict(ctx, l.maxRetries, func() error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			res, err = l.ReserveTx(ctx, tx, employeeID, year, category, days)
			return err
		})
	})
	if err != nil {
		return models.Reservation{}, err
	}

	l.Invalidate(ctx, employeeID, year)
	return res, nil
}

// ReserveTx is a single read-modify-write attempt inside tx. Write conflicts
// are returned as-is so that the caller can retry its whole unit of work.
func (l *BalanceLedger) ReserveTx(ctx context.Context, tx *gorm.DB, employeeID uint, year int, category models.LeaveCategory, days int) (models.Reservation, error) {
	if !category.IsValid() {
		return models.Reservation{}, invalidArgument(fmt.Sprintf("unknown leave category %q", category))
	}
	if days <= 0 {
		return models.Reservation{}, invalidArgument("days must be positive")
	}
	if year <= 0 {
		return models.Reservation{}, invalidArgument("year must be positive")
	}

	repo := l.balances.WithTx(tx)
	b, err := repo.GetByEmployeeYear(ctx, employeeID, year)
	if err != nil {
		return models.Reservation{}, err
	}

	create := b == nil
	if create {
		b = models.NewLeaveBalance(employeeID, year, l.defaults)
	}

	res, err := b.Reserve(category, days)
	if err != nil {
		return models.Reservation{}, invalidArgument(err.Error())
	}

	if create {
		err = repo.Create(ctx, b)
	} else {
		err = repo.UpdateUsage(ctx, b)
	}
	if err != nil {
		return models.Reservation{}, err
	}

	l.logger.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"year":        year,
		"category":    category,
		"paid_days":   res.PaidDays,
		"unpaid_days": res.UnpaidDays,
	}).Debug("balance reserved")
	return res, nil
}

// SetEntitlements seeds or replaces the pool totals. Used counters are kept.
func (l *BalanceLedger) SetEntitlements(ctx context.Context, employeeID uint, year int, ent models.Entitlements) (*BalanceSnapshot, error) {
	if err := ent.Validate(); err != nil {
		return nil, invalidArgument(err.Error())
	}
	if year <= 0 {
		return nil, invalidArgument("year must be positive")
	}

	var snap *BalanceSnapshot
	err := retryOnConflict(ctx, l.maxRetries, func() error {
		return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := l.balances.WithTx(tx)
			b, err := repo.GetByEmployeeYear(ctx, employeeID, year)
			if err != nil {
				return err
			}
			if b == nil {
				b = models.NewLeaveBalance(employeeID, year, ent)
				err = repo.Create(ctx, b)
			} else {
				b.SetEntitlements(ent)
				err = repo.UpdateTotals(ctx, b)
			}
			if err != nil {
				return err
			}
			snap = snapshotOf(b)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	l.Invalidate(ctx, employeeID, year)
	l.logger.WithFields(logrus.Fields{"employee_id": employeeID, "year": year}).Info("entitlements updated")
	return snap, nil
}

// Balance returns the committed state of (employeeID, year). A year without a
// row reports the configured default totals and nothing used.
func (l *BalanceLedger) Balance(ctx context.Context, employeeID uint, year int) (*BalanceSnapshot, error) {
	if l.cache != nil {
		var cached BalanceSnapshot
		hit, err := l.cache.Get(ctx, employeeID, year, &cached)
		if err != nil {
			l.logger.WithError(err).Warn("balance cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	key := fmt.Sprintf("%d:%d", employeeID, year)
	v, err, _ := l.sf.Do(key, func() (any, error) {
		b, err := l.balances.GetByEmployeeYear(ctx, employeeID, year)
		if err != nil {
			return nil, err
		}
		if b == nil {
			b = models.NewLeaveBalance(employeeID, year, l.defaults)
			b.Version = 0
		}
		snap := snapshotOf(b)
		if l.cache != nil {
			l.cacheSnapshot(ctx, snap)
		}
		return snap, nil
	})
	if err != nil {
		l.logger.WithError(err).WithField("employee_id", employeeID).Error("failed to load balance")
		return nil, err
	}
	return v.(*BalanceSnapshot).clone(), nil
}

// cacheSnapshot stores snap, then drops it again when the row has moved past
// snap.Version. A change committed after the load either invalidates after
// the Set or is visible to the re-read.
func (l *BalanceLedger) cacheSnapshot(ctx context.Context, snap *BalanceSnapshot) {
	if err := l.cache.Set(ctx, snap.EmployeeID, snap.Year, snap); err != nil {
		l.logger.WithError(err).Warn("balance cache write failed")
		return
	}

	current, err := l.balances.GetByEmployeeYear(ctx, snap.EmployeeID, snap.Year)
	if err != nil {
		l.logger.WithError(err).Warn("balance cache check failed")
		l.Invalidate(ctx, snap.EmployeeID, snap.Year)
		return
	}
	if current != nil && current.Version != snap.Version {
		l.logger.WithFields(logrus.Fields{
			"employee_id": snap.EmployeeID,
			"year":        snap.Year,
			"cached":      snap.Version,
			"committed":   current.Version,
		}).Debug("dropping stale balance snapshot")
		l.Invalidate(ctx, snap.EmployeeID, snap.Year)
	}
}

// Invalidate drops the cached snapshot after a committed change.
func (l *BalanceLedger) Invalidate(ctx context.Context, employeeID uint, year int) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, employeeID, year); err != nil {
		l.logger.WithError(err).WithFields(logrus.Fields{
			"employee_id": employeeID,
			"year":        year,
		}).Warn("balance cache invalidation failed")
	}
}

package service

import (
	"context"
	"time"

	"leave-ledger/internal/models"
	"leave-ledger/internal/repository"
	"leave-ledger/pkg/weekends"

	"github.com/sirupsen/logrus"
)

type NonWorkingDayService struct {
	repo   repository.NonWorkingDayRepository
	logger *logrus.Logger
}

func NewNonWorkingDayService(repo repository.NonWorkingDayRepository, logger *logrus.Logger) *NonWorkingDayService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &NonWorkingDayService{repo: repo, logger: logger}
}

// LoadFromJSON replaces the calendar of the file's year with its contents.
func (s *NonWorkingDayService) LoadFromJSON(ctx context.Context, filePath string) (int, error) {
	cal, err := weekends.ParseFile(filePath)
	if err != nil {
		return 0, err
	}
	return s.Load(ctx, cal)
}

func (s *NonWorkingDayService) Load(ctx context.Context, cal *weekends.Calendar) (int, error) {
	days := make([]models.NonWorkingDay, 0, len(cal.Days))
	for _, d := range cal.Days {
		days = append(days, models.NonWorkingDay{
			Day:   d.Date.Format(models.DayLayout),
			Year:  d.Year,
			Month: d.Month,
		})
	}

	if err := s.repo.DeleteYear(ctx, cal.Year); err != nil {
		s.logger.WithError(err).Warn("failed to delete old non-working days")
	}
	if err := s.repo.BulkCreate(ctx, days); err != nil {
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{"year": cal.Year, "days": len(days)}).Info("non-working days loaded")
	return len(days), nil
}

func (s *NonWorkingDayService) GetNonWorkingDaysForMonth(ctx context.Context, year, month int) ([]models.NonWorkingDay, error) {
	return s.repo.GetByYearMonth(ctx, year, month)
}

// CountWorkingDays is the inclusive day count of [start, end] minus
// registered non-working days.
func (s *NonWorkingDayService) CountWorkingDays(ctx context.Context, start, end time.Time) (int, error) {
	start, end = models.NormalizeDate(start), models.NormalizeDate(end)
	if end.Before(start) {
		return 0, nil
	}
	off, err := s.repo.CountInRange(ctx, start, end)
	if err != nil {
		return 0, err
	}
	return models.InclusiveDays(start, end) - off, nil
}

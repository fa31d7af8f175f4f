package service

import (
	"context"
	"fmt"
	"time"

	"paintpos/internal/model"
	"paintpos/internal/repository"
	"paintpos/pkg/apperror"

	"github.com/shopspring/decimal"
)

type StatisticsService interface {
	// GetStatistics returns completed-sale aggregates for [startDate, endDate]
	// (YYYY-MM-DD, inclusive). Empty dates default to the last 30 days.
	GetStatistics(ctx context.Context, startDate, endDate string) (*model.DashboardStatistics, error)
	GetDailySales(ctx context.Context, startDate, endDate string) ([]model.DailySalesPoint, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
	now       func() time.Time
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{
		statsRepo: statsRepo,
		now:       time.Now,
	}
}

func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate string) (*model.DashboardStatistics, error) {
	start, end, err := s.resolveRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	total, count, err := s.statsRepo.GetSalesTotals(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales totals: %w", err)
	}

	today := s.now()
	todayTotal, _, err := s.statsRepo.GetSalesTotals(ctx, today, today)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch today's sales: %w", err)
	}

	// Guard the division: an empty range yields zero, not an error.
	average := decimal.Zero
	if count > 0 {
		average = total.Div(decimal.NewFromInt(count)).Round(2)
	}

	return &model.DashboardStatistics{
		TotalSales:         total,
		SalesCount:         count,
		TodaySales:         todayTotal,
		AverageSale:        average,
		TimeRangeStartDate: start,
		TimeRangeEndDate:   end,
	}, nil
}

func (s *statisticsService) GetDailySales(ctx context.Context, startDate, endDate string) ([]model.DailySalesPoint, error) {
	start, end, err := s.resolveRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	points, err := s.statsRepo.GetDailySales(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily sales: %w", err)
	}
	return points, nil
}

func (s *statisticsService) resolveRange(startDate, endDate string) (time.Time, time.Time, error) {
	end := s.now()
	start := end.AddDate(0, 0, -30)

	var err error
	if startDate != "" {
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.NewValidation("invalid start_date, expected YYYY-MM-DD").WithDetail("field", "start_date")
		}
	}
	if endDate != "" {
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			return time.Time{}, time.Time{}, apperror.NewValidation("invalid end_date, expected YYYY-MM-DD").WithDetail("field", "end_date")
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperror.NewValidation("end_date must not precede start_date").WithDetail("field", "end_date")
	}
	return start, end, nil
}

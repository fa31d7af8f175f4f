package repository

import (
	"context"
	"fmt"
	"time"

	"paintpos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	// GetSalesTotals sums total_amount and counts completed sales whose
	// sale_date falls within [start, end] inclusive.
	GetSalesTotals(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error)
	// GetDailySales buckets completed sales by calendar date within [start, end];
	// dates without sales do not appear.
	GetDailySales(ctx context.Context, start, end time.Time) ([]model.DailySalesPoint, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetSalesTotals(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
		Count int64           `gorm:"column:count"`
	}

	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS count
		FROM sales
		WHERE status = ? AND sale_date >= ?::date AND sale_date <= ?::date
	`, model.SaleStatusCompleted, start.Format("2006-01-02"), end.Format("2006-01-02")).Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to query sales totals: %w", err)
	}

	return row.Total, row.Count, nil
}

func (r *statisticsRepository) GetDailySales(ctx context.Context, start, end time.Time) ([]model.DailySalesPoint, error) {
	var points []model.DailySalesPoint

	err := r.db.WithContext(ctx).Raw(`
		SELECT TO_CHAR(sale_date, 'YYYY-MM-DD') AS date, SUM(total_amount) AS total
		FROM sales
		WHERE status = ? AND sale_date >= ?::date AND sale_date <= ?::date
		GROUP BY sale_date
		ORDER BY sale_date
	`, model.SaleStatusCompleted, start.Format("2006-01-02"), end.Format("2006-01-02")).Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}

	return points, nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStatistics aggregates completed-sale totals for a date range
type DashboardStatistics struct {
	TotalSales         decimal.Decimal `json:"total_sales"`
	SalesCount         int64           `json:"sales_count"`
	TodaySales         decimal.Decimal `json:"today_sales"`
	AverageSale        decimal.Decimal `json:"average_sale"`
	TimeRangeStartDate time.Time       `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time       `json:"time_range_end_date"`
}

// DailySalesPoint is one calendar day's completed-sales total. Days without
// sales are not emitted.
type DailySalesPoint struct {
	Date  string          `json:"date"` // YYYY-MM-DD
	Total decimal.Decimal `json:"total"`
}

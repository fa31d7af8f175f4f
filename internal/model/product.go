package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product status constants
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Category groups products (interior paint, exterior paint, thinners, ...)
type Category struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Product represents a sellable paint product
type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null;index" json:"name"`
	SKU          string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	CategoryID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category     *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Color        string          `gorm:"type:varchar(100)" json:"color,omitempty"`
	SizeVolume   string          `gorm:"type:varchar(50)" json:"size_volume"` // 1L, 5L, 20L
	SellingPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"selling_price"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"cost_price"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;index" json:"current_stock"`
	MinimumStock decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"minimum_stock"`
	Description  string          `gorm:"type:text" json:"description,omitempty"`
	Status       string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsActive reports whether the product can appear on new sales.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// IsLowStock reports whether current stock has reached the minimum level (inclusive).
func (p *Product) IsLowStock() bool {
	return p.CurrentStock.LessThanOrEqual(p.MinimumStock)
}

// StockDeficit is how far below the minimum level the product sits.
// Used for ordering low-stock alerts, most deficient first.
func (p *Product) StockDeficit() decimal.Decimal {
	return p.MinimumStock.Sub(p.CurrentStock)
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale status constants
const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
	SaleStatusCancelled = "cancelled"
)

// Payment method constants
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCard     = "card"
)

// Sale is the transactional sales document. It owns its SaleItems: they are
// created together in one transaction and deleted together with the sale.
type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber  string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CashierID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"cashier_id"`
	Cashier        *User           `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	SaleDate       time.Time       `gorm:"type:date;not null;index" json:"sale_date"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_method"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_paid"`
	ChangeAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"change_amount"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	Status         string          `gorm:"type:varchar(20);not null;default:'completed';index" json:"status"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsDeletable reports whether the sale may be deleted with stock restoration.
// Only pending sales qualify; completed and cancelled sales are immutable.
func (s *Sale) IsDeletable() bool {
	return s.Status == SaleStatusPending
}

// SaleItem is a line on a sale. TotalPrice is always quantity x unit price.
type SaleItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product    *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

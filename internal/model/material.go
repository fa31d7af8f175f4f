package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Movement type constants
const (
	MovementTypeIncoming = "incoming"
	MovementTypeOutgoing = "outgoing"
)

// Unit of measure for raw materials (kg, litre, drum, ...)
type Unit struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Abbreviation string         `gorm:"type:varchar(20);not null" json:"abbreviation"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Supplier of raw materials
type Supplier struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email     string         `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address   string         `gorm:"type:text" json:"address,omitempty"`
	Status    string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RawMaterial is an ingredient used to mix paint, tracked separately from
// sellable products.
type RawMaterial struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                 string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description          string          `gorm:"type:text" json:"description,omitempty"`
	UnitID               uuid.UUID       `gorm:"type:uuid;not null" json:"unit_id"`
	Unit                 *Unit           `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	CurrentStock         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"current_stock"`
	MinimumStock         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"minimum_stock"`
	AveragePurchasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"average_purchase_price"`
	Status               string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsActive reports whether movements may be recorded against the material.
func (m *RawMaterial) IsActive() bool {
	return m.Status == ProductStatusActive
}

// IsLowStock reports whether current stock has reached the minimum level (inclusive).
func (m *RawMaterial) IsLowStock() bool {
	return m.CurrentStock.LessThanOrEqual(m.MinimumStock)
}

// StockDeficit is how far below the minimum level the material sits.
func (m *RawMaterial) StockDeficit() decimal.Decimal {
	return m.MinimumStock.Sub(m.CurrentStock)
}

// RawMaterialStockMovement is an immutable ledger entry. Applying all movements
// for a material in chronological order reproduces its current_stock.
type RawMaterialStockMovement struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RawMaterialID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"raw_material_id"`
	RawMaterial     *RawMaterial    `gorm:"foreignKey:RawMaterialID" json:"raw_material,omitempty"`
	Type            string          `gorm:"type:varchar(20);not null" json:"type"` // incoming, outgoing
	Quantity        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price"`
	SupplierID      *uuid.UUID      `gorm:"type:uuid;index" json:"supplier_id"`
	Supplier        *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	ReferenceNumber string          `gorm:"type:varchar(100)" json:"reference_number,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	MovementDate    time.Time       `gorm:"type:date;not null;index" json:"movement_date"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

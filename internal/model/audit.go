package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionCreateSale     = "CREATE_SALE"
	ActionDeleteSale     = "DELETE_SALE"
	ActionCreateMaterial = "CREATE_RAW_MATERIAL"
	ActionUpdateMaterial = "UPDATE_RAW_MATERIAL"
	ActionRecordMovement = "RECORD_STOCK_MOVEMENT"
	ActionCreateCustomer = "CREATE_CUSTOMER"
)

// AuditLog tracks who changed what and when for critical store operations
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

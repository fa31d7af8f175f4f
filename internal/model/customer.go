package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is an optional reference on a sale; walk-in sales carry none.
type Customer struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null;index" json:"name"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email     string         `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address   string         `gorm:"type:text" json:"address,omitempty"`
	Status    string         `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

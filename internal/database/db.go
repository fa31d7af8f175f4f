package database

import (
	"log"

	"paintpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError is enabled so unique-index violations surface as
// gorm.ErrDuplicatedKey; the invoice numbering retry depends on it.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Customer{},
		&model.Unit{},
		&model.Supplier{},
		&model.RawMaterial{},
		&model.RawMaterialStockMovement{},
		&model.Sale{},
		&model.SaleItem{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

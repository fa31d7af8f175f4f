package repository

import (
	"context"

	"paintpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if search != "" {
		db = db.Where("name ILIKE ? OR phone ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

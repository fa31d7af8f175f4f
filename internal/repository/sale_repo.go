package repository

import (
	"context"

	"paintpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItem(ctx context.Context, item *model.SaleItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, status string, page, limit int) ([]model.Sale, int64, error)
	DeleteItems(ctx context.Context, saleID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	// MaxInvoiceSeq returns the highest numeric suffix among invoice numbers
	// starting with prefix, 0 when none exist. Must run inside the same
	// transaction as the subsequent insert; the unique index on invoice_number
	// is the actual collision guarantee.
	MaxInvoiceSeq(ctx context.Context, prefix string) (int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit("Items").Create(sale).Error
}

func (r *saleRepository) CreateItem(ctx context.Context, item *model.SaleItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Product").
		Preload("Customer").
		Preload("Cashier").
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, status string, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Sale{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Items").Preload("Customer").Preload("Cashier")
	if status != "" {
		fetch = fetch.Where("status = ?", status)
	}
	if err := fetch.Order("created_at desc").Offset(offset).Limit(limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

func (r *saleRepository) DeleteItems(ctx context.Context, saleID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("sale_id = ?", saleID).Delete(&model.SaleItem{}).Error
}

func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Sale{}).Error
}

func (r *saleRepository) MaxInvoiceSeq(ctx context.Context, prefix string) (int64, error) {
	var row struct {
		Seq int64 `gorm:"column:seq"`
	}
	err := GetDB(ctx, r.db).Raw(`
		SELECT COALESCE(MAX(CAST(RIGHT(invoice_number, 4) AS INTEGER)), 0) AS seq
		FROM sales
		WHERE invoice_number LIKE ?
	`, prefix+"%").Scan(&row).Error
	if err != nil {
		return 0, err
	}
	return row.Seq, nil
}

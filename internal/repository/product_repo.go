package repository

import (
	"context"
	"errors"

	"paintpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientStock is returned by AdjustStock when the delta would drive
// current_stock negative. The row is left untouched.
var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
	// AdjustStock atomically applies delta (positive=increase, negative=decrease)
	// to current_stock and returns the new value. The non-negativity check and
	// the write are a single statement, so concurrent adjustments on the same
	// product serialize on the row and can never jointly overdraw it.
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	// LowStock returns active products with current_stock <= minimum_stock,
	// most deficient first, capped at limit.
	LowStock(ctx context.Context, limit int) ([]model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if search != "" {
		db = db.Where("name ILIKE ? OR sku ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Category").Order("created_at desc").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var row struct {
		CurrentStock decimal.Decimal `gorm:"column:current_stock"`
	}

	res := GetDB(ctx, r.db).Raw(`
		UPDATE products
		SET current_stock = current_stock + ?, updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL AND current_stock + ? >= 0
		RETURNING current_stock
	`, delta, id, delta).Scan(&row)

	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrInsufficientStock
	}
	return row.CurrentStock, nil
}

func (r *productRepository) LowStock(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	db := GetDB(ctx, r.db).
		Preload("Category").
		Where("status = ?", model.ProductStatusActive).
		Where("current_stock <= minimum_stock").
		Order("(minimum_stock - current_stock) DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

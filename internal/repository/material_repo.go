package repository

import (
	"context"

	"paintpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaterialRepository interface {
	Create(ctx context.Context, material *model.RawMaterial) error
	Update(ctx context.Context, material *model.RawMaterial) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error)
	List(ctx context.Context, page, limit int) ([]model.RawMaterial, int64, error)
	// AdjustStock mirrors ProductRepository.AdjustStock for raw materials.
	AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	UpdateAveragePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	LowStock(ctx context.Context, limit int) ([]model.RawMaterial, error)

	CreateMovement(ctx context.Context, movement *model.RawMaterialStockMovement) error
	ListMovements(ctx context.Context, materialID uuid.UUID, page, limit int) ([]model.RawMaterialStockMovement, int64, error)
}

type materialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &materialRepository{db: db}
}

func (r *materialRepository) Create(ctx context.Context, material *model.RawMaterial) error {
	return GetDB(ctx, r.db).Create(material).Error
}

func (r *materialRepository) Update(ctx context.Context, material *model.RawMaterial) error {
	return GetDB(ctx, r.db).Save(material).Error
}

func (r *materialRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	var material model.RawMaterial
	if err := GetDB(ctx, r.db).Preload("Unit").First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepository) List(ctx context.Context, page, limit int) ([]model.RawMaterial, int64, error) {
	var materials []model.RawMaterial
	var total int64

	db := GetDB(ctx, r.db).Model(&model.RawMaterial{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Preload("Unit").Order("name asc").Offset(offset).Limit(limit).Find(&materials).Error; err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

func (r *materialRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var row struct {
		CurrentStock decimal.Decimal `gorm:"column:current_stock"`
	}

	res := GetDB(ctx, r.db).Raw(`
		UPDATE raw_materials
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

func (r *materialRepository) UpdateAveragePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.RawMaterial{}).
		Where("id = ?", id).
		Update("average_purchase_price", price).Error
}

func (r *materialRepository) LowStock(ctx context.Context, limit int) ([]model.RawMaterial, error) {
	var materials []model.RawMaterial
	db := GetDB(ctx, r.db).
		Preload("Unit").
		Where("status = ?", model.ProductStatusActive).
		Where("current_stock <= minimum_stock").
		Order("(minimum_stock - current_stock) DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

func (r *materialRepository) CreateMovement(ctx context.Context, movement *model.RawMaterialStockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *materialRepository) ListMovements(ctx context.Context, materialID uuid.UUID, page, limit int) ([]model.RawMaterialStockMovement, int64, error) {
	var movements []model.RawMaterialStockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.RawMaterialStockMovement{}).Where("raw_material_id = ?", materialID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Preload("User").
		Where("raw_material_id = ?", materialID).
		Order("movement_date desc, created_at desc").
		Offset(offset).Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"paintpos/internal/model"
	"paintpos/internal/repository"
	"paintpos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name         string `json:"name" binding:"required"`
	SKU          string `json:"sku" binding:"required"`
	CategoryID   string `json:"category_id" binding:"required"`
	Color        string `json:"color"`
	SizeVolume   string `json:"size_volume"`
	SellingPrice string `json:"selling_price" binding:"required"`
	CostPrice    string `json:"cost_price"`
	CurrentStock string `json:"current_stock"`
	MinimumStock string `json:"minimum_stock"`
	Description  string `json:"description"`
}

type UpdateProductRequest struct {
	Name         string `json:"name"`
	CategoryID   string `json:"category_id"`
	Color        string `json:"color"`
	SizeVolume   string `json:"size_volume"`
	SellingPrice string `json:"selling_price"`
	CostPrice    string `json:"cost_price"`
	MinimumStock string `json:"minimum_stock"`
	Description  string `json:"description"`
	Status       string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type AdjustStockRequest struct {
	Delta  string `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

// LowStockItem is one row of the restocking report, shared by products and
// raw materials.
type LowStockItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SKU          string `json:"sku,omitempty"`
	CurrentStock string `json:"current_stock"`
	MinimumStock string `json:"minimum_stock"`
	Deficit      string `json:"deficit"`
}

type InventoryService interface {
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, userID string, id string) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error)
	// AdjustStock applies a manual correction (damage, recount, found stock)
	// and returns the resulting stock level.
	AdjustStock(ctx context.Context, userID string, id string, req AdjustStockRequest) (decimal.Decimal, error)
	LowStockProducts(ctx context.Context, limit int) ([]LowStockItem, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InventoryService {
	return &inventoryService{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

func (s *inventoryService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*model.Product, error) {
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return nil, apperror.NewValidation("invalid category id").WithDetail("field", "category_id")
	}

	sellingPrice, err := parseRequiredAmount(req.SellingPrice, "selling_price")
	if err != nil {
		return nil, err
	}
	costPrice, err := parseAmount(req.CostPrice, "cost_price")
	if err != nil {
		return nil, err
	}
	currentStock, err := parseAmount(req.CurrentStock, "current_stock")
	if err != nil {
		return nil, err
	}
	minimumStock, err := parseAmount(req.MinimumStock, "minimum_stock")
	if err != nil {
		return nil, err
	}

	if existing, findErr := s.productRepo.FindBySKU(ctx, req.SKU); findErr == nil && existing != nil {
		return nil, apperror.NewDuplicate("product", "sku", req.SKU)
	} else if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check sku: %w", findErr)
	}

	product := &model.Product{
		Name:         req.Name,
		SKU:          req.SKU,
		CategoryID:   categoryID,
		Color:        req.Color,
		SizeVolume:   req.SizeVolume,
		SellingPrice: sellingPrice,
		CostPrice:    costPrice,
		CurrentStock: currentStock,
		MinimumStock: minimumStock,
		Description:  req.Description,
		Status:       model.ProductStatusActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.productRepo.Create(txCtx, product); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.NewDuplicate("product", "sku", req.SKU)
			}
			return fmt.Errorf("failed to create product: %w", createErr)
		}
		return s.logAction(txCtx, userID, model.ActionCreateProduct, product.ID.String(), product.Name, map[string]interface{}{
			"sku":           product.SKU,
			"selling_price": product.SellingPrice.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *inventoryService) UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid product id").WithDetail("field", "id")
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		product, findErr = s.productRepo.FindByID(txCtx, productID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("product", id)
			}
			return fmt.Errorf("failed to find product: %w", findErr)
		}

		if req.Name != "" {
			product.Name = req.Name
		}
		if req.CategoryID != "" {
			categoryID, parseErr := uuid.Parse(req.CategoryID)
			if parseErr != nil {
				return apperror.NewValidation("invalid category id").WithDetail("field", "category_id")
			}
			product.CategoryID = categoryID
		}
		if req.Color != "" {
			product.Color = req.Color
		}
		if req.SizeVolume != "" {
			product.SizeVolume = req.SizeVolume
		}
		if req.SellingPrice != "" {
			price, parseErr := parseRequiredAmount(req.SellingPrice, "selling_price")
			if parseErr != nil {
				return parseErr
			}
			product.SellingPrice = price
		}
		if req.CostPrice != "" {
			price, parseErr := parseRequiredAmount(req.CostPrice, "cost_price")
			if parseErr != nil {
				return parseErr
			}
			product.CostPrice = price
		}
		if req.MinimumStock != "" {
			minimum, parseErr := parseRequiredAmount(req.MinimumStock, "minimum_stock")
			if parseErr != nil {
				return parseErr
			}
			product.MinimumStock = minimum
		}
		if req.Description != "" {
			product.Description = req.Description
		}
		if req.Status != "" {
			product.Status = req.Status
		}

		if updateErr := s.productRepo.Update(txCtx, product); updateErr != nil {
			return fmt.Errorf("failed to update product: %w", updateErr)
		}
		return s.logAction(txCtx, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, nil)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *inventoryService) DeleteProduct(ctx context.Context, userID string, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NewValidation("invalid product id").WithDetail("field", "id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, findErr := s.productRepo.FindByID(txCtx, productID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("product", id)
			}
			return fmt.Errorf("failed to find product: %w", findErr)
		}

		if delErr := s.productRepo.Delete(txCtx, productID); delErr != nil {
			return fmt.Errorf("failed to delete product: %w", delErr)
		}
		return s.logAction(txCtx, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, nil)
	})
}

func (s *inventoryService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid product id").WithDetail("field", "id")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("product", id)
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

func (s *inventoryService) ListProducts(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.productRepo.List(ctx, page, limit, search)
}

func (s *inventoryService) AdjustStock(ctx context.Context, userID string, id string, req AdjustStockRequest) (decimal.Decimal, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("invalid product id").WithDetail("field", "id")
	}
	delta, err := decimal.NewFromString(req.Delta)
	if err != nil || delta.IsZero() {
		return decimal.Zero, apperror.NewValidation("delta must be a non-zero number").WithDetail("field", "delta")
	}

	var newStock decimal.Decimal
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, findErr := s.productRepo.FindByID(txCtx, productID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("product", id)
			}
			return fmt.Errorf("failed to find product: %w", findErr)
		}

		var adjErr error
		newStock, adjErr = s.productRepo.AdjustStock(txCtx, productID, delta)
		if adjErr != nil {
			if errors.Is(adjErr, repository.ErrInsufficientStock) {
				return apperror.NewInsufficientStock(id, delta.Neg().StringFixed(2), product.CurrentStock.StringFixed(2))
			}
			return fmt.Errorf("failed to adjust stock: %w", adjErr)
		}

		return s.logAction(txCtx, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, map[string]interface{}{
			"delta":     delta.StringFixed(2),
			"new_stock": newStock.StringFixed(2),
			"reason":    req.Reason,
		})
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newStock, nil
}

func (s *inventoryService) LowStockProducts(ctx context.Context, limit int) ([]LowStockItem, error) {
	products, err := s.productRepo.LowStock(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low stock products: %w", err)
	}

	items := make([]LowStockItem, 0, len(products))
	for i := range products {
		p := &products[i]
		items = append(items, LowStockItem{
			ID:           p.ID.String(),
			Name:         p.Name,
			SKU:          p.SKU,
			CurrentStock: p.CurrentStock.StringFixed(2),
			MinimumStock: p.MinimumStock.StringFixed(2),
			Deficit:      p.StockDeficit().StringFixed(2),
		})
	}
	return items, nil
}

func (s *inventoryService) logAction(ctx context.Context, userID, action, entityID, entityName string, extra map[string]interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	details := "{}"
	if extra != nil {
		if payload, err := json.Marshal(extra); err == nil {
			details = string(payload)
		}
	}

	return s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    details,
	})
}

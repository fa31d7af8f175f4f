package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paintpos/internal/model"
	"paintpos/internal/repository"
	ws "paintpos/internal/websocket"
	"paintpos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateMaterialRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	UnitID       string `json:"unit_id" binding:"required"`
	CurrentStock string `json:"current_stock"`
	MinimumStock string `json:"minimum_stock"`
}

type UpdateMaterialRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	MinimumStock string `json:"minimum_stock"`
	Status       string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type RecordMovementRequest struct {
	Type            string `json:"type" binding:"required,oneof=incoming outgoing"`
	Quantity        string `json:"quantity" binding:"required"`
	UnitPrice       string `json:"unit_price"`
	SupplierID      string `json:"supplier_id"`
	ReferenceNumber string `json:"reference_number"`
	Notes           string `json:"notes"`
	MovementDate    string `json:"movement_date"` // YYYY-MM-DD, defaults to today
}

type MaterialService interface {
	CreateMaterial(ctx context.Context, userID string, req CreateMaterialRequest) (*model.RawMaterial, error)
	UpdateMaterial(ctx context.Context, userID string, id string, req UpdateMaterialRequest) (*model.RawMaterial, error)
	GetMaterial(ctx context.Context, id string) (*model.RawMaterial, error)
	ListMaterials(ctx context.Context, page, limit int) ([]model.RawMaterial, int64, error)
	// RecordMovement appends a ledger entry and applies its stock effect in one
	// transaction. Incoming movements with a unit price also fold into the
	// material's weighted average purchase price.
	RecordMovement(ctx context.Context, userID string, materialID string, req RecordMovementRequest) (*model.RawMaterialStockMovement, error)
	ListMovements(ctx context.Context, materialID string, page, limit int) ([]model.RawMaterialStockMovement, int64, error)
	LowStockMaterials(ctx context.Context, limit int) ([]LowStockItem, error)
}

type materialService struct {
	materialRepo repository.MaterialRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
	now          func() time.Time
}

func NewMaterialService(
	materialRepo repository.MaterialRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) MaterialService {
	return &materialService{
		materialRepo: materialRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
		now:          time.Now,
	}
}

func (s *materialService) CreateMaterial(ctx context.Context, userID string, req CreateMaterialRequest) (*model.RawMaterial, error) {
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		return nil, apperror.NewValidation("invalid unit id").WithDetail("field", "unit_id")
	}
	currentStock, err := parseAmount(req.CurrentStock, "current_stock")
	if err != nil {
		return nil, err
	}
	minimumStock, err := parseAmount(req.MinimumStock, "minimum_stock")
	if err != nil {
		return nil, err
	}

	material := &model.RawMaterial{
		Name:         req.Name,
		Description:  req.Description,
		UnitID:       unitID,
		CurrentStock: currentStock,
		MinimumStock: minimumStock,
		Status:       model.ProductStatusActive,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.materialRepo.Create(txCtx, material); createErr != nil {
			return fmt.Errorf("failed to create raw material: %w", createErr)
		}
		return s.logMaterialAction(txCtx, userID, model.ActionCreateMaterial, material, nil)
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *materialService) UpdateMaterial(ctx context.Context, userID string, id string, req UpdateMaterialRequest) (*model.RawMaterial, error) {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid material id").WithDetail("field", "id")
	}

	var material *model.RawMaterial
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		material, findErr = s.materialRepo.FindByID(txCtx, materialID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("raw material", id)
			}
			return fmt.Errorf("failed to find raw material: %w", findErr)
		}

		if req.Name != "" {
			material.Name = req.Name
		}
		if req.Description != "" {
			material.Description = req.Description
		}
		if req.MinimumStock != "" {
			minimum, parseErr := parseRequiredAmount(req.MinimumStock, "minimum_stock")
			if parseErr != nil {
				return parseErr
			}
			material.MinimumStock = minimum
		}
		if req.Status != "" {
			material.Status = req.Status
		}

		if updateErr := s.materialRepo.Update(txCtx, material); updateErr != nil {
			return fmt.Errorf("failed to update raw material: %w", updateErr)
		}
		return s.logMaterialAction(txCtx, userID, model.ActionUpdateMaterial, material, nil)
	})
	if err != nil {
		return nil, err
	}
	return material, nil
}

func (s *materialService) GetMaterial(ctx context.Context, id string) (*model.RawMaterial, error) {
	materialID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid material id").WithDetail("field", "id")
	}

	material, err := s.materialRepo.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("raw material", id)
		}
		return nil, fmt.Errorf("failed to find raw material: %w", err)
	}
	return material, nil
}

func (s *materialService) ListMaterials(ctx context.Context, page, limit int) ([]model.RawMaterial, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.materialRepo.List(ctx, page, limit)
}

func (s *materialService) RecordMovement(ctx context.Context, userID string, materialID string, req RecordMovementRequest) (*model.RawMaterialStockMovement, error) {
	matID, err := uuid.Parse(materialID)
	if err != nil {
		return nil, apperror.NewValidation("invalid material id").WithDetail("field", "material_id")
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.NewValidation("invalid user id").WithDetail("field", "user_id")
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil || !quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	unitPrice, err := parseAmount(req.UnitPrice, "unit_price")
	if err != nil {
		return nil, err
	}

	var supplierID *uuid.UUID
	if req.SupplierID != "" {
		parsed, parseErr := uuid.Parse(req.SupplierID)
		if parseErr != nil {
			return nil, apperror.NewValidation("invalid supplier id").WithDetail("field", "supplier_id")
		}
		supplierID = &parsed
	}

	movementDate := s.now()
	if req.MovementDate != "" {
		movementDate, err = time.Parse("2006-01-02", req.MovementDate)
		if err != nil {
			return nil, apperror.NewValidation("invalid movement_date, expected YYYY-MM-DD").WithDetail("field", "movement_date")
		}
	}

	var movement *model.RawMaterialStockMovement
	var newStock decimal.Decimal
	var crossedMinimum bool
	var material *model.RawMaterial

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		material, findErr = s.materialRepo.FindByID(txCtx, matID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NewUnknownReference("raw material", materialID)
			}
			return fmt.Errorf("failed to find raw material: %w", findErr)
		}
		if !material.IsActive() {
			return apperror.NewUnknownReference("raw material", materialID).WithDetail("status", material.Status)
		}

		delta := quantity
		if req.Type == model.MovementTypeOutgoing {
			delta = quantity.Neg()
		}

		var adjErr error
		newStock, adjErr = s.materialRepo.AdjustStock(txCtx, matID, delta)
		if adjErr != nil {
			if errors.Is(adjErr, repository.ErrInsufficientStock) {
				return apperror.NewInsufficientStock(materialID, quantity.StringFixed(2), material.CurrentStock.StringFixed(2))
			}
			return fmt.Errorf("failed to adjust material stock: %w", adjErr)
		}

		// Incoming deliveries with a price fold into the weighted average:
		// newAvg = (oldStock*oldAvg + qty*price) / (oldStock + qty).
		if req.Type == model.MovementTypeIncoming && unitPrice.IsPositive() {
			oldValue := material.CurrentStock.Mul(material.AveragePurchasePrice)
			newValue := oldValue.Add(quantity.Mul(unitPrice))
			newAvg := newValue.Div(material.CurrentStock.Add(quantity)).Round(2)
			if avgErr := s.materialRepo.UpdateAveragePrice(txCtx, matID, newAvg); avgErr != nil {
				return fmt.Errorf("failed to update average purchase price: %w", avgErr)
			}
		}

		movement = &model.RawMaterialStockMovement{
			RawMaterialID:   matID,
			Type:            req.Type,
			Quantity:        quantity,
			UnitPrice:       unitPrice,
			SupplierID:      supplierID,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			MovementDate:    movementDate,
			UserID:          userUUID,
		}
		if createErr := s.materialRepo.CreateMovement(txCtx, movement); createErr != nil {
			return fmt.Errorf("failed to record stock movement: %w", createErr)
		}

		crossedMinimum = newStock.LessThanOrEqual(material.MinimumStock)

		return s.logMaterialAction(txCtx, userID, model.ActionRecordMovement, material, map[string]interface{}{
			"type":      req.Type,
			"quantity":  quantity.StringFixed(2),
			"new_stock": newStock.StringFixed(2),
			"reference": req.ReferenceNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	if crossedMinimum {
		s.broadcast("stock.low", map[string]interface{}{
			"raw_material_id": material.ID.String(),
			"name":            material.Name,
			"current_stock":   newStock.StringFixed(2),
			"minimum_stock":   material.MinimumStock.StringFixed(2),
		})
	}
	s.broadcast("stock.movement", map[string]interface{}{
		"raw_material_id": matID.String(),
		"type":            req.Type,
		"quantity":        quantity.StringFixed(2),
		"new_stock":       newStock.StringFixed(2),
	})

	return movement, nil
}

func (s *materialService) ListMovements(ctx context.Context, materialID string, page, limit int) ([]model.RawMaterialStockMovement, int64, error) {
	matID, err := uuid.Parse(materialID)
	if err != nil {
		return nil, 0, apperror.NewValidation("invalid material id").WithDetail("field", "material_id")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.materialRepo.ListMovements(ctx, matID, page, limit)
}

func (s *materialService) LowStockMaterials(ctx context.Context, limit int) ([]LowStockItem, error) {
	materials, err := s.materialRepo.LowStock(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low stock materials: %w", err)
	}

	items := make([]LowStockItem, 0, len(materials))
	for i := range materials {
		m := &materials[i]
		items = append(items, LowStockItem{
			ID:           m.ID.String(),
			Name:         m.Name,
			CurrentStock: m.CurrentStock.StringFixed(2),
			MinimumStock: m.MinimumStock.StringFixed(2),
			Deficit:      m.StockDeficit().StringFixed(2),
		})
	}
	return items, nil
}

func (s *materialService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(SaleEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func (s *materialService) logMaterialAction(ctx context.Context, userID, action string, material *model.RawMaterial, extra map[string]interface{}) error {
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
		EntityID:   material.ID.String(),
		EntityName: material.Name,
		Details:    details,
	})
}

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

// invoiceRetries bounds how often a sale insert is retried after an invoice
// number collision before giving up.
const invoiceRetries = 3

// --- DTOs ---

type SaleItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
	UnitPrice string `json:"unit_price" binding:"required"`
}

type CreateSaleRequest struct {
	CustomerID     string            `json:"customer_id"`
	SaleDate       string            `json:"sale_date"` // YYYY-MM-DD, defaults to today
	TaxAmount      string            `json:"tax_amount"`
	DiscountAmount string            `json:"discount_amount"`
	PaymentMethod  string            `json:"payment_method" binding:"required,oneof=cash transfer card"`
	AmountPaid     string            `json:"amount_paid" binding:"required"`
	Notes          string            `json:"notes"`
	Status         string            `json:"status" binding:"omitempty,oneof=completed pending"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type SaleItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	SKU        string `json:"sku,omitempty"`
	Name       string `json:"name,omitempty"`
	Quantity   string `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
}

type SaleResponse struct {
	ID             string             `json:"id"`
	InvoiceNumber  string             `json:"invoice_number"`
	CustomerID     *string            `json:"customer_id"`
	CustomerName   string             `json:"customer_name,omitempty"`
	CashierID      string             `json:"cashier_id"`
	CashierName    string             `json:"cashier_name,omitempty"`
	SaleDate       string             `json:"sale_date"`
	Subtotal       string             `json:"subtotal"`
	TaxAmount      string             `json:"tax_amount"`
	DiscountAmount string             `json:"discount_amount"`
	TotalAmount    string             `json:"total_amount"`
	PaymentMethod  string             `json:"payment_method"`
	AmountPaid     string             `json:"amount_paid"`
	ChangeAmount   string             `json:"change_amount"`
	Notes          string             `json:"notes,omitempty"`
	Status         string             `json:"status"`
	Items          []SaleItemResponse `json:"items"`
	CreatedAt      string             `json:"created_at"`
}

// SaleEvent is broadcast over the websocket hub after a committed sale mutation
type SaleEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// --- Interface ---

type SaleService interface {
	CreateSale(ctx context.Context, cashierID string, req CreateSaleRequest) (*SaleResponse, error)
	DeleteSale(ctx context.Context, userID string, id string) error
	GetSale(ctx context.Context, id string) (*SaleResponse, error)
	ListSales(ctx context.Context, status string, page, limit int) ([]SaleResponse, int64, error)
}

type saleService struct {
	saleRepo     repository.SaleRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
	now          func() time.Time
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) SaleService {
	return &saleService{
		saleRepo:     saleRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
		now:          time.Now,
	}
}

// resolvedItem is a validated sale line ready to persist.
type resolvedItem struct {
	productID  uuid.UUID
	quantity   decimal.Decimal
	unitPrice  decimal.Decimal
	totalPrice decimal.Decimal
}

// lowStockAlert captures a product that crossed its minimum during a sale.
type lowStockAlert struct {
	productID string
	sku       string
	newStock  decimal.Decimal
	minimum   decimal.Decimal
}

// --- Implementation ---

// CreateSale atomically creates the sale header, its items and the implied
// stock decrements. Either everything commits or nothing does: a failed stock
// adjustment on the last item rolls back the header, all items and every
// earlier decrement. The invoice number is generated inside the same
// transaction; the unique index on invoice_number detects races and the whole
// transaction is retried with a fresh number.
func (s *saleService) CreateSale(ctx context.Context, cashierID string, req CreateSaleRequest) (*SaleResponse, error) {
	cashier, err := uuid.Parse(cashierID)
	if err != nil {
		return nil, apperror.NewValidation("invalid cashier id").WithDetail("field", "cashier_id")
	}

	items, err := resolveItems(req.Items)
	if err != nil {
		return nil, err
	}

	taxAmount, err := parseAmount(req.TaxAmount, "tax_amount")
	if err != nil {
		return nil, err
	}
	discountAmount, err := parseAmount(req.DiscountAmount, "discount_amount")
	if err != nil {
		return nil, err
	}
	amountPaid, err := parseRequiredAmount(req.AmountPaid, "amount_paid")
	if err != nil {
		return nil, err
	}

	saleDate := s.now()
	if req.SaleDate != "" {
		saleDate, err = time.Parse("2006-01-02", req.SaleDate)
		if err != nil {
			return nil, apperror.NewValidation("invalid sale_date, expected YYYY-MM-DD").WithDetail("field", "sale_date")
		}
	}

	status := req.Status
	if status == "" {
		status = model.SaleStatusCompleted
	}

	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, parseErr := uuid.Parse(req.CustomerID)
		if parseErr != nil {
			return nil, apperror.NewValidation("invalid customer id").WithDetail("field", "customer_id")
		}
		if _, findErr := s.customerRepo.FindByID(ctx, parsed); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return nil, apperror.NewUnknownReference("customer", req.CustomerID)
			}
			return nil, fmt.Errorf("failed to find customer: %w", findErr)
		}
		customerID = &parsed
	}

	// Subtotal is derived from the lines, never trusted from the caller.
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.totalPrice)
	}
	totalAmount := subtotal.Add(taxAmount).Sub(discountAmount)
	if totalAmount.IsNegative() {
		return nil, apperror.NewValidation("discount exceeds subtotal plus tax").WithDetail("field", "discount_amount")
	}
	changeAmount := amountPaid.Sub(totalAmount)
	if changeAmount.IsNegative() {
		return nil, apperror.NewValidation("amount_paid does not cover the total").WithDetail("field", "amount_paid")
	}

	var sale *model.Sale
	var alerts []lowStockAlert
	prefix := "INV-" + saleDate.Format("20060102") + "-"

	for attempt := 0; attempt < invoiceRetries; attempt++ {
		alerts = alerts[:0]

		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			seq, seqErr := s.saleRepo.MaxInvoiceSeq(txCtx, prefix)
			if seqErr != nil {
				return fmt.Errorf("failed to derive invoice sequence: %w", seqErr)
			}
			invoiceNumber := fmt.Sprintf("%s%04d", prefix, seq+1)

			sale = &model.Sale{
				InvoiceNumber:  invoiceNumber,
				CustomerID:     customerID,
				CashierID:      cashier,
				SaleDate:       saleDate,
				Subtotal:       subtotal,
				TaxAmount:      taxAmount,
				DiscountAmount: discountAmount,
				TotalAmount:    totalAmount,
				PaymentMethod:  req.PaymentMethod,
				AmountPaid:     amountPaid,
				ChangeAmount:   changeAmount,
				Notes:          req.Notes,
				Status:         status,
			}
			if createErr := s.saleRepo.Create(txCtx, sale); createErr != nil {
				return createErr
			}

			for _, item := range items {
				product, findErr := s.productRepo.FindByID(txCtx, item.productID)
				if findErr != nil {
					if errors.Is(findErr, gorm.ErrRecordNotFound) {
						return apperror.NewUnknownReference("product", item.productID.String())
					}
					return fmt.Errorf("failed to find product %s: %w", item.productID, findErr)
				}
				if !product.IsActive() {
					return apperror.NewUnknownReference("product", item.productID.String()).
						WithDetail("status", product.Status)
				}

				saleItem := &model.SaleItem{
					SaleID:     sale.ID,
					ProductID:  item.productID,
					Quantity:   item.quantity,
					UnitPrice:  item.unitPrice,
					TotalPrice: item.totalPrice,
				}
				if itemErr := s.saleRepo.CreateItem(txCtx, saleItem); itemErr != nil {
					return fmt.Errorf("failed to create sale item: %w", itemErr)
				}

				newStock, adjErr := s.productRepo.AdjustStock(txCtx, item.productID, item.quantity.Neg())
				if adjErr != nil {
					if errors.Is(adjErr, repository.ErrInsufficientStock) {
						return apperror.NewInsufficientStock(
							item.productID.String(),
							item.quantity.StringFixed(2),
							product.CurrentStock.StringFixed(2),
						)
					}
					return fmt.Errorf("failed to adjust stock for %s: %w", item.productID, adjErr)
				}

				if newStock.LessThanOrEqual(product.MinimumStock) {
					alerts = append(alerts, lowStockAlert{
						productID: product.ID.String(),
						sku:       product.SKU,
						newStock:  newStock,
						minimum:   product.MinimumStock,
					})
				}
			}

			details, _ := json.Marshal(map[string]interface{}{
				"invoice_number": sale.InvoiceNumber,
				"total_amount":   totalAmount.StringFixed(2),
				"item_count":     len(items),
				"payment_method": req.PaymentMethod,
			})
			audit := &model.AuditLog{
				UserID:     &cashier,
				Action:     model.ActionCreateSale,
				EntityID:   sale.ID.String(),
				EntityName: sale.InvoiceNumber,
				Details:    string(details),
			}
			return s.auditRepo.Log(txCtx, audit)
		})

		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another cashier took the number first; rescan and retry.
			continue
		}
		return nil, err
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.NewDuplicateInvoiceNumber(prefix + "XXXX").WithCause(err)
		}
		return nil, err
	}

	s.broadcast("sale.created", map[string]interface{}{
		"sale_id":        sale.ID.String(),
		"invoice_number": sale.InvoiceNumber,
		"total_amount":   sale.TotalAmount.StringFixed(2),
	})
	for _, alert := range alerts {
		s.broadcast("stock.low", map[string]interface{}{
			"product_id":    alert.productID,
			"sku":           alert.sku,
			"current_stock": alert.newStock.StringFixed(2),
			"minimum_stock": alert.minimum.StringFixed(2),
		})
	}

	reloaded, err := s.saleRepo.FindByIDWithItems(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload sale: %w", err)
	}
	resp := toSaleResponse(reloaded)
	return &resp, nil
}

// DeleteSale removes a pending sale and restores exactly the stock its items
// decremented, all in one transaction. Completed and cancelled sales are
// immutable and never restock.
func (s *saleService) DeleteSale(ctx context.Context, userID string, id string) error {
	saleID, err := uuid.Parse(id)
	if err != nil {
		return apperror.NewValidation("invalid sale id").WithDetail("field", "id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, findErr := s.saleRepo.FindByIDWithItems(txCtx, saleID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NewNotFound("sale", id)
			}
			return fmt.Errorf("failed to find sale: %w", findErr)
		}

		if !sale.IsDeletable() {
			return apperror.NewDeletionNotAllowed(sale.ID.String(), sale.Status)
		}

		for _, item := range sale.Items {
			if _, adjErr := s.productRepo.AdjustStock(txCtx, item.ProductID, item.Quantity); adjErr != nil {
				return fmt.Errorf("failed to restore stock for %s: %w", item.ProductID, adjErr)
			}
		}

		if delErr := s.saleRepo.DeleteItems(txCtx, saleID); delErr != nil {
			return fmt.Errorf("failed to delete sale items: %w", delErr)
		}
		if delErr := s.saleRepo.Delete(txCtx, saleID); delErr != nil {
			return fmt.Errorf("failed to delete sale: %w", delErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}
		details, _ := json.Marshal(map[string]interface{}{
			"invoice_number": sale.InvoiceNumber,
			"item_count":     len(sale.Items),
		})
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteSale,
			EntityID:   sale.ID.String(),
			EntityName: sale.InvoiceNumber,
			Details:    string(details),
		}
		return s.auditRepo.Log(txCtx, audit)
	})
}

func (s *saleService) GetSale(ctx context.Context, id string) (*SaleResponse, error) {
	saleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.NewValidation("invalid sale id").WithDetail("field", "id")
	}

	sale, err := s.saleRepo.FindByIDWithItems(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFound("sale", id)
		}
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	resp := toSaleResponse(sale)
	return &resp, nil
}

func (s *saleService) ListSales(ctx context.Context, status string, page, limit int) ([]SaleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	sales, total, err := s.saleRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch sales: %w", err)
	}

	result := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		result = append(result, toSaleResponse(&sales[i]))
	}
	return result, total, nil
}

func (s *saleService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(SaleEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

// --- Helpers ---

func resolveItems(reqs []SaleItemRequest) ([]resolvedItem, error) {
	if len(reqs) == 0 {
		return nil, apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}

	items := make([]resolvedItem, 0, len(reqs))
	for i, req := range reqs {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product_id").
				WithDetail("field", "items").WithDetail("index", i)
		}
		quantity, err := decimal.NewFromString(req.Quantity)
		if err != nil || !quantity.IsPositive() {
			return nil, apperror.NewValidation("quantity must be positive").
				WithDetail("field", "items").WithDetail("index", i)
		}
		unitPrice, err := decimal.NewFromString(req.UnitPrice)
		if err != nil || unitPrice.IsNegative() {
			return nil, apperror.NewValidation("unit_price must not be negative").
				WithDetail("field", "items").WithDetail("index", i)
		}

		items = append(items, resolvedItem{
			productID:  productID,
			quantity:   quantity,
			unitPrice:  unitPrice,
			totalPrice: quantity.Mul(unitPrice).Round(2),
		})
	}
	return items, nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return parseRequiredAmount(raw, field)
}

func parseRequiredAmount(raw, field string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.NewValidation("invalid "+field).WithDetail("field", field)
	}
	if amount.IsNegative() {
		return decimal.Zero, apperror.NewValidation(field + " must not be negative").WithDetail("field", field)
	}
	return amount, nil
}

func toSaleResponse(sale *model.Sale) SaleResponse {
	resp := SaleResponse{
		ID:             sale.ID.String(),
		InvoiceNumber:  sale.InvoiceNumber,
		CashierID:      sale.CashierID.String(),
		SaleDate:       sale.SaleDate.Format("2006-01-02"),
		Subtotal:       sale.Subtotal.StringFixed(2),
		TaxAmount:      sale.TaxAmount.StringFixed(2),
		DiscountAmount: sale.DiscountAmount.StringFixed(2),
		TotalAmount:    sale.TotalAmount.StringFixed(2),
		PaymentMethod:  sale.PaymentMethod,
		AmountPaid:     sale.AmountPaid.StringFixed(2),
		ChangeAmount:   sale.ChangeAmount.StringFixed(2),
		Notes:          sale.Notes,
		Status:         sale.Status,
		Items:          make([]SaleItemResponse, 0, len(sale.Items)),
		CreatedAt:      sale.CreatedAt.Format(time.RFC3339),
	}

	if sale.CustomerID != nil {
		cid := sale.CustomerID.String()
		resp.CustomerID = &cid
	}
	if sale.Customer != nil {
		resp.CustomerName = sale.Customer.Name
	}
	if sale.Cashier != nil {
		resp.CashierName = sale.Cashier.Name
	}

	for _, item := range sale.Items {
		itemResp := SaleItemResponse{
			ID:         item.ID.String(),
			ProductID:  item.ProductID.String(),
			Quantity:   item.Quantity.StringFixed(2),
			UnitPrice:  item.UnitPrice.StringFixed(2),
			TotalPrice: item.TotalPrice.StringFixed(2),
		}
		if item.Product != nil {
			itemResp.SKU = item.Product.SKU
			itemResp.Name = item.Product.Name
		}
		resp.Items = append(resp.Items, itemResp)
	}

	return resp
}

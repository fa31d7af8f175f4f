package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"paintpos/internal/model"
	"paintpos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSaleTestEnv() (*memStore, *saleService, uuid.UUID) {
	store := newMemStore()
	svc := &saleService{
		saleRepo:     &fakeSaleRepo{store: store},
		productRepo:  &fakeProductRepo{store: store},
		customerRepo: &fakeCustomerRepo{store: store},
		auditRepo:    &fakeAuditRepo{store: store},
		txManager:    newFakeTxManager(store),
		now:          func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) },
	}
	return store, svc, uuid.New()
}

func seedProduct(store *memStore, sku string, stock, minimum, price string) uuid.UUID {
	id := uuid.New()
	store.products[id] = model.Product{
		ID:           id,
		Name:         "Product " + sku,
		SKU:          sku,
		CategoryID:   uuid.New(),
		SellingPrice: decimal.RequireFromString(price),
		CurrentStock: decimal.RequireFromString(stock),
		MinimumStock: decimal.RequireFromString(minimum),
		Status:       model.ProductStatusActive,
	}
	return id
}

func saleReq(items ...SaleItemRequest) CreateSaleRequest {
	total := decimal.Zero
	for _, it := range items {
		q := decimal.RequireFromString(it.Quantity)
		p := decimal.RequireFromString(it.UnitPrice)
		total = total.Add(q.Mul(p))
	}
	return CreateSaleRequest{
		PaymentMethod: model.PaymentMethodCash,
		AmountPaid:    total.StringFixed(2),
		Items:         items,
	}
}

func TestCreateSale_ComputesTotalsAndDecrementsStock(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "ARM003", "25.00", "5.00", "65.00")

	resp, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(),
		Quantity:  "3",
		UnitPrice: "65.00",
	}))
	require.NoError(t, err)

	assert.Equal(t, "195.00", resp.Subtotal)
	assert.Equal(t, "195.00", resp.TotalAmount)
	assert.Equal(t, "0.00", resp.ChangeAmount)
	assert.Equal(t, model.SaleStatusCompleted, resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "195.00", resp.Items[0].TotalPrice)

	assert.Equal(t, "22", store.products[productID].CurrentStock.String())
}

func TestCreateSale_SubtotalIsSumOfLineTotals(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	p1 := seedProduct(store, "SKU-1", "100", "5", "12.50")
	p2 := seedProduct(store, "SKU-2", "100", "5", "7.25")

	req := saleReq(
		SaleItemRequest{ProductID: p1.String(), Quantity: "2.5", UnitPrice: "12.50"},
		SaleItemRequest{ProductID: p2.String(), Quantity: "4", UnitPrice: "7.25"},
	)
	req.TaxAmount = "5.00"
	req.DiscountAmount = "3.00"
	req.AmountPaid = "100.00"

	resp, err := svc.CreateSale(context.Background(), cashier.String(), req)
	require.NoError(t, err)

	// 2.5*12.50 + 4*7.25 = 31.25 + 29.00 = 60.25
	assert.Equal(t, "60.25", resp.Subtotal)
	// 60.25 + 5.00 - 3.00 = 62.25
	assert.Equal(t, "62.25", resp.TotalAmount)
	assert.Equal(t, "37.75", resp.ChangeAmount)
}

func TestCreateSale_InvoiceNumberFormat(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")

	first, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, "INV-20250615-0001", first.InvoiceNumber)

	second, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, "INV-20250615-0002", second.InvoiceNumber)
}

func TestCreateSale_InsufficientStockRollsBackEverything(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	okID := seedProduct(store, "SKU-OK", "50", "5", "10.00")
	lowID := seedProduct(store, "SKU-LOW", "2", "5", "20.00")

	req := saleReq(
		SaleItemRequest{ProductID: okID.String(), Quantity: "10", UnitPrice: "10.00"},
		SaleItemRequest{ProductID: lowID.String(), Quantity: "5", UnitPrice: "20.00"},
	)

	_, err := svc.CreateSale(context.Background(), cashier.String(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// The first item's decrement must be undone with the rest.
	assert.Equal(t, "50", store.products[okID].CurrentStock.String())
	assert.Equal(t, "2", store.products[lowID].CurrentStock.String())
	assert.Empty(t, store.sales)
	assert.Empty(t, store.invoices)
	assert.Empty(t, store.audits)
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	_, svc, cashier := newSaleTestEnv()

	_, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: uuid.New().String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownReference))
}

func TestCreateSale_InactiveProductRejected(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")
	p := store.products[productID]
	p.Status = model.ProductStatusInactive
	store.products[productID] = p

	_, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownReference))
	assert.Equal(t, "100", store.products[productID].CurrentStock.String())
}

func TestCreateSale_RejectsNonPositiveQuantity(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")

	for _, qty := range []string{"0", "-1", "abc"} {
		req := CreateSaleRequest{
			PaymentMethod: model.PaymentMethodCash,
			AmountPaid:    "10.00",
			Items: []SaleItemRequest{
				{ProductID: productID.String(), Quantity: qty, UnitPrice: "10.00"},
			},
		}
		_, err := svc.CreateSale(context.Background(), cashier.String(), req)
		require.Error(t, err, "quantity %s", qty)
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	}
}

func TestCreateSale_RejectsUnderpayment(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")

	req := saleReq(SaleItemRequest{ProductID: productID.String(), Quantity: "2", UnitPrice: "10.00"})
	req.AmountPaid = "15.00"

	_, err := svc.CreateSale(context.Background(), cashier.String(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, "100", store.products[productID].CurrentStock.String())
}

func TestCreateSale_RetriesOnInvoiceCollision(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")
	store.failSaleCreates = 2

	resp, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.NoError(t, err)
	assert.Equal(t, "INV-20250615-0001", resp.InvoiceNumber)
	assert.Equal(t, "99", store.products[productID].CurrentStock.String())
}

func TestCreateSale_GivesUpAfterRepeatedCollisions(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")
	store.failSaleCreates = invoiceRetries

	_, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicateInvoiceNumber))
	assert.Equal(t, "100", store.products[productID].CurrentStock.String())
}

func TestCreateSale_ConcurrentOverdrawOnlyOneSucceeds(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "10", "0", "10.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
				ProductID: productID.String(), Quantity: "6", UnitPrice: "10.00",
			}))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, "4", store.products[productID].CurrentStock.String())
}

func TestCreateSale_ConcurrentInvoiceNumbersDistinct(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "1000", "0", "10.00")

	const n = 100
	var wg sync.WaitGroup
	numbers := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
				ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
			}))
			if err == nil {
				numbers[i] = resp.InvoiceNumber
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, number := range numbers {
		require.NotEmpty(t, number, "sale %d failed", i)
		assert.False(t, seen[number], "duplicate invoice number %s", number)
		seen[number] = true
		assert.Regexp(t, `^INV-20250615-\d{4}$`, number)
	}
	assert.Len(t, seen, n)
	assert.Equal(t, fmt.Sprintf("%d", 1000-n), store.products[productID].CurrentStock.String())
}

func TestDeleteSale_PendingRestoresStock(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "30", "5", "10.00")

	req := saleReq(SaleItemRequest{ProductID: productID.String(), Quantity: "4", UnitPrice: "10.00"})
	req.Status = model.SaleStatusPending

	resp, err := svc.CreateSale(context.Background(), cashier.String(), req)
	require.NoError(t, err)
	require.Equal(t, "26", store.products[productID].CurrentStock.String())

	err = svc.DeleteSale(context.Background(), cashier.String(), resp.ID)
	require.NoError(t, err)

	assert.Equal(t, "30", store.products[productID].CurrentStock.String())
	assert.Empty(t, store.sales)
	assert.Empty(t, store.invoices)

	_, err = svc.GetSale(context.Background(), resp.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestDeleteSale_CompletedIsImmutable(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "30", "5", "10.00")

	resp, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "4", UnitPrice: "10.00",
	}))
	require.NoError(t, err)

	err = svc.DeleteSale(context.Background(), cashier.String(), resp.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDeletionNotAllowed))

	// Stock stays decremented and the sale remains.
	assert.Equal(t, "26", store.products[productID].CurrentStock.String())
	assert.Len(t, store.sales, 1)
}

func TestDeleteSale_NotFound(t *testing.T) {
	_, svc, cashier := newSaleTestEnv()

	err := svc.DeleteSale(context.Background(), cashier.String(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestCreateSale_UnknownCustomerRejected(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")

	req := saleReq(SaleItemRequest{ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00"})
	req.CustomerID = uuid.New().String()

	_, err := svc.CreateSale(context.Background(), cashier.String(), req)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownReference))
	assert.Equal(t, "100", store.products[productID].CurrentStock.String())
}

func TestCreateSale_WritesAuditLog(t *testing.T) {
	store, svc, cashier := newSaleTestEnv()
	productID := seedProduct(store, "SKU-1", "100", "5", "10.00")

	resp, err := svc.CreateSale(context.Background(), cashier.String(), saleReq(SaleItemRequest{
		ProductID: productID.String(), Quantity: "1", UnitPrice: "10.00",
	}))
	require.NoError(t, err)

	require.Len(t, store.audits, 1)
	entry := store.audits[0]
	assert.Equal(t, model.ActionCreateSale, entry.Action)
	assert.Equal(t, resp.InvoiceNumber, entry.EntityName)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, cashier, *entry.UserID)
}

package service

import (
	"context"
	"testing"

	"paintpos/internal/model"
	"paintpos/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryTestEnv() (*memStore, InventoryService, uuid.UUID) {
	store := newMemStore()
	svc := NewInventoryService(
		&fakeProductRepo{store: store},
		&fakeAuditRepo{store: store},
		newFakeTxManager(store),
	)
	return store, svc, uuid.New()
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	store, svc, user := newInventoryTestEnv()
	seedProduct(store, "ARM003", "10", "5", "65.00")

	_, err := svc.CreateProduct(context.Background(), user.String(), CreateProductRequest{
		Name:         "Armor Exterior 5L",
		SKU:          "ARM003",
		CategoryID:   uuid.New().String(),
		SellingPrice: "65.00",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}

func TestCreateProduct_DefaultsActive(t *testing.T) {
	_, svc, user := newInventoryTestEnv()

	product, err := svc.CreateProduct(context.Background(), user.String(), CreateProductRequest{
		Name:         "Armor Interior 1L",
		SKU:          "ARM001",
		CategoryID:   uuid.New().String(),
		SellingPrice: "18.50",
		CurrentStock: "25",
		MinimumStock: "5",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusActive, product.Status)
	assert.Equal(t, "25", product.CurrentStock.String())
}

func TestAdjustStock_ManualCorrection(t *testing.T) {
	store, svc, user := newInventoryTestEnv()
	productID := seedProduct(store, "ARM003", "25", "5", "65.00")

	newStock, err := svc.AdjustStock(context.Background(), user.String(), productID.String(), AdjustStockRequest{
		Delta:  "-3",
		Reason: "damaged cans",
	})
	require.NoError(t, err)
	assert.Equal(t, "22", newStock.String())
	assert.Equal(t, "22", store.products[productID].CurrentStock.String())
}

func TestAdjustStock_CannotGoNegative(t *testing.T) {
	store, svc, user := newInventoryTestEnv()
	productID := seedProduct(store, "ARM003", "5", "5", "65.00")

	_, err := svc.AdjustStock(context.Background(), user.String(), productID.String(), AdjustStockRequest{
		Delta: "-6",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Equal(t, "5", store.products[productID].CurrentStock.String())
}

func TestAdjustStock_ZeroDeltaRejected(t *testing.T) {
	store, svc, user := newInventoryTestEnv()
	productID := seedProduct(store, "ARM003", "5", "5", "65.00")

	_, err := svc.AdjustStock(context.Background(), user.String(), productID.String(), AdjustStockRequest{
		Delta: "0",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestLowStockProducts_BoundaryInclusive(t *testing.T) {
	store, svc, _ := newInventoryTestEnv()
	atMinimum := seedProduct(store, "AT-MIN", "5", "5", "10.00")
	below := seedProduct(store, "BELOW", "1", "5", "10.00")
	above := seedProduct(store, "ABOVE", "6", "5", "10.00")

	items, err := svc.LowStockProducts(context.Background(), 0)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, item := range items {
		ids[item.ID] = true
	}
	assert.True(t, ids[atMinimum.String()], "stock equal to minimum counts as low")
	assert.True(t, ids[below.String()])
	assert.False(t, ids[above.String()])
}

func TestUpdateProduct_NotFound(t *testing.T) {
	_, svc, user := newInventoryTestEnv()

	_, err := svc.UpdateProduct(context.Background(), user.String(), uuid.New().String(), UpdateProductRequest{
		Name: "renamed",
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"paintpos/internal/model"
	"paintpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is the shared in-memory state behind the fake repositories.
// All access goes through mu so the concurrency tests exercise real
// interleavings.
type memStore struct {
	mu        sync.Mutex
	products  map[uuid.UUID]model.Product
	sales     map[uuid.UUID]model.Sale
	saleItems map[uuid.UUID][]model.SaleItem
	invoices  map[string]uuid.UUID
	materials map[uuid.UUID]model.RawMaterial
	movements []model.RawMaterialStockMovement
	customers map[uuid.UUID]model.Customer
	audits    []model.AuditLog

	// failSaleCreates forces the next N sale inserts to report a duplicate
	// key, driving the invoice retry path.
	failSaleCreates int
}

func newMemStore() *memStore {
	return &memStore{
		products:  make(map[uuid.UUID]model.Product),
		sales:     make(map[uuid.UUID]model.Sale),
		saleItems: make(map[uuid.UUID][]model.SaleItem),
		invoices:  make(map[string]uuid.UUID),
		materials: make(map[uuid.UUID]model.RawMaterial),
		customers: make(map[uuid.UUID]model.Customer),
	}
}

// snapshot deep-copies the mutable state so a failed transaction can be
// rolled back to it.
func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.sales {
		cp.sales[k] = v
	}
	for k, v := range s.saleItems {
		items := make([]model.SaleItem, len(v))
		copy(items, v)
		cp.saleItems[k] = items
	}
	for k, v := range s.invoices {
		cp.invoices[k] = v
	}
	for k, v := range s.materials {
		cp.materials[k] = v
	}
	cp.movements = make([]model.RawMaterialStockMovement, len(s.movements))
	copy(cp.movements, s.movements)
	for k, v := range s.customers {
		cp.customers[k] = v
	}
	cp.audits = make([]model.AuditLog, len(s.audits))
	copy(cp.audits, s.audits)
	return cp
}

func (s *memStore) restore(snap *memStore) {
	s.products = snap.products
	s.sales = snap.sales
	s.saleItems = snap.saleItems
	s.invoices = snap.invoices
	s.materials = snap.materials
	s.movements = snap.movements
	s.customers = snap.customers
	s.audits = snap.audits
}

// fakeTxManager serializes transactions and restores the store snapshot when
// the function returns an error, mimicking a database rollback.
type fakeTxManager struct {
	store *memStore
	txMu  sync.Mutex
}

func newFakeTxManager(store *memStore) *fakeTxManager {
	return &fakeTxManager{store: store}
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	t.store.mu.Lock()
	snap := t.store.snapshot()
	t.store.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.store.mu.Lock()
		t.store.restore(snap)
		t.store.mu.Unlock()
		return err
	}
	return nil
}

// --- Product repository fake ---

type fakeProductRepo struct {
	store *memStore
}

func (r *fakeProductRepo) Create(ctx context.Context, product *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	for _, p := range r.store.products {
		if p.SKU == product.SKU {
			return gorm.ErrDuplicatedKey
		}
	}
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, product *model.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.products[product.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := p
	return &cp, nil
}

func (r *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.products {
		if p.SKU == sku {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(ctx context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok {
		return decimal.Zero, repository.ErrInsufficientStock
	}
	newStock := p.CurrentStock.Add(delta)
	if newStock.IsNegative() {
		return decimal.Zero, repository.ErrInsufficientStock
	}
	p.CurrentStock = newStock
	r.store.products[id] = p
	return newStock, nil
}

func (r *fakeProductRepo) LowStock(ctx context.Context, limit int) ([]model.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		if p.Status == model.ProductStatusActive && p.CurrentStock.LessThanOrEqual(p.MinimumStock) {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Sale repository fake ---

type fakeSaleRepo struct {
	store *memStore
}

func (r *fakeSaleRepo) Create(ctx context.Context, sale *model.Sale) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failSaleCreates > 0 {
		r.store.failSaleCreates--
		return gorm.ErrDuplicatedKey
	}
	if _, taken := r.store.invoices[sale.InvoiceNumber]; taken {
		return gorm.ErrDuplicatedKey
	}
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	r.store.invoices[sale.InvoiceNumber] = sale.ID
	stored := *sale
	stored.Items = nil
	r.store.sales[sale.ID] = stored
	return nil
}

func (r *fakeSaleRepo) CreateItem(ctx context.Context, item *model.SaleItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.store.saleItems[item.SaleID] = append(r.store.saleItems[item.SaleID], *item)
	return nil
}

func (r *fakeSaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := s
	return &cp, nil
}

func (r *fakeSaleRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := s
	items := make([]model.SaleItem, len(r.store.saleItems[id]))
	copy(items, r.store.saleItems[id])
	cp.Items = items
	return &cp, nil
}

func (r *fakeSaleRepo) List(ctx context.Context, status string, page, limit int) ([]model.Sale, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Sale
	for _, s := range r.store.sales {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeSaleRepo) DeleteItems(ctx context.Context, saleID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.saleItems, saleID)
	return nil
}

func (r *fakeSaleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if s, ok := r.store.sales[id]; ok {
		delete(r.store.invoices, s.InvoiceNumber)
	}
	delete(r.store.sales, id)
	return nil
}

func (r *fakeSaleRepo) MaxInvoiceSeq(ctx context.Context, prefix string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var max int64
	for number := range r.store.invoices {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		seq, err := strconv.ParseInt(number[len(number)-4:], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed invoice number %q", number)
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// --- Material repository fake ---

type fakeMaterialRepo struct {
	store *memStore
}

func (r *fakeMaterialRepo) Create(ctx context.Context, material *model.RawMaterial) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}
	r.store.materials[material.ID] = *material
	return nil
}

func (r *fakeMaterialRepo) Update(ctx context.Context, material *model.RawMaterial) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.materials[material.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.materials[material.ID] = *material
	return nil
}

func (r *fakeMaterialRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RawMaterial, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m
	return &cp, nil
}

func (r *fakeMaterialRepo) List(ctx context.Context, page, limit int) ([]model.RawMaterial, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.RawMaterial
	for _, m := range r.store.materials {
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *fakeMaterialRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.materials[id]
	if !ok {
		return decimal.Zero, repository.ErrInsufficientStock
	}
	newStock := m.CurrentStock.Add(delta)
	if newStock.IsNegative() {
		return decimal.Zero, repository.ErrInsufficientStock
	}
	m.CurrentStock = newStock
	r.store.materials[id] = m
	return newStock, nil
}

func (r *fakeMaterialRepo) UpdateAveragePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.materials[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.AveragePurchasePrice = price
	r.store.materials[id] = m
	return nil
}

func (r *fakeMaterialRepo) LowStock(ctx context.Context, limit int) ([]model.RawMaterial, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.RawMaterial
	for _, m := range r.store.materials {
		if m.Status == model.ProductStatusActive && m.CurrentStock.LessThanOrEqual(m.MinimumStock) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMaterialRepo) CreateMovement(ctx context.Context, movement *model.RawMaterialStockMovement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	r.store.movements = append(r.store.movements, *movement)
	return nil
}

func (r *fakeMaterialRepo) ListMovements(ctx context.Context, materialID uuid.UUID, page, limit int) ([]model.RawMaterialStockMovement, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.RawMaterialStockMovement
	for _, mv := range r.store.movements {
		if mv.RawMaterialID == materialID {
			out = append(out, mv)
		}
	}
	return out, int64(len(out)), nil
}

// --- Customer repository fake ---

type fakeCustomerRepo struct {
	store *memStore
}

func (r *fakeCustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	r.store.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := c
	return &cp, nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, page, limit int, search string) ([]model.Customer, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Customer
	for _, c := range r.store.customers {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

// --- Audit repository fake ---

type fakeAuditRepo struct {
	store *memStore
}

func (r *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]model.AuditLog, len(r.store.audits))
	copy(out, r.store.audits)
	return out, int64(len(out)), nil
}

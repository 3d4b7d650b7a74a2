package sales_test

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/payment"
	"github.com/your-org/commerce-backend/internal/domain/sales"
)

type testEnv struct {
	db      *gorm.DB
	catalog *catalog.Service
	ledger  *ledger.Service
	sales   *sales.Service
}

// memoryIdempotencyStore is a mutex-guarded map standing in for Redis.
type memoryIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (m *memoryIdempotencyStore) Claim(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value, ok := m.values[key]; ok {
		return value, false, nil
	}
	m.values[key] = "pending"
	return "", true, nil
}

func (m *memoryIdempotencyStore) Settle(key string, saleID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = strconv.FormatUint(uint64(saleID), 10)
	return nil
}

func (m *memoryIdempotencyStore) Release(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&catalog.Category{},
		&catalog.Product{},
		&catalog.Variant{},
		&ledger.StockMovement{},
		&sales.Sale{},
		&sales.SaleItem{},
	)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	ledgerSvc := ledger.NewService(db, cfg)
	catalogSvc := catalog.NewService(db, cfg, ledgerSvc)
	return &testEnv{
		db:      db,
		catalog: catalogSvc,
		ledger:  ledgerSvc,
		sales:   sales.NewService(db, cfg, catalogSvc, ledgerSvc, nil),
	}
}

func (e *testEnv) seedVariant(t *testing.T, qty int) *catalog.Variant {
	t.Helper()
	product, err := e.catalog.CreateProduct(&catalog.CreateProductRequest{
		SKU:          "MUG-001",
		Name:         "Coffee Mug",
		SellingPrice: 1200,
		Variants: []catalog.CreateVariantRequest{
			{
				SKU:             "MUG-001-BLK",
				Name:            "Coffee Mug Black",
				SellingPrice:    1200,
				InitialQuantity: qty,
			},
		},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	return &product.Variants[0]
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	sale, err := env.sales.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 4}},
		PaymentMethod: payment.MethodCash,
	}, "", 1)
	if err != nil {
		t.Fatal(err)
	}

	if sale.SaleNumber == "" {
		t.Fatal("sale number not assigned")
	}
	if sale.PaymentStatus != payment.StatusPending {
		t.Fatalf("want pending payment, got %s", sale.PaymentStatus)
	}
	if sale.TotalAmount != 4800 {
		t.Fatalf("want total 4800, got %d", sale.TotalAmount)
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 6 {
		t.Fatalf("want quantity 6, got %d", got.Quantity)
	}

	var movements []ledger.StockMovement
	if err := env.db.Where("reference_type = ? AND reference_id = ?",
		ledger.ReferenceTypeSale, sale.ID).Find(&movements).Error; err != nil {
		t.Fatal(err)
	}
	if len(movements) != 1 {
		t.Fatalf("want 1 movement, got %d", len(movements))
	}
	if movements[0].Delta != -4 || movements[0].Type != ledger.MovementTypeOut {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}
}

func TestCreateSaleRejectsOversell(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 6)

	_, err := env.sales.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 8}},
		PaymentMethod: payment.MethodCash,
	}, "", 1)
	if err == nil {
		t.Fatal("want insufficient stock error, got nil")
	}
	if !catalog.IsInsufficientStock(err) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}

	// The failed sale must leave nothing behind
	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 6 {
		t.Fatalf("want quantity 6, got %d", got.Quantity)
	}

	var saleCount int64
	if err := env.db.Model(&sales.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatal(err)
	}
	if saleCount != 0 {
		t.Fatalf("want no sales persisted, got %d", saleCount)
	}
}

func TestMultiLineSaleIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	// Second line overdraws; the first line must not stick
	_, err := env.sales.CreateSale(&sales.CreateSaleRequest{
		Items: []sales.SaleItemRequest{
			{VariantID: variant.ID, Quantity: 3},
			{VariantID: variant.ID, Quantity: 20},
		},
		PaymentMethod: payment.MethodCard,
	}, "", 1)
	if err == nil {
		t.Fatal("want error, got nil")
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 10 {
		t.Fatalf("want quantity 10, got %d", got.Quantity)
	}

	var movementCount int64
	if err := env.db.Model(&ledger.StockMovement{}).
		Where("reference_type = ?", ledger.ReferenceTypeSale).
		Count(&movementCount).Error; err != nil {
		t.Fatal(err)
	}
	if movementCount != 0 {
		t.Fatalf("want no sale movements, got %d", movementCount)
	}
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	sale, err := env.sales.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 4}},
		PaymentMethod: payment.MethodCash,
	}, "", 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := env.sales.DeleteSale(sale.ID, 7); err != nil {
		t.Fatal(err)
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 10 {
		t.Fatalf("want quantity restored to 10, got %d", got.Quantity)
	}

	// History is preserved: the out movement and the compensating return
	var movements []ledger.StockMovement
	if err := env.db.Where("reference_type = ? AND reference_id = ?",
		ledger.ReferenceTypeSale, sale.ID).Order("id").Find(&movements).Error; err != nil {
		t.Fatal(err)
	}
	if len(movements) != 2 {
		t.Fatalf("want 2 movements, got %d", len(movements))
	}
	if movements[0].Delta+movements[1].Delta != 0 {
		t.Fatalf("movements do not cancel out: %+v", movements)
	}
	if movements[1].Type != ledger.MovementTypeReturn {
		t.Fatalf("want return movement, got %s", movements[1].Type)
	}
	if movements[1].CreatedBy != 7 {
		t.Fatalf("want deleting user 7 recorded, got %d", movements[1].CreatedBy)
	}
}

func TestDeleteSettledSaleFails(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	sale, err := env.sales.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 2}},
		PaymentMethod: payment.MethodCash,
	}, "", 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.sales.UpdatePayment(sale.ID, payment.StatusPaid); err != nil {
		t.Fatal(err)
	}

	err = env.sales.DeleteSale(sale.ID, 1)
	if err != sales.ErrSaleImmutable {
		t.Fatalf("want ErrSaleImmutable, got %v", err)
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 8 {
		t.Fatalf("want quantity unchanged at 8, got %d", got.Quantity)
	}
}

func TestPaymentTransitions(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	sale, err := env.sales.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 1}},
		PaymentMethod: payment.MethodTransfer,
	}, "", 1)
	if err != nil {
		t.Fatal(err)
	}

	sale, err = env.sales.UpdatePayment(sale.ID, payment.StatusPartial)
	if err != nil {
		t.Fatal(err)
	}
	if sale.PaymentStatus != payment.StatusPartial {
		t.Fatalf("want partial, got %s", sale.PaymentStatus)
	}

	sale, err = env.sales.UpdatePayment(sale.ID, payment.StatusPaid)
	if err != nil {
		t.Fatal(err)
	}
	if sale.PaymentStatus != payment.StatusPaid {
		t.Fatalf("want paid, got %s", sale.PaymentStatus)
	}

	// Paid is terminal
	if _, err := env.sales.UpdatePayment(sale.ID, payment.StatusPending); err == nil {
		t.Fatal("want transition error, got nil")
	}
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.sales.CreateSale(&sales.CreateSaleRequest{
				Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 7}},
				PaymentMethod: payment.MethodCash,
			}, "", 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !catalog.IsInsufficientStock(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("want exactly one sale to succeed, got %d", succeeded)
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 3 {
		t.Fatalf("want quantity 3, got %d", got.Quantity)
	}
}

func TestSaleValidation(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	cases := []struct {
		name string
		req  *sales.CreateSaleRequest
	}{
		{"no items", &sales.CreateSaleRequest{PaymentMethod: payment.MethodCash}},
		{"zero quantity", &sales.CreateSaleRequest{
			Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 0}},
			PaymentMethod: payment.MethodCash,
		}},
		{"negative quantity", &sales.CreateSaleRequest{
			Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: -2}},
			PaymentMethod: payment.MethodCash,
		}},
		{"discount exceeds line total", &sales.CreateSaleRequest{
			Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 1, Discount: 99999}},
			PaymentMethod: payment.MethodCash,
		}},
		{"unknown payment method", &sales.CreateSaleRequest{
			Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 1}},
			PaymentMethod: "bitcoin",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.sales.CreateSale(tc.req, "", 1); err == nil {
				t.Fatal("want error, got nil")
			}
		})
	}
}

func TestIdempotentSaleReplay(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	store := newMemoryIdempotencyStore()
	svc := sales.NewService(env.db, &config.Config{}, env.catalog, env.ledger, store)

	req := &sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 4}},
		PaymentMethod: payment.MethodCard,
	}

	first, err := svc.CreateSale(req, "retry-abc", 1)
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.CreateSale(req, "retry-abc", 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay created a new sale: first %d, second %d", first.ID, second.ID)
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 6 {
		t.Fatalf("want stock decremented once to 6, got %d", got.Quantity)
	}

	var saleCount int64
	if err := env.db.Model(&sales.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatal(err)
	}
	if saleCount != 1 {
		t.Fatalf("want 1 sale, got %d", saleCount)
	}

	// A fresh key sells again
	third, err := svc.CreateSale(req, "retry-def", 1)
	if err != nil {
		t.Fatal(err)
	}
	if third.ID == first.ID {
		t.Fatal("distinct key must create a distinct sale")
	}
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	store := newMemoryIdempotencyStore()
	svc := sales.NewService(env.db, &config.Config{}, env.catalog, env.ledger, store)

	_, err := svc.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 20}},
		PaymentMethod: payment.MethodCash,
	}, "retry-abc", 1)
	if !catalog.IsInsufficientStock(err) {
		t.Fatalf("want insufficient stock error, got %v", err)
	}

	// The failed attempt must not pin the key; a corrected retry succeeds
	sale, err := svc.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 3}},
		PaymentMethod: payment.MethodCash,
	}, "retry-abc", 1)
	if err != nil {
		t.Fatal(err)
	}
	if sale.TotalAmount != 3600 {
		t.Fatalf("want total 3600, got %d", sale.TotalAmount)
	}
}

func TestIdempotencyKeyInFlightConflict(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	store := newMemoryIdempotencyStore()
	svc := sales.NewService(env.db, &config.Config{}, env.catalog, env.ledger, store)

	// Another request holds the reservation
	if _, acquired, err := store.Claim("retry-abc"); err != nil || !acquired {
		t.Fatalf("failed to pre-claim key: acquired=%v err=%v", acquired, err)
	}

	_, err := svc.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 2}},
		PaymentMethod: payment.MethodCash,
	}, "retry-abc", 1)
	if err == nil || !strings.Contains(err.Error(), "in flight") {
		t.Fatalf("want in-flight conflict, got %v", err)
	}

	got, err := env.catalog.GetVariant(variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 10 {
		t.Fatalf("want stock untouched at 10, got %d", got.Quantity)
	}
}

func TestIdempotencyKeyCorruptMapping(t *testing.T) {
	env := newTestEnv(t)
	variant := env.seedVariant(t, 10)

	store := newMemoryIdempotencyStore()
	store.values["retry-abc"] = "not-a-sale-id"
	svc := sales.NewService(env.db, &config.Config{}, env.catalog, env.ledger, store)

	_, err := svc.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: variant.ID, Quantity: 2}},
		PaymentMethod: payment.MethodCash,
	}, "retry-abc", 1)
	if err == nil || !strings.Contains(err.Error(), "corrupt idempotency key") {
		t.Fatalf("want corrupt mapping error, got %v", err)
	}
}

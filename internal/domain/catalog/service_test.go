package catalog_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/purchases"
	"github.com/your-org/commerce-backend/internal/domain/sales"
)

func memdb(t *testing.T) *gorm.DB {
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
	// One connection so every session sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&catalog.Category{},
		&catalog.Product{},
		&catalog.Variant{},
		&ledger.StockMovement{},
		&sales.Sale{},
		&sales.SaleItem{},
		&purchases.Purchase{},
		&purchases.PurchaseItem{},
	)
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func newCatalogService(t *testing.T, db *gorm.DB) *catalog.Service {
	t.Helper()
	cfg := &config.Config{}
	return catalog.NewService(db, cfg, ledger.NewService(db, cfg))
}

func createTestProduct(t *testing.T, svc *catalog.Service, initialQty int) *catalog.Product {
	t.Helper()
	product, err := svc.CreateProduct(&catalog.CreateProductRequest{
		SKU:          "TSHIRT-001",
		Name:         "T-Shirt",
		SellingPrice: 2500,
		CostPrice:    1000,
		Variants: []catalog.CreateVariantRequest{
			{
				SKU:             "TSHIRT-001-M",
				Name:            "T-Shirt M",
				SellingPrice:    2500,
				CostPrice:       1000,
				MinQuantity:     2,
				InitialQuantity: initialQty,
			},
		},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	return product
}

func TestCreateProductRecordsInitialStock(t *testing.T) {
	db := memdb(t)
	svc := newCatalogService(t, db)

	product := createTestProduct(t, svc, 10)
	if len(product.Variants) != 1 {
		t.Fatalf("want 1 variant, got %d", len(product.Variants))
	}

	variant, err := svc.GetVariant(product.Variants[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if variant.Quantity != 10 {
		t.Fatalf("want quantity 10, got %d", variant.Quantity)
	}

	// The initial stock must be in the ledger so it reconciles from day one
	var movements []ledger.StockMovement
	if err := db.Where("variant_id = ?", variant.ID).Find(&movements).Error; err != nil {
		t.Fatal(err)
	}
	if len(movements) != 1 {
		t.Fatalf("want 1 movement, got %d", len(movements))
	}
	if movements[0].Type != ledger.MovementTypeAdjustment || movements[0].Delta != 10 {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}
}

func TestAdjustQuantityRejectsOverdraw(t *testing.T) {
	db := memdb(t)
	svc := newCatalogService(t, db)
	product := createTestProduct(t, svc, 10)
	variantID := product.Variants[0].ID

	_, err := svc.RecordAdjustment(variantID, -15, "shrinkage", 1)
	if err == nil {
		t.Fatal("want insufficient stock error, got nil")
	}
	if !catalog.IsInsufficientStock(err) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}

	variant, err := svc.GetVariant(variantID)
	if err != nil {
		t.Fatal(err)
	}
	if variant.Quantity != 10 {
		t.Fatalf("quantity changed on failed adjustment: got %d", variant.Quantity)
	}
}

func TestRecordAdjustmentRequiresReason(t *testing.T) {
	db := memdb(t)
	svc := newCatalogService(t, db)
	product := createTestProduct(t, svc, 10)

	if _, err := svc.RecordAdjustment(product.Variants[0].ID, -1, "", 1); err == nil {
		t.Fatal("want error for missing reason, got nil")
	}
	if _, err := svc.RecordAdjustment(product.Variants[0].ID, 0, "recount", 1); err == nil {
		t.Fatal("want error for zero delta, got nil")
	}
}

func TestRecordAdjustmentAppendsLedgerEntry(t *testing.T) {
	db := memdb(t)
	svc := newCatalogService(t, db)
	product := createTestProduct(t, svc, 10)
	variantID := product.Variants[0].ID

	movement, err := svc.RecordAdjustment(variantID, -3, "damaged in storage", 1)
	if err != nil {
		t.Fatal(err)
	}
	if movement.PreviousQuantity != 10 || movement.NewQuantity != 7 {
		t.Fatalf("want 10 -> 7, got %d -> %d", movement.PreviousQuantity, movement.NewQuantity)
	}
	if movement.Reason != "damaged in storage" {
		t.Fatalf("reason not persisted: %q", movement.Reason)
	}

	variant, err := svc.GetVariant(variantID)
	if err != nil {
		t.Fatal(err)
	}
	if variant.Quantity != 7 {
		t.Fatalf("want quantity 7, got %d", variant.Quantity)
	}
}

func TestReconcileVariant(t *testing.T) {
	db := memdb(t)
	svc := newCatalogService(t, db)
	product := createTestProduct(t, svc, 10)
	variantID := product.Variants[0].ID

	if _, err := svc.RecordAdjustment(variantID, -4, "recount", 1); err != nil {
		t.Fatal(err)
	}

	report, err := svc.ReconcileVariant(variantID)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent {
		t.Fatalf("want consistent report, got %+v", report)
	}
	if report.OnHand != 6 || report.LedgerSum != 6 {
		t.Fatalf("want on-hand 6 and ledger sum 6, got %+v", report)
	}

	// Drift introduced behind the ledger's back must be detected
	if err := db.Model(&catalog.Variant{}).Where("id = ?", variantID).
		UpdateColumn("quantity", 9).Error; err != nil {
		t.Fatal(err)
	}
	report, err = svc.ReconcileVariant(variantID)
	if err != nil {
		t.Fatal(err)
	}
	if report.Consistent {
		t.Fatalf("want inconsistent report, got %+v", report)
	}
}

func TestDeleteProductBlockedByHistory(t *testing.T) {
	db := memdb(t)
	cfg := &config.Config{}
	ledgerSvc := ledger.NewService(db, cfg)
	catalogSvc := catalog.NewService(db, cfg, ledgerSvc)
	salesSvc := sales.NewService(db, cfg, catalogSvc, ledgerSvc, nil)

	product := createTestProduct(t, catalogSvc, 10)

	_, err := salesSvc.CreateSale(&sales.CreateSaleRequest{
		Items: []sales.SaleItemRequest{
			{VariantID: product.Variants[0].ID, Quantity: 2},
		},
		PaymentMethod: "cash",
	}, "", 1)
	if err != nil {
		t.Fatal(err)
	}

	err = catalogSvc.DeleteProduct(product.ID)
	if err == nil {
		t.Fatal("want delete to be blocked, got nil")
	}
	if err != catalog.ErrProductHasSales {
		t.Fatalf("want ErrProductHasSales, got %v", err)
	}
}

func TestDeleteCategoryDetachesProducts(t *testing.T) {
	db := memdb(t)
	cfg := &config.Config{}
	categorySvc := catalog.NewCategoryService(db, cfg)
	catalogSvc := newCatalogService(t, db)

	category, err := categorySvc.CreateCategory(&catalog.CreateCategoryRequest{Name: "Apparel"})
	if err != nil {
		t.Fatal(err)
	}

	product, err := catalogSvc.CreateProduct(&catalog.CreateProductRequest{
		SKU:          "HAT-001",
		Name:         "Hat",
		SellingPrice: 1500,
		CategoryID:   &category.ID,
	}, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := categorySvc.DeleteCategory(category.ID); err != nil {
		t.Fatal(err)
	}

	got, err := catalogSvc.GetProduct(product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CategoryID != nil {
		t.Fatalf("want detached product, got category_id %v", *got.CategoryID)
	}
}

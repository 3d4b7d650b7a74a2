package analytics_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/analytics"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/payment"
	"github.com/your-org/commerce-backend/internal/domain/purchases"
	"github.com/your-org/commerce-backend/internal/domain/sales"
)

func TestGetDashboardStats(t *testing.T) {
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
		&purchases.Purchase{},
		&purchases.PurchaseItem{},
	)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	ledgerSvc := ledger.NewService(db, cfg)
	catalogSvc := catalog.NewService(db, cfg, ledgerSvc)
	salesSvc := sales.NewService(db, cfg, catalogSvc, ledgerSvc, nil)
	purchasesSvc := purchases.NewService(db, cfg, catalogSvc, ledgerSvc)
	svc := analytics.NewService(db, cfg, nil)

	product, err := catalogSvc.CreateProduct(&catalog.CreateProductRequest{
		SKU:          "NB-001",
		Name:         "Notebook",
		SellingPrice: 800,
		Variants: []catalog.CreateVariantRequest{
			{SKU: "NB-001-A5", Name: "Notebook A5", SellingPrice: 800, MinQuantity: 5, InitialQuantity: 6},
			{SKU: "NB-001-A4", Name: "Notebook A4", SellingPrice: 1000, InitialQuantity: 0},
		},
	}, 1)
	if err != nil {
		t.Fatal(err)
	}

	paidSale, err := salesSvc.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: product.Variants[0].ID, Quantity: 2}},
		PaymentMethod: payment.MethodCash,
	}, "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := salesSvc.UpdatePayment(paidSale.ID, payment.StatusPaid); err != nil {
		t.Fatal(err)
	}

	if _, err := salesSvc.CreateSale(&sales.CreateSaleRequest{
		Items:         []sales.SaleItemRequest{{VariantID: product.Variants[0].ID, Quantity: 1}},
		PaymentMethod: payment.MethodCard,
	}, "", 1); err != nil {
		t.Fatal(err)
	}

	if _, err := purchasesSvc.CreatePurchase(&purchases.CreatePurchaseRequest{
		Items:         []purchases.PurchaseItemRequest{{VariantID: product.Variants[1].ID, Quantity: 50, UnitCost: 400}},
		PaymentMethod: payment.MethodTransfer,
	}, 1); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.GetDashboardStats()
	if err != nil {
		t.Fatal(err)
	}

	if stats.TotalSales != 2 || stats.PendingSales != 1 {
		t.Fatalf("unexpected sale counts: %+v", stats)
	}
	if stats.TotalRevenue != 2400 {
		t.Fatalf("want revenue 2400, got %d", stats.TotalRevenue)
	}
	if stats.TotalPurchases != 1 || stats.OrderedPurchases != 1 {
		t.Fatalf("unexpected purchase counts: %+v", stats)
	}
	if stats.TotalProducts != 1 || stats.TotalVariants != 2 {
		t.Fatalf("unexpected catalog counts: %+v", stats)
	}
	// A5 sold down to 3 with min 5 -> low stock; A4 at 0 -> out of stock
	if stats.LowStockVariants != 1 {
		t.Fatalf("want 1 low-stock variant, got %d", stats.LowStockVariants)
	}
	if stats.OutOfStockVariants != 1 {
		t.Fatalf("want 1 out-of-stock variant, got %d", stats.OutOfStockVariants)
	}
}

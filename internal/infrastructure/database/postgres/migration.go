// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/delivery"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/purchases"
	"github.com/your-org/commerce-backend/internal/domain/sales"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		// Catalog domain - Base tables
		&catalog.Category{},
		&catalog.Product{},
		&catalog.Variant{},

		// Movement ledger
		&ledger.StockMovement{},

		// Transaction engine
		&sales.Sale{},
		&sales.SaleItem{},
		&purchases.Purchase{},
		&purchases.PurchaseItem{},

		// Delivery provider registry
		&delivery.ProviderConfig{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_sku ON product_variants(sku)",
		"CREATE INDEX IF NOT EXISTS idx_product_variants_quantity ON product_variants(quantity)",

		// Stock movement indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_variant_created ON stock_movements(variant_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_type_created ON stock_movements(type, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_reference ON stock_movements(reference_type, reference_id)",

		// Sale indexes
		"CREATE INDEX IF NOT EXISTS idx_sales_payment_created ON sales(payment_status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sale_items_variant ON sale_items(variant_id)",

		// Purchase indexes
		"CREATE INDEX IF NOT EXISTS idx_purchases_status_created ON purchases(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_items_variant ON purchase_items(variant_id)",

		// Delivery provider indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_configs_tenant_provider ON delivery_provider_configs(tenant_id, provider_id) WHERE deleted_at IS NULL",
		// At most one default provider per tenant, enforced at the storage layer
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_delivery_configs_tenant_default ON delivery_provider_configs(tenant_id) WHERE is_default AND deleted_at IS NULL",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database indexes created successfully")
	return nil
}

// SeedInitialData seeds development fixtures
func (m *Migration) SeedInitialData() error {
	var count int64
	if err := m.db.Model(&catalog.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Println("🌱 Seeding initial data...")

	categories := []catalog.Category{
		{Name: "General", Description: "Uncategorized products", Color: "#9ca3af"},
		{Name: "Apparel", Description: "Clothing and accessories", Color: "#3b82f6"},
		{Name: "Electronics", Description: "Devices and gadgets", Color: "#f59e0b"},
	}
	for i := range categories {
		if err := m.db.Create(&categories[i]).Error; err != nil {
			return fmt.Errorf("failed to seed category: %w", err)
		}
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// GetTableInfo logs row counts for the main tables
func (m *Migration) GetTableInfo() {
	tables := []string{"products", "product_variants", "categories", "stock_movements", "sales", "purchases", "delivery_provider_configs"}
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			continue
		}
		log.Printf("Table %s: %d rows", table, count)
	}
}

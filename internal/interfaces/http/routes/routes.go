// internal/interfaces/http/routes/routes.go
package routes

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/interfaces/http/handlers"
	"github.com/your-org/commerce-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupCatalogRoutes(rg, db, cfg)
	SetupSalesRoutes(rg, db, redisClient, cfg)
	SetupPurchaseRoutes(rg, db, redisClient, cfg)
	SetupStockRoutes(rg, db, cfg)
	SetupDeliveryRoutes(rg, db, cfg)
	SetupAnalyticsRoutes(rg, db, redisClient, cfg)
}

// SetupCatalogRoutes sets up product, variant and category routes
func SetupCatalogRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	productHandler := handlers.NewProductHandler(db, cfg)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)

	products := rg.Group("/products")
	products.Use(middleware.AuthMiddleware(cfg))
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.POST("", productHandler.CreateProduct)
		products.PUT("/:id", productHandler.UpdateProduct)
		products.DELETE("/:id", productHandler.DeleteProduct)
		products.POST("/:id/variants", productHandler.CreateVariant)
	}

	variants := rg.Group("/variants")
	variants.Use(middleware.AuthMiddleware(cfg))
	{
		variants.GET("/:id", productHandler.GetVariant)
		variants.PUT("/:id", productHandler.UpdateVariant)
	}

	categories := rg.Group("/categories")
	categories.Use(middleware.AuthMiddleware(cfg))
	{
		categories.GET("", categoryHandler.GetCategories)
		categories.GET("/:id", categoryHandler.GetCategory)
		categories.POST("", categoryHandler.CreateCategory)
		categories.PUT("/:id", categoryHandler.UpdateCategory)
		categories.DELETE("/:id", categoryHandler.DeleteCategory)
	}
}

// SetupSalesRoutes sets up sale routes
func SetupSalesRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	salesHandler := handlers.NewSalesHandler(db, redisClient, cfg)
	invoiceHandler := handlers.NewInvoiceHandler(db, redisClient, cfg)

	sales := rg.Group("/sales")
	sales.Use(middleware.AuthMiddleware(cfg))
	{
		sales.GET("", salesHandler.GetSales)
		sales.GET("/:id", salesHandler.GetSale)
		sales.POST("", salesHandler.CreateSale)
		sales.DELETE("/:id", salesHandler.DeleteSale)
		sales.PUT("/:id/payment", salesHandler.UpdatePayment)
		sales.GET("/:id/invoice", invoiceHandler.GenerateInvoice)
	}
}

// SetupPurchaseRoutes sets up purchase routes
func SetupPurchaseRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	purchasesHandler := handlers.NewPurchasesHandler(db, redisClient, cfg)

	purchases := rg.Group("/purchases")
	purchases.Use(middleware.AuthMiddleware(cfg))
	{
		purchases.GET("", purchasesHandler.GetPurchases)
		purchases.GET("/:id", purchasesHandler.GetPurchase)
		purchases.POST("", purchasesHandler.CreatePurchase)
		purchases.POST("/:id/receive", purchasesHandler.ReceivePurchase)
		purchases.POST("/:id/cancel", purchasesHandler.CancelPurchase)
		purchases.DELETE("/:id", purchasesHandler.DeletePurchase)
		purchases.PUT("/:id/payment", purchasesHandler.UpdatePayment)
	}
}

// SetupStockRoutes sets up stock movement and adjustment routes
func SetupStockRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	stockHandler := handlers.NewStockHandler(db, cfg)

	stock := rg.Group("/stock")
	stock.Use(middleware.AuthMiddleware(cfg))
	{
		stock.GET("/movements", stockHandler.GetMovements)
		stock.POST("/adjustments", stockHandler.AdjustStock)
		stock.GET("/variants/:id/reconcile", stockHandler.ReconcileVariant)
	}
}

// SetupDeliveryRoutes sets up delivery provider routes
func SetupDeliveryRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	deliveryHandler, err := handlers.NewDeliveryHandler(db, cfg)
	if err != nil {
		// Config validation guarantees a usable key; failing here means the
		// process cannot serve delivery endpoints at all.
		log.Fatalf("Failed to initialize delivery handler: %v", err)
	}

	delivery := rg.Group("/delivery")
	delivery.Use(middleware.AuthMiddleware(cfg))
	{
		delivery.GET("/providers/available", deliveryHandler.GetAvailableProviders)
		delivery.GET("/providers", deliveryHandler.GetProviders)
		delivery.GET("/providers/:id", deliveryHandler.GetProvider)
		delivery.POST("/providers", deliveryHandler.AddProvider)
		delivery.PUT("/providers/:id", deliveryHandler.UpdateProvider)
		delivery.DELETE("/providers/:id", deliveryHandler.DeleteProvider)
		delivery.POST("/providers/test", deliveryHandler.TestCredentials)
	}
}

// SetupAnalyticsRoutes sets up analytics routes
func SetupAnalyticsRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	analyticsHandler := handlers.NewAnalyticsHandler(db, redisClient, cfg)

	analytics := rg.Group("/analytics")
	analytics.Use(middleware.AuthMiddleware(cfg))
	analytics.Use(middleware.AdminMiddleware())
	{
		analytics.GET("/dashboard", analyticsHandler.GetDashboard)
	}
}

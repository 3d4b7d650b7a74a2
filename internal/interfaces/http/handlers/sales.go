// internal/interfaces/http/handlers/sales.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/analytics"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/sales"
	"github.com/your-org/commerce-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SalesHandler handles sale endpoints
type SalesHandler struct {
	salesService     *sales.Service
	analyticsService *analytics.Service
	config           *config.Config
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *SalesHandler {
	ledgerService := ledger.NewService(db, cfg)
	catalogService := catalog.NewService(db, cfg, ledgerService)
	return &SalesHandler{
		salesService:     sales.NewService(db, cfg, catalogService, ledgerService, sales.NewRedisIdempotencyStore(redisClient)),
		analyticsService: analytics.NewService(db, cfg, redisClient),
		config:           cfg,
	}
}

// CreateSale handles POST /sales
func (h *SalesHandler) CreateSale(c *gin.Context) {
	var req sales.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	idempotencyKey := c.GetHeader("Idempotency-Key")

	sale, err := h.salesService.CreateSale(&req, idempotencyKey, userID)
	if err != nil {
		if catalog.IsInsufficientStock(err) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.analyticsService.InvalidateDashboard()

	c.JSON(http.StatusCreated, gin.H{
		"message": "Sale created successfully",
		"data":    sale,
	})
}

// GetSales handles GET /sales
func (h *SalesHandler) GetSales(c *gin.Context) {
	var req sales.SaleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}

	response, err := h.salesService.GetSales(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve sales",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales retrieved successfully",
		"data":    response,
	})
}

// GetSale handles GET /sales/:id
func (h *SalesHandler) GetSale(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.salesService.GetSale(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale retrieved successfully",
		"data":    sale,
	})
}

// DeleteSale handles DELETE /sales/:id
func (h *SalesHandler) DeleteSale(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.salesService.DeleteSale(id, userID); err != nil {
		if errors.Is(err, sales.ErrSaleImmutable) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.analyticsService.InvalidateDashboard()

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale deleted successfully",
	})
}

// UpdatePayment handles PUT /sales/:id/payment
func (h *SalesHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req sales.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	sale, err := h.salesService.UpdatePayment(id, req.PaymentStatus)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.analyticsService.InvalidateDashboard()

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status updated successfully",
		"data":    sale,
	})
}

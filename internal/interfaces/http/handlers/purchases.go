// internal/interfaces/http/handlers/purchases.go
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
	"github.com/your-org/commerce-backend/internal/domain/purchases"
	"github.com/your-org/commerce-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// PurchasesHandler handles purchase endpoints
type PurchasesHandler struct {
	purchasesService *purchases.Service
	analyticsService *analytics.Service
	config           *config.Config
}

// NewPurchasesHandler creates a new purchases handler
func NewPurchasesHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *PurchasesHandler {
	ledgerService := ledger.NewService(db, cfg)
	catalogService := catalog.NewService(db, cfg, ledgerService)
	return &PurchasesHandler{
		purchasesService: purchases.NewService(db, cfg, catalogService, ledgerService),
		analyticsService: analytics.NewService(db, cfg, redisClient),
		config:           cfg,
	}
}

// CreatePurchase handles POST /purchases
func (h *PurchasesHandler) CreatePurchase(c *gin.Context) {
	var req purchases.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	purchase, err := h.purchasesService.CreatePurchase(&req, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Purchase created successfully",
		"data":    purchase,
	})
}

// GetPurchases handles GET /purchases
func (h *PurchasesHandler) GetPurchases(c *gin.Context) {
	var req purchases.PurchaseListRequest
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

	response, err := h.purchasesService.GetPurchases(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve purchases",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchases retrieved successfully",
		"data":    response,
	})
}

// GetPurchase handles GET /purchases/:id
func (h *PurchasesHandler) GetPurchase(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	purchase, err := h.purchasesService.GetPurchase(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase retrieved successfully",
		"data":    purchase,
	})
}

// ReceivePurchase handles POST /purchases/:id/receive
func (h *PurchasesHandler) ReceivePurchase(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	purchase, err := h.purchasesService.ReceivePurchase(id, userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.analyticsService.InvalidateDashboard()

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase received successfully",
		"data":    purchase,
	})
}

// CancelPurchase handles POST /purchases/:id/cancel
func (h *PurchasesHandler) CancelPurchase(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	purchase, err := h.purchasesService.CancelPurchase(id, userID)
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

	c.JSON(http.StatusOK, gin.H{
		"message": "Purchase cancelled successfully",
		"data":    purchase,
	})
}

// DeletePurchase handles DELETE /purchases/:id
func (h *PurchasesHandler) DeletePurchase(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.purchasesService.DeletePurchase(id, userID); err != nil {
		if errors.Is(err, purchases.ErrPurchaseImmutable) || catalog.IsInsufficientStock(err) {
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
		"message": "Purchase deleted successfully",
	})
}

// UpdatePayment handles PUT /purchases/:id/payment
func (h *PurchasesHandler) UpdatePayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req purchases.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	purchase, err := h.purchasesService.UpdatePayment(id, req.PaymentStatus)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status updated successfully",
		"data":    purchase,
	})
}

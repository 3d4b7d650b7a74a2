// internal/interfaces/http/handlers/delivery.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/delivery"
	"github.com/your-org/commerce-backend/internal/interfaces/http/middleware"
	"github.com/your-org/commerce-backend/internal/pkg/secrets"
	"gorm.io/gorm"
)

// DeliveryHandler handles delivery provider endpoints
type DeliveryHandler struct {
	deliveryService *delivery.Service
	config          *config.Config
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(db *gorm.DB, cfg *config.Config) (*DeliveryHandler, error) {
	cipher, err := secrets.NewCipher(cfg.Security.CredentialKey)
	if err != nil {
		return nil, err
	}
	return &DeliveryHandler{
		deliveryService: delivery.NewService(db, cfg, cipher, nil),
		config:          cfg,
	}, nil
}

// GetAvailableProviders handles GET /delivery/providers/available
func (h *DeliveryHandler) GetAvailableProviders(c *gin.Context) {
	providers := h.deliveryService.ListAvailableProviders()

	c.JSON(http.StatusOK, gin.H{
		"message": "Available providers retrieved successfully",
		"data":    providers,
	})
}

// GetProviders handles GET /delivery/providers
func (h *DeliveryHandler) GetProviders(c *gin.Context) {
	tenantID, _ := middleware.GetUserIDFromContext(c)

	configs, err := h.deliveryService.ListProviders(tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve configured providers",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Configured providers retrieved successfully",
		"data":    configs,
	})
}

// GetProvider handles GET /delivery/providers/:id
func (h *DeliveryHandler) GetProvider(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tenantID, _ := middleware.GetUserIDFromContext(c)

	cfg, err := h.deliveryService.GetProvider(tenantID, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Provider retrieved successfully",
		"data":    cfg,
	})
}

// AddProvider handles POST /delivery/providers
func (h *DeliveryHandler) AddProvider(c *gin.Context) {
	var req delivery.AddProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	tenantID, _ := middleware.GetUserIDFromContext(c)

	cfg, err := h.deliveryService.AddProvider(tenantID, &req)
	if err != nil {
		if errors.Is(err, delivery.ErrProviderConfigured) {
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

	c.JSON(http.StatusCreated, gin.H{
		"message": "Provider configured successfully",
		"data":    cfg,
	})
}

// UpdateProvider handles PUT /delivery/providers/:id
func (h *DeliveryHandler) UpdateProvider(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req delivery.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	tenantID, _ := middleware.GetUserIDFromContext(c)

	cfg, err := h.deliveryService.UpdateProvider(tenantID, id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Provider updated successfully",
		"data":    cfg,
	})
}

// DeleteProvider handles DELETE /delivery/providers/:id
func (h *DeliveryHandler) DeleteProvider(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tenantID, _ := middleware.GetUserIDFromContext(c)

	if err := h.deliveryService.DeleteProvider(tenantID, id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Provider removed successfully",
	})
}

// TestCredentials handles POST /delivery/providers/test
func (h *DeliveryHandler) TestCredentials(c *gin.Context) {
	var req delivery.TestCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	result, err := h.deliveryService.TestCredentials(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Credential test completed",
		"data":    result,
	})
}

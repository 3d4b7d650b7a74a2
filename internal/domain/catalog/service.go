// internal/domain/catalog/service.go
package catalog

import (
	"fmt"
	"strings"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// Service handles catalog business logic. It is the only component allowed
// to mutate variant on-hand quantity, and only through AdjustQuantity.
type Service struct {
	db            *gorm.DB
	config        *config.Config
	ledgerService *ledger.Service
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config, ledgerService *ledger.Service) *Service {
	return &Service{
		db:            db,
		config:        cfg,
		ledgerService: ledgerService,
	}
}

// CreateVariantRequest represents variant creation data
type CreateVariantRequest struct {
	SKU             string `json:"sku" binding:"required"`
	Name            string `json:"name" binding:"required"`
	CostPrice       int64  `json:"cost_price"`
	SellingPrice    int64  `json:"selling_price"`
	MinQuantity     int    `json:"min_quantity"`
	InitialQuantity int    `json:"initial_quantity"`
}

// CreateProductRequest represents product creation data
type CreateProductRequest struct {
	SKU              string                 `json:"sku" binding:"required"`
	Name             string                 `json:"name" binding:"required"`
	Description      string                 `json:"description"`
	CategoryID       *uint                  `json:"category_id"`
	CostPrice        int64                  `json:"cost_price"`
	SellingPrice     int64                  `json:"selling_price" binding:"required"`
	ReorderThreshold int                    `json:"reorder_threshold"`
	IsPrimary        bool                   `json:"is_primary"`
	Variants         []CreateVariantRequest `json:"variants"`
}

// UpdateProductRequest represents product update data
type UpdateProductRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	CategoryID       *uint   `json:"category_id"`
	CostPrice        *int64  `json:"cost_price"`
	SellingPrice     *int64  `json:"selling_price"`
	ReorderThreshold *int    `json:"reorder_threshold"`
	IsPrimary        *bool   `json:"is_primary"`
	IsActive         *bool   `json:"is_active"`
}

// UpdateVariantRequest represents variant update data. Quantity is absent on
// purpose: stock only moves through AdjustQuantity.
type UpdateVariantRequest struct {
	Name         *string `json:"name"`
	CostPrice    *int64  `json:"cost_price"`
	SellingPrice *int64  `json:"selling_price"`
	MinQuantity  *int    `json:"min_quantity"`
	IsActive     *bool   `json:"is_active"`
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int    `form:"page,default=1"`
	Limit      int    `form:"limit,default=20"`
	CategoryID uint   `form:"category_id"`
	Search     string `form:"search"`
	LowStock   bool   `form:"low_stock"`
}

// ProductResponse represents products with pagination
type ProductResponse struct {
	Products   []Product         `json:"products"`
	Pagination ledger.Pagination `json:"pagination"`
}

// ReconciliationReport compares the ledger sum against on-hand quantity
type ReconciliationReport struct {
	VariantID  uint   `json:"variant_id"`
	SKU        string `json:"sku"`
	OnHand     int    `json:"on_hand"`
	LedgerSum  int    `json:"ledger_sum"`
	Consistent bool   `json:"consistent"`
}

// PRODUCT MANAGEMENT

// CreateProduct creates a product with its variants. Initial stock is
// recorded through an adjustment movement so the ledger reconciles from
// the first unit.
func (s *Service) CreateProduct(req *CreateProductRequest, userID uint) (*Product, error) {
	var existing Product
	if err := s.db.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("product with SKU '%s' already exists", req.SKU)
	}

	if req.CategoryID != nil {
		var category Category
		if err := s.db.First(&category, *req.CategoryID).Error; err != nil {
			return nil, fmt.Errorf("category %d not found", *req.CategoryID)
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	product := &Product{
		SKU:              strings.TrimSpace(req.SKU),
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		CostPrice:        req.CostPrice,
		SellingPrice:     req.SellingPrice,
		ReorderThreshold: req.ReorderThreshold,
		IsPrimary:        req.IsPrimary,
		IsActive:         true,
	}

	if err := tx.Create(product).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	for i := range req.Variants {
		if _, err := s.createVariant(tx, product, &req.Variants[i], userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit product creation: %w", err)
	}

	if err := s.db.Preload("Variants").Preload("Category").First(product, product.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load created product: %w", err)
	}

	return product, nil
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(req *ProductListRequest) (*ProductResponse, error) {
	var products []Product
	var total int64

	query := s.db.Model(&Product{}).Preload("Variants").Preload("Category")

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", search, search)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &ProductResponse{
		Products: products,
		Pagination: ledger.Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    req.Page < totalPages,
			HasPrev:    req.Page > 1,
		},
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(id uint) (*Product, error) {
	var product Product
	result := s.db.Preload("Variants").Preload("Category").First(&product, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to retrieve product: %w", result.Error)
	}
	return &product, nil
}

// UpdateProduct applies a partial update to a product
func (s *Service) UpdateProduct(id uint, req *UpdateProductRequest) (*Product, error) {
	var product Product
	if err := s.db.First(&product, id).Error; err != nil {
		return nil, fmt.Errorf("product not found")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		var category Category
		if err := s.db.First(&category, *req.CategoryID).Error; err != nil {
			return nil, fmt.Errorf("category %d not found", *req.CategoryID)
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.SellingPrice != nil {
		updates["selling_price"] = *req.SellingPrice
	}
	if req.ReorderThreshold != nil {
		updates["reorder_threshold"] = *req.ReorderThreshold
	}
	if req.IsPrimary != nil {
		updates["is_primary"] = *req.IsPrimary
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}

	return s.GetProduct(id)
}

// DeleteProduct deletes a product. Deletion is blocked while any of its
// variants are referenced by recorded sales or purchases, keeping ledger
// references resolvable.
func (s *Service) DeleteProduct(id uint) error {
	var product Product
	if err := s.db.Preload("Variants").First(&product, id).Error; err != nil {
		return fmt.Errorf("product not found")
	}

	if len(product.Variants) > 0 {
		variantIDs := make([]uint, 0, len(product.Variants))
		for _, v := range product.Variants {
			variantIDs = append(variantIDs, v.ID)
		}

		var saleRefs int64
		err := s.db.Table("sale_items").
			Joins("JOIN sales ON sales.id = sale_items.sale_id").
			Where("sale_items.variant_id IN ? AND sales.deleted_at IS NULL", variantIDs).
			Count(&saleRefs).Error
		if err != nil {
			return fmt.Errorf("failed to check sale references: %w", err)
		}

		var purchaseRefs int64
		err = s.db.Table("purchase_items").
			Joins("JOIN purchases ON purchases.id = purchase_items.purchase_id").
			Where("purchase_items.variant_id IN ? AND purchases.deleted_at IS NULL", variantIDs).
			Count(&purchaseRefs).Error
		if err != nil {
			return fmt.Errorf("failed to check purchase references: %w", err)
		}

		if saleRefs > 0 || purchaseRefs > 0 {
			return ErrProductHasSales
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("product_id = ?", id).Delete(&Variant{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete variants: %w", err)
	}

	if err := tx.Delete(&product).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return tx.Commit().Error
}

// VARIANT MANAGEMENT

// CreateVariant adds a variant to an existing product
func (s *Service) CreateVariant(productID uint, req *CreateVariantRequest, userID uint) (*Variant, error) {
	var product Product
	if err := s.db.First(&product, productID).Error; err != nil {
		return nil, fmt.Errorf("product not found")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	variant, err := s.createVariant(tx, &product, req, userID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit variant creation: %w", err)
	}

	return variant, nil
}

// createVariant inserts a variant and its initial-stock adjustment inside tx
func (s *Service) createVariant(tx *gorm.DB, product *Product, req *CreateVariantRequest, userID uint) (*Variant, error) {
	if req.InitialQuantity < 0 {
		return nil, fmt.Errorf("initial quantity cannot be negative")
	}

	var existing Variant
	if err := tx.Where("sku = ?", req.SKU).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("variant with SKU '%s' already exists", req.SKU)
	}

	sellingPrice := req.SellingPrice
	if sellingPrice == 0 {
		sellingPrice = product.SellingPrice
	}

	variant := &Variant{
		ProductID:    product.ID,
		SKU:          strings.TrimSpace(req.SKU),
		Name:         strings.TrimSpace(req.Name),
		CostPrice:    req.CostPrice,
		SellingPrice: sellingPrice,
		Quantity:     req.InitialQuantity,
		MinQuantity:  req.MinQuantity,
		IsActive:     true,
	}

	if err := tx.Create(variant).Error; err != nil {
		return nil, fmt.Errorf("failed to create variant: %w", err)
	}

	if req.InitialQuantity > 0 {
		movement := &ledger.StockMovement{
			ProductID:        product.ID,
			VariantID:        variant.ID,
			Type:             ledger.MovementTypeAdjustment,
			Delta:            req.InitialQuantity,
			PreviousQuantity: 0,
			NewQuantity:      req.InitialQuantity,
			Reason:           "initial stock",
			CreatedBy:        userID,
		}
		if err := s.ledgerService.Append(tx, movement); err != nil {
			return nil, err
		}
	}

	return variant, nil
}

// GetVariant retrieves a single variant by ID
func (s *Service) GetVariant(id uint) (*Variant, error) {
	var variant Variant
	result := s.db.First(&variant, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("variant not found")
		}
		return nil, fmt.Errorf("failed to retrieve variant: %w", result.Error)
	}
	return &variant, nil
}

// UpdateVariant applies a partial update to a variant
func (s *Service) UpdateVariant(id uint, req *UpdateVariantRequest) (*Variant, error) {
	var variant Variant
	if err := s.db.First(&variant, id).Error; err != nil {
		return nil, fmt.Errorf("variant not found")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.SellingPrice != nil {
		updates["selling_price"] = *req.SellingPrice
	}
	if req.MinQuantity != nil {
		updates["min_quantity"] = *req.MinQuantity
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(&variant).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update variant: %w", err)
		}
	}

	return s.GetVariant(id)
}

// STOCK MUTATION

// AdjustQuantity is the single enforcement point for the non-negativity
// invariant. The decrement is a compare-and-set against the persisted row,
// so two concurrent writers can never jointly overdraw a variant. Must be
// called inside the same transaction as the matching ledger append.
func (s *Service) AdjustQuantity(tx *gorm.DB, variantID uint, delta int) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("quantity delta cannot be zero")
	}

	query := tx.Model(&Variant{}).Where("id = ?", variantID)
	if delta < 0 {
		query = query.Where("quantity >= ?", -delta)
	}

	result := query.UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to adjust quantity: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var variant Variant
		if err := tx.First(&variant, variantID).Error; err != nil {
			return 0, fmt.Errorf("variant not found")
		}
		return 0, &InsufficientStockError{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Requested: -delta,
			Available: variant.Quantity,
		}
	}

	var variant Variant
	if err := tx.First(&variant, variantID).Error; err != nil {
		return 0, fmt.Errorf("failed to read adjusted variant: %w", err)
	}

	return variant.Quantity, nil
}

// RecordAdjustment applies a manual stock correction with its own ledger
// entry carrying the operator's reason instead of a sale/purchase reference
func (s *Service) RecordAdjustment(variantID uint, delta int, reason string, userID uint) (*ledger.StockMovement, error) {
	if reason == "" {
		return nil, fmt.Errorf("adjustment reason is required")
	}

	var variant Variant
	if err := s.db.First(&variant, variantID).Error; err != nil {
		return nil, fmt.Errorf("variant not found")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	newQuantity, err := s.AdjustQuantity(tx, variantID, delta)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	previous := newQuantity - delta

	movement := &ledger.StockMovement{
		ProductID:        variant.ProductID,
		VariantID:        variantID,
		Type:             ledger.MovementTypeAdjustment,
		Delta:            delta,
		PreviousQuantity: previous,
		NewQuantity:      newQuantity,
		Reason:           reason,
		CreatedBy:        userID,
	}
	if err := s.ledgerService.Append(tx, movement); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}

	return movement, nil
}

// ReconcileVariant checks the ledger/state reconciliation invariant
func (s *Service) ReconcileVariant(variantID uint) (*ReconciliationReport, error) {
	variant, err := s.GetVariant(variantID)
	if err != nil {
		return nil, err
	}

	sum, err := s.ledgerService.VariantDelta(variantID)
	if err != nil {
		return nil, err
	}

	return &ReconciliationReport{
		VariantID:  variant.ID,
		SKU:        variant.SKU,
		OnHand:     variant.Quantity,
		LedgerSum:  sum,
		Consistent: variant.Quantity == sum,
	}, nil
}

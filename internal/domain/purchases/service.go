// internal/domain/purchases/service.go
package purchases

import (
	"fmt"
	"time"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/payment"
	"gorm.io/gorm"
)

// Service handles purchase business logic, the inbound mirror of sales.
// Creating a purchase records intent only; receiving it is the atomic stock
// commit point.
type Service struct {
	db             *gorm.DB
	config         *config.Config
	catalogService *catalog.Service
	ledgerService  *ledger.Service
}

// NewService creates a new purchases service
func NewService(db *gorm.DB, cfg *config.Config, catalogService *catalog.Service, ledgerService *ledger.Service) *Service {
	return &Service{
		db:             db,
		config:         cfg,
		catalogService: catalogService,
		ledgerService:  ledgerService,
	}
}

// PurchaseItemRequest represents one requested purchase line
type PurchaseItemRequest struct {
	VariantID uint  `json:"variant_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
	UnitCost  int64 `json:"unit_cost"` // Defaults to the variant's cost price
}

// CreatePurchaseRequest represents purchase creation data
type CreatePurchaseRequest struct {
	Items         []PurchaseItemRequest `json:"items" binding:"required"`
	SupplierName  string                `json:"supplier_name"`
	SupplierPhone string                `json:"supplier_phone"`
	PaymentMethod payment.Method        `json:"payment_method" binding:"required"`
	Notes         string                `json:"notes"`
}

// UpdatePaymentRequest represents a payment status transition
type UpdatePaymentRequest struct {
	PaymentStatus payment.Status `json:"payment_status" binding:"required"`
}

// PurchaseListRequest represents purchase list query parameters
type PurchaseListRequest struct {
	Page          int            `form:"page,default=1"`
	Limit         int            `form:"limit,default=20"`
	Status        Status         `form:"status"`
	PaymentStatus payment.Status `form:"payment_status"`
	DateFrom      string         `form:"date_from"`
	DateTo        string         `form:"date_to"`
}

// PurchaseResponse represents purchases with pagination
type PurchaseResponse struct {
	Purchases  []Purchase        `json:"purchases"`
	Pagination ledger.Pagination `json:"pagination"`
}

// CreatePurchase records an ordered purchase. No stock moves until the
// purchase is received.
func (s *Service) CreatePurchase(req *CreatePurchaseRequest, userID uint) (*Purchase, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("purchase requires at least one item")
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("invalid payment method: %s", req.PaymentMethod)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive")
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	purchase := &Purchase{
		SupplierName:  req.SupplierName,
		SupplierPhone: req.SupplierPhone,
		Status:        StatusOrdered,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: payment.StatusPending,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}

	if err := tx.Create(purchase).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	var total int64
	for _, itemReq := range req.Items {
		var variant catalog.Variant
		if err := tx.First(&variant, itemReq.VariantID).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("variant %d not found", itemReq.VariantID)
		}

		unitCost := itemReq.UnitCost
		if unitCost == 0 {
			unitCost = variant.CostPrice
		}
		lineCost := unitCost * int64(itemReq.Quantity)

		item := &PurchaseItem{
			PurchaseID: purchase.ID,
			ProductID:  variant.ProductID,
			VariantID:  variant.ID,
			SKU:        variant.SKU,
			Name:       variant.Name,
			Quantity:   itemReq.Quantity,
			UnitCost:   unitCost,
			TotalCost:  lineCost,
		}
		if err := tx.Create(item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create purchase item: %w", err)
		}

		total += lineCost
	}

	purchase.PurchaseNumber = GeneratePurchaseNumber(purchase.ID)
	purchase.TotalAmount = total
	if err := tx.Model(purchase).Updates(map[string]interface{}{
		"purchase_number": purchase.PurchaseNumber,
		"total_amount":    total,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to finalize purchase: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit purchase transaction: %w", err)
	}

	return s.GetPurchase(purchase.ID)
}

// ReceivePurchase commits the purchase to stock: each line increments its
// variant and appends an in movement, atomically.
func (s *Service) ReceivePurchase(id uint, userID uint) (*Purchase, error) {
	var purchase Purchase
	if err := s.db.Preload("Items").First(&purchase, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("purchase not found")
		}
		return nil, fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	if purchase.Status != StatusOrdered {
		return nil, fmt.Errorf("purchase cannot be received in status %s", purchase.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, item := range purchase.Items {
		newQuantity, err := s.catalogService.AdjustQuantity(tx, item.VariantID, item.Quantity)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to receive stock for variant %s: %w", item.SKU, err)
		}

		movement := &ledger.StockMovement{
			ProductID:        item.ProductID,
			VariantID:        item.VariantID,
			Type:             ledger.MovementTypeIn,
			Delta:            item.Quantity,
			PreviousQuantity: newQuantity - item.Quantity,
			NewQuantity:      newQuantity,
			ReferenceType:    ledger.ReferenceTypePurchase,
			ReferenceID:      purchase.ID,
			CreatedBy:        userID,
		}
		if err := s.ledgerService.Append(tx, movement); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := tx.Model(&purchase).Updates(map[string]interface{}{
		"status":      StatusReceived,
		"received_at": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update purchase status: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit receive transaction: %w", err)
	}

	return s.GetPurchase(id)
}

// CancelPurchase cancels a purchase. A received purchase is compensated with
// out movements; the cancellation is rejected if the received stock has
// already been sold below the purchased quantity.
func (s *Service) CancelPurchase(id uint, userID uint) (*Purchase, error) {
	var purchase Purchase
	if err := s.db.Preload("Items").First(&purchase, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("purchase not found")
		}
		return nil, fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	if purchase.Status == StatusCancelled {
		return nil, fmt.Errorf("purchase is already cancelled")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if purchase.IsReceived() {
		if err := s.compensateReceivedItems(tx, &purchase, "purchase cancelled", userID); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Model(&purchase).Update("status", StatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update purchase status: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit cancel transaction: %w", err)
	}

	return s.GetPurchase(id)
}

// DeletePurchase removes a purchase under the unpaid guard, compensating
// stock first when the purchase was already received.
func (s *Service) DeletePurchase(id uint, userID uint) error {
	var purchase Purchase
	if err := s.db.Preload("Items").First(&purchase, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("purchase not found")
		}
		return fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	if !purchase.CanBeDeleted() {
		return ErrPurchaseImmutable
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if purchase.IsReceived() {
		if err := s.compensateReceivedItems(tx, &purchase, "purchase deleted", userID); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Where("purchase_id = ?", purchase.ID).Delete(&PurchaseItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete purchase items: %w", err)
	}

	if err := tx.Delete(&purchase).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	return tx.Commit().Error
}

// compensateReceivedItems reverses a received purchase's stock effect inside tx
func (s *Service) compensateReceivedItems(tx *gorm.DB, purchase *Purchase, reason string, userID uint) error {
	for _, item := range purchase.Items {
		newQuantity, err := s.catalogService.AdjustQuantity(tx, item.VariantID, -item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to reverse stock for variant %s: %w", item.SKU, err)
		}

		movement := &ledger.StockMovement{
			ProductID:        item.ProductID,
			VariantID:        item.VariantID,
			Type:             ledger.MovementTypeOut,
			Delta:            -item.Quantity,
			PreviousQuantity: newQuantity + item.Quantity,
			NewQuantity:      newQuantity,
			ReferenceType:    ledger.ReferenceTypePurchase,
			ReferenceID:      purchase.ID,
			Reason:           reason,
			CreatedBy:        userID,
		}
		if err := s.ledgerService.Append(tx, movement); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePayment transitions the purchase's payment status
func (s *Service) UpdatePayment(id uint, status payment.Status) (*Purchase, error) {
	var purchase Purchase
	if err := s.db.First(&purchase, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("purchase not found")
		}
		return nil, fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	if err := payment.ValidateTransition(purchase.PaymentStatus, status); err != nil {
		return nil, err
	}

	if err := s.db.Model(&purchase).Update("payment_status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	return s.GetPurchase(id)
}

// GetPurchase retrieves a single purchase by ID
func (s *Service) GetPurchase(id uint) (*Purchase, error) {
	var purchase Purchase
	result := s.db.Preload("Items").First(&purchase, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("purchase not found")
		}
		return nil, fmt.Errorf("failed to retrieve purchase: %w", result.Error)
	}
	return &purchase, nil
}

// GetPurchases retrieves purchases with filtering and pagination
func (s *Service) GetPurchases(req *PurchaseListRequest) (*PurchaseResponse, error) {
	var purchases []Purchase
	var total int64

	query := s.db.Model(&Purchase{}).Preload("Items")

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PaymentStatus != "" {
		query = query.Where("payment_status = ?", req.PaymentStatus)
	}
	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve purchases: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &PurchaseResponse{
		Purchases: purchases,
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

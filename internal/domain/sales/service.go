// internal/domain/sales/service.go
package sales

import (
	"fmt"
	"log"
	"strconv"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/catalog"
	"github.com/your-org/commerce-backend/internal/domain/ledger"
	"github.com/your-org/commerce-backend/internal/domain/payment"
	"gorm.io/gorm"
)

// Service handles sale business logic. Sale creation and deletion are the
// only writers of outbound stock: each runs in one transaction covering the
// quantity compare-and-set and the matching ledger append.
type Service struct {
	db             *gorm.DB
	config         *config.Config
	catalogService *catalog.Service
	ledgerService  *ledger.Service
	idempotency    IdempotencyStore
}

// NewService creates a new sales service. A nil idempotency store disables
// replay protection.
func NewService(db *gorm.DB, cfg *config.Config, catalogService *catalog.Service, ledgerService *ledger.Service, idempotency IdempotencyStore) *Service {
	return &Service{
		db:             db,
		config:         cfg,
		catalogService: catalogService,
		ledgerService:  ledgerService,
		idempotency:    idempotency,
	}
}

// SaleItemRequest represents one requested sale line
type SaleItemRequest struct {
	VariantID uint  `json:"variant_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required"`
	UnitPrice int64 `json:"unit_price"` // Defaults to the variant's selling price
	Discount  int64 `json:"discount"`
}

// CreateSaleRequest represents sale creation data
type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items" binding:"required"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	PaymentMethod payment.Method    `json:"payment_method" binding:"required"`
	Notes         string            `json:"notes"`
}

// UpdatePaymentRequest represents a payment status transition
type UpdatePaymentRequest struct {
	PaymentStatus payment.Status `json:"payment_status" binding:"required"`
}

// SaleListRequest represents sale list query parameters
type SaleListRequest struct {
	Page          int            `form:"page,default=1"`
	Limit         int            `form:"limit,default=20"`
	PaymentStatus payment.Status `form:"payment_status"`
	DateFrom      string         `form:"date_from"`
	DateTo        string         `form:"date_to"`
}

// SaleResponse represents sales with pagination
type SaleResponse struct {
	Sales      []Sale            `json:"sales"`
	Pagination ledger.Pagination `json:"pagination"`
}

// CreateSale creates a sale atomically: stock sufficiency is enforced by the
// catalog's compare-and-set against the persisted quantity, so a stale UI
// read can never over-sell. All lines apply or none do.
//
// idempotencyKey is optional; a replayed key returns the originally created
// sale instead of selling twice.
func (s *Service) CreateSale(req *CreateSaleRequest, idempotencyKey string, userID uint) (*Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("sale requires at least one item")
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("invalid payment method: %s", req.PaymentMethod)
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item quantity must be positive")
		}
		if item.Discount < 0 {
			return nil, fmt.Errorf("item discount cannot be negative")
		}
	}

	if idempotencyKey != "" {
		if existing, done, err := s.claimIdempotencyKey(idempotencyKey); err != nil {
			return nil, err
		} else if done {
			return existing, nil
		}
	}

	sale, err := s.createSale(req, userID)
	if idempotencyKey != "" {
		s.settleIdempotencyKey(idempotencyKey, sale, err)
	}
	return sale, err
}

func (s *Service) createSale(req *CreateSaleRequest, userID uint) (*Sale, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	sale := &Sale{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: payment.StatusPending,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}

	if err := tx.Create(sale).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	var total int64
	for _, itemReq := range req.Items {
		var variant catalog.Variant
		if err := tx.First(&variant, itemReq.VariantID).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("variant %d not found", itemReq.VariantID)
		}

		unitPrice := itemReq.UnitPrice
		if unitPrice == 0 {
			unitPrice = variant.SellingPrice
		}

		lineTotal := unitPrice*int64(itemReq.Quantity) - itemReq.Discount
		if lineTotal < 0 {
			tx.Rollback()
			return nil, fmt.Errorf("discount exceeds line total for variant %s", variant.SKU)
		}

		// Compare-and-set decrement; fails the whole sale on shortfall
		newQuantity, err := s.catalogService.AdjustQuantity(tx, variant.ID, -itemReq.Quantity)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		item := &SaleItem{
			SaleID:     sale.ID,
			ProductID:  variant.ProductID,
			VariantID:  variant.ID,
			SKU:        variant.SKU,
			Name:       variant.Name,
			Quantity:   itemReq.Quantity,
			UnitPrice:  unitPrice,
			Discount:   itemReq.Discount,
			TotalPrice: lineTotal,
		}
		if err := tx.Create(item).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create sale item: %w", err)
		}

		movement := &ledger.StockMovement{
			ProductID:        variant.ProductID,
			VariantID:        variant.ID,
			Type:             ledger.MovementTypeOut,
			Delta:            -itemReq.Quantity,
			PreviousQuantity: newQuantity + itemReq.Quantity,
			NewQuantity:      newQuantity,
			ReferenceType:    ledger.ReferenceTypeSale,
			ReferenceID:      sale.ID,
			CreatedBy:        userID,
		}
		if err := s.ledgerService.Append(tx, movement); err != nil {
			tx.Rollback()
			return nil, err
		}

		total += lineTotal
	}

	sale.SaleNumber = GenerateSaleNumber(sale.ID)
	sale.TotalAmount = total
	if err := tx.Model(sale).Updates(map[string]interface{}{
		"sale_number":  sale.SaleNumber,
		"total_amount": total,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to finalize sale: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit sale transaction: %w", err)
	}

	return s.GetSale(sale.ID)
}

// DeleteSale reverses a sale: each line gets a compensating return movement
// and its quantity restored, then the sale is removed. Paid sales are
// settled and immutable to deletion.
func (s *Service) DeleteSale(id uint, userID uint) error {
	var sale Sale
	if err := s.db.Preload("Items").First(&sale, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("sale not found")
		}
		return fmt.Errorf("failed to retrieve sale: %w", err)
	}

	if !sale.CanBeDeleted() {
		return ErrSaleImmutable
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, item := range sale.Items {
		newQuantity, err := s.catalogService.AdjustQuantity(tx, item.VariantID, item.Quantity)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to restore stock for variant %s: %w", item.SKU, err)
		}

		movement := &ledger.StockMovement{
			ProductID:        item.ProductID,
			VariantID:        item.VariantID,
			Type:             ledger.MovementTypeReturn,
			Delta:            item.Quantity,
			PreviousQuantity: newQuantity - item.Quantity,
			NewQuantity:      newQuantity,
			ReferenceType:    ledger.ReferenceTypeSale,
			ReferenceID:      sale.ID,
			Reason:           "sale deleted",
			CreatedBy:        userID,
		}
		if err := s.ledgerService.Append(tx, movement); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Where("sale_id = ?", sale.ID).Delete(&SaleItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete sale items: %w", err)
	}

	if err := tx.Delete(&sale).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	return tx.Commit().Error
}

// UpdatePayment transitions the sale's payment status. This never touches
// stock; the payment axis is independent.
func (s *Service) UpdatePayment(id uint, status payment.Status) (*Sale, error) {
	var sale Sale
	if err := s.db.First(&sale, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("sale not found")
		}
		return nil, fmt.Errorf("failed to retrieve sale: %w", err)
	}

	if err := payment.ValidateTransition(sale.PaymentStatus, status); err != nil {
		return nil, err
	}

	if err := s.db.Model(&sale).Update("payment_status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	return s.GetSale(id)
}

// GetSale retrieves a single sale by ID
func (s *Service) GetSale(id uint) (*Sale, error) {
	var sale Sale
	result := s.db.Preload("Items").First(&sale, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("sale not found")
		}
		return nil, fmt.Errorf("failed to retrieve sale: %w", result.Error)
	}
	return &sale, nil
}

// GetSales retrieves sales with filtering and pagination
func (s *Service) GetSales(req *SaleListRequest) (*SaleResponse, error) {
	var salesList []Sale
	var total int64

	query := s.db.Model(&Sale{}).Preload("Items")

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
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(req.Limit).Find(&salesList).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return &SaleResponse{
		Sales: salesList,
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

// Idempotency key handling. Keys are reserved before the transaction and
// mapped to the created sale afterwards, so a client retry of a timed-out
// request returns the original sale instead of double-selling.

func (s *Service) claimIdempotencyKey(key string) (*Sale, bool, error) {
	if s.idempotency == nil {
		return nil, false, nil
	}

	value, acquired, err := s.idempotency.Claim(key)
	if err != nil {
		// If the store is down, proceed without idempotency protection
		log.Printf("Warning: idempotency key reservation failed: %v", err)
		return nil, false, nil
	}
	if acquired {
		return nil, false, nil
	}
	if value == idempotencyKeyPending {
		return nil, false, fmt.Errorf("a request with this idempotency key is already in flight")
	}

	saleID, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency key mapping: %w", err)
	}

	sale, err := s.GetSale(uint(saleID))
	if err != nil {
		return nil, false, err
	}
	return sale, true, nil
}

func (s *Service) settleIdempotencyKey(key string, sale *Sale, createErr error) {
	if s.idempotency == nil {
		return
	}

	if createErr != nil {
		// Release the reservation so the client may retry
		if err := s.idempotency.Release(key); err != nil {
			log.Printf("Warning: failed to release idempotency key: %v", err)
		}
		return
	}

	if err := s.idempotency.Settle(key, sale.ID); err != nil {
		log.Printf("Warning: failed to store idempotency key mapping: %v", err)
	}
}

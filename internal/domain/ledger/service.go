// internal/domain/ledger/service.go
package ledger

import (
	"fmt"
	"time"

	"github.com/your-org/commerce-backend/internal/config"
	"gorm.io/gorm"
)

// Service handles the append-only stock movement ledger
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new ledger service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// MovementListRequest represents movement query parameters
type MovementListRequest struct {
	Page      int          `form:"page,default=1"`
	Limit     int          `form:"limit,default=20"`
	Type      MovementType `form:"type"`
	ProductID uint         `form:"product_id"`
	VariantID uint         `form:"variant_id"`
	DateFrom  string       `form:"date_from"`
	DateTo    string       `form:"date_to"`
}

// MovementResponse represents movements with pagination
type MovementResponse struct {
	Movements  []StockMovement `json:"movements"`
	Pagination Pagination      `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Append records a movement inside the caller's transaction. The caller is
// the transaction engine (or a manual adjustment) and must pass the same tx
// used for the quantity mutation so both commit or roll back together.
func (s *Service) Append(tx *gorm.DB, movement *StockMovement) error {
	if !movement.IsValid() {
		return fmt.Errorf("invalid movement: type %s with delta %d", movement.Type, movement.Delta)
	}

	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}

	if err := tx.Create(movement).Error; err != nil {
		return fmt.Errorf("failed to append stock movement: %w", err)
	}

	return nil
}

// Query retrieves movements with filtering and pagination
func (s *Service) Query(req *MovementListRequest) (*MovementResponse, error) {
	var movements []StockMovement
	var total int64

	query := s.db.Model(&StockMovement{})

	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if req.ProductID > 0 {
		query = query.Where("product_id = ?", req.ProductID)
	}
	if req.VariantID > 0 {
		query = query.Where("variant_id = ?", req.VariantID)
	}
	if req.DateFrom != "" {
		query = query.Where("created_at >= ?", req.DateFrom)
	}
	if req.DateTo != "" {
		query = query.Where("created_at <= ?", req.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count movements: %w", err)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	offset := (req.Page - 1) * req.Limit
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(req.Limit).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &MovementResponse{
		Movements:  movements,
		Pagination: pagination,
	}, nil
}

// VariantDelta sums all movement deltas for a variant. For a consistent
// ledger this equals the variant's current on-hand quantity.
func (s *Service) VariantDelta(variantID uint) (int, error) {
	var sum int64
	err := s.db.Model(&StockMovement{}).
		Where("variant_id = ?", variantID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum movement deltas: %w", err)
	}
	return int(sum), nil
}

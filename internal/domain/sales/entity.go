// internal/domain/sales/entity.go
package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/commerce-backend/internal/domain/payment"
	"gorm.io/gorm"
)

// ErrSaleImmutable is returned when deleting a paid sale. A settled sale is
// part of the financial record and can no longer be reversed by deletion.
var ErrSaleImmutable = errors.New("sale is paid and cannot be deleted")

// Sale represents a completed outbound transaction
type Sale struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SaleNumber    string         `gorm:"uniqueIndex;not null;size:50" json:"sale_number"`
	CustomerName  string         `gorm:"size:255" json:"customer_name"`
	CustomerPhone string         `gorm:"size:20" json:"customer_phone"`
	PaymentMethod payment.Method `gorm:"not null;size:20" json:"payment_method"`
	PaymentStatus payment.Status `gorm:"not null;default:'pending';index" json:"payment_status"`
	TotalAmount   int64          `gorm:"not null" json:"total_amount"` // In cents
	Notes         string         `gorm:"type:text" json:"notes"`
	CreatedBy     uint           `gorm:"index" json:"created_by"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// SaleItem represents one line of a sale
type SaleItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SaleID     uint      `gorm:"not null;index" json:"sale_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	VariantID  uint      `gorm:"not null;index" json:"variant_id"`
	SKU        string    `gorm:"not null;size:100" json:"sku"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	UnitPrice  int64     `gorm:"not null" json:"unit_price"` // In cents
	Discount   int64     `gorm:"default:0" json:"discount"`
	TotalPrice int64     `gorm:"not null" json:"total_price"` // Quantity * UnitPrice - Discount
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides
func (Sale) TableName() string     { return "sales" }
func (SaleItem) TableName() string { return "sale_items" }

// GenerateSaleNumber builds the sequence number for a persisted sale
func GenerateSaleNumber(saleID uint) string {
	// Format: SAL-YYYYMMDD-XXXXX
	return fmt.Sprintf("SAL-%s-%05d", time.Now().Format("20060102"), saleID)
}

// CanBeDeleted checks the deletion guard: a paid sale is settled and immutable
func (s *Sale) CanBeDeleted() bool {
	return !s.PaymentStatus.IsSettled()
}

// GetFormattedTotal returns total amount as float
func (s *Sale) GetFormattedTotal() float64 {
	return float64(s.TotalAmount) / 100
}

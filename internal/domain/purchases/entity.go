// internal/domain/purchases/entity.go
package purchases

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/commerce-backend/internal/domain/payment"
	"gorm.io/gorm"
)

// ErrPurchaseImmutable is returned when deleting a paid purchase
var ErrPurchaseImmutable = errors.New("purchase is paid and cannot be deleted")

// Status represents the stock lifecycle of a purchase, independent of its
// payment status
type Status string

const (
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// Purchase represents an inbound transaction from a supplier
type Purchase struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PurchaseNumber string         `gorm:"uniqueIndex;not null;size:50" json:"purchase_number"`
	SupplierName   string         `gorm:"size:255" json:"supplier_name"`
	SupplierPhone  string         `gorm:"size:20" json:"supplier_phone"`
	Status         Status         `gorm:"not null;default:'ordered';index" json:"status"`
	PaymentMethod  payment.Method `gorm:"not null;size:20" json:"payment_method"`
	PaymentStatus  payment.Status `gorm:"not null;default:'pending';index" json:"payment_status"`
	TotalAmount    int64          `gorm:"not null" json:"total_amount"` // In cents
	Notes          string         `gorm:"type:text" json:"notes"`
	CreatedBy      uint           `gorm:"index" json:"created_by"`
	ReceivedAt     *time.Time     `json:"received_at,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []PurchaseItem `gorm:"foreignKey:PurchaseID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// PurchaseItem represents one line of a purchase
type PurchaseItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PurchaseID uint      `gorm:"not null;index" json:"purchase_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	VariantID  uint      `gorm:"not null;index" json:"variant_id"`
	SKU        string    `gorm:"not null;size:100" json:"sku"`
	Name       string    `gorm:"not null;size:255" json:"name"`
	Quantity   int       `gorm:"not null" json:"quantity"`
	UnitCost   int64     `gorm:"not null" json:"unit_cost"` // In cents
	TotalCost  int64     `gorm:"not null" json:"total_cost"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides
func (Purchase) TableName() string     { return "purchases" }
func (PurchaseItem) TableName() string { return "purchase_items" }

// GeneratePurchaseNumber builds the sequence number for a persisted purchase
func GeneratePurchaseNumber(purchaseID uint) string {
	// Format: PUR-YYYYMMDD-XXXXX
	return fmt.Sprintf("PUR-%s-%05d", time.Now().Format("20060102"), purchaseID)
}

// CanBeDeleted checks the deletion guard
func (p *Purchase) CanBeDeleted() bool {
	return !p.PaymentStatus.IsSettled()
}

// IsReceived reports whether the purchase has been committed to stock
func (p *Purchase) IsReceived() bool {
	return p.Status == StatusReceived
}

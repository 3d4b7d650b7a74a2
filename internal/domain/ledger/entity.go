// internal/domain/ledger/entity.go
package ledger

import (
	"time"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeIn         MovementType = "in"
	MovementTypeOut        MovementType = "out"
	MovementTypeAdjustment MovementType = "adjustment"
	MovementTypeReturn     MovementType = "return"
)

// Reference types recorded on movements
const (
	ReferenceTypeSale     = "sale"
	ReferenceTypePurchase = "purchase"
)

// StockMovement is one immutable ledger entry recording a quantity change
// and its cause. Corrections are new compensating entries, never edits;
// the ledger has no update or delete path.
type StockMovement struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	ProductID        uint         `gorm:"not null;index" json:"product_id"`
	VariantID        uint         `gorm:"not null;index" json:"variant_id"`
	Type             MovementType `gorm:"not null;size:20;index" json:"type"`
	Delta            int          `gorm:"not null" json:"delta"` // Signed effect on on-hand quantity
	PreviousQuantity int          `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int          `gorm:"not null" json:"new_quantity"`
	ReferenceType    string       `gorm:"size:50" json:"reference_type,omitempty"`
	ReferenceID      uint         `json:"reference_id,omitempty"`
	Reason           string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedBy        uint         `gorm:"index" json:"created_by"`
	CreatedAt        time.Time    `gorm:"index" json:"created_at"`
}

// TableName overrides
func (StockMovement) TableName() string { return "stock_movements" }

// IsValid checks that the delta sign matches the movement type
func (m *StockMovement) IsValid() bool {
	switch m.Type {
	case MovementTypeIn, MovementTypeReturn:
		return m.Delta > 0
	case MovementTypeOut:
		return m.Delta < 0
	case MovementTypeAdjustment:
		return m.Delta != 0
	default:
		return false
	}
}

// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Product represents a sellable product
type Product struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SKU              string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name             string         `gorm:"not null;size:255" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	CategoryID       *uint          `gorm:"index" json:"category_id"`
	CostPrice        int64          `json:"cost_price"`              // In cents
	SellingPrice     int64          `gorm:"not null" json:"selling_price"` // In cents
	ReorderThreshold int            `gorm:"default:5" json:"reorder_threshold"`
	IsPrimary        bool           `gorm:"default:false" json:"is_primary"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variants,omitempty"`
}

// Variant represents an independently stocked version of a product.
// Its on-hand quantity is the single authoritative stock figure.
type Variant struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ProductID    uint           `gorm:"not null;index" json:"product_id"`
	SKU          string         `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name         string         `gorm:"not null;size:255" json:"name"`
	CostPrice    int64          `json:"cost_price"`
	SellingPrice int64          `json:"selling_price"`
	Quantity     int            `gorm:"not null;default:0" json:"quantity"`
	MinQuantity  int            `gorm:"default:0" json:"min_quantity"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Category groups products; deleting one never cascades to products
type Category struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null;size:255" json:"name"`
	Description string         `gorm:"size:500" json:"description"`
	Color       string         `gorm:"size:20" json:"color"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

// TableName overrides
func (Product) TableName() string  { return "products" }
func (Variant) TableName() string  { return "product_variants" }
func (Category) TableName() string { return "categories" }

// Business methods for Variant

// IsLowStock checks if the variant is at or below its minimum quantity
func (v *Variant) IsLowStock() bool {
	return v.Quantity <= v.MinQuantity
}

// IsOutOfStock checks if the variant has no stock left
func (v *Variant) IsOutOfStock() bool {
	return v.Quantity <= 0
}

// CanFulfill checks if there's enough stock for the requested quantity
func (v *Variant) CanFulfill(quantity int) bool {
	return v.Quantity >= quantity
}

// GetFormattedPrice returns the selling price as a float
func (v *Variant) GetFormattedPrice() float64 {
	return float64(v.SellingPrice) / 100
}

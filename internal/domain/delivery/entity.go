// internal/domain/delivery/entity.go
package delivery

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrProviderConfigured is returned when adding a provider that is already
// configured for the tenant
var ErrProviderConfigured = errors.New("delivery provider is already configured")

// CredentialField describes one field of a provider's credential schema
type CredentialField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"` // "text" | "password"
}

// Provider describes a supported delivery integration and the credential
// shape it requires
type Provider struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	CredentialSchema []CredentialField `json:"credential_schema"`
}

// SenderProfile is the pickup/sender identity attached to a configuration
type SenderProfile struct {
	Name       string `gorm:"size:255" json:"name"`
	Phone      string `gorm:"size:20" json:"phone"`
	Address    string `gorm:"size:500" json:"address"`
	RegionCode string `gorm:"size:20" json:"region_code"`
}

// ProviderConfig represents a tenant's configured delivery integration.
// Credentials are stored as an encrypted blob and never serialized back to
// the client.
type ProviderConfig struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TenantID    uint           `gorm:"not null;index" json:"tenant_id"`
	ProviderID  string         `gorm:"not null;size:50;index" json:"provider_id"`
	DisplayName string         `gorm:"size:255" json:"display_name"`
	Credentials string         `gorm:"type:text" json:"-"` // Encrypted blob
	Sender      SenderProfile  `gorm:"embedded;embeddedPrefix:sender_" json:"sender"`
	IsDefault   bool           `gorm:"default:false" json:"is_default"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (ProviderConfig) TableName() string { return "delivery_provider_configs" }

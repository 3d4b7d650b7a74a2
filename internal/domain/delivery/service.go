// internal/domain/delivery/service.go
package delivery

import (
	"encoding/json"
	"fmt"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/pkg/secrets"
	"gorm.io/gorm"
)

// CredentialVerifier checks credentials against the provider's validation
// endpoint. The real carrier call lives behind this boundary; verification
// is never a precondition of saving a configuration.
type CredentialVerifier interface {
	Verify(provider *Provider, credentials map[string]string) TestResult
}

// TestResult is the outcome of a credential test
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service handles delivery provider configuration
type Service struct {
	db       *gorm.DB
	config   *config.Config
	cipher   *secrets.Cipher
	verifier CredentialVerifier
}

// NewService creates a new delivery service
func NewService(db *gorm.DB, cfg *config.Config, cipher *secrets.Cipher, verifier CredentialVerifier) *Service {
	if verifier == nil {
		verifier = &schemaVerifier{}
	}
	return &Service{
		db:       db,
		config:   cfg,
		cipher:   cipher,
		verifier: verifier,
	}
}

// AddProviderRequest represents provider configuration data
type AddProviderRequest struct {
	ProviderID  string            `json:"provider" binding:"required"`
	DisplayName string            `json:"display_name"`
	Credentials map[string]string `json:"credentials" binding:"required"`
	Sender      SenderProfile     `json:"sender"`
	IsDefault   bool              `json:"is_default"`
}

// UpdateProviderRequest represents a partial provider configuration update.
// Credential keys present in the map replace stored values key-by-key;
// absent keys are left untouched so a partial update never wipes secrets.
type UpdateProviderRequest struct {
	DisplayName *string           `json:"display_name"`
	Credentials map[string]string `json:"credentials"`
	Sender      *SenderProfile    `json:"sender"`
	IsDefault   *bool             `json:"is_default"`
	IsActive    *bool             `json:"is_active"`
}

// TestCredentialsRequest represents a credential test call
type TestCredentialsRequest struct {
	ProviderID  string            `json:"provider" binding:"required"`
	Credentials map[string]string `json:"credentials" binding:"required"`
}

// ListAvailableProviders returns the static provider catalog
func (s *Service) ListAvailableProviders() []Provider {
	return AvailableProviders()
}

// AddProvider configures a delivery provider for a tenant. At most one
// config per provider ID, and at most one default per tenant: setting
// is_default demotes any previous default in the same transaction.
func (s *Service) AddProvider(tenantID uint, req *AddProviderRequest) (*ProviderConfig, error) {
	provider, ok := FindProvider(req.ProviderID)
	if !ok {
		return nil, fmt.Errorf("unknown delivery provider: %s", req.ProviderID)
	}

	if err := validateCredentialKeys(provider, req.Credentials); err != nil {
		return nil, err
	}

	blob, err := s.sealCredentials(req.Credentials)
	if err != nil {
		return nil, err
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = provider.Name
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var existing ProviderConfig
	if err := tx.Where("tenant_id = ? AND provider_id = ?", tenantID, req.ProviderID).First(&existing).Error; err == nil {
		tx.Rollback()
		return nil, ErrProviderConfigured
	}

	if req.IsDefault {
		if err := tx.Model(&ProviderConfig{}).
			Where("tenant_id = ? AND is_default = ?", tenantID, true).
			Update("is_default", false).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to demote previous default provider: %w", err)
		}
	}

	cfg := &ProviderConfig{
		TenantID:    tenantID,
		ProviderID:  req.ProviderID,
		DisplayName: displayName,
		Credentials: blob,
		Sender:      req.Sender,
		IsDefault:   req.IsDefault,
		IsActive:    true,
	}

	if err := tx.Create(cfg).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create provider config: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit provider config: %w", err)
	}

	return cfg, nil
}

// UpdateProvider applies a partial update to a provider configuration
func (s *Service) UpdateProvider(tenantID, id uint, req *UpdateProviderRequest) (*ProviderConfig, error) {
	var cfg ProviderConfig
	if err := s.db.Where("tenant_id = ?", tenantID).First(&cfg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("provider config not found")
		}
		return nil, fmt.Errorf("failed to retrieve provider config: %w", err)
	}

	provider, ok := FindProvider(cfg.ProviderID)
	if !ok {
		return nil, fmt.Errorf("unknown delivery provider: %s", cfg.ProviderID)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Sender != nil {
		updates["sender_name"] = req.Sender.Name
		updates["sender_phone"] = req.Sender.Phone
		updates["sender_address"] = req.Sender.Address
		updates["sender_region_code"] = req.Sender.RegionCode
	}

	if len(req.Credentials) > 0 {
		if err := validateCredentialKeys(provider, req.Credentials); err != nil {
			tx.Rollback()
			return nil, err
		}

		stored, err := s.openCredentials(cfg.Credentials)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		// Merge key-by-key; absent keys keep their stored values
		for key, value := range req.Credentials {
			stored[key] = value
		}

		blob, err := s.sealCredentials(stored)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		updates["credentials"] = blob
	}

	if req.IsDefault != nil {
		if *req.IsDefault && !cfg.IsDefault {
			if err := tx.Model(&ProviderConfig{}).
				Where("tenant_id = ? AND is_default = ?", tenantID, true).
				Update("is_default", false).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to demote previous default provider: %w", err)
			}
		}
		updates["is_default"] = *req.IsDefault
	}

	if len(updates) > 0 {
		if err := tx.Model(&cfg).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to update provider config: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit provider update: %w", err)
	}

	return s.GetProvider(tenantID, id)
}

// TestCredentials checks credentials against the provider's validation
// endpoint without persisting anything
func (s *Service) TestCredentials(req *TestCredentialsRequest) (*TestResult, error) {
	provider, ok := FindProvider(req.ProviderID)
	if !ok {
		return nil, fmt.Errorf("unknown delivery provider: %s", req.ProviderID)
	}

	result := s.verifier.Verify(provider, req.Credentials)
	return &result, nil
}

// DeleteProvider removes a provider configuration
func (s *Service) DeleteProvider(tenantID, id uint) error {
	var cfg ProviderConfig
	if err := s.db.Where("tenant_id = ?", tenantID).First(&cfg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("provider config not found")
		}
		return fmt.Errorf("failed to retrieve provider config: %w", err)
	}

	if err := s.db.Delete(&cfg).Error; err != nil {
		return fmt.Errorf("failed to delete provider config: %w", err)
	}

	return nil
}

// GetProvider retrieves one configuration; credentials stay sealed
func (s *Service) GetProvider(tenantID, id uint) (*ProviderConfig, error) {
	var cfg ProviderConfig
	if err := s.db.Where("tenant_id = ?", tenantID).First(&cfg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("provider config not found")
		}
		return nil, fmt.Errorf("failed to retrieve provider config: %w", err)
	}
	return &cfg, nil
}

// ListProviders retrieves all configurations for a tenant. The credential
// blob is excluded from serialization by the entity's json tag.
func (s *Service) ListProviders(tenantID uint) ([]ProviderConfig, error) {
	var configs []ProviderConfig
	if err := s.db.Where("tenant_id = ?", tenantID).Order("created_at ASC").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve provider configs: %w", err)
	}
	return configs, nil
}

// DecryptCredentials opens the stored blob for server-side use (e.g.
// building a shipment request). Never exposed over the API.
func (s *Service) DecryptCredentials(cfg *ProviderConfig) (map[string]string, error) {
	return s.openCredentials(cfg.Credentials)
}

func (s *Service) sealCredentials(credentials map[string]string) (string, error) {
	raw, err := json.Marshal(credentials)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	blob, err := s.cipher.Encrypt(raw)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	return blob, nil
}

func (s *Service) openCredentials(blob string) (map[string]string, error) {
	if blob == "" {
		return map[string]string{}, nil
	}
	raw, err := s.cipher.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	var credentials map[string]string
	if err := json.Unmarshal(raw, &credentials); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return credentials, nil
}

// validateCredentialKeys rejects keys outside the provider's schema
func validateCredentialKeys(provider *Provider, credentials map[string]string) error {
	for key := range credentials {
		known := false
		for _, field := range provider.CredentialSchema {
			if field.Key == key {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown credential field '%s' for provider %s", key, provider.ID)
		}
	}
	return nil
}

// schemaVerifier is the default verifier used until a carrier integration is
// wired in: it checks that every schema field is present and non-empty.
type schemaVerifier struct{}

func (v *schemaVerifier) Verify(provider *Provider, credentials map[string]string) TestResult {
	for _, field := range provider.CredentialSchema {
		if credentials[field.Key] == "" {
			return TestResult{
				Success: false,
				Message: fmt.Sprintf("missing credential field: %s", field.Label),
			}
		}
	}
	return TestResult{
		Success: true,
		Message: "credentials accepted",
	}
}

package delivery_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/your-org/commerce-backend/internal/config"
	"github.com/your-org/commerce-backend/internal/domain/delivery"
	"github.com/your-org/commerce-backend/internal/pkg/secrets"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&delivery.ProviderConfig{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func newTestService(t *testing.T) *delivery.Service {
	t.Helper()
	cipher, err := secrets.NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}
	return delivery.NewService(newTestDB(t), &config.Config{}, cipher, nil)
}

func aramexCredentials() map[string]string {
	return map[string]string{
		"username":       "shipper",
		"password":       "s3cret",
		"account_number": "12345",
		"account_pin":    "0000",
	}
}

func TestAddProviderEncryptsCredentials(t *testing.T) {
	svc := newTestService(t)

	cfg, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "aramex",
		Credentials: aramexCredentials(),
		Sender:      delivery.SenderProfile{Name: "Main Store", Phone: "+966500000000"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DisplayName != "Aramex" {
		t.Fatalf("want provider name as default display name, got %q", cfg.DisplayName)
	}
	if !cfg.IsActive {
		t.Fatal("new config must be active")
	}

	// The stored blob must not contain any plaintext credential value
	if strings.Contains(cfg.Credentials, "s3cret") {
		t.Fatal("credential stored in plaintext")
	}

	// And must never appear in the serialized form clients see
	payload, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(payload), "s3cret") || strings.Contains(string(payload), cfg.Credentials) {
		t.Fatalf("credentials leaked in response payload: %s", payload)
	}

	// Server-side decryption round-trips
	opened, err := svc.DecryptCredentials(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opened["password"] != "s3cret" || opened["username"] != "shipper" {
		t.Fatalf("decrypted credentials mismatch: %+v", opened)
	}
}

func TestAddProviderRejectsUnknownProviderAndKeys(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "ups",
		Credentials: map[string]string{"username": "x"},
	}); err == nil {
		t.Fatal("want error for unknown provider, got nil")
	}

	if _, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "aramex",
		Credentials: map[string]string{"api_token": "x"},
	}); err == nil {
		t.Fatal("want error for unknown credential key, got nil")
	}
}

func TestAddProviderRejectsDuplicate(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "abc"},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "def"},
	})
	if err != delivery.ErrProviderConfigured {
		t.Fatalf("want ErrProviderConfigured, got %v", err)
	}

	// A different tenant may configure the same provider
	if _, err := svc.AddProvider(2, &delivery.AddProviderRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "ghi"},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestSingleDefaultPerTenant(t *testing.T) {
	svc := newTestService(t)

	first, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "abc"},
		IsDefault:   true,
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "aramex",
		Credentials: aramexCredentials(),
		IsDefault:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !second.IsDefault {
		t.Fatal("new config should be default")
	}

	got, err := svc.GetProvider(1, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsDefault {
		t.Fatal("previous default was not demoted")
	}
}

func TestUpdateProviderMergesCredentials(t *testing.T) {
	svc := newTestService(t)

	cfg, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "aramex",
		Credentials: aramexCredentials(),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Updating one key must leave the others intact
	updated, err := svc.UpdateProvider(1, cfg.ID, &delivery.UpdateProviderRequest{
		Credentials: map[string]string{"password": "rotated"},
	})
	if err != nil {
		t.Fatal(err)
	}

	opened, err := svc.DecryptCredentials(updated)
	if err != nil {
		t.Fatal(err)
	}
	if opened["password"] != "rotated" {
		t.Fatalf("password not updated: %+v", opened)
	}
	if opened["username"] != "shipper" || opened["account_number"] != "12345" {
		t.Fatalf("untouched keys were lost: %+v", opened)
	}
}

func TestUpdateProviderWithoutCredentialsKeepsBlob(t *testing.T) {
	svc := newTestService(t)

	cfg, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "abc"},
	})
	if err != nil {
		t.Fatal(err)
	}

	name := "Store Shipping"
	updated, err := svc.UpdateProvider(1, cfg.ID, &delivery.UpdateProviderRequest{
		DisplayName: &name,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.DisplayName != name {
		t.Fatalf("display name not updated: %q", updated.DisplayName)
	}

	opened, err := svc.DecryptCredentials(updated)
	if err != nil {
		t.Fatal(err)
	}
	if opened["passkey"] != "abc" {
		t.Fatalf("credentials changed by unrelated update: %+v", opened)
	}
}

func TestTestCredentialsDoesNotPersist(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.TestCredentials(&delivery.TestCredentialsRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "abc"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("want success, got %+v", result)
	}

	result, err = svc.TestCredentials(&delivery.TestCredentialsRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Fatal("want failure for missing field")
	}

	configs, err := svc.ListProviders(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 0 {
		t.Fatalf("credential test persisted a config: %d", len(configs))
	}
}

func TestDeleteProviderScopedToTenant(t *testing.T) {
	svc := newTestService(t)

	cfg, err := svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "smsa",
		Credentials: map[string]string{"passkey": "abc"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteProvider(2, cfg.ID); err == nil {
		t.Fatal("want error deleting another tenant's config, got nil")
	}

	if err := svc.DeleteProvider(1, cfg.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetProvider(1, cfg.ID); err == nil {
		t.Fatal("want config gone, got nil error")
	}
}

func TestDefaultUniquenessEnforcedByIndex(t *testing.T) {
	db := newTestDB(t)
	err := db.Exec("CREATE UNIQUE INDEX idx_delivery_configs_tenant_default " +
		"ON delivery_provider_configs(tenant_id) WHERE is_default AND deleted_at IS NULL").Error
	if err != nil {
		t.Fatal(err)
	}

	cipher, err := secrets.NewCipher(testKey)
	if err != nil {
		t.Fatal(err)
	}
	svc := delivery.NewService(db, &config.Config{}, cipher, nil)

	_, err = svc.AddProvider(1, &delivery.AddProviderRequest{
		ProviderID:  "aramex",
		Credentials: aramexCredentials(),
		IsDefault:   true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// A racing writer that skipped the demotion step hits the index
	err = db.Exec("INSERT INTO delivery_provider_configs (tenant_id, provider_id, display_name, is_default, is_active) "+
		"VALUES (?, ?, ?, ?, ?)", 1, "dhl", "DHL", true, true).Error
	if err == nil {
		t.Fatal("want second default for tenant rejected by unique index")
	}

	// Another tenant's default is unaffected
	err = db.Exec("INSERT INTO delivery_provider_configs (tenant_id, provider_id, display_name, is_default, is_active) "+
		"VALUES (?, ?, ?, ?, ?)", 2, "dhl", "DHL", true, true).Error
	if err != nil {
		t.Fatalf("default for a different tenant must pass: %v", err)
	}
}

// internal/domain/delivery/providers.go
package delivery

// Static catalog of supported delivery providers. This is product data, not
// tenant data; tenants reference entries by ID when configuring an
// integration.
var availableProviders = []Provider{
	{
		ID:   "aramex",
		Name: "Aramex",
		CredentialSchema: []CredentialField{
			{Key: "username", Label: "Username", Type: "text"},
			{Key: "password", Label: "Password", Type: "password"},
			{Key: "account_number", Label: "Account Number", Type: "text"},
			{Key: "account_pin", Label: "Account PIN", Type: "password"},
		},
	},
	{
		ID:   "dhl",
		Name: "DHL Express",
		CredentialSchema: []CredentialField{
			{Key: "site_id", Label: "Site ID", Type: "text"},
			{Key: "password", Label: "Password", Type: "password"},
			{Key: "account_number", Label: "Account Number", Type: "text"},
		},
	},
	{
		ID:   "fedex",
		Name: "FedEx",
		CredentialSchema: []CredentialField{
			{Key: "client_id", Label: "API Key", Type: "text"},
			{Key: "client_secret", Label: "Secret Key", Type: "password"},
			{Key: "account_number", Label: "Account Number", Type: "text"},
		},
	},
	{
		ID:   "smsa",
		Name: "SMSA Express",
		CredentialSchema: []CredentialField{
			{Key: "passkey", Label: "Pass Key", Type: "password"},
		},
	},
}

// AvailableProviders returns the provider catalog
func AvailableProviders() []Provider {
	providers := make([]Provider, len(availableProviders))
	copy(providers, availableProviders)
	return providers
}

// FindProvider looks up a provider by ID
func FindProvider(id string) (*Provider, bool) {
	for i := range availableProviders {
		if availableProviders[i].ID == id {
			return &availableProviders[i], true
		}
	}
	return nil, false
}

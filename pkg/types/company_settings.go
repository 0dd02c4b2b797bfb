package types

import "database/sql/driver"

// CompanySettings is the per-tenant feature flag blob.
type CompanySettings struct {
	StoreEnabled     bool   `json:"store_enabled"`
	AllowWalletTopup bool   `json:"allow_wallet_topup"`
	BrandColor       string `json:"brand_color,omitempty"`
	WelcomeMessage   string `json:"welcome_message,omitempty"`
}

func (s CompanySettings) Value() (driver.Value, error) {
	return jsonValue(s)
}

func (s *CompanySettings) Scan(value any) error {
	if value == nil {
		*s = CompanySettings{}
		return nil
	}
	return jsonScan("company settings", value, s)
}

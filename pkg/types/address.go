package types

import (
	"database/sql/driver"
	"strings"
)

// Address is a postal address stored as JSONB on companies, orders and recipients.
type Address struct {
	Name       string  `json:"name,omitempty"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// DefaultCountry is applied when an address omits its country.
const DefaultCountry = "IN"

// Normalize trims fields and fills the default country.
func (a Address) Normalize() Address {
	a.Name = strings.TrimSpace(a.Name)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// IsZero reports an address with no street line.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == ""
}

// Value marshals Address into JSON.
func (a Address) Value() (driver.Value, error) {
	return jsonValue(a)
}

// Scan decodes a JSONB address.
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	return jsonScan("address", value, a)
}

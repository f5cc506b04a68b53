package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ShippingAddress is the destination for physical item orders. It is stored
// as jsonb on the order row so the shape at purchase time is preserved even
// if the buyer later changes their default address.
type ShippingAddress struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

var postalPatterns = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"CN": regexp.MustCompile(`^\d{6}$`),
	"JP": regexp.MustCompile(`^\d{3}-?\d{4}$`),
	"CA": regexp.MustCompile(`^[A-Za-z]\d[A-Za-z] ?\d[A-Za-z]\d$`),
	"GB": regexp.MustCompile(`^[A-Za-z]{1,2}\d[A-Za-z\d]? ?\d[A-Za-z]{2}$`),
}

// Validate checks the required fields and, for countries with a known postal
// format, the postal code shape. Unknown countries only require a non-empty
// postal code.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("recipient name is required")
	}
	if strings.TrimSpace(a.Street) == "" {
		return fmt.Errorf("street is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("city is required")
	}
	country := strings.ToUpper(strings.TrimSpace(a.Country))
	if country == "" {
		return fmt.Errorf("country is required")
	}
	postal := strings.TrimSpace(a.PostalCode)
	if postal == "" {
		return fmt.Errorf("postal code is required")
	}
	if pattern, ok := postalPatterns[country]; ok && !pattern.MatchString(postal) {
		return fmt.Errorf("postal code %q is not valid for country %s", postal, country)
	}
	return nil
}

// IsZero reports whether no address was supplied at all.
func (a ShippingAddress) IsZero() bool {
	return a == ShippingAddress{}
}

func (a ShippingAddress) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *ShippingAddress) Scan(value any) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ShippingAddress: %T", value)
	}

	return json.Unmarshal(data, a)
}

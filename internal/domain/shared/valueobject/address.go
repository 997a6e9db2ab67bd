package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a postal address used for shipping and user address books.
// Fields are exported so the value serialises into exports and JSON columns unchanged.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postalCode" validate:"max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// NewAddress creates a trimmed Address. City, Line1 and Country are required.
func NewAddress(line1, line2, city, state, postalCode, country string) (Address, error) {
	addr := Address{
		Line1:      line1,
		Line2:      line2,
		City:       city,
		State:      state,
		PostalCode: postalCode,
		Country:    country,
	}.Normalize()

	if addr.Line1 == "" {
		return Address{}, fmt.Errorf("address line1 cannot be empty")
	}
	if addr.City == "" {
		return Address{}, fmt.Errorf("city cannot be empty")
	}
	if addr.Country == "" {
		return Address{}, fmt.Errorf("country cannot be empty")
	}
	return addr, nil
}

// Normalize returns a copy with surrounding whitespace trimmed from every field
func (a Address) Normalize() Address {
	return Address{
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

// IsEmpty returns true if the address is empty (all fields are blank)
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Redacted returns the address with the street lines and postal code removed.
// City, state and country remain for regional reporting.
func (a Address) Redacted() Address {
	return Address{
		City:    a.City,
		State:   a.State,
		Country: a.Country,
	}
}

// FullAddress returns the complete formatted address string
func (a Address) FullAddress() string {
	if a.IsEmpty() {
		return ""
	}

	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// String implements the Stringer interface
func (a Address) String() string {
	return a.FullAddress()
}

// Value implements driver.Valuer for database storage as a JSON column
func (a Address) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database retrieval
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into Address", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = Address{}
		return nil
	}
	return json.Unmarshal(data, a)
}

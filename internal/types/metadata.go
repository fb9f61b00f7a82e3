package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata holds free-form key-value pairs persisted as JSONB, e.g. payer
// details attached to a payment
type Metadata map[string]string

// Scan implements sql.Scanner. Drivers hand JSONB back as either []byte or
// string depending on the wire format.
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}

	result := make(Metadata)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*m = result
	return nil
}

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(make(Metadata))
	}
	return json.Marshal(m)
}

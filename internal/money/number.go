package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Number is a decimal that encodes as a bare JSON number with two places,
// for example 150.00. It decodes from either a number or a quoted string.
type Number struct {
	decimal.Decimal
}

// NewNumber rounds d to two places.
func NewNumber(d decimal.Decimal) Number {
	return Number{Decimal: Round2(d)}
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.StringFixed(Places)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		n.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("money: decode number %s: %w", data, err)
	}
	n.Decimal = d
	return nil
}

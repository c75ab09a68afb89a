// Package money wraps monetary arithmetic in arbitrary-precision decimals.
//
// Every amount that enters or leaves the analytics layer passes through this
// package so that sums over many price × quantity × item-count products never
// pick up binary floating point artefacts.
package money

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits used for presentation.
const Places = 2

// Zero is the additive identity.
var Zero = decimal.Zero

// From normalises a numeric value into a decimal.
func From(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return val, nil
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero, nil
		}
		return *val, nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int32:
		return decimal.NewFromInt32(val), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case uint32:
		return decimal.NewFromInt(int64(val)), nil
	case float32:
		return decimal.NewFromString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	case float64:
		// The shortest round-trip representation keeps 0.1 as 0.1 instead of
		// 0.1000000000000000055511151231257827.
		return decimal.NewFromString(strconv.FormatFloat(val, 'f', -1, 64))
	case string:
		if val == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(val)
	case json.Number:
		return decimal.NewFromString(val.String())
	default:
		return decimal.Zero, fmt.Errorf("money: unsupported type %T", v)
	}
}

// MustFrom is From for literals known to be valid.
func MustFrom(v any) decimal.Decimal {
	d, err := From(v)
	if err != nil {
		panic(err)
	}
	return d
}

// Revenue returns price × quantity × itemCount.
func Revenue(price decimal.Decimal, quantity, itemCount int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity)).Mul(decimal.NewFromInt(itemCount))
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Product multiplies all values. An empty input yields zero.
func Product(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	out := values[0]
	for _, v := range values[1:] {
		out = out.Mul(v)
	}
	return out
}

// Average returns the arithmetic mean, zero for an empty input.
func Average(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Avg(values[0], values[1:]...)
}

// Min returns the smallest value, zero for an empty input.
func Min(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Min(values[0], values[1:]...)
}

// Max returns the largest value, zero for an empty input.
func Max(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Max(values[0], values[1:]...)
}

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Fixed renders the value with exactly two fractional digits.
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// ParseFixed parses a presentation string back into a decimal.
func ParseFixed(s string) (decimal.Decimal, error) {
	return From(s)
}

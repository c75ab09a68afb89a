package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNormalisesInputs(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "0"},
		{"int", 7, "7"},
		{"int64", int64(-3), "-3"},
		{"float", 0.1, "0.1"},
		{"float sum artefact", 0.1 + 0.2, "0.30000000000000004"},
		{"string", "19.99", "19.99"},
		{"empty string", "", "0"},
		{"json number", json.Number("12.50"), "12.5"},
		{"decimal", decimal.RequireFromString("1.25"), "1.25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := From(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}

	_, err := From(struct{}{})
	assert.Error(t, err)
	_, err = From("abc")
	assert.Error(t, err)
}

func TestRevenueIsExactAcrossManyItems(t *testing.T) {
	price := MustFrom("0.10")
	var total decimal.Decimal
	for i := 0; i < 10000; i++ {
		total = total.Add(Revenue(price, 3, 1))
	}
	assert.Equal(t, "3000.00", Fixed(total))
}

func TestSumIsOrderIndependent(t *testing.T) {
	values := []decimal.Decimal{MustFrom("0.1"), MustFrom("0.2"), MustFrom("1234.567"), MustFrom("-0.3")}
	forward := Sum(values...)
	reversed := Sum(values[3], values[2], values[1], values[0])
	assert.True(t, forward.Equal(reversed))
	assert.Equal(t, "1234.57", Fixed(forward))
}

func TestAggregates(t *testing.T) {
	values := []decimal.Decimal{MustFrom("100"), MustFrom("50"), MustFrom("25.5")}
	assert.Equal(t, "58.50", Fixed(Average(values...)))
	assert.Equal(t, "25.50", Fixed(Min(values...)))
	assert.Equal(t, "100.00", Fixed(Max(values...)))
	assert.Equal(t, "127500.00", Fixed(Product(values...)))

	assert.True(t, Average().IsZero())
	assert.True(t, Min().IsZero())
	assert.True(t, Max().IsZero())
	assert.True(t, Product().IsZero())
}

func TestRound2AndFixed(t *testing.T) {
	assert.Equal(t, "2.68", Fixed(MustFrom("2.675")))
	assert.Equal(t, "-2.68", Fixed(MustFrom("-2.675")))
	assert.Equal(t, "10.00", Fixed(MustFrom(10)))
	assert.Equal(t, "1.01", Round2(MustFrom("1.005")).String())
}

func TestNumberEncodesAsBareTwoPlaceNumber(t *testing.T) {
	raw, err := json.Marshal(struct {
		Total Number `json:"total"`
	}{Total: NewNumber(MustFrom("150.005"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 150.01}`, string(raw))
	assert.Contains(t, string(raw), "150.01")

	var back struct {
		Total Number `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"total":"12.30"}`), &back))
	assert.Equal(t, "12.30", Fixed(back.Total.Decimal))
	require.NoError(t, json.Unmarshal([]byte(`{"total":7}`), &back))
	assert.Equal(t, "7.00", Fixed(back.Total.Decimal))
}

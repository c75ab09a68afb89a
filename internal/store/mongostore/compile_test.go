package mongostore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/money"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

const vendorHex = "65f1a2b3c4d5e6f708192a3b"

func stageNames(t *testing.T, stages []bson.D) []string {
	t.Helper()
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		require.Len(t, s, 1)
		names = append(names, s[0].Key)
	}
	return names
}

func TestCompileMonthlyPipeline(t *testing.T) {
	p := pipeline.New("monthly", vendorHex, nil,
		pipeline.Group{Key: pipeline.GroupYearMonth, Measures: []pipeline.Measure{
			pipeline.MeasureRevenue, pipeline.MeasureLineCount, pipeline.MeasureQuantity,
		}},
		pipeline.SortField{Key: pipeline.SortYear, Desc: true},
		pipeline.SortField{Key: pipeline.SortMonth, Desc: true},
	)
	stages, err := Compile(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"$unwind", "$lookup", "$unwind", "$match", "$group", "$sort"}, stageNames(t, stages))

	match := stages[3][0].Value.(bson.D)
	oid, _ := primitive.ObjectIDFromHex(vendorHex)
	assert.Equal(t, bson.D{{Key: "product.vendor", Value: oid}}, match)

	groupFields := stages[4][0].Value.(bson.D)
	keys := make([]string, 0, len(groupFields))
	for _, f := range groupFields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"_id", "revenue", "lines", "quantity"}, keys)

	assert.Equal(t, bson.D{{Key: "_id.year", Value: -1}, {Key: "_id.month", Value: -1}}, stages[5][0].Value)
}

func TestCompileDistinctCountsAddSizeStage(t *testing.T) {
	p := pipeline.New("detailed", vendorHex, nil, pipeline.Group{Key: pipeline.GroupNone, Measures: []pipeline.Measure{
		pipeline.MeasureDistinctOrders, pipeline.MeasureDistinctProducts, pipeline.MeasureRevenueStats,
	}})
	stages, err := Compile(p)
	require.NoError(t, err)
	names := stageNames(t, stages)
	assert.Equal(t, "$addFields", names[len(names)-1])
	group := stages[len(stages)-2][0].Value.(bson.D)
	assert.Nil(t, group[0].Value)
}

func TestCompileWindowMatchesPaymentBounds(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := pipeline.New("range", vendorHex, &pipeline.MatchPaid{From: &from},
		pipeline.Group{Key: pipeline.GroupYearMonthDay, Measures: []pipeline.Measure{pipeline.MeasureRevenue}})
	stages, err := Compile(p)
	require.NoError(t, err)
	first := stages[0][0]
	assert.Equal(t, "$match", first.Key)
	assert.Equal(t, bson.D{{Key: "payment_at", Value: bson.D{{Key: "$gte", Value: from}}}}, first.Value)
}

func TestCompileRejectsNonObjectIDVendor(t *testing.T) {
	p := pipeline.New("monthly", "not-hex", nil, pipeline.Group{Key: pipeline.GroupYearMonth})
	_, err := Compile(p)
	assert.ErrorIs(t, err, pipeline.ErrInvalidPipeline)
	assert.Error(t, ValidateID("not-hex"))
	assert.NoError(t, ValidateID(vendorHex))
}

func TestDecimal128RoundTrip(t *testing.T) {
	in := money.MustFrom("1234.5678")
	d, err := toDecimal128(in)
	require.NoError(t, err)
	out, err := fromDecimal128(d)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	zero, err := fromDecimal128(primitive.Decimal128{})
	require.NoError(t, err)
	assert.True(t, zero.Equal(decimal.Zero))
}

func TestNewOrderDocConvertsLines(t *testing.T) {
	order := &catalog.Order{
		PaymentAt: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		LineItems: []catalog.LineItem{{ProductID: vendorHex, Price: money.MustFrom("9.99"), Quantity: 2, ItemCount: 1}},
	}
	require.NoError(t, order.Prepare())
	doc, err := newOrderDoc(order)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "19.98", doc.TotalAmount.String())
	assert.Equal(t, "Pending", doc.Status)

	order.LineItems[0].ProductID = "bad"
	_, err = newOrderDoc(order)
	assert.Error(t, err)
}

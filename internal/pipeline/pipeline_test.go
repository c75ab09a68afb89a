package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/money"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func line(product, price string, qty, count int64) catalog.LineItem {
	return catalog.LineItem{ProductID: product, Price: money.MustFrom(price), Quantity: qty, ItemCount: count}
}

func fixture() Dataset {
	return Dataset{
		Products: map[string]catalog.Product{
			"p1": {ID: "p1", Name: "Kettle", VendorID: "v1"},
			"p2": {ID: "p2", Name: "Mug", VendorID: "v1"},
			"p3": {ID: "p3", Name: "Lamp", VendorID: "v2"},
		},
		Orders: []catalog.Order{
			{ID: "o1", PaymentAt: day(2024, time.March, 15, 9), LineItems: []catalog.LineItem{
				line("p1", "100.00", 1, 1),
				line("p2", "50.00", 1, 1),
				line("p3", "999.00", 1, 1),
			}},
			{ID: "o2", PaymentAt: day(2024, time.January, 31, 23), LineItems: []catalog.LineItem{
				line("p2", "12.50", 2, 3),
			}},
			{ID: "o3", PaymentAt: day(2023, time.December, 1, 0), LineItems: []catalog.LineItem{
				line("p1", "80.00", 1, 2),
				line("ghost", "1.00", 1, 1),
			}},
		},
	}
}

func TestValidateRejectsMalformedPipelines(t *testing.T) {
	ok := New("monthly", "v1", nil, Group{Key: GroupYearMonth, Measures: []Measure{MeasureRevenue}})
	require.NoError(t, ok.Validate())

	noVendor := New("monthly", " ", nil, Group{Key: GroupYearMonth})
	assert.ErrorIs(t, noVendor.Validate(), ErrInvalidPipeline)

	outOfOrder := Pipeline{Stages: []Stage{LookupProduct{}, UnwindLines{}, MatchVendor{VendorID: "v1"}, Group{Key: GroupNone}}}
	assert.ErrorIs(t, outOfOrder.Validate(), ErrInvalidPipeline)

	missingGroup := Pipeline{Stages: VendorLines("v1", nil)}
	assert.ErrorIs(t, missingGroup.Validate(), ErrInvalidPipeline)

	badKey := New("x", "v1", nil, Group{Key: "week"})
	assert.ErrorIs(t, badKey.Validate(), ErrInvalidPipeline)

	withNil := Pipeline{Stages: []Stage{nil}}
	assert.ErrorIs(t, withNil.Validate(), ErrInvalidPipeline)
}

func TestVendorLinesSkipsEmptyWindow(t *testing.T) {
	assert.Len(t, VendorLines("v1", &MatchPaid{}), 3)
	from := day(2024, time.January, 1, 0)
	stages := VendorLines("v1", &MatchPaid{From: &from})
	require.Len(t, stages, 4)
	assert.Equal(t, KindMatchPaid, stages[0].Kind())
}

func TestEvaluateGroupsByMonthDescending(t *testing.T) {
	p := New("monthly", "v1", nil,
		Group{Key: GroupYearMonth, Measures: []Measure{MeasureRevenue, MeasureLineCount, MeasureQuantity}},
		SortField{Key: SortYear, Desc: true}, SortField{Key: SortMonth, Desc: true},
	)
	buckets, err := Evaluate(fixture(), p)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, 2024, buckets[0].Year)
	assert.Equal(t, 3, buckets[0].Month)
	assert.Equal(t, "150.00", money.Fixed(buckets[0].Revenue))
	assert.Equal(t, int64(2), buckets[0].Lines)
	assert.Equal(t, int64(2), buckets[0].Quantity)

	assert.Equal(t, 1, buckets[1].Month)
	assert.Equal(t, "75.00", money.Fixed(buckets[1].Revenue))
	assert.Equal(t, int64(6), buckets[1].Quantity)

	assert.Equal(t, 2023, buckets[2].Year)
	assert.Equal(t, 12, buckets[2].Month)
	assert.Equal(t, "160.00", money.Fixed(buckets[2].Revenue), "lines without a product are dropped by the join")
}

func TestEvaluateProductGroupTakesFirstName(t *testing.T) {
	p := New("product", "v1", nil,
		Group{Key: GroupProduct, Measures: []Measure{MeasureRevenue, MeasureLineCount, MeasureProductName}},
		SortField{Key: SortRevenue, Desc: true}, SortField{Key: SortProductID},
	)
	buckets, err := Evaluate(fixture(), p)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "p1", buckets[0].ProductID)
	assert.Equal(t, "Kettle", buckets[0].ProductName)
	assert.Equal(t, "260.00", money.Fixed(buckets[0].Revenue))
	assert.Equal(t, "Mug", buckets[1].ProductName)
	assert.Equal(t, "125.00", money.Fixed(buckets[1].Revenue))
}

func TestEvaluateSummaryMeasures(t *testing.T) {
	p := New("detailed", "v1", nil, Group{Key: GroupNone, Measures: []Measure{
		MeasureRevenue, MeasureLineCount, MeasureQuantity, MeasureRevenueStats,
		MeasurePaidRange, MeasureDistinctOrders, MeasureDistinctProducts,
	}})
	buckets, err := Evaluate(fixture(), p)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	b := buckets[0]
	assert.Equal(t, "385.00", money.Fixed(b.Revenue))
	assert.Equal(t, int64(4), b.Lines)
	assert.Equal(t, int64(3), b.DistinctOrders)
	assert.Equal(t, int64(2), b.DistinctProducts)
	assert.Equal(t, "96.25", money.Fixed(b.AvgRevenue))
	assert.Equal(t, "50.00", money.Fixed(b.MinRevenue))
	assert.Equal(t, "160.00", money.Fixed(b.MaxRevenue))
	assert.Equal(t, day(2023, time.December, 1, 0), b.FirstPaid)
	assert.Equal(t, day(2024, time.March, 15, 9), b.LastPaid)
}

func TestEvaluateWindowIsInclusive(t *testing.T) {
	from := day(2024, time.January, 1, 0)
	to := time.Date(2024, time.January, 31, 23, 59, 59, int(time.Second-1), time.UTC)
	p := New("range", "v1", &MatchPaid{From: &from, To: &to},
		Group{Key: GroupYearMonthDay, Measures: []Measure{MeasureRevenue}},
		SortField{Key: SortYear}, SortField{Key: SortMonth}, SortField{Key: SortDay},
	)
	buckets, err := Evaluate(fixture(), p)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 31, buckets[0].Day)
}

func TestEvaluateEmptyVendorYieldsNoBuckets(t *testing.T) {
	p := New("detailed", "nobody", nil, Group{Key: GroupNone, Measures: []Measure{MeasureRevenue}})
	buckets, err := Evaluate(fixture(), p)
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

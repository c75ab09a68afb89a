package pgstore

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/money"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

const vendorUUID = "2f1c6a5e-6d3b-4c1e-9a43-1c1d2e3f4a5b"

func TestCompileMonthlySQL(t *testing.T) {
	p := pipeline.New("monthly", vendorUUID, nil,
		pipeline.Group{Key: pipeline.GroupYearMonth, Measures: []pipeline.Measure{
			pipeline.MeasureRevenue, pipeline.MeasureLineCount, pipeline.MeasureQuantity,
		}},
		pipeline.SortField{Key: pipeline.SortYear, Desc: true},
		pipeline.SortField{Key: pipeline.SortMonth, Desc: true},
	)
	q, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "date_part('year', (o.payment_at AT TIME ZONE 'UTC'))::int AS year")
	assert.Contains(t, q.SQL, "COALESCE(SUM(li.price * li.quantity * li.item_count), 0)::text AS revenue")
	assert.Contains(t, q.SQL, "WHERE p.vendor_id = $1")
	assert.Contains(t, q.SQL, "GROUP BY 1, 2")
	assert.Contains(t, q.SQL, "ORDER BY year DESC, month DESC")
	assert.NotContains(t, q.SQL, "HAVING")
	assert.Equal(t, []any{vendorUUID}, q.Args)
}

func TestCompileSummaryHasNoGroupBy(t *testing.T) {
	p := pipeline.New("detailed", vendorUUID, nil, pipeline.Group{Key: pipeline.GroupNone, Measures: []pipeline.Measure{
		pipeline.MeasureRevenueStats, pipeline.MeasureDistinctOrders, pipeline.MeasurePaidRange,
	}})
	q, err := Compile(p)
	require.NoError(t, err)
	assert.NotContains(t, q.SQL, "GROUP BY")
	assert.Contains(t, q.SQL, "HAVING COUNT(*) > 0")
	assert.Contains(t, q.SQL, "COUNT(DISTINCT o.id) AS orders")
	assert.Contains(t, q.SQL, "MIN(o.payment_at) AS first_paid")
}

func TestCompileWindowAddsPlaceholders(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
	p := pipeline.New("range", vendorUUID, &pipeline.MatchPaid{From: &from, To: &to},
		pipeline.Group{Key: pipeline.GroupYearMonthDay, Measures: []pipeline.Measure{pipeline.MeasureRevenue}},
		pipeline.SortField{Key: pipeline.SortYear}, pipeline.SortField{Key: pipeline.SortMonth}, pipeline.SortField{Key: pipeline.SortDay},
	)
	q, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "o.payment_at >= $2 AND o.payment_at <= $3")
	assert.Contains(t, q.SQL, "ORDER BY year ASC, month ASC, day ASC")
	require.Len(t, q.Args, 3)
	assert.Equal(t, from, q.Args[1])
}

func TestCompileProductSortsByRevenueExpression(t *testing.T) {
	p := pipeline.New("product", vendorUUID, nil,
		pipeline.Group{Key: pipeline.GroupProduct, Measures: []pipeline.Measure{pipeline.MeasureRevenue, pipeline.MeasureProductName}},
		pipeline.SortField{Key: pipeline.SortRevenue, Desc: true}, pipeline.SortField{Key: pipeline.SortProductID},
	)
	q, err := Compile(p)
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "GROUP BY p.id")
	assert.Contains(t, q.SQL, "ORDER BY SUM(li.price * li.quantity * li.item_count) DESC, p.id ASC")
}

func TestCompileRejectsDaySortWithoutDayGroup(t *testing.T) {
	p := pipeline.New("bad", vendorUUID, nil,
		pipeline.Group{Key: pipeline.GroupYearMonth, Measures: []pipeline.Measure{pipeline.MeasureRevenue}},
		pipeline.SortField{Key: pipeline.SortDay},
	)
	_, err := Compile(p)
	assert.ErrorIs(t, err, pipeline.ErrInvalidPipeline)
}

func TestBucketFromRowDecodesNumericText(t *testing.T) {
	paid := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	b, err := bucketFromRow(map[string]any{
		"year":        int32(2024),
		"month":       int32(3),
		"revenue":     "150.0000",
		"lines":       int64(2),
		"quantity":    int64(2),
		"avg_revenue": "75.00000000000000000000",
		"first_paid":  paid,
	})
	require.NoError(t, err)
	assert.Equal(t, 2024, b.Year)
	assert.Equal(t, 3, b.Month)
	assert.Equal(t, "150.00", money.Fixed(b.Revenue))
	assert.Equal(t, "75.00", money.Fixed(b.AvgRevenue))
	assert.Equal(t, paid, b.FirstPaid)

	_, err = bucketFromRow(map[string]any{"revenue": "NaN?"})
	assert.Error(t, err)
}

func TestMapWriteErrTranslatesUniqueViolation(t *testing.T) {
	err := mapWriteErr("insert vendor", &pgconn.PgError{Code: "23505", ConstraintName: "vendors_email_key"})
	assert.ErrorIs(t, err, catalog.ErrDuplicate)

	other := mapWriteErr("insert vendor", errors.New("boom"))
	assert.NotErrorIs(t, other, catalog.ErrDuplicate)
	assert.NoError(t, mapWriteErr("noop", nil))
	assert.Error(t, ValidateID("nope"))
	assert.NoError(t, ValidateID(vendorUUID))
}

package pgstore

import (
	"fmt"
	"strings"

	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

const (
	revenueSQL = "li.price * li.quantity * li.item_count"
	unitsSQL   = "li.quantity * li.item_count"
	paidUTC    = "(o.payment_at AT TIME ZONE 'UTC')"
)

// Query is a compiled pipeline.
type Query struct {
	SQL  string
	Args []any
}

// Compile translates p into a single SELECT over orders, order_line_items and products.
// Numeric results are cast to text so they decode losslessly into decimals.
func Compile(p pipeline.Pipeline) (Query, error) {
	if err := p.Validate(); err != nil {
		return Query{}, err
	}
	group := p.Group()
	args := []any{p.VendorID()}

	var selects, groupBy []string
	switch group.Key {
	case pipeline.GroupYearMonth, pipeline.GroupYearMonthDay:
		selects = append(selects,
			"date_part('year', "+paidUTC+")::int AS year",
			"date_part('month', "+paidUTC+")::int AS month",
		)
		groupBy = append(groupBy, "1", "2")
		if group.Key == pipeline.GroupYearMonthDay {
			selects = append(selects, "date_part('day', "+paidUTC+")::int AS day")
			groupBy = append(groupBy, "3")
		}
	case pipeline.GroupProduct:
		selects = append(selects, "p.id::text AS product_id")
		groupBy = append(groupBy, "p.id")
	}

	if group.Has(pipeline.MeasureRevenue) {
		selects = append(selects, "COALESCE(SUM("+revenueSQL+"), 0)::text AS revenue")
	}
	if group.Has(pipeline.MeasureLineCount) {
		selects = append(selects, "COUNT(*) AS lines")
	}
	if group.Has(pipeline.MeasureQuantity) {
		selects = append(selects, "COALESCE(SUM("+unitsSQL+"), 0)::bigint AS quantity")
	}
	if group.Has(pipeline.MeasureRevenueStats) {
		selects = append(selects,
			"AVG("+revenueSQL+")::text AS avg_revenue",
			"MIN("+revenueSQL+")::text AS min_revenue",
			"MAX("+revenueSQL+")::text AS max_revenue",
		)
	}
	if group.Has(pipeline.MeasurePaidRange) {
		selects = append(selects, "MIN(o.payment_at) AS first_paid", "MAX(o.payment_at) AS last_paid")
	}
	if group.Has(pipeline.MeasureDistinctOrders) {
		selects = append(selects, "COUNT(DISTINCT o.id) AS orders")
	}
	if group.Has(pipeline.MeasureDistinctProducts) {
		selects = append(selects, "COUNT(DISTINCT li.product_id) AS products")
	}
	if group.Has(pipeline.MeasureProductName) {
		selects = append(selects, "MIN(p.name) AS product_name")
	}
	if len(selects) == 0 {
		selects = append(selects, "COUNT(*) AS lines")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString("\nFROM orders o\nJOIN order_line_items li ON li.order_id = o.id\nJOIN products p ON p.id = li.product_id")
	b.WriteString("\nWHERE p.vendor_id = $1")
	if window, ok := p.Window(); ok {
		if window.From != nil {
			args = append(args, window.From.UTC())
			fmt.Fprintf(&b, " AND o.payment_at >= $%d", len(args))
		}
		if window.To != nil {
			args = append(args, window.To.UTC())
			fmt.Fprintf(&b, " AND o.payment_at <= $%d", len(args))
		}
	}
	if len(groupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	} else {
		// An ungrouped aggregate yields one row even when nothing matched.
		b.WriteString("\nHAVING COUNT(*) > 0")
	}

	if fields := p.SortFields(); len(fields) > 0 {
		order := make([]string, 0, len(fields))
		for _, f := range fields {
			expr, err := sortExpr(f.Key, group.Key)
			if err != nil {
				return Query{}, err
			}
			if f.Desc {
				expr += " DESC"
			} else {
				expr += " ASC"
			}
			order = append(order, expr)
		}
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(order, ", "))
	}
	return Query{SQL: b.String(), Args: args}, nil
}

func sortExpr(key pipeline.SortKey, group pipeline.GroupKey) (string, error) {
	switch key {
	case pipeline.SortYear:
		return "year", nil
	case pipeline.SortMonth:
		return "month", nil
	case pipeline.SortDay:
		if group != pipeline.GroupYearMonthDay {
			return "", fmt.Errorf("%w: day sort without day grouping", pipeline.ErrInvalidPipeline)
		}
		return "day", nil
	case pipeline.SortRevenue:
		return "SUM(" + revenueSQL + ")", nil
	case pipeline.SortProductID:
		return "p.id", nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", pipeline.ErrInvalidPipeline, key)
}

package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorpulse/vendorpulse/internal/money"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

const dateLayout = "2006-01-02"

// DateRangeAnalytics is a daily breakdown of sales within optional bounds.
type DateRangeAnalytics struct {
	DateRange      RangeLabel   `json:"dateRange"`
	Summary        RangeSummary `json:"summary"`
	DailyBreakdown []DailySales `json:"dailyBreakdown"`
}

// RangeLabel echoes the requested bounds.
type RangeLabel struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RangeSummary totals the breakdown.
type RangeSummary struct {
	TotalRevenue  string `json:"totalRevenue"`
	TotalOrders   int64  `json:"totalOrders"`
	TotalQuantity int64  `json:"totalQuantity"`
	DaysWithSales int    `json:"daysWithSales"`
}

// DailySales is one UTC calendar day with sales.
type DailySales struct {
	Date     string `json:"date"`
	Revenue  string `json:"revenue"`
	Orders   int64  `json:"orders"`
	Quantity int64  `json:"quantity"`
}

// ParseRange parses optional start and end bounds. Dates are YYYY-MM-DD in
// UTC; the start covers its whole day from midnight and the end covers its
// whole day through the last nanosecond. RFC 3339 timestamps are used as-is.
func ParseRange(start, end string) (*pipeline.MatchPaid, error) {
	window := &pipeline.MatchPaid{}
	if start = strings.TrimSpace(start); start != "" {
		t, _, err := parseBound(start)
		if err != nil {
			return nil, fmt.Errorf("%w: startDate %q", ErrInvalidDate, start)
		}
		window.From = &t
	}
	if end = strings.TrimSpace(end); end != "" {
		t, dateOnly, err := parseBound(end)
		if err != nil {
			return nil, fmt.Errorf("%w: endDate %q", ErrInvalidDate, end)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		window.To = &t
	}
	return window, nil
}

func parseBound(v string) (time.Time, bool, error) {
	if t, err := time.ParseInLocation(dateLayout, v, time.UTC); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

// DateRangePipeline groups the vendor's lines by UTC day, oldest first.
func DateRangePipeline(vendorID string, window *pipeline.MatchPaid) pipeline.Pipeline {
	return pipeline.New("date_range", vendorID, window,
		pipeline.Group{Key: pipeline.GroupYearMonthDay, Measures: salesMeasures},
		pipeline.SortField{Key: pipeline.SortYear},
		pipeline.SortField{Key: pipeline.SortMonth},
		pipeline.SortField{Key: pipeline.SortDay},
	)
}

// GetDateRangeAnalytics returns the daily breakdown between start and end.
// Either bound may be empty.
func (s *Service) GetDateRangeAnalytics(ctx context.Context, vendorID, start, end string) (DateRangeAnalytics, error) {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return DateRangeAnalytics{}, err
	}
	window, err := ParseRange(start, end)
	if err != nil {
		return DateRangeAnalytics{}, err
	}
	buckets, err := s.run(ctx, DateRangePipeline(vendorID, window))
	if err != nil {
		return DateRangeAnalytics{}, wrap("date range analytics", err)
	}

	out := DateRangeAnalytics{
		DateRange:      RangeLabel{Start: "all time", End: "current"},
		DailyBreakdown: make([]DailySales, 0, len(buckets)),
	}
	if strings.TrimSpace(start) != "" {
		out.DateRange.Start = start
	}
	if strings.TrimSpace(end) != "" {
		out.DateRange.End = end
	}
	revenue := decimal.Zero
	for _, b := range buckets {
		revenue = revenue.Add(b.Revenue)
		out.Summary.TotalOrders += b.Lines
		out.Summary.TotalQuantity += b.Quantity
		out.DailyBreakdown = append(out.DailyBreakdown, DailySales{
			Date:     fmt.Sprintf("%04d-%02d-%02d", b.Year, b.Month, b.Day),
			Revenue:  money.Fixed(b.Revenue),
			Orders:   b.Lines,
			Quantity: b.Quantity,
		})
	}
	out.Summary.TotalRevenue = money.Fixed(revenue)
	out.Summary.DaysWithSales = len(buckets)
	return out, nil
}

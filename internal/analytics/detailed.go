package analytics

import (
	"context"
	"time"

	"github.com/vendorpulse/vendorpulse/internal/money"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

// DetailedAnalytics is a live, uncached summary of every vendor line.
type DetailedAnalytics struct {
	TotalRevenue           string     `json:"totalRevenue"`
	TotalOrders            int64      `json:"totalOrders"`
	UniqueOrderCount       int64      `json:"uniqueOrderCount"`
	TotalQuantitySold      int64      `json:"totalQuantitySold"`
	AverageOrderValue      string     `json:"averageOrderValue"`
	MinOrderValue          string     `json:"minOrderValue"`
	MaxOrderValue          string     `json:"maxOrderValue"`
	FirstSaleDate          *time.Time `json:"firstSaleDate"`
	LastSaleDate           *time.Time `json:"lastSaleDate"`
	UniqueProductsSold     int64      `json:"uniqueProductsSold"`
	TotalProductsInCatalog int64      `json:"totalProductsInCatalog"`
	DateRange              DaySpan    `json:"dateRange"`
}

// DaySpan counts whole days between the first and last sale.
type DaySpan struct {
	Days int64 `json:"days"`
}

// DetailedPipeline computes every summary measure in one ungrouped pass.
func DetailedPipeline(vendorID string) pipeline.Pipeline {
	return pipeline.New("detailed", vendorID, nil, pipeline.Group{
		Key: pipeline.GroupNone,
		Measures: []pipeline.Measure{
			pipeline.MeasureRevenue,
			pipeline.MeasureLineCount,
			pipeline.MeasureDistinctOrders,
			pipeline.MeasureQuantity,
			pipeline.MeasureRevenueStats,
			pipeline.MeasurePaidRange,
			pipeline.MeasureDistinctProducts,
		},
	})
}

// GetDetailedAnalytics summarises the vendor's lines straight from the store.
// The per-order value figures are per line item, not per order.
func (s *Service) GetDetailedAnalytics(ctx context.Context, vendorID string) (DetailedAnalytics, error) {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return DetailedAnalytics{}, err
	}
	buckets, err := s.run(ctx, DetailedPipeline(vendorID))
	if err != nil {
		return DetailedAnalytics{}, wrap("detailed analytics", err)
	}
	count, err := s.catalog.CountProducts(ctx, vendorID)
	if err != nil {
		return DetailedAnalytics{}, wrap("count products", err)
	}

	var b pipeline.Bucket
	if len(buckets) > 0 {
		b = buckets[0]
	}
	out := DetailedAnalytics{
		TotalRevenue:           money.Fixed(b.Revenue),
		TotalOrders:            b.Lines,
		UniqueOrderCount:       b.DistinctOrders,
		TotalQuantitySold:      b.Quantity,
		AverageOrderValue:      money.Fixed(b.AvgRevenue),
		MinOrderValue:          money.Fixed(b.MinRevenue),
		MaxOrderValue:          money.Fixed(b.MaxRevenue),
		UniqueProductsSold:     b.DistinctProducts,
		TotalProductsInCatalog: count,
	}
	if !b.FirstPaid.IsZero() && !b.LastPaid.IsZero() {
		first, last := b.FirstPaid.UTC(), b.LastPaid.UTC()
		out.FirstSaleDate, out.LastSaleDate = &first, &last
		out.DateRange.Days = int64(last.Sub(first) / (24 * time.Hour))
	}
	return out, nil
}

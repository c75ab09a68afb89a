package analytics

import (
	"context"
	"log/slog"

	"github.com/vendorpulse/vendorpulse/internal/money"
)

// Validation reconciles the live summary against the cache-eligible views.
type Validation struct {
	DirectCalculation  DetailedAnalytics  `json:"directCalculation"`
	CachedData         CachedTotals       `json:"cachedData"`
	MonthlyAggregation MonthlyTotals      `json:"monthlyAggregation"`
	Validation         ReconciliationFlag `json:"validation"`
}

// CachedTotals echoes the vendor stats view.
type CachedTotals struct {
	TotalRevenue  string `json:"totalRevenue"`
	TotalOrders   int64  `json:"totalOrders"`
	TotalProducts int64  `json:"totalProducts"`
}

// MonthlyTotals sums the monthly view.
type MonthlyTotals struct {
	TotalRevenue string `json:"totalRevenue"`
	TotalOrders  int64  `json:"totalOrders"`
	MonthCount   int    `json:"monthCount"`
}

// ReconciliationFlag reports whether the sources agree.
type ReconciliationFlag struct {
	RevenueMatch  bool          `json:"revenueMatch"`
	OrdersMatch   bool          `json:"ordersMatch"`
	Discrepancies Discrepancies `json:"discrepancies"`
}

// Discrepancies holds live minus cached differences.
type Discrepancies struct {
	Revenue string `json:"revenue"`
	Orders  int64  `json:"orders"`
}

// ValidateVendorData compares the live detailed summary with the vendor stats
// and monthly views. ordersMatch compares distinct orders with summed monthly
// line rows, so vendors with multi-line orders report a mismatch. A mismatch
// is a normal result, never an error.
func (s *Service) ValidateVendorData(ctx context.Context, vendorID string) (Validation, error) {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return Validation{}, err
	}
	direct, err := s.GetDetailedAnalytics(ctx, vendorID)
	if err != nil {
		return Validation{}, err
	}
	stats, err := s.GetVendorStats(ctx, vendorID)
	if err != nil {
		return Validation{}, err
	}
	monthly, err := s.GetMonthlySales(ctx, vendorID)
	if err != nil {
		return Validation{}, err
	}

	monthlyRevenue, monthlyOrders := sumMonthly(monthly)
	directRevenue, err := money.ParseFixed(direct.TotalRevenue)
	if err != nil {
		return Validation{}, wrap("validate revenue", err)
	}
	statsRevenue, err := money.ParseFixed(stats.TotalRevenue)
	if err != nil {
		return Validation{}, wrap("validate revenue", err)
	}

	out := Validation{
		DirectCalculation: direct,
		CachedData: CachedTotals{
			TotalRevenue:  stats.TotalRevenue,
			TotalOrders:   stats.TotalOrders,
			TotalProducts: stats.TotalProducts,
		},
		MonthlyAggregation: MonthlyTotals{
			TotalRevenue: money.Fixed(monthlyRevenue),
			TotalOrders:  monthlyOrders,
			MonthCount:   len(monthly),
		},
		Validation: ReconciliationFlag{
			RevenueMatch: direct.TotalRevenue == stats.TotalRevenue,
			OrdersMatch:  direct.UniqueOrderCount == monthlyOrders,
			Discrepancies: Discrepancies{
				Revenue: money.Fixed(directRevenue.Sub(statsRevenue)),
				Orders:  direct.UniqueOrderCount - monthlyOrders,
			},
		},
	}
	if !out.Validation.RevenueMatch || !out.Validation.OrdersMatch {
		s.logger.Warn("vendor data mismatch",
			slog.String("vendor_id", vendorID),
			slog.String("revenue_discrepancy", out.Validation.Discrepancies.Revenue),
			slog.Int64("orders_discrepancy", out.Validation.Discrepancies.Orders),
		)
	}
	return out, nil
}

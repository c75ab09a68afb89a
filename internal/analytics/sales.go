package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vendorpulse/vendorpulse/internal/money"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

// MonthlySales is one calendar month of a vendor's sales.
type MonthlySales struct {
	Year          int          `json:"year"`
	MonthNum      int          `json:"monthNum"`
	Month         string       `json:"month"`
	TotalSales    money.Number `json:"totalSales"`
	TotalOrders   int64        `json:"totalOrders"`
	TotalQuantity int64        `json:"totalQuantity"`
}

// ProductSales is the lifetime sales of one product.
type ProductSales struct {
	ProductID     string       `json:"productId"`
	ProductName   string       `json:"productName"`
	TotalQuantity int64        `json:"totalQuantity"`
	TotalSales    money.Number `json:"totalSales"`
	TotalOrders   int64        `json:"totalOrders"`
}

// VendorStats summarises a vendor's catalog and sales.
type VendorStats struct {
	TotalProducts int64         `json:"totalProducts"`
	TotalRevenue  string        `json:"totalRevenue"`
	TotalOrders   int64         `json:"totalOrders"`
	TopProduct    *ProductSales `json:"topProduct"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

var (
	salesMeasures = []pipeline.Measure{
		pipeline.MeasureRevenue,
		pipeline.MeasureLineCount,
		pipeline.MeasureQuantity,
	}
	productMeasures = append([]pipeline.Measure{pipeline.MeasureProductName}, salesMeasures...)
)

// MonthlyPipeline groups the vendor's lines by payment year and month, newest first.
func MonthlyPipeline(vendorID string) pipeline.Pipeline {
	return pipeline.New("monthly_sales", vendorID, nil,
		pipeline.Group{Key: pipeline.GroupYearMonth, Measures: salesMeasures},
		pipeline.SortField{Key: pipeline.SortYear, Desc: true},
		pipeline.SortField{Key: pipeline.SortMonth, Desc: true},
	)
}

// ProductPipeline groups the vendor's lines by product, best sellers first.
func ProductPipeline(vendorID string) pipeline.Pipeline {
	return pipeline.New("product_sales", vendorID, nil,
		pipeline.Group{Key: pipeline.GroupProduct, Measures: productMeasures},
		pipeline.SortField{Key: pipeline.SortRevenue, Desc: true},
		pipeline.SortField{Key: pipeline.SortProductID},
	)
}

// GetMonthlySales returns per-month totals, newest month first.
func (s *Service) GetMonthlySales(ctx context.Context, vendorID string) ([]MonthlySales, error) {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return nil, err
	}
	var out []MonthlySales
	err := s.cache.FetchJSON(ctx, "monthly_sales", keyMonthlySales+vendorID, &out, func(ctx context.Context) (any, error) {
		buckets, err := s.run(ctx, MonthlyPipeline(vendorID))
		if err != nil {
			return nil, err
		}
		rows := make([]MonthlySales, 0, len(buckets))
		for _, b := range buckets {
			rows = append(rows, MonthlySales{
				Year:          b.Year,
				MonthNum:      b.Month,
				Month:         s.months.Name(b.Month),
				TotalSales:    money.NewNumber(b.Revenue),
				TotalOrders:   b.Lines,
				TotalQuantity: b.Quantity,
			})
		}
		return rows, nil
	})
	if err != nil {
		return nil, wrap("monthly sales", err)
	}
	return nonNil(out), nil
}

// GetProductSales returns per-product totals ordered by sales, ties by product id.
func (s *Service) GetProductSales(ctx context.Context, vendorID string) ([]ProductSales, error) {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return nil, err
	}
	var out []ProductSales
	err := s.cache.FetchJSON(ctx, "product_sales", keyProductSales+vendorID, &out, func(ctx context.Context) (any, error) {
		buckets, err := s.run(ctx, ProductPipeline(vendorID))
		if err != nil {
			return nil, err
		}
		rows := make([]ProductSales, 0, len(buckets))
		for _, b := range buckets {
			rows = append(rows, ProductSales{
				ProductID:     b.ProductID,
				ProductName:   b.ProductName,
				TotalQuantity: b.Quantity,
				TotalSales:    money.NewNumber(b.Revenue),
				TotalOrders:   b.Lines,
			})
		}
		return rows, nil
	})
	if err != nil {
		return nil, wrap("product sales", err)
	}
	return nonNil(out), nil
}

// GetVendorStats combines the product count with the monthly and product views.
func (s *Service) GetVendorStats(ctx context.Context, vendorID string) (VendorStats, error) {
	if err := s.ValidateVendorID(vendorID); err != nil {
		return VendorStats{}, err
	}
	var stats VendorStats
	err := s.cache.FetchJSON(ctx, "vendor_stats", keyVendorStats+vendorID, &stats, func(ctx context.Context) (any, error) {
		var (
			totalProducts int64
			monthly       []MonthlySales
			products      []ProductSales
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := s.catalog.CountProducts(gctx, vendorID)
			totalProducts = n
			return err
		})
		g.Go(func() error {
			rows, err := s.GetMonthlySales(gctx, vendorID)
			monthly = rows
			return err
		})
		g.Go(func() error {
			rows, err := s.GetProductSales(gctx, vendorID)
			products = rows
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		revenue, orders := sumMonthly(monthly)
		stats := VendorStats{
			TotalProducts: totalProducts,
			TotalRevenue:  money.Fixed(revenue),
			TotalOrders:   orders,
			LastUpdated:   s.now().UTC(),
		}
		if len(products) > 0 {
			top := products[0]
			stats.TopProduct = &top
		}
		return stats, nil
	})
	if err != nil {
		return VendorStats{}, wrap("vendor stats", err)
	}
	return stats, nil
}

func sumMonthly(rows []MonthlySales) (decimal.Decimal, int64) {
	revenue := decimal.Zero
	var orders int64
	for _, m := range rows {
		revenue = revenue.Add(m.TotalSales.Decimal)
		orders += m.TotalOrders
	}
	return revenue, orders
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

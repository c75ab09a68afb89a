package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/vendorpulse/vendorpulse/internal/analytics"
	"github.com/vendorpulse/vendorpulse/internal/money"
)

// WriteMonthlySalesCSV emits one row per month, newest first.
func WriteMonthlySalesCSV(w io.Writer, rows []analytics.MonthlySales) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Year", "Month", "Month Name", "Total Sales", "Total Orders", "Total Quantity"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			strconv.Itoa(row.Year),
			strconv.Itoa(row.MonthNum),
			row.Month,
			money.Fixed(row.TotalSales.Decimal),
			formatInt(row.TotalOrders),
			formatInt(row.TotalQuantity),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteProductSalesCSV emits one row per product in ranking order.
func WriteProductSalesCSV(w io.Writer, rows []analytics.ProductSales) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Product ID", "Product Name", "Total Sales", "Total Orders", "Total Quantity"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			row.ProductID,
			row.ProductName,
			money.Fixed(row.TotalSales.Decimal),
			formatInt(row.TotalOrders),
			formatInt(row.TotalQuantity),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDateRangeCSV emits the daily breakdown followed by a total row.
func WriteDateRangeCSV(w io.Writer, report analytics.DateRangeAnalytics) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Date", "Revenue", "Orders", "Quantity"}); err != nil {
		return err
	}
	for _, day := range report.DailyBreakdown {
		if err := writer.Write([]string{day.Date, day.Revenue, formatInt(day.Orders), formatInt(day.Quantity)}); err != nil {
			return err
		}
	}
	total := []string{
		"Total",
		report.Summary.TotalRevenue,
		formatInt(report.Summary.TotalOrders),
		formatInt(report.Summary.TotalQuantity),
	}
	if err := writer.Write(total); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

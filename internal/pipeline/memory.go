package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
)

// Dataset is an in-memory snapshot of the order and product collections.
type Dataset struct {
	Orders   []catalog.Order
	Products map[string]catalog.Product
}

type row struct {
	order   *catalog.Order
	line    *catalog.LineItem
	product catalog.Product
}

type groupKey struct {
	year, month, day int
	product          string
}

type accumulator struct {
	bucket   Bucket
	revenues []decimal.Decimal
	orders   map[string]struct{}
	products map[string]struct{}
	seen     bool
}

// Evaluate interprets p over ds. It is the reference implementation every
// store runner must agree with.
func Evaluate(ds Dataset, p Pipeline) ([]Bucket, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rows := unwind(ds, p)
	group := p.Group()

	accs := make(map[groupKey]*accumulator)
	order := make([]groupKey, 0)
	for _, r := range rows {
		key := keyFor(group.Key, r)
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{
				orders:   make(map[string]struct{}),
				products: make(map[string]struct{}),
			}
			acc.bucket.Year, acc.bucket.Month, acc.bucket.Day = key.year, key.month, key.day
			acc.bucket.ProductID = key.product
			accs[key] = acc
			order = append(order, key)
		}
		acc.add(group, r)
	}

	buckets := make([]Bucket, 0, len(order))
	for _, key := range order {
		buckets = append(buckets, accs[key].finish(group))
	}
	sortBuckets(buckets, p.SortFields())
	return buckets, nil
}

func unwind(ds Dataset, p Pipeline) []row {
	window, hasWindow := p.Window()
	vendorID := p.VendorID()
	rows := make([]row, 0)
	for i := range ds.Orders {
		o := &ds.Orders[i]
		if hasWindow && !inWindow(o.PaymentAt, window) {
			continue
		}
		for j := range o.LineItems {
			line := &o.LineItems[j]
			product, ok := ds.Products[line.ProductID]
			if !ok {
				continue
			}
			if product.VendorID != vendorID {
				continue
			}
			rows = append(rows, row{order: o, line: line, product: product})
		}
	}
	return rows
}

func inWindow(t time.Time, w MatchPaid) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

func keyFor(key GroupKey, r row) groupKey {
	paid := r.order.PaymentAt.UTC()
	switch key {
	case GroupYearMonth:
		return groupKey{year: paid.Year(), month: int(paid.Month())}
	case GroupYearMonthDay:
		return groupKey{year: paid.Year(), month: int(paid.Month()), day: paid.Day()}
	case GroupProduct:
		return groupKey{product: r.product.ID}
	default:
		return groupKey{}
	}
}

func (a *accumulator) add(g Group, r row) {
	revenue := r.line.Revenue()
	b := &a.bucket
	if g.Has(MeasureRevenue) {
		b.Revenue = b.Revenue.Add(revenue)
	}
	if g.Has(MeasureLineCount) {
		b.Lines++
	}
	if g.Has(MeasureQuantity) {
		b.Quantity += r.line.Units()
	}
	if g.Has(MeasureRevenueStats) {
		a.revenues = append(a.revenues, revenue)
	}
	if g.Has(MeasurePaidRange) {
		paid := r.order.PaymentAt.UTC()
		if b.FirstPaid.IsZero() || paid.Before(b.FirstPaid) {
			b.FirstPaid = paid
		}
		if b.LastPaid.IsZero() || paid.After(b.LastPaid) {
			b.LastPaid = paid
		}
	}
	if g.Has(MeasureDistinctOrders) {
		a.orders[r.order.ID] = struct{}{}
	}
	if g.Has(MeasureDistinctProducts) {
		a.products[r.line.ProductID] = struct{}{}
	}
	if g.Has(MeasureProductName) && !a.seen {
		b.ProductName = r.product.Name
	}
	a.seen = true
}

func (a *accumulator) finish(g Group) Bucket {
	b := a.bucket
	if g.Has(MeasureRevenueStats) && len(a.revenues) > 0 {
		b.AvgRevenue = decimal.Avg(a.revenues[0], a.revenues[1:]...)
		b.MinRevenue = decimal.Min(a.revenues[0], a.revenues[1:]...)
		b.MaxRevenue = decimal.Max(a.revenues[0], a.revenues[1:]...)
	}
	if g.Has(MeasureDistinctOrders) {
		b.DistinctOrders = int64(len(a.orders))
	}
	if g.Has(MeasureDistinctProducts) {
		b.DistinctProducts = int64(len(a.products))
	}
	return b
}

func sortBuckets(buckets []Bucket, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		for _, f := range fields {
			c := compare(buckets[i], buckets[j], f.Key)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b Bucket, key SortKey) int {
	switch key {
	case SortYear:
		return cmpInt(a.Year, b.Year)
	case SortMonth:
		return cmpInt(a.Month, b.Month)
	case SortDay:
		return cmpInt(a.Day, b.Day)
	case SortRevenue:
		return a.Revenue.Cmp(b.Revenue)
	case SortProductID:
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

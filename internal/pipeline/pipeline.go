// Package pipeline describes vendor-scoped aggregations over order line items
// as data. A Pipeline is a list of stages that every storage engine runner
// compiles to its native query language; Evaluate interprets the same
// description in memory and defines the reference semantics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidPipeline is returned when a description cannot be executed.
var ErrInvalidPipeline = errors.New("pipeline: invalid description")

// Runner executes a pipeline against a store.
type Runner interface {
	Run(ctx context.Context, p Pipeline) ([]Bucket, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, p Pipeline) ([]Bucket, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, p Pipeline) ([]Bucket, error) {
	return f(ctx, p)
}

// StageKind names a stage type.
type StageKind string

// Stage kinds in their only valid order.
const (
	KindMatchPaid     StageKind = "match_paid"
	KindUnwindLines   StageKind = "unwind_lines"
	KindLookupProduct StageKind = "lookup_product"
	KindMatchVendor   StageKind = "match_vendor"
	KindGroup         StageKind = "group"
	KindSort          StageKind = "sort"
)

// Stage is one step of a pipeline.
type Stage interface {
	Kind() StageKind
}

// MatchPaid keeps orders whose payment timestamp lies in [From, To]. Nil
// bounds are open.
type MatchPaid struct {
	From *time.Time
	To   *time.Time
}

// UnwindLines emits one row per line item.
type UnwindLines struct{}

// LookupProduct joins each row to its product; rows without a product are dropped.
type LookupProduct struct{}

// MatchVendor keeps rows whose product belongs to VendorID.
type MatchVendor struct {
	VendorID string
}

// GroupKey selects the composite grouping key.
type GroupKey string

// Supported grouping keys.
const (
	GroupNone         GroupKey = "none"
	GroupYearMonth    GroupKey = "year_month"
	GroupYearMonthDay GroupKey = "year_month_day"
	GroupProduct      GroupKey = "product"
)

// Measure names an accumulator computed per group.
type Measure string

// Supported measures.
const (
	// MeasureRevenue sums price × quantity × itemCount.
	MeasureRevenue Measure = "revenue"
	// MeasureLineCount counts matching line rows, not distinct orders.
	MeasureLineCount Measure = "line_count"
	// MeasureQuantity sums quantity × itemCount.
	MeasureQuantity Measure = "quantity"
	// MeasureRevenueStats computes avg, min and max per-line revenue.
	MeasureRevenueStats Measure = "revenue_stats"
	// MeasurePaidRange computes the first and last payment timestamps.
	MeasurePaidRange Measure = "paid_range"
	// MeasureDistinctOrders counts distinct order ids.
	MeasureDistinctOrders Measure = "distinct_orders"
	// MeasureDistinctProducts counts distinct product ids.
	MeasureDistinctProducts Measure = "distinct_products"
	// MeasureProductName takes the product name of the first row.
	MeasureProductName Measure = "product_name"
)

// Group aggregates rows by Key.
type Group struct {
	Key      GroupKey
	Measures []Measure
}

// SortKey names a bucket field usable for ordering.
type SortKey string

// Sortable bucket fields.
const (
	SortYear      SortKey = "year"
	SortMonth     SortKey = "month"
	SortDay       SortKey = "day"
	SortRevenue   SortKey = "revenue"
	SortProductID SortKey = "product_id"
)

// SortField orders buckets by one field.
type SortField struct {
	Key  SortKey
	Desc bool
}

// Sort orders buckets by Fields, first field most significant.
type Sort struct {
	Fields []SortField
}

// Kind implements Stage.
func (MatchPaid) Kind() StageKind { return KindMatchPaid }

// Kind implements Stage.
func (UnwindLines) Kind() StageKind { return KindUnwindLines }

// Kind implements Stage.
func (LookupProduct) Kind() StageKind { return KindLookupProduct }

// Kind implements Stage.
func (MatchVendor) Kind() StageKind { return KindMatchVendor }

// Kind implements Stage.
func (Group) Kind() StageKind { return KindGroup }

// Kind implements Stage.
func (Sort) Kind() StageKind { return KindSort }

// Has reports whether the group computes m.
func (g Group) Has(m Measure) bool {
	for _, candidate := range g.Measures {
		if candidate == m {
			return true
		}
	}
	return false
}

// Pipeline is a named list of stages.
type Pipeline struct {
	Name   string
	Stages []Stage
}

// Bucket is one grouped result row. Only the fields requested by the group
// key and measures are populated.
type Bucket struct {
	Year        int
	Month       int
	Day         int
	ProductID   string
	ProductName string

	Revenue  decimal.Decimal
	Lines    int64
	Quantity int64

	AvgRevenue decimal.Decimal
	MinRevenue decimal.Decimal
	MaxRevenue decimal.Decimal

	FirstPaid time.Time
	LastPaid  time.Time

	DistinctOrders   int64
	DistinctProducts int64
}

// VendorLines returns the stages shared by every vendor report: an optional
// payment window, the line unwind, the product join and the vendor filter.
func VendorLines(vendorID string, window *MatchPaid) []Stage {
	stages := make([]Stage, 0, 4)
	if window != nil && (window.From != nil || window.To != nil) {
		stages = append(stages, *window)
	}
	return append(stages, UnwindLines{}, LookupProduct{}, MatchVendor{VendorID: vendorID})
}

// New assembles a pipeline from the vendor stages, a group and optional sort fields.
func New(name, vendorID string, window *MatchPaid, group Group, sortBy ...SortField) Pipeline {
	stages := VendorLines(vendorID, window)
	stages = append(stages, group)
	if len(sortBy) > 0 {
		stages = append(stages, Sort{Fields: sortBy})
	}
	return Pipeline{Name: name, Stages: stages}
}

var stageOrder = map[StageKind]int{
	KindMatchPaid:     0,
	KindUnwindLines:   1,
	KindLookupProduct: 2,
	KindMatchVendor:   3,
	KindGroup:         4,
	KindSort:          5,
}

// Validate checks the stage order and that the pipeline is vendor scoped.
func (p Pipeline) Validate() error {
	seen := make(map[StageKind]bool, len(p.Stages))
	last := -1
	for _, stage := range p.Stages {
		if stage == nil {
			return fmt.Errorf("%w: nil stage", ErrInvalidPipeline)
		}
		pos, ok := stageOrder[stage.Kind()]
		if !ok {
			return fmt.Errorf("%w: unknown stage %q", ErrInvalidPipeline, stage.Kind())
		}
		if pos <= last {
			return fmt.Errorf("%w: stage %q out of order", ErrInvalidPipeline, stage.Kind())
		}
		last = pos
		seen[stage.Kind()] = true
	}
	for _, required := range []StageKind{KindUnwindLines, KindLookupProduct, KindMatchVendor, KindGroup} {
		if !seen[required] {
			return fmt.Errorf("%w: missing %q stage", ErrInvalidPipeline, required)
		}
	}
	if strings.TrimSpace(p.VendorID()) == "" {
		return fmt.Errorf("%w: vendor id required", ErrInvalidPipeline)
	}
	switch p.Group().Key {
	case GroupNone, GroupYearMonth, GroupYearMonthDay, GroupProduct:
	default:
		return fmt.Errorf("%w: unknown group key %q", ErrInvalidPipeline, p.Group().Key)
	}
	return nil
}

// Window returns the payment filter, if any.
func (p Pipeline) Window() (MatchPaid, bool) {
	for _, stage := range p.Stages {
		if m, ok := stage.(MatchPaid); ok {
			return m, true
		}
	}
	return MatchPaid{}, false
}

// VendorID returns the vendor the pipeline is scoped to.
func (p Pipeline) VendorID() string {
	for _, stage := range p.Stages {
		if m, ok := stage.(MatchVendor); ok {
			return m.VendorID
		}
	}
	return ""
}

// Group returns the grouping stage.
func (p Pipeline) Group() Group {
	for _, stage := range p.Stages {
		if g, ok := stage.(Group); ok {
			return g
		}
	}
	return Group{}
}

// SortFields returns the ordering, empty when unsorted.
func (p Pipeline) SortFields() []SortField {
	for _, stage := range p.Stages {
		if s, ok := stage.(Sort); ok {
			return s.Fields
		}
	}
	return nil
}

package mongostore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

// Collection names.
const (
	OrdersCollection   = "orders"
	ProductsCollection = "parent_products"
	VendorsCollection  = "vendors"
)

// revenueExpr multiplies the line's price, quantity and item count as Decimal128.
var revenueExpr = bson.D{{Key: "$multiply", Value: bson.A{
	toDecimal("$cart_item.price"),
	toDecimal("$cart_item.quantity"),
	toDecimal("$cart_item.item_count"),
}}}

var unitsExpr = bson.D{{Key: "$multiply", Value: bson.A{
	bson.D{{Key: "$ifNull", Value: bson.A{"$cart_item.quantity", 0}}},
	bson.D{{Key: "$ifNull", Value: bson.A{"$cart_item.item_count", 0}}},
}}}

func toDecimal(field string) bson.D {
	return bson.D{{Key: "$toDecimal", Value: bson.D{{Key: "$ifNull", Value: bson.A{field, 0}}}}}
}

// Compile translates p into an aggregation over the orders collection.
func Compile(p pipeline.Pipeline) (mongo.Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	out := make(mongo.Pipeline, 0, len(p.Stages)+3)
	for _, stage := range p.Stages {
		switch s := stage.(type) {
		case pipeline.MatchPaid:
			out = append(out, matchPaid(s))
		case pipeline.UnwindLines:
			out = append(out, bson.D{{Key: "$unwind", Value: "$cart_item"}})
		case pipeline.LookupProduct:
			out = append(out,
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: ProductsCollection},
					{Key: "localField", Value: "cart_item.product"},
					{Key: "foreignField", Value: "_id"},
					{Key: "as", Value: "product"},
				}}},
				bson.D{{Key: "$unwind", Value: "$product"}},
			)
		case pipeline.MatchVendor:
			oid, err := primitive.ObjectIDFromHex(s.VendorID)
			if err != nil {
				return nil, fmt.Errorf("%w: vendor id %q is not an ObjectID", pipeline.ErrInvalidPipeline, s.VendorID)
			}
			out = append(out, bson.D{{Key: "$match", Value: bson.D{{Key: "product.vendor", Value: oid}}}})
		case pipeline.Group:
			out = append(out, group(s)...)
		case pipeline.Sort:
			sortStage, err := sortBy(s)
			if err != nil {
				return nil, err
			}
			out = append(out, sortStage)
		}
	}
	return out, nil
}

func matchPaid(m pipeline.MatchPaid) bson.D {
	bounds := bson.D{}
	if m.From != nil {
		bounds = append(bounds, bson.E{Key: "$gte", Value: m.From.UTC()})
	}
	if m.To != nil {
		bounds = append(bounds, bson.E{Key: "$lte", Value: m.To.UTC()})
	}
	return bson.D{{Key: "$match", Value: bson.D{{Key: "payment_at", Value: bounds}}}}
}

func groupID(key pipeline.GroupKey) any {
	year := bson.E{Key: "year", Value: bson.D{{Key: "$year", Value: "$payment_at"}}}
	month := bson.E{Key: "month", Value: bson.D{{Key: "$month", Value: "$payment_at"}}}
	switch key {
	case pipeline.GroupYearMonth:
		return bson.D{year, month}
	case pipeline.GroupYearMonthDay:
		return bson.D{year, month, {Key: "day", Value: bson.D{{Key: "$dayOfMonth", Value: "$payment_at"}}}}
	case pipeline.GroupProduct:
		return "$product._id"
	default:
		return nil
	}
}

func group(g pipeline.Group) []bson.D {
	fields := bson.D{{Key: "_id", Value: groupID(g.Key)}}
	sizes := bson.D{}
	if g.Has(pipeline.MeasureRevenue) {
		fields = append(fields, bson.E{Key: "revenue", Value: bson.D{{Key: "$sum", Value: revenueExpr}}})
	}
	if g.Has(pipeline.MeasureLineCount) {
		fields = append(fields, bson.E{Key: "lines", Value: bson.D{{Key: "$sum", Value: 1}}})
	}
	if g.Has(pipeline.MeasureQuantity) {
		fields = append(fields, bson.E{Key: "quantity", Value: bson.D{{Key: "$sum", Value: unitsExpr}}})
	}
	if g.Has(pipeline.MeasureRevenueStats) {
		fields = append(fields,
			bson.E{Key: "avg_revenue", Value: bson.D{{Key: "$avg", Value: revenueExpr}}},
			bson.E{Key: "min_revenue", Value: bson.D{{Key: "$min", Value: revenueExpr}}},
			bson.E{Key: "max_revenue", Value: bson.D{{Key: "$max", Value: revenueExpr}}},
		)
	}
	if g.Has(pipeline.MeasurePaidRange) {
		fields = append(fields,
			bson.E{Key: "first_paid", Value: bson.D{{Key: "$min", Value: "$payment_at"}}},
			bson.E{Key: "last_paid", Value: bson.D{{Key: "$max", Value: "$payment_at"}}},
		)
	}
	if g.Has(pipeline.MeasureDistinctOrders) {
		fields = append(fields, bson.E{Key: "orders", Value: bson.D{{Key: "$addToSet", Value: "$_id"}}})
		sizes = append(sizes, bson.E{Key: "orders", Value: bson.D{{Key: "$size", Value: "$orders"}}})
	}
	if g.Has(pipeline.MeasureDistinctProducts) {
		fields = append(fields, bson.E{Key: "products", Value: bson.D{{Key: "$addToSet", Value: "$cart_item.product"}}})
		sizes = append(sizes, bson.E{Key: "products", Value: bson.D{{Key: "$size", Value: "$products"}}})
	}
	if g.Has(pipeline.MeasureProductName) {
		fields = append(fields, bson.E{Key: "product_name", Value: bson.D{{Key: "$first", Value: "$product.name"}}})
	}
	stages := []bson.D{{{Key: "$group", Value: fields}}}
	if len(sizes) > 0 {
		stages = append(stages, bson.D{{Key: "$addFields", Value: sizes}})
	}
	return stages
}

func sortBy(s pipeline.Sort) (bson.D, error) {
	spec := bson.D{}
	for _, f := range s.Fields {
		var field string
		switch f.Key {
		case pipeline.SortYear:
			field = "_id.year"
		case pipeline.SortMonth:
			field = "_id.month"
		case pipeline.SortDay:
			field = "_id.day"
		case pipeline.SortRevenue:
			field = "revenue"
		case pipeline.SortProductID:
			field = "_id"
		default:
			return nil, fmt.Errorf("%w: unknown sort key %q", pipeline.ErrInvalidPipeline, f.Key)
		}
		dir := 1
		if f.Desc {
			dir = -1
		}
		spec = append(spec, bson.E{Key: field, Value: dir})
	}
	return bson.D{{Key: "$sort", Value: spec}}, nil
}

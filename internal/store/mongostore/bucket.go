package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

type bucketDoc struct {
	ID          bson.RawValue        `bson:"_id"`
	Revenue     primitive.Decimal128 `bson:"revenue"`
	Lines       int64                `bson:"lines"`
	Quantity    int64                `bson:"quantity"`
	AvgRevenue  primitive.Decimal128 `bson:"avg_revenue"`
	MinRevenue  primitive.Decimal128 `bson:"min_revenue"`
	MaxRevenue  primitive.Decimal128 `bson:"max_revenue"`
	FirstPaid   time.Time            `bson:"first_paid"`
	LastPaid    time.Time            `bson:"last_paid"`
	Orders      int64                `bson:"orders"`
	Products    int64                `bson:"products"`
	ProductName string               `bson:"product_name"`
}

type datePartsID struct {
	Year  int `bson:"year"`
	Month int `bson:"month"`
	Day   int `bson:"day"`
}

func (d bucketDoc) toBucket(key pipeline.GroupKey) (pipeline.Bucket, error) {
	b := pipeline.Bucket{
		Lines:            d.Lines,
		Quantity:         d.Quantity,
		FirstPaid:        d.FirstPaid.UTC(),
		LastPaid:         d.LastPaid.UTC(),
		DistinctOrders:   d.Orders,
		DistinctProducts: d.Products,
		ProductName:      d.ProductName,
	}
	switch key {
	case pipeline.GroupYearMonth, pipeline.GroupYearMonthDay:
		var parts datePartsID
		if err := d.ID.Unmarshal(&parts); err != nil {
			return b, fmt.Errorf("mongostore: decode group id: %w", err)
		}
		b.Year, b.Month, b.Day = parts.Year, parts.Month, parts.Day
	case pipeline.GroupProduct:
		oid, ok := d.ID.ObjectIDOK()
		if !ok {
			return b, fmt.Errorf("mongostore: product group id has type %s", d.ID.Type)
		}
		b.ProductID = oid.Hex()
	}
	var err error
	if b.Revenue, err = fromDecimal128(d.Revenue); err != nil {
		return b, err
	}
	if b.AvgRevenue, err = fromDecimal128(d.AvgRevenue); err != nil {
		return b, err
	}
	if b.MinRevenue, err = fromDecimal128(d.MinRevenue); err != nil {
		return b, err
	}
	if b.MaxRevenue, err = fromDecimal128(d.MaxRevenue); err != nil {
		return b, err
	}
	return b, nil
}

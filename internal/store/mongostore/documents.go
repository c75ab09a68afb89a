package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
)

type lineDoc struct {
	Product      primitive.ObjectID   `bson:"product"`
	VariantID    string               `bson:"variantId,omitempty"`
	Series       string               `bson:"series,omitempty"`
	ItemCount    int64                `bson:"item_count"`
	Quantity     int64                `bson:"quantity"`
	COGS         primitive.Decimal128 `bson:"cogs"`
	Price        primitive.Decimal128 `bson:"price"`
	VendorMargin primitive.Decimal128 `bson:"vendor_margin"`
	Status       string               `bson:"order_status"`
}

type orderDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Customer    string               `bson:"customer,omitempty"`
	PaymentAt   time.Time            `bson:"payment_at"`
	Lines       []lineDoc            `bson:"cart_item"`
	TotalAmount primitive.Decimal128 `bson:"total_amount"`
	Status      string               `bson:"status"`
}

type productDoc struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	SKU      string             `bson:"sku,omitempty"`
	Category string             `bson:"category,omitempty"`
	Vendor   primitive.ObjectID `bson:"vendor"`
}

type vendorDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email,omitempty"`
	Password  string             `bson:"password,omitempty"`
	Role      string             `bson:"role"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("mongostore: decimal %s: %w", d, err)
	}
	return out, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	if d == (primitive.Decimal128{}) {
		return decimal.Zero, nil
	}
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("mongostore: decimal128 %s: %w", d, err)
	}
	return out, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("mongostore: invalid object id %q", id)
	}
	return oid, nil
}

func newOrderDoc(o *catalog.Order) (orderDoc, error) {
	doc := orderDoc{
		Customer:  o.CustomerID,
		PaymentAt: o.PaymentAt.UTC(),
		Status:    string(o.Status),
		Lines:     make([]lineDoc, 0, len(o.LineItems)),
	}
	if o.ID != "" {
		oid, err := objectID(o.ID)
		if err != nil {
			return orderDoc{}, err
		}
		doc.ID = oid
	}
	var err error
	if doc.TotalAmount, err = toDecimal128(o.TotalAmount); err != nil {
		return orderDoc{}, err
	}
	for _, l := range o.LineItems {
		product, err := objectID(l.ProductID)
		if err != nil {
			return orderDoc{}, err
		}
		line := lineDoc{
			Product:   product,
			VariantID: l.VariantID,
			Series:    l.Series,
			ItemCount: l.ItemCount,
			Quantity:  l.Quantity,
			Status:    string(l.Status),
		}
		if line.COGS, err = toDecimal128(l.COGS); err != nil {
			return orderDoc{}, err
		}
		if line.Price, err = toDecimal128(l.Price); err != nil {
			return orderDoc{}, err
		}
		if line.VendorMargin, err = toDecimal128(l.VendorMargin); err != nil {
			return orderDoc{}, err
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

func (d vendorDoc) toVendor() *catalog.Vendor {
	return &catalog.Vendor{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         catalog.Role(d.Role),
		CreatedAt:    d.CreatedAt,
	}
}

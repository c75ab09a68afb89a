package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorpulse/vendorpulse/internal/auth"
	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/events"
)

type fixture struct {
	Vendors  []vendorFixture  `json:"vendors"`
	Products []productFixture `json:"products"`
	Orders   []orderFixture   `json:"orders"`
}

type vendorFixture struct {
	Ref      string `json:"ref"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type productFixture struct {
	Ref      string `json:"ref"`
	Vendor   string `json:"vendor"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Category string `json:"category"`
}

type orderFixture struct {
	PaymentAt time.Time     `json:"paymentAt"`
	Status    string        `json:"status"`
	Lines     []lineFixture `json:"lines"`
}

type lineFixture struct {
	Product   string          `json:"product"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	ItemCount int64           `json:"itemCount"`
}

type summary struct {
	Vendors, Products, Orders int
}

// publisher is satisfied by *events.Publisher.
type publisher interface {
	Publish(ctx context.Context, evt events.OrderEvent) error
}

func parseFixture(raw []byte) (fixture, error) {
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return fx, nil
}

// load inserts fx in dependency order, resolving refs to store-assigned ids.
// pub may be nil.
func load(ctx context.Context, w catalog.Writer, fx fixture, pub publisher) (summary, error) {
	var sum summary
	vendors := make(map[string]string, len(fx.Vendors))
	for _, vf := range fx.Vendors {
		hash, err := auth.HashPassword(vf.Password)
		if err != nil {
			return sum, fmt.Errorf("vendor %s: %w", vf.Ref, err)
		}
		v := &catalog.Vendor{Name: vf.Name, Email: vf.Email, PasswordHash: hash, Role: catalog.Role(vf.Role)}
		if err := w.InsertVendor(ctx, v); err != nil {
			return sum, fmt.Errorf("vendor %s: %w", vf.Ref, err)
		}
		vendors[vf.Ref] = v.ID
		sum.Vendors++
	}

	products := make(map[string]catalog.Product, len(fx.Products))
	for _, pf := range fx.Products {
		vendorID, ok := vendors[pf.Vendor]
		if !ok {
			return sum, fmt.Errorf("product %s: unknown vendor ref %q", pf.Ref, pf.Vendor)
		}
		p := &catalog.Product{Name: pf.Name, SKU: pf.SKU, Category: pf.Category, VendorID: vendorID}
		if err := w.InsertProduct(ctx, p); err != nil {
			return sum, fmt.Errorf("product %s: %w", pf.Ref, err)
		}
		products[pf.Ref] = *p
		sum.Products++
	}

	for i, of := range fx.Orders {
		order := &catalog.Order{PaymentAt: of.PaymentAt.UTC(), Status: catalog.OrderStatus(of.Status)}
		touched := make([]string, 0, len(of.Lines))
		seen := make(map[string]bool, len(of.Lines))
		for _, lf := range of.Lines {
			p, ok := products[lf.Product]
			if !ok {
				return sum, fmt.Errorf("order %d: unknown product ref %q", i, lf.Product)
			}
			order.LineItems = append(order.LineItems, catalog.LineItem{
				ProductID: p.ID,
				Price:     lf.Price,
				Quantity:  lf.Quantity,
				ItemCount: lf.ItemCount,
			})
			if !seen[p.VendorID] {
				seen[p.VendorID] = true
				touched = append(touched, p.VendorID)
			}
		}
		if err := w.InsertOrder(ctx, order); err != nil {
			return sum, fmt.Errorf("order %d: %w", i, err)
		}
		sum.Orders++
		if pub == nil {
			continue
		}
		evt := events.OrderEvent{Type: events.TypeOrderPaid, OrderID: order.ID, VendorIDs: touched}
		if err := pub.Publish(ctx, evt); err != nil {
			return sum, fmt.Errorf("order %d: publish: %w", i, err)
		}
	}
	return sum, nil
}

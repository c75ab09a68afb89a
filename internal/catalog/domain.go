package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorpulse/vendorpulse/internal/money"
)

// OrderStatus captures the order-level payment lifecycle.
type OrderStatus string

// Supported order statuses.
const (
	OrderPending    OrderStatus = "Pending"
	OrderPaid       OrderStatus = "Paid"
	OrderProcessing OrderStatus = "Processing"
	OrderCompleted  OrderStatus = "Completed"
	OrderCancelled  OrderStatus = "Cancelled"
)

// LineStatus captures the per-line fulfilment state.
type LineStatus string

// Supported line statuses.
const (
	LinePending    LineStatus = "Pending"
	LineProcessing LineStatus = "Processing"
	LineShipped    LineStatus = "Shipped"
	LineDelivered  LineStatus = "Delivered"
	LineCancelled  LineStatus = "Cancelled"
	LineReceived   LineStatus = "Received"
)

// Role gates cross-vendor access.
type Role string

// Vendor roles.
const (
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

var (
	// ErrEmptyOrder indicates an order without line items.
	ErrEmptyOrder = errors.New("catalog: order must have at least one item")
	// ErrInvalidLine indicates a line item with a missing product or negative counts.
	ErrInvalidLine = errors.New("catalog: invalid line item")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("catalog: invalid status")
)

// LineItem is one product entry embedded in an order.
type LineItem struct {
	ProductID    string          `json:"product"`
	VariantID    string          `json:"variantId,omitempty"`
	Series       string          `json:"series"`
	ItemCount    int64           `json:"item_count"`
	Quantity     int64           `json:"quantity"`
	COGS         decimal.Decimal `json:"cogs"`
	Price        decimal.Decimal `json:"price"`
	VendorMargin decimal.Decimal `json:"vendor_margin"`
	Status       LineStatus      `json:"order_status"`
}

// Revenue is price × quantity × itemCount.
func (l LineItem) Revenue() decimal.Decimal {
	return money.Revenue(l.Price, l.Quantity, l.ItemCount)
}

// Units is the reported quantity sold for the line.
func (l LineItem) Units() int64 {
	return l.Quantity * l.ItemCount
}

// Order is a sale transaction.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id,omitempty"`
	PaymentAt   time.Time       `json:"payment_at"`
	LineItems   []LineItem      `json:"cart_item"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
}

// Prepare validates the order, applies defaults and recomputes TotalAmount
// from the current line items. Repositories call it before every write.
func (o *Order) Prepare() error {
	if len(o.LineItems) == 0 {
		return ErrEmptyOrder
	}
	if o.Status == "" {
		o.Status = OrderPending
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: order status %q", ErrInvalidStatus, o.Status)
	}
	total := decimal.Zero
	for i := range o.LineItems {
		line := &o.LineItems[i]
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: line %d has no product", ErrInvalidLine, i)
		}
		if line.Quantity < 0 || line.ItemCount < 0 {
			return fmt.Errorf("%w: line %d has negative counts", ErrInvalidLine, i)
		}
		if line.Status == "" {
			line.Status = LinePending
		}
		if !line.Status.Valid() {
			return fmt.Errorf("%w: line status %q", ErrInvalidStatus, line.Status)
		}
		total = total.Add(line.Revenue())
	}
	o.TotalAmount = total
	return nil
}

// Valid reports whether the status is known.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Valid reports whether the status is known.
func (s LineStatus) Valid() bool {
	switch s {
	case LinePending, LineProcessing, LineShipped, LineDelivered, LineCancelled, LineReceived:
		return true
	}
	return false
}

// Product is a catalog entry owned by one vendor.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku,omitempty"`
	Category string `json:"category,omitempty"`
	VendorID string `json:"vendor"`
}

// Vendor is the tenant boundary and account holder.
type Vendor struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"-"`
}

// EffectiveRole defaults missing roles to vendor.
func (v Vendor) EffectiveRole() Role {
	if v.Role == "" {
		return RoleVendor
	}
	return v.Role
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package catalog

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates a missing vendor, product or order.
	ErrNotFound = errors.New("catalog: not found")
	// ErrDuplicate indicates a uniqueness violation such as a reused email.
	ErrDuplicate = errors.New("catalog: duplicate entry")
)

// Writer persists catalog entities. Implementations must call Order.Prepare
// before storing an order so the stored total is always derived.
type Writer interface {
	InsertVendor(ctx context.Context, vendor *Vendor) error
	InsertProduct(ctx context.Context, product *Product) error
	InsertOrder(ctx context.Context, order *Order) error
}

// Reader exposes the catalog lookups the analytics layer relies on.
type Reader interface {
	CountProducts(ctx context.Context, vendorID string) (int64, error)
	ListVendorIDs(ctx context.Context) ([]string, error)
}

// VendorRepository resolves vendor accounts for authentication.
type VendorRepository interface {
	FindVendorByID(ctx context.Context, id string) (*Vendor, error)
	FindVendorByEmail(ctx context.Context, email string) (*Vendor, error)
	FindVendorByName(ctx context.Context, name string) (*Vendor, error)
	InsertVendor(ctx context.Context, vendor *Vendor) error
}

// IDValidator reports whether an identifier is well-formed for a store.
type IDValidator func(id string) error

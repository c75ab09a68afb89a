// Package memstore keeps the catalog in process memory. It backs tests and
// STORE_DRIVER=memory and evaluates pipelines with pipeline.Evaluate.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

// Store is a goroutine-safe in-memory catalog.
type Store struct {
	mu       sync.RWMutex
	vendors  map[string]catalog.Vendor
	products map[string]catalog.Product
	orders   []catalog.Order
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		vendors:  make(map[string]catalog.Vendor),
		products: make(map[string]catalog.Product),
		now:      time.Now,
	}
}

// ValidateID accepts any non-blank identifier without whitespace.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, " \t\r\n") || len(id) > 64 {
		return fmt.Errorf("memstore: invalid id %q", id)
	}
	return nil
}

// Run implements pipeline.Runner.
func (s *Store) Run(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pipeline.Evaluate(pipeline.Dataset{Orders: s.orders, Products: s.products}, p)
}

// CountProducts returns the number of catalog products owned by vendorID.
func (s *Store) CountProducts(_ context.Context, vendorID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.products {
		if p.VendorID == vendorID {
			n++
		}
	}
	return n, nil
}

// ListVendorIDs returns every vendor id in ascending order.
func (s *Store) ListVendorIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vendors))
	for id := range s.vendors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// InsertVendor stores vendor, assigning an id when empty. Emails and names are unique.
func (s *Store) InsertVendor(_ context.Context, vendor *catalog.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vendor.Email = catalog.NormalizeEmail(vendor.Email)
	for _, existing := range s.vendors {
		if vendor.Email != "" && existing.Email == vendor.Email {
			return fmt.Errorf("%w: email %s", catalog.ErrDuplicate, vendor.Email)
		}
		if existing.Name == vendor.Name {
			return fmt.Errorf("%w: name %s", catalog.ErrDuplicate, vendor.Name)
		}
	}
	if vendor.ID == "" {
		vendor.ID = uuid.NewString()
	}
	if _, ok := s.vendors[vendor.ID]; ok {
		return fmt.Errorf("%w: vendor %s", catalog.ErrDuplicate, vendor.ID)
	}
	vendor.Role = vendor.EffectiveRole()
	if vendor.CreatedAt.IsZero() {
		vendor.CreatedAt = s.now().UTC()
	}
	s.vendors[vendor.ID] = *vendor
	return nil
}

// InsertProduct stores product, assigning an id when empty.
func (s *Store) InsertProduct(_ context.Context, product *catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if _, ok := s.products[product.ID]; ok {
		return fmt.Errorf("%w: product %s", catalog.ErrDuplicate, product.ID)
	}
	s.products[product.ID] = *product
	return nil
}

// InsertOrder prepares and stores order, assigning an id when empty.
func (s *Store) InsertOrder(_ context.Context, order *catalog.Order) error {
	if err := order.Prepare(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	stored := *order
	stored.LineItems = append([]catalog.LineItem(nil), order.LineItems...)
	s.orders = append(s.orders, stored)
	return nil
}

// FindVendorByID implements catalog.VendorRepository.
func (s *Store) FindVendorByID(_ context.Context, id string) (*catalog.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

// FindVendorByEmail implements catalog.VendorRepository.
func (s *Store) FindVendorByEmail(_ context.Context, email string) (*catalog.Vendor, error) {
	email = catalog.NormalizeEmail(email)
	return s.findVendor(func(v catalog.Vendor) bool { return v.Email == email })
}

// FindVendorByName implements catalog.VendorRepository.
func (s *Store) FindVendorByName(_ context.Context, name string) (*catalog.Vendor, error) {
	name = strings.TrimSpace(name)
	return s.findVendor(func(v catalog.Vendor) bool { return v.Name == name })
}

func (s *Store) findVendor(match func(catalog.Vendor) bool) (*catalog.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vendors {
		if match(v) {
			found := v
			return &found, nil
		}
	}
	return nil, catalog.ErrNotFound
}

var (
	_ pipeline.Runner          = (*Store)(nil)
	_ catalog.Reader           = (*Store)(nil)
	_ catalog.Writer           = (*Store)(nil)
	_ catalog.VendorRepository = (*Store)(nil)
)

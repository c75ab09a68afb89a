// Package pgstore runs analytics pipelines and catalog lookups against PostgreSQL.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
	"github.com/vendorpulse/vendorpulse/internal/platform/db"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New returns a store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Migrate applies the schema. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// ValidateID accepts UUIDs.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("pgstore: invalid uuid %q", id)
	}
	return nil
}

// Run implements pipeline.Runner.
func (s *Store) Run(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	q, err := Compile(p)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: query %s: %w", p.Name, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("pgstore: collect %s: %w", p.Name, err)
	}
	buckets := make([]pipeline.Bucket, 0, len(maps))
	for _, m := range maps {
		b, err := bucketFromRow(m)
		if err != nil {
			return nil, fmt.Errorf("pgstore: %s: %w", p.Name, err)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

func bucketFromRow(m map[string]any) (pipeline.Bucket, error) {
	var b pipeline.Bucket
	b.Year = int(asInt64(m["year"]))
	b.Month = int(asInt64(m["month"]))
	b.Day = int(asInt64(m["day"]))
	b.ProductID, _ = m["product_id"].(string)
	b.ProductName, _ = m["product_name"].(string)
	b.Lines = asInt64(m["lines"])
	b.Quantity = asInt64(m["quantity"])
	b.DistinctOrders = asInt64(m["orders"])
	b.DistinctProducts = asInt64(m["products"])
	b.FirstPaid = asTime(m["first_paid"])
	b.LastPaid = asTime(m["last_paid"])

	for name, dst := range map[string]*decimal.Decimal{
		"revenue":     &b.Revenue,
		"avg_revenue": &b.AvgRevenue,
		"min_revenue": &b.MinRevenue,
		"max_revenue": &b.MaxRevenue,
	} {
		raw, ok := m[name].(string)
		if !ok || raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return b, fmt.Errorf("decode %s %q: %w", name, raw, err)
		}
		*dst = d
	}
	return b, nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}

// CountProducts counts the vendor's catalog entries.
func (s *Store) CountProducts(ctx context.Context, vendorID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE vendor_id = $1`, vendorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count products: %w", err)
	}
	return n, nil
}

// ListVendorIDs returns every vendor id in ascending order.
func (s *Store) ListVendorIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text FROM vendors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list vendors: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pgstore: list vendors: %w", err)
	}
	return ids, nil
}

// InsertVendor stores a vendor, assigning a UUID when the id is empty.
func (s *Store) InsertVendor(ctx context.Context, vendor *catalog.Vendor) error {
	if vendor.ID == "" {
		vendor.ID = uuid.NewString()
	}
	vendor.Email = catalog.NormalizeEmail(vendor.Email)
	vendor.Role = vendor.EffectiveRole()
	if vendor.CreatedAt.IsZero() {
		vendor.CreatedAt = s.now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vendors (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`,
		vendor.ID, vendor.Name, vendor.Email, vendor.PasswordHash, string(vendor.Role), vendor.CreatedAt)
	return mapWriteErr("insert vendor", err)
}

// InsertProduct stores a product, assigning a UUID when the id is empty.
func (s *Store) InsertProduct(ctx context.Context, product *catalog.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, vendor_id, name, sku, category)
		VALUES ($1, $2, $3, $4, $5)`,
		product.ID, product.VendorID, product.Name, product.SKU, product.Category)
	return mapWriteErr("insert product", err)
}

// InsertOrder prepares an order and stores it with its line items in one transaction.
func (s *Store) InsertOrder(ctx context.Context, order *catalog.Order) error {
	if err := order.Prepare(); err != nil {
		return err
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, payment_at, total_amount, status)
			VALUES ($1, $2, $3, $4::numeric, $5)`,
			order.ID, order.CustomerID, order.PaymentAt.UTC(), order.TotalAmount.String(), string(order.Status))
		if err != nil {
			return mapWriteErr("insert order", err)
		}
		batch := &pgx.Batch{}
		for i, l := range order.LineItems {
			batch.Queue(`
				INSERT INTO order_line_items
					(order_id, line_no, product_id, variant_id, series, item_count, quantity, cogs, price, vendor_margin, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11)`,
				order.ID, i, l.ProductID, l.VariantID, l.Series, l.ItemCount, l.Quantity,
				l.COGS.String(), l.Price.String(), l.VendorMargin.String(), string(l.Status))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return mapWriteErr("insert order lines", err)
		}
		return nil
	})
}

const vendorColumns = `id::text, name, COALESCE(email, ''), password_hash, role, created_at`

// FindVendorByID implements catalog.VendorRepository.
func (s *Store) FindVendorByID(ctx context.Context, id string) (*catalog.Vendor, error) {
	if ValidateID(id) != nil {
		return nil, catalog.ErrNotFound
	}
	return s.findVendor(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id)
}

// FindVendorByEmail implements catalog.VendorRepository.
func (s *Store) FindVendorByEmail(ctx context.Context, email string) (*catalog.Vendor, error) {
	return s.findVendor(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE email = $1`, catalog.NormalizeEmail(email))
}

// FindVendorByName implements catalog.VendorRepository.
func (s *Store) FindVendorByName(ctx context.Context, name string) (*catalog.Vendor, error) {
	return s.findVendor(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE name = $1`, strings.TrimSpace(name))
}

func (s *Store) findVendor(ctx context.Context, query string, arg string) (*catalog.Vendor, error) {
	var (
		v    catalog.Vendor
		role string
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(&v.ID, &v.Name, &v.Email, &v.PasswordHash, &role, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: find vendor: %w", err)
	}
	v.Role = catalog.Role(role)
	return &v, nil
}

func mapWriteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", catalog.ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("pgstore: %s: %w", op, err)
}

var (
	_ pipeline.Runner          = (*Store)(nil)
	_ catalog.Reader           = (*Store)(nil)
	_ catalog.Writer           = (*Store)(nil)
	_ catalog.VendorRepository = (*Store)(nil)
)

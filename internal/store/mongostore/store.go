// Package mongostore runs analytics pipelines and catalog lookups against
// MongoDB. Monetary fields are stored as Decimal128.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

// Store wraps a MongoDB database handle.
type Store struct {
	db  *mongo.Database
	now func() time.Time
}

// New returns a store over db.
func New(db *mongo.Database) *Store {
	return &Store{db: db, now: time.Now}
}

// ValidateID accepts 24-character hex ObjectIDs.
func ValidateID(id string) error {
	_, err := objectID(id)
	return err
}

// EnsureIndexes creates the indexes the analytics queries and logins rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	sparseUnique := options.Index().SetUnique(true).SetSparse(true)
	specs := map[string][]mongo.IndexModel{
		VendorsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: sparseUnique},
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique},
		},
		ProductsCollection: {
			{Keys: bson.D{{Key: "vendor", Value: 1}}},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "payment_at", Value: 1}}},
			{Keys: bson.D{{Key: "cart_item.product", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: indexes %s: %w", coll, err)
		}
	}
	return nil
}

// Run implements pipeline.Runner.
func (s *Store) Run(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Bucket, error) {
	stages, err := Compile(p)
	if err != nil {
		return nil, err
	}
	cursor, err := s.db.Collection(OrdersCollection).Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("mongostore: aggregate %s: %w", p.Name, err)
	}
	defer cursor.Close(ctx)

	key := p.Group().Key
	buckets := make([]pipeline.Bucket, 0)
	for cursor.Next(ctx) {
		var doc bucketDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongostore: decode %s: %w", p.Name, err)
		}
		b, err := doc.toBucket(key)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongostore: cursor %s: %w", p.Name, err)
	}
	return buckets, nil
}

// CountProducts counts the vendor's catalog entries.
func (s *Store) CountProducts(ctx context.Context, vendorID string) (int64, error) {
	oid, err := objectID(vendorID)
	if err != nil {
		return 0, err
	}
	n, err := s.db.Collection(ProductsCollection).CountDocuments(ctx, bson.D{{Key: "vendor", Value: oid}})
	if err != nil {
		return 0, fmt.Errorf("mongostore: count products: %w", err)
	}
	return n, nil
}

// ListVendorIDs returns every vendor id in ascending order.
func (s *Store) ListVendorIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(VendorsCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: list vendors: %w", err)
	}
	defer cursor.Close(ctx)
	ids := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongostore: decode vendor id: %w", err)
		}
		ids = append(ids, doc.ID.Hex())
	}
	return ids, cursor.Err()
}

// InsertVendor stores a vendor and assigns its id.
func (s *Store) InsertVendor(ctx context.Context, vendor *catalog.Vendor) error {
	vendor.Email = catalog.NormalizeEmail(vendor.Email)
	vendor.Role = vendor.EffectiveRole()
	if vendor.CreatedAt.IsZero() {
		vendor.CreatedAt = s.now().UTC()
	}
	doc := vendorDoc{
		Name:      vendor.Name,
		Email:     vendor.Email,
		Password:  vendor.PasswordHash,
		Role:      string(vendor.Role),
		CreatedAt: vendor.CreatedAt,
	}
	if vendor.ID != "" {
		oid, err := objectID(vendor.ID)
		if err != nil {
			return err
		}
		doc.ID = oid
	}
	id, err := s.insert(ctx, VendorsCollection, doc)
	if err != nil {
		return err
	}
	vendor.ID = id
	return nil
}

// InsertProduct stores a product and assigns its id.
func (s *Store) InsertProduct(ctx context.Context, product *catalog.Product) error {
	vendor, err := objectID(product.VendorID)
	if err != nil {
		return err
	}
	doc := productDoc{Name: product.Name, SKU: product.SKU, Category: product.Category, Vendor: vendor}
	if product.ID != "" {
		if doc.ID, err = objectID(product.ID); err != nil {
			return err
		}
	}
	id, err := s.insert(ctx, ProductsCollection, doc)
	if err != nil {
		return err
	}
	product.ID = id
	return nil
}

// InsertOrder prepares and stores an order and assigns its id.
func (s *Store) InsertOrder(ctx context.Context, order *catalog.Order) error {
	if err := order.Prepare(); err != nil {
		return err
	}
	doc, err := newOrderDoc(order)
	if err != nil {
		return err
	}
	id, err := s.insert(ctx, OrdersCollection, doc)
	if err != nil {
		return err
	}
	order.ID = id
	return nil
}

func (s *Store) insert(ctx context.Context, coll string, doc any) (string, error) {
	res, err := s.db.Collection(coll).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %s", catalog.ErrDuplicate, coll)
		}
		return "", fmt.Errorf("mongostore: insert %s: %w", coll, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("mongostore: insert %s: unexpected id type %T", coll, res.InsertedID)
	}
	return oid.Hex(), nil
}

// FindVendorByID implements catalog.VendorRepository.
func (s *Store) FindVendorByID(ctx context.Context, id string) (*catalog.Vendor, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, catalog.ErrNotFound
	}
	return s.findVendor(ctx, bson.D{{Key: "_id", Value: oid}})
}

// FindVendorByEmail implements catalog.VendorRepository.
func (s *Store) FindVendorByEmail(ctx context.Context, email string) (*catalog.Vendor, error) {
	return s.findVendor(ctx, bson.D{{Key: "email", Value: catalog.NormalizeEmail(email)}})
}

// FindVendorByName implements catalog.VendorRepository.
func (s *Store) FindVendorByName(ctx context.Context, name string) (*catalog.Vendor, error) {
	return s.findVendor(ctx, bson.D{{Key: "name", Value: name}})
}

func (s *Store) findVendor(ctx context.Context, filter bson.D) (*catalog.Vendor, error) {
	var doc vendorDoc
	err := s.db.Collection(VendorsCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: find vendor: %w", err)
	}
	return doc.toVendor(), nil
}

var (
	_ pipeline.Runner          = (*Store)(nil)
	_ catalog.Reader           = (*Store)(nil)
	_ catalog.Writer           = (*Store)(nil)
	_ catalog.VendorRepository = (*Store)(nil)
)

// Package store opens the catalog backend selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
	"github.com/vendorpulse/vendorpulse/internal/platform/db"
	"github.com/vendorpulse/vendorpulse/internal/platform/docstore"
	"github.com/vendorpulse/vendorpulse/internal/store/memstore"
	"github.com/vendorpulse/vendorpulse/internal/store/mongostore"
	"github.com/vendorpulse/vendorpulse/internal/store/pgstore"
)

// Supported drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Backend is everything the service needs from a store.
type Backend interface {
	pipeline.Runner
	catalog.Reader
	catalog.Writer
	catalog.VendorRepository
}

// Options selects and addresses a backend.
type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	PGDSN         string
}

// Handle is an opened backend together with its lifecycle hooks.
type Handle struct {
	Backend
	Driver     string
	ValidateID catalog.IDValidator
	Ping       func(ctx context.Context) error
	close      func(ctx context.Context) error
}

// Close releases the underlying connections.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil || h.close == nil {
		return nil
	}
	return h.close(ctx)
}

// Open connects to the configured backend and prepares its schema or indexes.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	switch opts.Driver {
	case DriverMemory:
		return &Handle{
			Backend:    memstore.New(),
			Driver:     DriverMemory,
			ValidateID: memstore.ValidateID,
			Ping:       func(context.Context) error { return nil },
		}, nil
	case DriverPostgres:
		pool, err := db.New(ctx, opts.PGDSN)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Handle{
			Backend:    pgstore.New(pool),
			Driver:     DriverPostgres,
			ValidateID: pgstore.ValidateID,
			Ping:       pool.Ping,
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil
	case DriverMongo, "":
		client, database, err := docstore.New(ctx, opts.MongoURI, opts.MongoDatabase)
		if err != nil {
			return nil, err
		}
		s := mongostore.New(database)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &Handle{
			Backend:    s,
			Driver:     DriverMongo,
			ValidateID: mongostore.ValidateID,
			Ping:       func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:      client.Disconnect,
		}, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}

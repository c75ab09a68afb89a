package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/money"
	"github.com/vendorpulse/vendorpulse/internal/pipeline"
)

func TestStoreRunsPipelinesOverInsertedOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	vendor := &catalog.Vendor{Name: "Acme", Email: "Acme@Example.com"}
	require.NoError(t, s.InsertVendor(ctx, vendor))
	require.NotEmpty(t, vendor.ID)
	assert.Equal(t, catalog.RoleVendor, vendor.Role)

	kettle := &catalog.Product{Name: "Kettle", VendorID: vendor.ID}
	mug := &catalog.Product{Name: "Mug", VendorID: vendor.ID}
	require.NoError(t, s.InsertProduct(ctx, kettle))
	require.NoError(t, s.InsertProduct(ctx, mug))

	order := &catalog.Order{
		PaymentAt: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		LineItems: []catalog.LineItem{
			{ProductID: kettle.ID, Price: money.MustFrom("100.00"), Quantity: 1, ItemCount: 1},
			{ProductID: mug.ID, Price: money.MustFrom("50.00"), Quantity: 1, ItemCount: 1},
		},
	}
	require.NoError(t, s.InsertOrder(ctx, order))
	assert.Equal(t, "150.00", money.Fixed(order.TotalAmount))

	buckets, err := s.Run(ctx, pipeline.New("monthly", vendor.ID, nil, pipeline.Group{
		Key:      pipeline.GroupYearMonth,
		Measures: []pipeline.Measure{pipeline.MeasureRevenue, pipeline.MeasureLineCount, pipeline.MeasureDistinctOrders},
	}))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "150.00", money.Fixed(buckets[0].Revenue))
	assert.Equal(t, int64(2), buckets[0].Lines)
	assert.Equal(t, int64(1), buckets[0].DistinctOrders)

	count, err := s.CountProducts(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestStoreVendorLookupsAndUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertVendor(ctx, &catalog.Vendor{ID: "b", Name: "Beta", Email: "beta@example.com"}))
	require.NoError(t, s.InsertVendor(ctx, &catalog.Vendor{ID: "a", Name: "Alpha", Email: "alpha@example.com", Role: catalog.RoleAdmin}))

	err := s.InsertVendor(ctx, &catalog.Vendor{Name: "Other", Email: "BETA@example.com"})
	assert.ErrorIs(t, err, catalog.ErrDuplicate)

	v, err := s.FindVendorByEmail(ctx, " Alpha@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", v.ID)
	assert.Equal(t, catalog.RoleAdmin, v.Role)

	v, err = s.FindVendorByName(ctx, "Beta")
	require.NoError(t, err)
	assert.Equal(t, "b", v.ID)

	_, err = s.FindVendorByID(ctx, "zzz")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	ids, err := s.ListVendorIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStoreRejectsEmptyOrders(t *testing.T) {
	s := New()
	err := s.InsertOrder(context.Background(), &catalog.Order{})
	assert.ErrorIs(t, err, catalog.ErrEmptyOrder)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("vendor-1"))
	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("has space"))
}

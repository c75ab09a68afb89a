package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorpulse/vendorpulse/internal/analytics"
	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/events"
	"github.com/vendorpulse/vendorpulse/internal/store/memstore"
)

type recordingPublisher struct {
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.OrderEvent) error {
	p.events = append(p.events, evt)
	return nil
}

func TestLoadBundledFixture(t *testing.T) {
	fx, err := parseFixture(defaultFixture)
	require.NoError(t, err)

	ctx := context.Background()
	s := memstore.New()
	pub := &recordingPublisher{}
	sum, err := load(ctx, s, fx, pub)
	require.NoError(t, err)
	assert.Equal(t, summary{Vendors: 3, Products: 3, Orders: 3}, sum)
	require.Len(t, pub.events, 3)
	assert.Len(t, pub.events[0].VendorIDs, 2, "first order touches both shops")

	admin, err := s.FindVendorByEmail(ctx, "admin@vendorpulse.local")
	require.NoError(t, err)
	assert.Equal(t, catalog.RoleAdmin, admin.Role)
	assert.NotEqual(t, "admin123", admin.PasswordHash)

	atolye, err := s.FindVendorByName(ctx, "Atolye Seramik")
	require.NoError(t, err)
	svc := analytics.NewService(s, s, nil)
	stats, err := svc.GetVendorStats(ctx, atolye.ID)
	require.NoError(t, err)
	// 2×24.90 + 39.00 + 4×24.90 + 2×39.00
	assert.Equal(t, "266.40", stats.TotalRevenue)
}

func TestLoadRejectsDanglingRefs(t *testing.T) {
	fx := fixture{
		Vendors:  []vendorFixture{{Ref: "a", Name: "A", Email: "a@example.com", Password: "secret1"}},
		Products: []productFixture{{Ref: "p", Vendor: "missing", Name: "P"}},
	}
	_, err := load(context.Background(), memstore.New(), fx, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vendor ref")
}

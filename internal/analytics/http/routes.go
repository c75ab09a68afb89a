package analytichttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/vendorpulse/vendorpulse/internal/auth"
	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

// MountRoutes registers vendor analytics endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests),
				"Too many analytics requests, please try again later")
		}),
	)

	r.Group(func(gr chi.Router) {
		gr.Use(h.auth.Authenticate)

		gr.Group(func(lr chi.Router) {
			lr.Use(limiter)
			for _, route := range []struct {
				pattern string
				handler http.HandlerFunc
			}{
				{"/monthly-sales%s", h.handleMonthlySales},
				{"/product-sales%s", h.handleProductSales},
				{"/vendor-stats%s", h.handleVendorStats},
				{"/detailed%s", h.handleDetailed},
				{"/validate%s", h.handleValidate},
				{"/date-range%s", h.handleDateRange},
				{"/monthly-sales%s/export.csv", h.handleMonthlyCSV},
				{"/product-sales%s/export.csv", h.handleProductCSV},
				{"/date-range%s/export.csv", h.handleDateRangeCSV},
			} {
				// The vendor segment is optional and defaults to the caller.
				lr.Get(fmt.Sprintf(route.pattern, ""), route.handler)
				lr.Get(fmt.Sprintf(route.pattern, "/{vendorId}"), route.handler)
			}
		})

		gr.Group(func(ar chi.Router) {
			ar.Use(h.auth.RequireRole(catalog.RoleAdmin))
			ar.Delete("/cache", h.handleClearCache)
			ar.Delete("/cache/{vendorId}", h.handleClearCache)
		})
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok && principal.VendorID != "" {
		return "vendor:" + principal.VendorID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

type principalKey struct{}

// ContextWithPrincipal attaches p to ctx.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Middleware wires bearer authentication and role guards for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate resolves the bearer token into a Principal or rejects with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			WriteError(w, ErrAuthRequired)
			return
		}
		principal, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) && m.Logger != nil {
				m.Logger.Error("auth resolve principal", slog.Any("error", err))
			}
			WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole ensures the current caller has one of roles.
func (m Middleware) RequireRole(roles ...catalog.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, ErrAuthRequired)
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, ErrInsufficientRole)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

var messages = []struct {
	err error
	msg string
}{
	{ErrAuthRequired, "Authentication required"},
	{ErrInvalidToken, "Invalid authentication"},
	{ErrInvalidCredentials, "Invalid credentials"},
	{ErrInsufficientRole, "Insufficient permissions"},
	{ErrEmailTaken, "Email already registered"},
	{ErrNameRequired, "Vendor name is required"},
	{ErrVendorNotFound, "Vendor not found"},
}

// WriteError renders an authentication error as problem JSON.
func WriteError(w http.ResponseWriter, err error) {
	status := httpx.StatusFor(err)
	for _, m := range messages {
		if errors.Is(err, m.err) {
			httpx.Problem(w, status, http.StatusText(status), m.msg)
			return
		}
	}
	httpx.RespondErrorDetail(w, err, "Authentication failed")
}

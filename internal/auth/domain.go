package auth

import (
	"fmt"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
	"github.com/vendorpulse/vendorpulse/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates an unknown email or wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	// ErrAuthRequired indicates a request without a bearer token.
	ErrAuthRequired = fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	// ErrInvalidToken indicates a bad, expired or orphaned token.
	ErrInvalidToken = fmt.Errorf("%w: invalid authentication", httpx.ErrUnauthorized)
	// ErrInsufficientRole indicates an authenticated caller without the needed role.
	ErrInsufficientRole = fmt.Errorf("%w: insufficient permissions", httpx.ErrForbidden)
	// ErrEmailTaken indicates a registration with a known email.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", httpx.ErrValidation)
	// ErrNameRequired indicates a name login without a name.
	ErrNameRequired = fmt.Errorf("%w: vendor name is required", httpx.ErrValidation)
	// ErrVendorNotFound indicates a name login for an unknown vendor.
	ErrVendorNotFound = fmt.Errorf("%w: vendor not found", httpx.ErrNotFound)
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	VendorID string
	Email    string
	Name     string
	Role     catalog.Role
}

// IsAdmin reports whether the caller may act on other vendors.
func (p Principal) IsAdmin() bool {
	return p.Role == catalog.RoleAdmin
}

// CanAccess reports whether the caller may read vendorID's analytics.
func (p Principal) CanAccess(vendorID string) bool {
	return p.IsAdmin() || p.VendorID == vendorID
}

// VendorView is the public projection of a vendor account.
type VendorView struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Email string       `json:"email"`
	Role  catalog.Role `json:"role"`
}

// Session is the result of a successful register or login.
type Session struct {
	Token  string     `json:"token"`
	Vendor VendorView `json:"vendor"`
}

func viewOf(v *catalog.Vendor) VendorView {
	return VendorView{ID: v.ID, Name: v.Name, Email: v.Email, Role: v.EffectiveRole()}
}

func principalOf(v *catalog.Vendor) Principal {
	return Principal{VendorID: v.ID, Email: v.Email, Name: v.Name, Role: v.EffectiveRole()}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vendorpulse/vendorpulse/internal/catalog"
)

// PasswordCost is the bcrypt cost for new password hashes.
const PasswordCost = 10

// Service wraps authentication business rules.
type Service struct {
	repo   catalog.VendorRepository
	tokens *TokenIssuer
}

// NewService constructs a new Service.
func NewService(repo catalog.VendorRepository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// RegisterInput carries a new vendor account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// HashPassword returns the bcrypt hash stored for a vendor password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Register creates a vendor account and signs a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := catalog.NormalizeEmail(in.Email)
	if _, err := s.repo.FindVendorByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	vendor := &catalog.Vendor{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         catalog.RoleVendor,
	}
	if err := s.repo.InsertVendor(ctx, vendor); err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: insert vendor: %w", err)
	}
	return s.session(vendor)
}

// Login validates email/password credentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	vendor, err := s.repo.FindVendorByEmail(ctx, catalog.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}
	if vendor.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(vendor.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(vendor)
}

// LoginByName signs a token for the vendor with the given name without a password.
func (s *Service) LoginByName(ctx context.Context, name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	vendor, err := s.repo.FindVendorByName(ctx, name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("auth: lookup name: %w", err)
	}
	return s.session(vendor)
}

// Resolve verifies a bearer token and loads the vendor it names.
func (s *Service) Resolve(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	vendor, err := s.repo.FindVendorByID(ctx, claims.VendorID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, fmt.Errorf("auth: load vendor: %w", err)
	}
	return principalOf(vendor), nil
}

// Me returns the public view of the authenticated vendor.
func (s *Service) Me(ctx context.Context, p Principal) (VendorView, error) {
	vendor, err := s.repo.FindVendorByID(ctx, p.VendorID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return VendorView{}, ErrInvalidToken
		}
		return VendorView{}, fmt.Errorf("auth: load vendor: %w", err)
	}
	return viewOf(vendor), nil
}

func (s *Service) session(vendor *catalog.Vendor) (*Session, error) {
	token, err := s.tokens.Issue(vendor)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Vendor: viewOf(vendor)}, nil
}

// Package auth resolves inbound bearer credentials to principals. Two
// forms are accepted: a static admin token granting unrestricted
// machine-to-machine access, and per-user bearer tokens resolved through
// the external identity provider on every request. No session state or
// token caching is held here.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
)

// ErrUnauthenticated covers every rejection: missing header, malformed
// scheme, unknown token, or an unreachable identity provider. Credential
// failures never surface as 5xx.
var ErrUnauthenticated = errors.New("unauthenticated")

// User is a resolved identity from the identity provider
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentityProvider resolves a bearer token to the user it was issued to
type IdentityProvider interface {
	ResolveToken(ctx context.Context, token string) (*User, error)
}

// Principal is the resolved caller identity. Ownership checks dispatch on
// the concrete type rather than comparing token strings at call sites.
type Principal interface {
	IsAdmin() bool
}

// AdminPrincipal is the static-token capability. It bypasses ownership
// filtering and is used for machine-to-machine provisioning.
type AdminPrincipal struct{}

func (AdminPrincipal) IsAdmin() bool { return true }

// UserPrincipal is an identity-provider-backed user
type UserPrincipal struct {
	ID    string
	Email string
}

func (UserPrincipal) IsAdmin() bool { return false }

// Validator turns raw Authorization header values into principals
type Validator struct {
	adminToken string
	identity   IdentityProvider
}

// NewValidator creates a validator. An empty adminToken disables the
// admin capability; a nil identity provider rejects all user tokens.
func NewValidator(adminToken string, identity IdentityProvider) *Validator {
	return &Validator{
		adminToken: adminToken,
		identity:   identity,
	}
}

// Validate resolves the Authorization header to a principal. The admin
// token is matched in constant time before any identity-provider call.
func (v *Validator) Validate(ctx context.Context, authorization string) (Principal, error) {
	token := extractBearerToken(authorization)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	if v.adminToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(v.adminToken)) == 1 {
		return AdminPrincipal{}, nil
	}

	if v.identity == nil {
		return nil, ErrUnauthenticated
	}

	user, err := v.identity.ResolveToken(ctx, token)
	if err != nil || user == nil {
		return nil, ErrUnauthenticated
	}

	return UserPrincipal{ID: user.ID, Email: user.Email}, nil
}

func extractBearerToken(authorization string) string {
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

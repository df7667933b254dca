package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape. Tokens are minted by the identity
// service; this process verifies them.
// Multi-tenant invariant: OrganizationID must be present on every token.
type Claims struct {
	jwt.RegisteredClaims

	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Role           string `json:"role"`
	Name           string `json:"name,omitempty"`
}

// Identity is the verified caller.
type Identity struct {
	UserID         string
	OrganizationID string
	Role           string
	Name           string
}

package types

import "github.com/golang-jwt/jwt/v5"

// Claims are the access token claims issued by the identity service.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"usr,omitempty"`
	Email    string `json:"eml,omitempty"`
	Role     string `json:"rol,omitempty"`
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

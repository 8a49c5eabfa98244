package models

import "github.com/golang-jwt/jwt/v5"

// Token kinds carried in UserClaims.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// UserClaims are the JWT claims issued at login. TokenVersion must match the
// user row for the token to be honored.
type UserClaims struct {
	UserID       uint   `json:"user_id"`
	PublicID     string `json:"public_id"`
	Email        string `json:"email"`
	TokenType    string `json:"token_type"`
	TokenVersion int    `json:"token_version"`
	jwt.RegisteredClaims
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kobapay/internal/apperr"
	"kobapay/internal/models"
)

// TokenBundle is the credential pair returned at login and verification.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (s *Service) signToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	claims := models.UserClaims{
		UserID:       user.ID,
		PublicID:     user.UserID,
		Email:        user.Email,
		TokenType:    tokenType,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// IssueTokens builds an access and refresh token pair.
func (s *Service) IssueTokens(user *models.User) (*TokenBundle, error) {
	access, err := s.signToken(user, models.TokenTypeAccess, s.cfg.AccessTokenExpiry)
	if err != nil {
		return nil, apperr.Server(err, "auth.IssueTokens")
	}
	refresh, err := s.signToken(user, models.TokenTypeRefresh, s.cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, apperr.Server(err, "auth.IssueTokens")
	}
	return &TokenBundle{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}, nil
}

// ParseToken validates a signed token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*models.UserClaims, error) {
	claims := &models.UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.NotAuthorized("Token is invalid or expired")
	}
	return claims, nil
}

// Package auth issues and checks the signed session_token recovery cookie.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// RecoveryClaims bind a recovery token to one session record and one user.
type RecoveryClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	UserID    int64  `json:"uid"`
	Username  string `json:"username"`
}

// GenerateToken signs an HS256 recovery token that expires at expiresAt.
func GenerateToken(sessionID string, userID int64, username string, secretKey []byte, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RecoveryClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature, algorithm and expiry and returns the claims.
// Expired tokens yield common.ErrTokenExpired; anything else that fails
// yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*RecoveryClaims, error) {
	claims := &RecoveryClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.SessionID == "" || claims.UserID == 0 || claims.Username == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

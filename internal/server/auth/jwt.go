// Package auth issues and checks the HS256 access tokens carried by clients
// in the access_token metadata header.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/fieldsync/internal/common"
)

// Claims carries the standard claims plus the operator the token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

func GenerateToken(operator string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Operator: operator,
	})

	return token.SignedString(secretKey)
}

// OperatorFromToken validates tokenString and returns its operator.
// Expired tokens yield common.ErrTokenExpired, any other failure
// common.ErrInvalidToken.
func OperatorFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Operator == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Operator, nil
}

// Package auth issues and verifies HS256 tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"example.com/microblog/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession       = "session"
	PurposeResetPassword = "reset_password"
)

// Claims carries the account a token was issued for and what it may be used for.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"account_id"`
	Purpose   string `json:"purpose"`
}

func GenerateToken(accountID int64, purpose string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		AccountID: accountID,
		Purpose:   purpose,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken verifies the signature, expiry and purpose of tokenString and
// returns the account id it was issued for.
func ParseToken(tokenString, purpose string, secretKey []byte) (int64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Purpose != purpose || claims.AccountID == 0 {
		return 0, common.ErrInvalidToken
	}
	return claims.AccountID, nil
}

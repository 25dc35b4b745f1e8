package utils

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// JWTClaims custom claims for JWT
type JWTClaims struct {
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTUtil provides JWT generation and validation for one token kind
type JWTUtil struct {
	secretKey         string
	tokenType         string
	expirationMinutes int64
}

// NewJWTUtil creates a new JWTUtil
func NewJWTUtil(secretKey, tokenType string, expirationMinutes int64) *JWTUtil {
	return &JWTUtil{secretKey: secretKey, tokenType: tokenType, expirationMinutes: expirationMinutes}
}

// ExpirationMinutes is the configured token lifetime.
func (ju *JWTUtil) ExpirationMinutes() int64 {
	return ju.expirationMinutes
}

// GenerateToken generates a new JWT token and returns its issue and expiry times
func (ju *JWTUtil) GenerateToken(userID int64, role string) (string, *JWTClaims, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:    userID,
		Role:      role,
		TokenType: ju.tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute * time.Duration(ju.expirationMinutes))),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(ju.secretKey))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, claims, nil
}

// ValidateToken validates the JWT token
func (ju *JWTUtil) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ju.secretKey), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenType != ju.tokenType {
		return nil, fmt.Errorf("invalid token type %q", claims.TokenType)
	}
	if sub, err := strconv.ParseInt(claims.Subject, 10, 64); err != nil || sub != claims.UserID {
		return nil, fmt.Errorf("invalid token subject")
	}

	return claims, nil
}

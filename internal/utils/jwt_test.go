package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTUtil_GenerateToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", TokenTypeAccess, 60)
	userID := int64(1)
	role := "user"

	tokenString, issued, err := jwtUtil.GenerateToken(userID, role)

	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)
	require.NotNil(t, issued)
	assert.Equal(t, "1", issued.Subject)

	// Validate the token to ensure it's well-formed and contains correct claims
	claims, err := jwtUtil.ValidateToken(tokenString)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, role, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTUtil_ValidateToken_InvalidToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", TokenTypeAccess, 60)

	_, err := jwtUtil.ValidateToken("invalid.token.string")
	assert.Error(t, err)
}

func TestJWTUtil_ValidateToken_ExpiredToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", TokenTypeAccess, -1) // Token expires in the past

	tokenString, _, _ := jwtUtil.GenerateToken(1, "user")

	_, err := jwtUtil.ValidateToken(tokenString)
	assert.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTUtil_ValidateToken_WrongSecret(t *testing.T) {
	jwtUtil1 := NewJWTUtil("secret1", TokenTypeAccess, 60)
	jwtUtil2 := NewJWTUtil("secret2", TokenTypeAccess, 60)

	tokenString, _, _ := jwtUtil1.GenerateToken(1, "user")

	_, err := jwtUtil2.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestJWTUtil_ValidateToken_RefreshNotAcceptedAsAccess(t *testing.T) {
	access := NewJWTUtil("secret", TokenTypeAccess, 60)
	refresh := NewJWTUtil("secret", TokenTypeRefresh, 60)

	tokenString, _, _ := refresh.GenerateToken(1, "user")

	_, err := access.ValidateToken(tokenString)
	assert.ErrorContains(t, err, "invalid token type")

	claims, err := refresh.ValidateToken(tokenString)
	assert.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestJWTUtil_ValidateToken_SubjectMismatch(t *testing.T) {
	claims := &JWTClaims{
		UserID:    1,
		Role:      "user",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   "2",
		},
	}
	tokenString, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

	_, err := NewJWTUtil("secret", TokenTypeAccess, 60).ValidateToken(tokenString)
	assert.ErrorContains(t, err, "invalid token subject")
}

func TestJWTUtil_ValidateToken_InvalidSigningMethod(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", TokenTypeAccess, 60)
	// An unsigned "none" token must be rejected before signature checks
	claims := &JWTClaims{
		UserID:    1,
		Role:      "user",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   "1",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)

	_, err := jwtUtil.ValidateToken(tokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected signing method")
}

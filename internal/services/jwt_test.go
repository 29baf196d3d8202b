package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_IssueAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute)

	tok, err := svc.IssueAccessToken(uuid.New(), "parent@example.com")

	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.Equal(t, int64(15*60), tok.ExpiresIn)
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute)
	guardianID := uuid.New()

	tok, err := svc.IssueAccessToken(guardianID, "parent@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(tok.Token)

	require.NoError(t, err)
	assert.Equal(t, guardianID, claims.GuardianID)
	assert.Equal(t, "parent@example.com", claims.Email)
	assert.Equal(t, "playdate-api", claims.Issuer)
}

func TestJWTService_ValidateAccessToken_WrongSecret(t *testing.T) {
	svc1 := NewJWTService("secret-1", 15*time.Minute)
	svc2 := NewJWTService("secret-2", 15*time.Minute)

	tok, err := svc1.IssueAccessToken(uuid.New(), "parent@example.com")
	require.NoError(t, err)

	_, err = svc2.ValidateAccessToken(tok.Token)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse token")
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", 1*time.Millisecond)

	tok, err := svc.IssueAccessToken(uuid.New(), "parent@example.com")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = svc.ValidateAccessToken(tok.Token)

	assert.Error(t, err)
}

func TestJWTService_ValidateAccessToken_WrongIssuer(t *testing.T) {
	claims := Claims{
		GuardianID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewJWTService("test-secret", time.Hour).ValidateAccessToken(signed)

	assert.Error(t, err)
}

func TestJWTService_ValidateAccessToken_MalformedToken(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute)

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt-token"},
		{"partial jwt", "eyJhbGciOiJIUzI1NiJ9."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tc.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_TokensAreDistinct(t *testing.T) {
	svc := NewJWTService("test-secret", 15*time.Minute)
	guardianID := uuid.New()

	tok1, err := svc.IssueAccessToken(guardianID, "parent@example.com")
	require.NoError(t, err)
	tok2, err := svc.IssueAccessToken(guardianID, "parent@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, tok1.Token, tok2.Token)
}

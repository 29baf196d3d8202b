package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "playdate-api"

// JWTService issues and checks the bearer tokens that identify the calling
// guardian. Login itself lives outside this service.
type JWTService struct {
	secret       []byte
	accessExpiry time.Duration
}

type Claims struct {
	GuardianID uuid.UUID `json:"guardian_id"`
	Email      string    `json:"email"`
	jwt.RegisteredClaims
}

type AccessToken struct {
	Token     string
	ExpiresIn int64
}

func NewJWTService(secret string, accessExpiry time.Duration) *JWTService {
	return &JWTService{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
	}
}

func (s *JWTService) IssueAccessToken(guardianID uuid.UUID, email string) (*AccessToken, error) {
	now := time.Now()

	claims := Claims{
		GuardianID: guardianID,
		Email:      email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   guardianID.String(),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &AccessToken{
		Token:     signed,
		ExpiresIn: int64(s.accessExpiry.Seconds()),
	}, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.GuardianID == uuid.Nil {
		return nil, fmt.Errorf("token carries no guardian")
	}

	return claims, nil
}

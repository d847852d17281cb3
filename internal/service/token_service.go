package service

import (
	"fmt"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type merchantClaims struct {
	MerchantID string `json:"merchant_id"`
	jwt.RegisteredClaims
}

type tokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewTokenService wires HS256 JWT handling for the management API.
func NewTokenService(secret string, expiry time.Duration, issuer string) ports.TokenService {
	return &tokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

func (s *tokenService) Generate(merchantID uuid.UUID) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiry)

	claims := merchantClaims{
		MerchantID: merchantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   merchantID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *tokenService) Validate(tokenString string) (uuid.UUID, error) {
	claims := &merchantClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return uuid.Nil, apperror.ErrInvalidToken()
	}

	merchantID, err := uuid.Parse(claims.MerchantID)
	if err != nil {
		return uuid.Nil, apperror.ErrInvalidToken()
	}
	return merchantID, nil
}

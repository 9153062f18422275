package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/repolens/gatekeeper/internal/domain/accesstoken"
)

// AccessClaims are the claims of a gateway access token. Subject carries the
// upstream user ID and ID (jti) makes every issued token unique.
type AccessClaims struct {
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewJWTService(secret, issuer string, ttl time.Duration) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Sign issues an HS256 token for subject valid from now for the configured TTL.
func (s *JWTService) Sign(subject string, now time.Time) (string, *AccessClaims, error) {
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and registered claims. Failures are returned as
// accesstoken.InvalidTokenError with the matching reason.
func (s *JWTService) Verify(tokenString string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, accesstoken.Invalid(reasonFor(err))
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, accesstoken.Invalid(accesstoken.ReasonMalformed)
	}
	return claims, nil
}

func reasonFor(err error) accesstoken.InvalidReason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return accesstoken.ReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return accesstoken.ReasonMalformed
	default:
		return accesstoken.ReasonSignature
	}
}

package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIdentity is the user the upstream web application vouches for.
type SessionIdentity struct {
	Subject string
	Email   string
	Name    string
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// SessionVerifier validates the upstream web app's HS256 session token,
// the credential GET /auth exchanges for a gateway access token.
type SessionVerifier struct {
	secret []byte
	issuer string
}

func NewSessionVerifier(secret, issuer string) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *SessionVerifier) Verify(raw string) (*SessionIdentity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &sessionClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("invalid session: missing subject")
	}
	return &SessionIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

package accesstoken

import (
	"errors"
	"time"
)

// AccessToken is the persisted record of an issued bearer token. The record,
// not the signature, decides whether a token is still usable. Records are
// never deleted.
type AccessToken struct {
	id         uint
	subject    string
	tokenHash  string
	issuedAt   time.Time
	expiresAt  time.Time
	revokedAt  *time.Time
	lastUsedAt *time.Time
}

func NewAccessToken(subject, tokenHash string, issuedAt, expiresAt time.Time) (*AccessToken, error) {
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	if tokenHash == "" {
		return nil, errors.New("token hash is required")
	}
	if !expiresAt.After(issuedAt) {
		return nil, errors.New("expiry must be after issuance")
	}
	return &AccessToken{
		subject:   subject,
		tokenHash: tokenHash,
		issuedAt:  issuedAt.UTC(),
		expiresAt: expiresAt.UTC(),
	}, nil
}

func ReconstructAccessToken(id uint, subject, tokenHash string, issuedAt, expiresAt time.Time,
	revokedAt, lastUsedAt *time.Time) *AccessToken {
	return &AccessToken{
		id:         id,
		subject:    subject,
		tokenHash:  tokenHash,
		issuedAt:   issuedAt,
		expiresAt:  expiresAt,
		revokedAt:  revokedAt,
		lastUsedAt: lastUsedAt,
	}
}

func (t *AccessToken) ID() uint {
	return t.id
}

func (t *AccessToken) Subject() string {
	return t.subject
}

func (t *AccessToken) TokenHash() string {
	return t.tokenHash
}

func (t *AccessToken) IssuedAt() time.Time {
	return t.issuedAt
}

func (t *AccessToken) ExpiresAt() time.Time {
	return t.expiresAt
}

func (t *AccessToken) RevokedAt() *time.Time {
	return t.revokedAt
}

func (t *AccessToken) LastUsedAt() *time.Time {
	return t.lastUsedAt
}

func (t *AccessToken) SetID(id uint) {
	t.id = id
}

func (t *AccessToken) IsRevoked() bool {
	return t.revokedAt != nil
}

func (t *AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.expiresAt)
}

// Check returns nil when the record allows use at now. Revocation wins over
// expiry so logs show the more specific reason.
func (t *AccessToken) Check(now time.Time) error {
	if t.IsRevoked() {
		return Invalid(ReasonRevoked)
	}
	if t.IsExpired(now) {
		return Invalid(ReasonExpired)
	}
	return nil
}

// Revoke marks the token revoked. It reports false when it already was.
func (t *AccessToken) Revoke(at time.Time) bool {
	if t.revokedAt != nil {
		return false
	}
	at = at.UTC()
	t.revokedAt = &at
	return true
}

func (t *AccessToken) MarkUsed(at time.Time) {
	at = at.UTC()
	t.lastUsedAt = &at
}

package accesstoken

import (
	"errors"
	"fmt"
)

// InvalidReason says why a bearer token was rejected.
type InvalidReason string

const (
	ReasonMissing   InvalidReason = "missing"
	ReasonMalformed InvalidReason = "malformed"
	ReasonSignature InvalidReason = "signature"
	ReasonExpired   InvalidReason = "expired"
	ReasonRevoked   InvalidReason = "revoked"
	ReasonNotFound  InvalidReason = "not_found"
)

var ErrInvalidToken = errors.New("invalid token")

// InvalidTokenError is returned by validation for every rejected token.
// errors.Is(err, ErrInvalidToken) matches any reason.
type InvalidTokenError struct {
	Reason InvalidReason
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token: %s", e.Reason)
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

func Invalid(reason InvalidReason) error {
	return &InvalidTokenError{Reason: reason}
}

// ReasonOf extracts the rejection reason, or "" when err is not an InvalidTokenError.
func ReasonOf(err error) InvalidReason {
	var ite *InvalidTokenError
	if errors.As(err, &ite) {
		return ite.Reason
	}
	return ""
}

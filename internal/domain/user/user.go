package user

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidSubject = errors.New("subject is required")
)

// User mirrors an identity from the upstream web application. Subject is the
// upstream user ID; BillingCustomerID links the user to the billing provider.
type User struct {
	id                uint
	subject           string
	email             string
	name              string
	billingCustomerID string
	createdAt         time.Time
	updatedAt         time.Time
}

func NewUser(subject, email, name string) (*User, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrInvalidSubject
	}
	if len(subject) > 191 {
		return nil, fmt.Errorf("subject too long (max 191 characters)")
	}
	now := time.Now().UTC()
	return &User{
		subject:   subject,
		email:     strings.ToLower(strings.TrimSpace(email)),
		name:      strings.TrimSpace(name),
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructUser(id uint, subject, email, name, billingCustomerID string, createdAt, updatedAt time.Time) *User {
	return &User{
		id:                id,
		subject:           subject,
		email:             email,
		name:              name,
		billingCustomerID: billingCustomerID,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (u *User) ID() uint {
	return u.id
}

func (u *User) Subject() string {
	return u.subject
}

func (u *User) Email() string {
	return u.email
}

func (u *User) Name() string {
	return u.name
}

func (u *User) BillingCustomerID() string {
	return u.billingCustomerID
}

func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

func (u *User) UpdatedAt() time.Time {
	return u.updatedAt
}

func (u *User) SetID(id uint) {
	u.id = id
}

// UpdateProfile copies non-empty profile fields from the upstream session and
// reports whether anything changed.
func (u *User) UpdateProfile(email, name string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	changed := false
	if email != "" && email != u.email {
		u.email = email
		changed = true
	}
	if name != "" && name != u.name {
		u.name = name
		changed = true
	}
	if changed {
		u.updatedAt = time.Now().UTC()
	}
	return changed
}

// LinkBillingCustomer records the billing provider's customer ID. A user is
// linked at most once; relinking to a different customer is refused.
func (u *User) LinkBillingCustomer(customerID string) error {
	if customerID == "" {
		return fmt.Errorf("billing customer ID is required")
	}
	if u.billingCustomerID != "" && u.billingCustomerID != customerID {
		return fmt.Errorf("user %s already linked to billing customer %s", u.subject, u.billingCustomerID)
	}
	u.billingCustomerID = customerID
	u.updatedAt = time.Now().UTC()
	return nil
}

package user

import "context"

type Repository interface {
	GetBySubject(ctx context.Context, subject string) (*User, error)
	GetByBillingCustomerID(ctx context.Context, customerID string) (*User, error)
	// Upsert inserts the user or refreshes its non-empty profile fields,
	// keyed by subject, and returns the stored row.
	Upsert(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) error
}

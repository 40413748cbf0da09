// internal/accounts/service.go
package accounts

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the accounts service.
type Service interface {
	Signup(ctx context.Context, email, name, password string) (*User, error)
	Login(ctx context.Context, email, password string) (string, *User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	Deposit(ctx context.Context, id uuid.UUID, amountCents int64) (*User, error)
}

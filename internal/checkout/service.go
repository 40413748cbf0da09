// internal/checkout/service.go
package checkout

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence surface the checkout service settles against.
// Implementations must make ReserveStock and DebitBalance atomic
// check-and-mutate operations with respect to concurrent callers on the
// same book or user, and must make every mutation inside a WithTx fn
// all-or-nothing.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// CartLines loads the user's cart joined with book prices. Inside a
	// transaction the lines are locked until commit, serializing
	// concurrent checkouts of the same cart.
	CartLines(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
	UpsertCartLine(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartLine, error)
	DeleteCartLine(ctx context.Context, lineID uuid.UUID) error
	RemoveCartLine(ctx context.Context, userID, bookID uuid.UUID) error

	BookForSale(ctx context.Context, bookID uuid.UUID) (*BookInfo, error)
	ReserveStock(ctx context.Context, bookID uuid.UUID, quantity int) (int, error)
	DebitBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error)
	CreatePurchase(ctx context.Context, p Purchase) error
}

// Service defines the interface for cart management and checkout.
type Service interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*Summary, error)
	AddItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartLine, error)
	RemoveItem(ctx context.Context, userID, bookID uuid.UUID) error
	Cart(ctx context.Context, userID uuid.UUID) (*Cart, error)
}

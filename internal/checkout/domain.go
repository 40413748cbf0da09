// internal/checkout/domain.go
package checkout

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// CartLine is a pending, unconsummated intent to buy a quantity of one
// book. Price and title are joined in from the catalog at read time.
type CartLine struct {
	ID             uuid.UUID `db:"id" json:"id"`
	BookID         uuid.UUID `db:"book_id" json:"book_id"`
	Title          string    `db:"title" json:"title"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
}

// Cart is a user's cart lines plus the running total.
type Cart struct {
	Lines      []CartLine `json:"lines"`
	TotalCents int64      `json:"total_cents"`
}

// Purchase is the immutable record of one settled cart line. One row is
// created per cart line, carrying the quantity and the unit price at
// purchase time; rows are never mutated or deleted.
type Purchase struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	BookID         uuid.UUID `db:"book_id" json:"book_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Summary reports the outcome of a committed checkout.
type Summary struct {
	TotalCents   int64      `json:"total_cents"`
	BalanceCents int64      `json:"balance_cents"`
	Purchases    []Purchase `json:"purchases"`
}

// BookInfo is the slice of a book the cart needs: current list price and
// stock on hand.
type BookInfo struct {
	Title      string
	Stock      int
	PriceCents int64
}

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrLineNotFound = errors.New("cart line not found")
)

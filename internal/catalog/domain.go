// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Book represents a title for sale. Stock is mutated only through the
// inventory ledger.
type Book struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ISBN       string    `db:"isbn" json:"isbn"`
	Title      string    `db:"title" json:"title"`
	Author     string    `db:"author" json:"author"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	Stock      int       `db:"stock" json:"stock"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

var (
	ErrNotFound  = errors.New("book not found")
	ErrISBNTaken = errors.New("isbn already registered")
)

// internal/ledger/inventory.go
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookmart/internal/postgres"
)

// Inventory guards per-book stock. Reserve is the only gate through which
// stock decreases; the check and the decrement are one statement.
type Inventory struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewInventory creates an inventory ledger backed by the given database.
func NewInventory(db *sqlx.DB) *Inventory {
	return &Inventory{
		db:     db,
		tracer: otel.Tracer("bookmart/ledger"),
	}
}

// Reserve atomically decrements the book's stock by quantity and returns
// the remaining stock. It fails with ErrInsufficientStock when fewer than
// quantity units are available and performs no mutation in that case.
// When a transaction is carried in the context the update joins it.
func (i *Inventory) Reserve(ctx context.Context, bookID uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	ctx, span := i.tracer.Start(ctx, "ledger.reserve",
		trace.WithAttributes(
			attribute.String("book.id", bookID.String()),
			attribute.Int("quantity", quantity),
		),
	)
	defer span.End()

	q := postgres.QuerierFrom(ctx, i.db)

	var stock int
	err := q.QueryRowContext(ctx, `
		UPDATE books
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`, bookID, quantity).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, i.classifyGuardFailure(ctx, q, bookID)
	}
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}

	return stock, nil
}

// Release atomically increments the book's stock by quantity and returns
// the new stock. The ledger does not track reservation identity; calling
// Release more than once per reservation is a caller bug.
func (i *Inventory) Release(ctx context.Context, bookID uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	ctx, span := i.tracer.Start(ctx, "ledger.release",
		trace.WithAttributes(
			attribute.String("book.id", bookID.String()),
			attribute.Int("quantity", quantity),
		),
	)
	defer span.End()

	q := postgres.QuerierFrom(ctx, i.db)

	var stock int
	err := q.QueryRowContext(ctx, `
		UPDATE books
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock
	`, bookID, quantity).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("release stock: %w", err)
	}

	return stock, nil
}

// classifyGuardFailure tells a missing book apart from a failed stock
// guard, since both leave the guarded UPDATE with zero rows.
func (i *Inventory) classifyGuardFailure(ctx context.Context, q postgres.Querier, bookID uuid.UUID) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}
	return ErrInsufficientStock
}

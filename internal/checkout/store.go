// internal/checkout/store.go
package checkout

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookmart/internal/ledger"
	"bookmart/internal/postgres"
)

// PostgresStore implements Store on top of Postgres. Stock and balance
// mutations are delegated to the ledgers so the guarded single-statement
// updates stay the only write path for those columns.
type PostgresStore struct {
	db        *sqlx.DB
	inventory *ledger.Inventory
	account   *ledger.Account
}

// NewPostgresStore creates a checkout store backed by the given database
// and ledgers.
func NewPostgresStore(db *sqlx.DB, inventory *ledger.Inventory, account *ledger.Account) *PostgresStore {
	return &PostgresStore{
		db:        db,
		inventory: inventory,
		account:   account,
	}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return postgres.WithTx(ctx, s.db, fn)
}

// CartLines loads the user's cart joined with the catalog. The cart rows
// are locked, which serializes concurrent checkouts of the same cart: the
// loser blocks here and re-reads the emptied cart after the winner commits.
func (s *PostgresStore) CartLines(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	q := postgres.QuerierFrom(ctx, s.db)

	var lines []CartLine
	err := q.SelectContext(ctx, &lines, `
		SELECT ci.id, ci.book_id, b.title, ci.quantity, b.price_cents AS unit_price_cents
		FROM cart_items ci
		JOIN books b ON b.id = ci.book_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at
		FOR UPDATE OF ci
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	return lines, nil
}

func (s *PostgresStore) UpsertCartLine(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartLine, error) {
	q := postgres.QuerierFrom(ctx, s.db)

	line := &CartLine{BookID: bookID}
	err := q.QueryRowContext(ctx, `
		INSERT INTO cart_items (id, user_id, book_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, quantity
	`, uuid.New(), userID, bookID, quantity).Scan(&line.ID, &line.Quantity)
	if err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}
	return line, nil
}

func (s *PostgresStore) DeleteCartLine(ctx context.Context, lineID uuid.UUID) error {
	q := postgres.QuerierFrom(ctx, s.db)

	res, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (s *PostgresStore) RemoveCartLine(ctx context.Context, userID, bookID uuid.UUID) error {
	q := postgres.QuerierFrom(ctx, s.db)

	res, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (s *PostgresStore) BookForSale(ctx context.Context, bookID uuid.UUID) (*BookInfo, error) {
	q := postgres.QuerierFrom(ctx, s.db)

	book := &BookInfo{}
	err := q.QueryRowContext(ctx, `
		SELECT title, stock, price_cents
		FROM books
		WHERE id = $1
	`, bookID).Scan(&book.Title, &book.Stock, &book.PriceCents)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select book: %w", err)
	}
	return book, nil
}

func (s *PostgresStore) ReserveStock(ctx context.Context, bookID uuid.UUID, quantity int) (int, error) {
	return s.inventory.Reserve(ctx, bookID, quantity)
}

func (s *PostgresStore) DebitBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	return s.account.Debit(ctx, userID, amountCents)
}

func (s *PostgresStore) CreatePurchase(ctx context.Context, p Purchase) error {
	q := postgres.QuerierFrom(ctx, s.db)

	_, err := q.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, book_id, quantity, unit_price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.UserID, p.BookID, p.Quantity, p.UnitPriceCents, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

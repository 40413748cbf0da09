// internal/ledger/account.go
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

// Account guards per-user spendable balance, in cents.
type Account struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewAccount creates an account ledger backed by the given database.
func NewAccount(db *sqlx.DB) *Account {
	return &Account{
		db:     db,
		tracer: otel.Tracer("bookmart/ledger"),
	}
}

// Debit atomically decrements the user's balance by amount and returns the
// new balance. It fails with ErrInsufficientFunds when the balance is
// smaller than amount and performs no mutation in that case. A zero amount
// is allowed: a cart of free books settles to a zero debit.
func (a *Account) Debit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	ctx, span := a.tracer.Start(ctx, "ledger.debit",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.Int64("amount_cents", amount),
		),
	)
	defer span.End()

	q := postgres.QuerierFrom(ctx, a.db)

	var balance int64
	err := q.QueryRowContext(ctx, `
		UPDATE users
		SET balance_cents = balance_cents - $2, updated_at = NOW()
		WHERE id = $1 AND balance_cents >= $2
		RETURNING balance_cents
	`, userID, amount).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, a.classifyGuardFailure(ctx, q, userID)
	}
	if err != nil {
		return 0, fmt.Errorf("debit balance: %w", err)
	}

	return balance, nil
}

// Credit atomically increments the user's balance by amount and returns the
// new balance.
func (a *Account) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	ctx, span := a.tracer.Start(ctx, "ledger.credit",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.Int64("amount_cents", amount),
		),
	)
	defer span.End()

	q := postgres.QuerierFrom(ctx, a.db)

	var balance int64
	err := q.QueryRowContext(ctx, `
		UPDATE users
		SET balance_cents = balance_cents + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance_cents
	`, userID, amount).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit balance: %w", err)
	}

	return balance, nil
}

func (a *Account) classifyGuardFailure(ctx context.Context, q postgres.Querier, userID uuid.UUID) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return ErrInsufficientFunds
}

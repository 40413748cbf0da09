// internal/checkout/implementation.go
package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookmart/internal/ledger"
)

// service implements the Service interface.
type service struct {
	store  Store
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewService creates a new checkout service instance.
func NewService(store Store, logger zerolog.Logger) Service {
	return &service{
		store:  store,
		logger: logger.With().Str("component", "checkout").Logger(),
		tracer: otel.Tracer("bookmart/checkout"),
	}
}

// Checkout converts all of the user's cart lines into purchase records in
// one transaction: lock the cart, total it, debit the balance, reserve
// stock per line, write purchases and clear the cart. On any failure the
// transaction rolls back wholesale and no state change is visible.
//
// The balance is debited before any stock is touched, so an insufficient
// balance can never leave stock decremented.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.settle",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer span.End()

	var summary *Summary
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		lines, err := s.store.CartLines(ctx, userID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// Stable order keeps stock row lock acquisition deterministic, so
		// two checkouts sharing books cannot deadlock.
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].BookID.String() < lines[j].BookID.String()
		})

		var total int64
		for _, line := range lines {
			total += line.UnitPriceCents * int64(line.Quantity)
		}

		balance, err := s.store.DebitBalance(ctx, userID, total)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		purchases := make([]Purchase, 0, len(lines))
		for _, line := range lines {
			if _, err := s.store.ReserveStock(ctx, line.BookID, line.Quantity); err != nil {
				return err
			}

			purchase := Purchase{
				ID:             uuid.New(),
				UserID:         userID,
				BookID:         line.BookID,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
				CreatedAt:      now,
			}
			if err := s.store.CreatePurchase(ctx, purchase); err != nil {
				return fmt.Errorf("create purchase: %w", err)
			}
			if err := s.store.DeleteCartLine(ctx, line.ID); err != nil {
				return fmt.Errorf("clear cart line: %w", err)
			}
			purchases = append(purchases, purchase)
		}

		summary = &Summary{
			TotalCents:   total,
			BalanceCents: balance,
			Purchases:    purchases,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID.String()).
		Int64("total_cents", summary.TotalCents).
		Int("lines", len(summary.Purchases)).
		Msg("checkout committed")

	return summary, nil
}

// AddItem puts quantity units of a book into the user's cart, accumulating
// with any existing line for the same book. Stock is checked at read time
// as a courtesy; it is reserved only at checkout, so an abandoned cart
// never ties up inventory.
func (s *service) AddItem(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartLine, error) {
	if quantity <= 0 {
		return nil, ledger.ErrInvalidQuantity
	}

	var line *CartLine
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		book, err := s.store.BookForSale(ctx, bookID)
		if err != nil {
			return err
		}

		line, err = s.store.UpsertCartLine(ctx, userID, bookID, quantity)
		if err != nil {
			return fmt.Errorf("upsert cart line: %w", err)
		}
		if line.Quantity > book.Stock {
			return ledger.ErrInsufficientStock
		}

		line.Title = book.Title
		line.UnitPriceCents = book.PriceCents
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// RemoveItem deletes the cart line for the given book. Stock is not
// touched: nothing was reserved when the line was added.
func (s *service) RemoveItem(ctx context.Context, userID, bookID uuid.UUID) error {
	return s.store.RemoveCartLine(ctx, userID, bookID)
}

// Cart returns the user's cart lines and running total.
func (s *service) Cart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	lines, err := s.store.CartLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	cart := &Cart{Lines: lines}
	for _, line := range lines {
		cart.TotalCents += line.UnitPriceCents * int64(line.Quantity)
	}
	if cart.Lines == nil {
		cart.Lines = []CartLine{}
	}
	return cart, nil
}

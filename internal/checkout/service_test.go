// internal/checkout/service_test.go
package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmart/internal/ledger"
)

func newTestService(store *fakeStore) Service {
	return NewService(store, zerolog.Nop())
}

func TestCheckout_Success(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(10000)
	bookID := store.addBook("The Go Programming Language", 3000, 5)
	store.addCartLine(userID, bookID, 2)

	summary, err := newTestService(store).Checkout(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(6000), summary.TotalCents)
	assert.Equal(t, int64(4000), summary.BalanceCents)
	require.Len(t, summary.Purchases, 1)
	assert.Equal(t, bookID, summary.Purchases[0].BookID)
	assert.Equal(t, 2, summary.Purchases[0].Quantity)
	assert.Equal(t, int64(3000), summary.Purchases[0].UnitPriceCents)

	assert.Equal(t, int64(4000), store.balances[userID])
	assert.Equal(t, 3, store.books[bookID].stock)
	assert.Empty(t, store.carts[userID])
	assert.Len(t, store.purchases, 1)
}

func TestCheckout_MultipleLines(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(10000)
	first := store.addBook("Book A", 1500, 3)
	second := store.addBook("Book B", 2000, 2)
	store.addCartLine(userID, first, 2)
	store.addCartLine(userID, second, 1)

	summary, err := newTestService(store).Checkout(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, int64(5000), summary.TotalCents)
	assert.Equal(t, int64(5000), summary.BalanceCents)
	assert.Len(t, summary.Purchases, 2)
	assert.Equal(t, 1, store.books[first].stock)
	assert.Equal(t, 1, store.books[second].stock)
	assert.Empty(t, store.carts[userID])
}

func TestCheckout_InsufficientFunds(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(1000)
	bookID := store.addBook("Pricey", 3000, 5)
	store.addCartLine(userID, bookID, 1)

	svc := newTestService(store)

	// Rejection is idempotent: an unchanged insufficient balance yields the
	// same outcome twice with no state change.
	for i := 0; i < 2; i++ {
		_, err := svc.Checkout(context.Background(), userID)
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		assert.Equal(t, int64(1000), store.balances[userID])
		assert.Equal(t, 5, store.books[bookID].stock)
		assert.Len(t, store.carts[userID], 1)
		assert.Empty(t, store.purchases)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(5000)

	_, err := newTestService(store).Checkout(context.Background(), userID)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, int64(5000), store.balances[userID])
}

func TestCheckout_InsufficientStock(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(100000)
	bookID := store.addBook("Scarce", 1000, 1)
	store.addCartLine(userID, bookID, 2)

	_, err := newTestService(store).Checkout(context.Background(), userID)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	// The debit ran before the failed reservation; rollback must restore it.
	assert.Equal(t, int64(100000), store.balances[userID])
	assert.Equal(t, 1, store.books[bookID].stock)
	assert.Len(t, store.carts[userID], 1)
	assert.Empty(t, store.purchases)
}

func TestCheckout_StorageFailureRollsBackEverything(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(10000)
	first := store.addBook("Book A", 1000, 5)
	second := store.addBook("Book B", 1000, 5)
	store.addCartLine(userID, first, 1)
	store.addCartLine(userID, second, 1)

	// Fail after the first purchase record is written.
	store.purchaseFailAt = 2
	store.purchaseErr = errors.New("disk full")

	_, err := newTestService(store).Checkout(context.Background(), userID)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmptyCart)

	assert.Empty(t, store.purchases)
	assert.Len(t, store.carts[userID], 2)
	assert.Equal(t, int64(10000), store.balances[userID])
	assert.Equal(t, 5, store.books[first].stock)
	assert.Equal(t, 5, store.books[second].stock)
}

func TestCheckout_ZeroTotal(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(0)
	bookID := store.addBook("Free Sampler", 0, 3)
	store.addCartLine(userID, bookID, 1)

	summary, err := newTestService(store).Checkout(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalCents)
	assert.Equal(t, int64(0), summary.BalanceCents)
	assert.Equal(t, 2, store.books[bookID].stock)
}

func TestCheckout_ConcurrentSameCart(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(10000)
	bookID := store.addBook("Contested", 2000, 10)
	store.addCartLine(userID, bookID, 1)

	svc := newTestService(store)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), userID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var committed, emptied int
	for err := range errs {
		switch {
		case err == nil:
			committed++
		case errors.Is(err, ErrEmptyCart):
			emptied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly one checkout commits; the loser observes the emptied cart.
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, emptied)
	assert.Equal(t, int64(8000), store.balances[userID])
	assert.Equal(t, 9, store.books[bookID].stock)
	assert.Len(t, store.purchases, 1)
}

func TestReserveStock_ConcurrentNeverOverdraws(t *testing.T) {
	store := newFakeStore()
	bookID := store.addBook("Hot Item", 1000, 30)

	const attempts = 50
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ReserveStock(context.Background(), bookID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ledger.ErrInsufficientStock)
		}
	}

	assert.Equal(t, 30, succeeded)
	assert.Equal(t, 0, store.books[bookID].stock)
}

func TestDebitBalance_ConcurrentNeverOverdraws(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(3000)

	const attempts = 40
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.DebitBalance(context.Background(), userID, 100)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		}
	}

	assert.Equal(t, 30, succeeded)
	assert.Equal(t, int64(0), store.balances[userID])
}

func TestAddItem_AccumulatesQuantity(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(0)
	bookID := store.addBook("Stacked", 500, 10)

	svc := newTestService(store)

	line, err := svc.AddItem(context.Background(), userID, bookID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, int64(500), line.UnitPriceCents)

	line, err = svc.AddItem(context.Background(), userID, bookID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	require.Len(t, store.carts[userID], 1)
}

func TestAddItem_RejectsBeyondStock(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(0)
	bookID := store.addBook("Nearly Gone", 500, 2)

	svc := newTestService(store)

	_, err := svc.AddItem(context.Background(), userID, bookID, 3)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	assert.Empty(t, store.carts[userID])

	// Accumulation past stock is rejected and rolled back too.
	_, err = svc.AddItem(context.Background(), userID, bookID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, bookID, 1)
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	require.Len(t, store.carts[userID], 1)
	assert.Equal(t, 2, store.carts[userID][0].Quantity)
}

func TestAddItem_Validation(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(0)

	svc := newTestService(store)

	_, err := svc.AddItem(context.Background(), userID, store.addBook("X", 100, 1), 0)
	require.ErrorIs(t, err, ledger.ErrInvalidQuantity)

	_, err = svc.AddItem(context.Background(), userID, uuid.New(), 1)
	require.ErrorIs(t, err, ledger.ErrBookNotFound)
}

func TestRemoveItem(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(0)
	bookID := store.addBook("Removable", 100, 5)
	store.addCartLine(userID, bookID, 1)

	svc := newTestService(store)

	require.NoError(t, svc.RemoveItem(context.Background(), userID, bookID))
	assert.Empty(t, store.carts[userID])

	err := svc.RemoveItem(context.Background(), userID, bookID)
	require.ErrorIs(t, err, ErrLineNotFound)

	// Removal does not touch stock: nothing was reserved at add time.
	assert.Equal(t, 5, store.books[bookID].stock)
}

func TestCart_Totals(t *testing.T) {
	store := newFakeStore()
	userID := store.addUser(0)
	first := store.addBook("A", 1000, 5)
	second := store.addBook("B", 250, 5)
	store.addCartLine(userID, first, 2)
	store.addCartLine(userID, second, 4)

	cart, err := newTestService(store).Cart(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
	assert.Equal(t, int64(3000), cart.TotalCents)
}

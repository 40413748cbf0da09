// internal/checkout/fake_store_test.go
package checkout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"bookmart/internal/ledger"
)

type fakeBook struct {
	title      string
	stock      int
	priceCents int64
}

// fakeStore is an in-memory Store. A mutex held for the whole of WithTx
// serializes transactions the way row locks do in Postgres, and a snapshot
// taken at transaction start restores state on rollback.
type fakeStore struct {
	mu        sync.Mutex
	books     map[uuid.UUID]*fakeBook
	balances  map[uuid.UUID]int64
	carts     map[uuid.UUID][]CartLine
	purchases []Purchase

	// purchaseFailAt injects a storage failure on the nth CreatePurchase
	// call (1-based). Zero disables injection.
	purchaseFailAt int
	purchaseCalls  int
	purchaseErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:    make(map[uuid.UUID]*fakeBook),
		balances: make(map[uuid.UUID]int64),
		carts:    make(map[uuid.UUID][]CartLine),
	}
}

func (f *fakeStore) addBook(title string, priceCents int64, stock int) uuid.UUID {
	id := uuid.New()
	f.books[id] = &fakeBook{title: title, stock: stock, priceCents: priceCents}
	return id
}

func (f *fakeStore) addUser(balanceCents int64) uuid.UUID {
	id := uuid.New()
	f.balances[id] = balanceCents
	return id
}

func (f *fakeStore) addCartLine(userID, bookID uuid.UUID, quantity int) {
	f.carts[userID] = append(f.carts[userID], CartLine{
		ID:       uuid.New(),
		BookID:   bookID,
		Quantity: quantity,
	})
}

type fakeTxKey struct{}

func (f *fakeStore) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(fakeTxKey{}).(bool)
	return v
}

// lock acquires the store mutex unless the caller already holds it through
// WithTx.
func (f *fakeStore) lock(ctx context.Context) func() {
	if f.inTx(ctx) {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

type fakeSnapshot struct {
	books         map[uuid.UUID]*fakeBook
	balances      map[uuid.UUID]int64
	carts         map[uuid.UUID][]CartLine
	purchases     []Purchase
	purchaseCalls int
}

func (f *fakeStore) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		books:         make(map[uuid.UUID]*fakeBook, len(f.books)),
		balances:      make(map[uuid.UUID]int64, len(f.balances)),
		carts:         make(map[uuid.UUID][]CartLine, len(f.carts)),
		purchases:     append([]Purchase(nil), f.purchases...),
		purchaseCalls: f.purchaseCalls,
	}
	for id, b := range f.books {
		copied := *b
		snap.books[id] = &copied
	}
	for id, bal := range f.balances {
		snap.balances[id] = bal
	}
	for id, lines := range f.carts {
		snap.carts[id] = append([]CartLine(nil), lines...)
	}
	return snap
}

func (f *fakeStore) restore(snap fakeSnapshot) {
	f.books = snap.books
	f.balances = snap.balances
	f.carts = snap.carts
	f.purchases = snap.purchases
	f.purchaseCalls = snap.purchaseCalls
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if f.inTx(ctx) {
		return fn(ctx)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeStore) CartLines(ctx context.Context, userID uuid.UUID) ([]CartLine, error) {
	defer f.lock(ctx)()

	lines := make([]CartLine, 0, len(f.carts[userID]))
	for _, line := range f.carts[userID] {
		book := f.books[line.BookID]
		line.Title = book.title
		line.UnitPriceCents = book.priceCents
		lines = append(lines, line)
	}
	return lines, nil
}

func (f *fakeStore) UpsertCartLine(ctx context.Context, userID, bookID uuid.UUID, quantity int) (*CartLine, error) {
	defer f.lock(ctx)()

	lines := f.carts[userID]
	for i := range lines {
		if lines[i].BookID == bookID {
			lines[i].Quantity += quantity
			line := lines[i]
			return &line, nil
		}
	}

	line := CartLine{ID: uuid.New(), BookID: bookID, Quantity: quantity}
	f.carts[userID] = append(lines, line)
	return &line, nil
}

func (f *fakeStore) DeleteCartLine(ctx context.Context, lineID uuid.UUID) error {
	defer f.lock(ctx)()

	for userID, lines := range f.carts {
		for i := range lines {
			if lines[i].ID == lineID {
				f.carts[userID] = append(lines[:i], lines[i+1:]...)
				return nil
			}
		}
	}
	return ErrLineNotFound
}

func (f *fakeStore) RemoveCartLine(ctx context.Context, userID, bookID uuid.UUID) error {
	defer f.lock(ctx)()

	lines := f.carts[userID]
	for i := range lines {
		if lines[i].BookID == bookID {
			f.carts[userID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrLineNotFound
}

func (f *fakeStore) BookForSale(ctx context.Context, bookID uuid.UUID) (*BookInfo, error) {
	defer f.lock(ctx)()

	book, ok := f.books[bookID]
	if !ok {
		return nil, ledger.ErrBookNotFound
	}
	return &BookInfo{Title: book.title, Stock: book.stock, PriceCents: book.priceCents}, nil
}

func (f *fakeStore) ReserveStock(ctx context.Context, bookID uuid.UUID, quantity int) (int, error) {
	defer f.lock(ctx)()

	if quantity <= 0 {
		return 0, ledger.ErrInvalidQuantity
	}
	book, ok := f.books[bookID]
	if !ok {
		return 0, ledger.ErrBookNotFound
	}
	if book.stock < quantity {
		return 0, ledger.ErrInsufficientStock
	}
	book.stock -= quantity
	return book.stock, nil
}

func (f *fakeStore) ReleaseStock(ctx context.Context, bookID uuid.UUID, quantity int) (int, error) {
	defer f.lock(ctx)()

	if quantity <= 0 {
		return 0, ledger.ErrInvalidQuantity
	}
	book, ok := f.books[bookID]
	if !ok {
		return 0, ledger.ErrBookNotFound
	}
	book.stock += quantity
	return book.stock, nil
}

func (f *fakeStore) DebitBalance(ctx context.Context, userID uuid.UUID, amountCents int64) (int64, error) {
	defer f.lock(ctx)()

	if amountCents < 0 {
		return 0, ledger.ErrInvalidAmount
	}
	balance, ok := f.balances[userID]
	if !ok {
		return 0, ledger.ErrUserNotFound
	}
	if balance < amountCents {
		return 0, ledger.ErrInsufficientFunds
	}
	f.balances[userID] = balance - amountCents
	return f.balances[userID], nil
}

func (f *fakeStore) CreatePurchase(ctx context.Context, p Purchase) error {
	defer f.lock(ctx)()

	f.purchaseCalls++
	if f.purchaseFailAt > 0 && f.purchaseCalls == f.purchaseFailAt {
		return f.purchaseErr
	}
	f.purchases = append(f.purchases, p)
	return nil
}

// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookmart/internal/ledger"
	"bookmart/internal/postgres"
)

// service implements the Service interface.
type service struct {
	db        *sqlx.DB
	inventory *ledger.Inventory
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, inventory *ledger.Inventory) Service {
	return &service{
		db:        db,
		inventory: inventory,
	}
}

// AddBook creates a new book in the catalog.
func (s *service) AddBook(ctx context.Context, isbn, title, author string, priceCents int64, stock int) (*Book, error) {
	if priceCents < 0 || stock < 0 {
		return nil, fmt.Errorf("price and stock must be non-negative")
	}

	book := &Book{
		ID:         uuid.New(),
		ISBN:       isbn,
		Title:      title,
		Author:     author,
		PriceCents: priceCents,
		Stock:      stock,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO books (id, isbn, title, author, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, book.ID, book.ISBN, book.Title, book.Author, book.PriceCents, book.Stock).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, ErrISBNTaken
		}
		return nil, fmt.Errorf("insert book: %w", err)
	}

	return book, nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	book := &Book{}
	err := s.db.GetContext(ctx, book, `
		SELECT id, isbn, title, author, price_cents, stock, created_at, updated_at
		FROM books
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns the catalog ordered by title.
func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	var books []*Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT id, isbn, title, author, price_cents, stock, created_at, updated_at
		FROM books
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Restock adds quantity units of stock through the inventory ledger.
func (s *service) Restock(ctx context.Context, id uuid.UUID, quantity int) (*Book, error) {
	if _, err := s.inventory.Release(ctx, id, quantity); err != nil {
		if err == ledger.ErrBookNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetBook(ctx, id)
}

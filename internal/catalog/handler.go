// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookmart/internal/httpx"
	"bookmart/internal/ledger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleAddBook creates a catalog entry.
func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ISBN       string `json:"isbn"`
		Title      string `json:"title"`
		Author     string `json:"author"`
		PriceCents int64  `json:"price_cents"`
		Stock      int    `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}
	if req.ISBN == "" || req.Title == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_required_field", "isbn and title are required")
		return
	}

	book, err := h.service.AddBook(r.Context(), req.ISBN, req.Title, req.Author, req.PriceCents, req.Stock)
	if err != nil {
		if errors.Is(err, ErrISBNTaken) {
			httpx.WriteError(w, http.StatusConflict, "isbn_taken", err.Error())
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, book)
}

// HandleListBooks returns the catalog.
func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if books == nil {
		books = []*Book{}
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

// HandleGetBook returns one book.
func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid book ID")
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "book_not_found", err.Error())
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, book)
}

// HandleRestock adds stock to a book.
func (h *Handler) HandleRestock(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid book ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	book, err := h.service.Restock(r.Context(), id, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "book_not_found", err.Error())
		case errors.Is(err, ledger.ErrInvalidQuantity):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
		default:
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, book)
}

// internal/checkout/handler.go
package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bookmart/internal/accounts"
	"bookmart/internal/httpx"
	"bookmart/internal/ledger"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleCheckout settles the authenticated user's cart.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	summary, err := h.service.Checkout(r.Context(), userID)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, summary)
}

// HandleCart returns the authenticated user's cart.
func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	cart, err := h.service.Cart(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, cart)
}

// HandleAddItem adds a book to the authenticated user's cart.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	var req struct {
		BookID   uuid.UUID `json:"book_id"`
		Quantity int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	line, err := h.service.AddItem(r.Context(), userID, req.BookID, req.Quantity)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, line)
}

// HandleRemoveItem removes a book from the authenticated user's cart.
func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := accounts.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid book ID")
		return
	}

	if err := h.service.RemoveItem(r.Context(), userID, bookID); err != nil {
		writeCheckoutError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeCheckoutError maps the settlement error taxonomy onto status codes
// and machine-readable codes. This is the only place business outcomes turn
// into HTTP statuses.
func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		httpx.WriteError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		httpx.WriteError(w, http.StatusBadRequest, "insufficient_funds", err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock):
		httpx.WriteError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, ledger.ErrInvalidQuantity):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, ledger.ErrBookNotFound):
		httpx.WriteError(w, http.StatusNotFound, "book_not_found", err.Error())
	case errors.Is(err, ErrLineNotFound):
		httpx.WriteError(w, http.StatusNotFound, "cart_line_not_found", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

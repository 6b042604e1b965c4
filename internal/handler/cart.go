package handler

import (
	"net/http"

	"github.com/lavandier/parfum-shop/internal/domain/cart"
)

type cartRequest struct {
	UserID string      `json:"user_id"`
	Items  []cart.Line `json:"items"`
}

// GetCart returns the caller's cart lines.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id required", nil)
		return
	}

	lines, err := h.carts.ListByUser(r.Context(), userID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if lines == nil {
		lines = []cart.Line{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": lines})
}

// ReplaceCart swaps the caller's cart for the given lines.
func (h *Handler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id required", nil)
		return
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			writeError(w, r, http.StatusBadRequest, "quantity must be greater than 0", nil)
			return
		}
	}

	if err := h.carts.Replace(r.Context(), req.UserID, req.Items); err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"items": req.Items})
}

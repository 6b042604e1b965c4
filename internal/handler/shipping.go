package handler

import (
	"net/http"

	"github.com/lavandier/parfum-shop/internal/domain/shipping"
)

type quoteRequest struct {
	PostalCode string `json:"postal_code"`
	Items      []struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

// QuoteShipping computes delivery options for a prospective cart without
// touching stock or creating anything.
func (h *Handler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PostalCode == "" {
		writeError(w, r, http.StatusBadRequest, "postal_code required", nil)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items required", nil)
		return
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, r, http.StatusBadRequest, "quantity must be greater than 0", nil)
			return
		}
		ids[i] = item.VariantID
	}

	found, err := h.variants.GetActiveWithStock(r.Context(), ids)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	byID := make(map[string]int, len(found))
	for i, vs := range found {
		byID[vs.Variant.ID] = i
	}

	items := make([]shipping.Item, 0, len(req.Items))
	var missing []string
	for _, item := range req.Items {
		i, ok := byID[item.VariantID]
		if !ok {
			missing = append(missing, item.VariantID)
			continue
		}
		v := found[i].Variant
		items = append(items, shipping.Item{
			VariantID:     v.ID,
			Quantity:      item.Quantity,
			WeightKg:      v.WeightKg,
			WidthCm:       v.Dimensions.WidthCm,
			HeightCm:      v.Dimensions.HeightCm,
			LengthCm:      v.Dimensions.LengthCm,
			DeclaredValue: v.Price,
		})
	}
	if len(missing) > 0 {
		writeError(w, r, http.StatusNotFound, "items not found", map[string]any{"variant_ids": missing})
		return
	}

	options := h.estimator.Estimate(r.Context(), req.PostalCode, items)
	writeJSON(w, r, http.StatusOK, map[string]any{"options": options})
}

package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lavandier/parfum-shop/internal/domain/catalog"
)

type productResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
	WeightKg float64         `json:"weight_kg"`
	WidthCm  float64         `json:"width_cm"`
	HeightCm float64         `json:"height_cm"`
	LengthCm float64         `json:"length_cm"`
}

func toProductResponse(v catalog.Variant) productResponse {
	return productResponse{
		ID:       v.ID,
		Name:     v.Name,
		Brand:    v.Brand,
		Price:    v.Price,
		WeightKg: v.WeightKg,
		WidthCm:  v.Dimensions.WidthCm,
		HeightCm: v.Dimensions.HeightCm,
		LengthCm: v.Dimensions.LengthCm,
	}
}

// ListProducts returns all active variants.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	variants, err := h.variants.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := make([]productResponse, len(variants))
	for i, v := range variants {
		resp[i] = toProductResponse(v)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// GetProduct returns one variant by ID. Inactive variants are served so
// existing order detail pages keep resolving names.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	v, err := h.variants.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found", nil)
			return
		}
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toProductResponse(*v))
}

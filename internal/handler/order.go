package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lavandier/parfum-shop/internal/domain/address"
	"github.com/lavandier/parfum-shop/internal/domain/coupon"
	"github.com/lavandier/parfum-shop/internal/domain/order"
	"github.com/lavandier/parfum-shop/internal/domain/payment"
)

type createOrderRequest struct {
	UserID        string `json:"user_id"`
	AddressID     string `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	CouponCode    string `json:"coupon_code,omitempty"`
	Items         []struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Payer struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"payer"`
}

type orderItemResponse struct {
	VariantID string          `json:"variant_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderResponse struct {
	ID                   string              `json:"id"`
	Number               string              `json:"number"`
	Status               string              `json:"status"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	ShippingCost         decimal.Decimal     `json:"shipping_cost"`
	Discount             decimal.Decimal     `json:"discount"`
	Total                decimal.Decimal     `json:"total"`
	Items                []orderItemResponse `json:"items"`
	CouponCode           string              `json:"coupon_code,omitempty"`
	ShippingCarrier      string              `json:"shipping_carrier"`
	ShippingService      string              `json:"shipping_service"`
	ShippingLeadTimeDays int                 `json:"shipping_lead_time_days"`
	CancelReason         string              `json:"cancel_reason,omitempty"`
	CancelledAt          *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
}

type createOrderResponse struct {
	Order           orderResponse `json:"order"`
	PaymentRedirect string        `json:"payment_redirect,omitempty"`
	PaymentError    string        `json:"payment_error,omitempty"`
}

type paymentResponse struct {
	PreferenceID string          `json:"preference_id"`
	Method       string          `json:"method"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}
	return orderResponse{
		ID:                   o.ID,
		Number:               o.Number,
		Status:               string(o.Status),
		Subtotal:             o.Subtotal,
		ShippingCost:         o.Shipping,
		Discount:             o.Discount,
		Total:                o.Total,
		Items:                items,
		CouponCode:           o.CouponCode,
		ShippingCarrier:      o.ShippingCarrier,
		ShippingService:      o.ShippingService,
		ShippingLeadTimeDays: o.ShippingLeadTimeDays,
		CancelReason:         o.CancelReason,
		CancelledAt:          o.CancelledAt,
		CreatedAt:            o.CreatedAt,
	}
}

// CreateOrder runs the checkout workflow and maps each precondition failure
// to its own status and error body.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" || req.AddressID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id and address_id required", nil)
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{VariantID: item.VariantID, Quantity: item.Quantity}
	}

	result, err := h.orders.CreateOrder(r.Context(), order.CreateRequest{
		UserID:        req.UserID,
		AddressID:     req.AddressID,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
		CouponCode:    req.CouponCode,
		PayerEmail:    req.Payer.Email,
		PayerName:     req.Payer.Name,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, createOrderResponse{
		Order:           toOrderResponse(result.Order),
		PaymentRedirect: result.PaymentRedirect,
		PaymentError:    result.PaymentError,
	})
}

// writeOrderError maps checkout domain errors onto HTTP statuses.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, address.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "address not found", nil)
		return
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, r, http.StatusUnprocessableEntity, "coupon not found", map[string]any{"reason": "not_found"})
		return
	case errors.Is(err, coupon.ErrExpired):
		writeError(w, r, http.StatusUnprocessableEntity, "coupon not valid at this time", map[string]any{"reason": "expired"})
		return
	case errors.Is(err, coupon.ErrExhausted):
		writeError(w, r, http.StatusUnprocessableEntity, "coupon usage limit reached", map[string]any{"reason": "exhausted"})
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, r, http.StatusBadRequest, iqErr.Error(), nil)
		return
	}

	var nfErr *order.ItemsNotFoundError
	if errors.As(err, &nfErr) {
		writeError(w, r, http.StatusNotFound, "items not found", map[string]any{"variant_ids": nfErr.VariantIDs})
		return
	}

	var stockErr *order.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, r, http.StatusUnprocessableEntity, "insufficient stock", map[string]any{"shortages": stockErr.Shortages})
		return
	}

	var minErr *coupon.BelowMinimumError
	if errors.As(err, &minErr) {
		writeError(w, r, http.StatusUnprocessableEntity, minErr.Error(), map[string]any{
			"reason":          "below_minimum",
			"min_order_value": minErr.Minimum,
		})
		return
	}

	writeInternalError(w, r, err)
}

type cancelOrderRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// CancelOrder cancels a pending or confirmed order owned by the caller.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id required", nil)
		return
	}

	o, err := h.orders.CancelOrder(r.Context(), r.PathValue("id"), req.UserID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "order not found", nil)
		case errors.Is(err, order.ErrNotCancellable):
			writeError(w, r, http.StatusConflict, "order cannot be cancelled", nil)
		default:
			writeInternalError(w, r, err)
		}
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// GetOrder returns an order with its items and payment record.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id required", nil)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found", nil)
			return
		}
		writeInternalError(w, r, err)
		return
	}

	resp := struct {
		Order   orderResponse    `json:"order"`
		Payment *paymentResponse `json:"payment,omitempty"`
	}{Order: toOrderResponse(o)}

	rec, err := h.payments.GetByOrderID(r.Context(), o.ID)
	if err == nil {
		resp.Payment = &paymentResponse{
			PreferenceID: rec.PreferenceID,
			Method:       rec.Method,
			Status:       string(rec.Status),
			Amount:       rec.Amount,
		}
	} else if !errors.Is(err, payment.ErrNotFound) {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}

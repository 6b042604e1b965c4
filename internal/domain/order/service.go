package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lavandier/parfum-shop/internal/domain/address"
	"github.com/lavandier/parfum-shop/internal/domain/catalog"
	"github.com/lavandier/parfum-shop/internal/domain/coupon"
	"github.com/lavandier/parfum-shop/internal/domain/payment"
	"github.com/lavandier/parfum-shop/internal/domain/shipping"
)

// Estimator produces delivery options for a destination and items. It never
// fails; a degraded estimator still yields at least one option.
type Estimator interface {
	Estimate(ctx context.Context, destPostalCode string, items []shipping.Item) []shipping.Option
}

// CouponValidator resolves and evaluates a coupon code against order totals.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal, shippingCost decimal.Decimal) (*coupon.Coupon, decimal.Decimal, error)
}

// ItemRequest is one requested order line.
type ItemRequest struct {
	VariantID string
	Quantity  int
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	UserID        string
	AddressID     string
	PaymentMethod string
	Items         []ItemRequest
	CouponCode    string
	PayerEmail    string
	PayerName     string
}

// CreateResult is the outcome of a successful checkout. PaymentRedirect is
// empty and PaymentError set when the gateway call failed after the order
// was already committed; the order then awaits an out-of-band payment retry.
type CreateResult struct {
	Order           *Order
	PaymentRedirect string
	PaymentError    string
}

// Service orchestrates the checkout workflow.
type Service struct {
	addresses address.Repository
	catalog   catalog.Repository
	estimator Estimator
	coupons   CouponValidator
	orders    Repository
	payments  payment.Repository
	gateway   payment.Gateway

	gatewayRetries int
	gatewayBackoff time.Duration
	now            func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(
	addresses address.Repository,
	cat catalog.Repository,
	estimator Estimator,
	coupons CouponValidator,
	orders Repository,
	payments payment.Repository,
	gateway payment.Gateway,
) *Service {
	return &Service{
		addresses:      addresses,
		catalog:        cat,
		estimator:      estimator,
		coupons:        coupons,
		orders:         orders,
		payments:       payments,
		gateway:        gateway,
		gatewayRetries: 3,
		gatewayBackoff: 200 * time.Millisecond,
		now:            time.Now,
	}
}

// CreateOrder runs the checkout workflow. Preconditions are checked in a
// fixed sequence, each with its own failure: address ownership, item
// existence, stock availability, coupon eligibility. The persistence step is
// a single transaction; the payment-preference call happens after commit so
// an external network call never holds a database transaction open.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{VariantID: item.VariantID}
		}
		ids[i] = item.VariantID
	}

	// 1. The shipping address must belong to the requesting user.
	addr, err := s.addresses.GetForUser(ctx, req.AddressID, req.UserID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrap(err, "get address")
	}

	// 2. Every requested variant must resolve to an active variant.
	fetched, err := s.catalog.GetActiveWithStock(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}

	byID := make(map[string]catalog.VariantStock, len(fetched))
	for _, vs := range fetched {
		byID[vs.Variant.ID] = vs
	}

	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ItemsNotFoundError{VariantIDs: missing}
	}

	// 3. Pre-check availability for every line, reporting all shortfalls.
	// This read is advisory only; the authoritative check re-runs under row
	// locks inside the create transaction.
	var shortages []Shortage
	for _, item := range req.Items {
		available := byID[item.VariantID].Stock.Available()
		if available < item.Quantity {
			shortages = append(shortages, Shortage{
				VariantID: item.VariantID,
				Requested: item.Quantity,
				Available: available,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	// Subtotal and shipping input from price snapshots.
	subtotal := decimal.Zero
	orderItems := make([]Item, len(req.Items))
	shipItems := make([]shipping.Item, len(req.Items))
	for i, item := range req.Items {
		v := byID[item.VariantID].Variant
		line := v.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)

		orderItems[i] = Item{
			VariantID: v.ID,
			Name:      v.Name,
			Quantity:  item.Quantity,
			UnitPrice: v.Price,
			LineTotal: line,
		}
		shipItems[i] = shipping.Item{
			VariantID:     v.ID,
			Quantity:      item.Quantity,
			WeightKg:      v.WeightKg,
			WidthCm:       v.Dimensions.WidthCm,
			HeightCm:      v.Dimensions.HeightCm,
			LengthCm:      v.Dimensions.LengthCm,
			DeclaredValue: v.Price,
		}
	}

	// Auto-select the cheapest delivery option. Callers that want a specific
	// carrier must pre-filter upstream.
	options := s.estimator.Estimate(ctx, addr.PostalCode, shipItems)
	chosen := options[0]
	shippingCost := chosen.Price

	// 4. Coupon eligibility and discount.
	discount := decimal.Zero
	if req.CouponCode != "" {
		_, amount, err := s.coupons.Validate(ctx, req.CouponCode, subtotal, shippingCost)
		if err != nil {
			return nil, err
		}
		discount = amount
	}

	total := subtotal.Add(shippingCost).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now()
	o := &Order{
		ID:                   uuid.New().String(),
		Number:               newOrderNumber(now),
		UserID:               req.UserID,
		AddressID:            addr.ID,
		Status:               StatusPending,
		Subtotal:             subtotal.Round(2),
		Shipping:             shippingCost.Round(2),
		Discount:             discount.Round(2),
		Total:                total.Round(2),
		Items:                orderItems,
		PaymentMethod:        req.PaymentMethod,
		CouponCode:           req.CouponCode,
		ShippingCarrier:      chosen.Carrier,
		ShippingService:      chosen.Service,
		ShippingLeadTimeDays: chosen.LeadTimeDays,
		CreatedAt:            now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		if errors.Is(err, coupon.ErrExhausted) {
			return nil, coupon.ErrExhausted
		}
		return nil, errors.Wrap(err, "create order")
	}

	result := &CreateResult{Order: o}
	s.createPaymentPreference(ctx, req, o, result)
	return result, nil
}

// createPaymentPreference calls the gateway after the order transaction has
// committed. Failure leaves the order PENDING without a payment record; the
// error is reported to the caller but the order stands.
func (s *Service) createPaymentPreference(ctx context.Context, req CreateRequest, o *Order, result *CreateResult) {
	items := make([]payment.LineItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = payment.LineItem{
			ID:        item.VariantID,
			Title:     item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	if o.Shipping.IsPositive() {
		items = append(items, payment.LineItem{
			ID:        "shipping",
			Title:     "Shipping",
			Quantity:  1,
			UnitPrice: o.Shipping,
		})
	}

	pref, err := s.createPreferenceWithRetry(ctx, payment.PreferenceRequest{
		ExternalReference: o.ID,
		Items:             items,
		Payer:             payment.Payer{Email: req.PayerEmail, Name: req.PayerName},
	})
	if err != nil {
		zctx.From(ctx).Error("payment preference creation failed, order stays pending",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		result.PaymentError = "payment could not be initialized; the order was created and payment can be retried"
		return
	}

	rec := &payment.Record{
		OrderID:      o.ID,
		PreferenceID: pref.ID,
		Method:       o.PaymentMethod,
		Status:       payment.StatusPending,
		Amount:       o.Total,
		CreatedAt:    s.now(),
	}
	if err := s.payments.Create(ctx, rec); err != nil {
		zctx.From(ctx).Error("payment record persistence failed",
			zap.String("order_id", o.ID),
			zap.String("preference_id", pref.ID),
			zap.Error(err),
		)
		result.PaymentError = "payment could not be initialized; the order was created and payment can be retried"
		return
	}

	result.PaymentRedirect = pref.RedirectURL
}

// createPreferenceWithRetry retries the gateway call with doubling backoff.
// The gateway is the only external dependency whose failure the workflow
// must report rather than absorb.
func (s *Service) createPreferenceWithRetry(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
	backoff := s.gatewayBackoff

	var lastErr error
	for attempt := 0; attempt < s.gatewayRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		pref, err := s.gateway.CreatePreference(ctx, req)
		if err == nil {
			return pref, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// CancelOrder cancels a PENDING or CONFIRMED order owned by the user,
// releasing its stock reservations. Cancelling an already-cancelled order
// fails so reservations are never double-released.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID, reason string) (*Order, error) {
	o, err := s.orders.Cancel(ctx, CancelRequest{
		OrderID: orderID,
		UserID:  userID,
		Reason:  reason,
		At:      s.now(),
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotCancellable) {
			return nil, err
		}
		return nil, errors.Wrap(err, "cancel order")
	}
	return o, nil
}

// GetOrder returns an order owned by the user.
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := s.orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

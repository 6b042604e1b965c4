// Package payment defines the payment-preference gateway contract and the
// persisted payment record. The gateway is an external collaborator; any
// implementation with this request/response shape is compatible.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no payment record exists for an order.
var ErrNotFound = errors.New("payment not found")

// Status of a payment record, driven by the gateway.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// LineItem is one billable line sent to the gateway, including the synthetic
// shipping line when shipping is charged.
type LineItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Payer is the buyer contact forwarded to the gateway.
type Payer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PreferenceRequest asks the gateway to open a checkout session.
type PreferenceRequest struct {
	ExternalReference string     `json:"external_reference"` // order id
	Items             []LineItem `json:"items"`
	Payer             Payer      `json:"payer"`
}

// Preference is the gateway's checkout session: an id to reconcile against
// and a URL the buyer is redirected to.
type Preference struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

// Gateway is the payment-preference client. Mock and real gateways are
// interchangeable behind this interface.
type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	CheckStatus(ctx context.Context, preferenceID string) (Status, error)
}

// Record is the persisted payment row, one per order, created after the
// order transaction commits.
type Record struct {
	OrderID      string
	PreferenceID string
	Method       string
	Status       Status
	Amount       decimal.Decimal
	RawResponse  []byte
	CreatedAt    time.Time
}

// Repository persists payment records.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByOrderID(ctx context.Context, orderID string) (*Record, error)
}

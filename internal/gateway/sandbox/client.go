// Package sandbox implements payment.Gateway against the sandbox payment
// provider's preference API.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lavandier/parfum-shop/internal/domain/payment"
)

// Config for the sandbox gateway client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the sandbox payment provider.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base URL required")
	}
	if cfg.Token == "" {
		return nil, errors.New("gateway: access token required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type preferenceResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"init_point"`
}

// CreatePreference opens a checkout session for the given order lines.
func (c *Client) CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode preference request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build preference request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "gateway request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var pref preferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return nil, errors.Wrap(err, "decode preference response")
	}
	if pref.ID == "" {
		return nil, errors.New("gateway returned preference without id")
	}
	return &payment.Preference{ID: pref.ID, RedirectURL: pref.RedirectURL}, nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// CheckStatus looks up the current status of a preference.
func (c *Client) CheckStatus(ctx context.Context, preferenceID string) (payment.Status, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/preferences/"+preferenceID+"/status", nil)
	if err != nil {
		return "", errors.Wrap(err, "build status request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "gateway request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode status response")
	}

	switch strings.ToUpper(body.Status) {
	case "APPROVED":
		return payment.StatusApproved, nil
	case "REJECTED":
		return payment.StatusRejected, nil
	case "CANCELLED":
		return payment.StatusCancelled, nil
	case "PENDING", "IN_PROCESS":
		return payment.StatusPending, nil
	default:
		return "", errors.Errorf("unknown gateway status %q", body.Status)
	}
}

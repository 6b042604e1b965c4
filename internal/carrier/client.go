// Package carrier implements the HTTP rate-lookup client for the external
// shipping carrier. The carrier answers with a heterogeneous array: priced
// services mixed with per-service error entries, which are dropped here so
// callers only ever see usable options.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lavandier/parfum-shop/internal/domain/shipping"
)

// Config for the carrier client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the carrier rate API. It implements shipping.RateClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a carrier client. The base URL must point at the carrier API
// root, without a trailing slash.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("carrier: base URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type rateRequest struct {
	OriginPostalCode string `json:"origin_postal_code"`
	DestPostalCode   string `json:"dest_postal_code"`
	WeightKg         float64 `json:"weight_kg"`
	WidthCm          float64 `json:"width_cm"`
	HeightCm         float64 `json:"height_cm"`
	LengthCm         float64 `json:"length_cm"`
	DeclaredValue    string  `json:"declared_value"`
}

// GetRates queries the carrier for every service it can price for the given
// package. Entries carrying an error marker are excluded rather than failing
// the whole lookup.
func (c *Client) GetRates(ctx context.Context, q shipping.Query) ([]shipping.Option, error) {
	payload, err := json.Marshal(rateRequest{
		OriginPostalCode: q.OriginPostalCode,
		DestPostalCode:   q.DestPostalCode,
		WeightKg:         q.WeightKg,
		WidthCm:          q.WidthCm,
		HeightCm:         q.HeightCm,
		LengthCm:         q.LengthCm,
		DeclaredValue:    q.DeclaredValue.StringFixed(2),
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode rate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rates", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build rate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "carrier request")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("carrier returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read rate response")
	}

	options, err := decodeRates(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode rate response")
	}
	return options, nil
}

// decodeRates streams through the carrier's rate array. Prices arrive as
// JSON numbers or numeric strings depending on the service; both are parsed
// into decimals without a float round trip.
func decodeRates(body []byte) ([]shipping.Option, error) {
	d := jx.DecodeBytes(body)

	var options []shipping.Option
	if err := d.Arr(func(d *jx.Decoder) error {
		var (
			opt    shipping.Option
			failed bool
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "carrier":
				v, err := d.Str()
				if err != nil {
					return err
				}
				opt.Carrier = v
			case "service":
				v, err := d.Str()
				if err != nil {
					return err
				}
				opt.Service = v
			case "price":
				n, err := d.Num()
				if err != nil {
					return err
				}
				price, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
				if err != nil {
					return errors.Wrap(err, "parse price")
				}
				opt.Price = price
			case "lead_time_days":
				v, err := d.Int()
				if err != nil {
					return err
				}
				opt.LeadTimeDays = v
			case "error":
				failed = true
				return d.Skip()
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return err
		}
		if !failed {
			options = append(options, opt)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return options, nil
}

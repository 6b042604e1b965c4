//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"testing"
)

type quoteRequest struct {
	PostalCode string             `json:"postal_code"`
	Items      []orderItemRequest `json:"items"`
}

func TestQuoteShipping(t *testing.T) {
	resp := doPost(t, "/api/shipping/quotes", quoteRequest{
		PostalCode: "04538-133",
		Items: []orderItemRequest{
			{VariantID: "pv-noir-edp-50", Quantity: 2},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if len(quote.Options) == 0 {
		t.Fatal("no shipping options returned")
	}

	// Options come back sorted ascending by price.
	prices := make([]float64, len(quote.Options))
	for i, o := range quote.Options {
		p, err := strconv.ParseFloat(o.Price, 64)
		if err != nil {
			t.Fatalf("parse price %q: %v", o.Price, err)
		}
		prices[i] = p
	}
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > prices[i] {
			t.Errorf("options not sorted: %.2f before %.2f", prices[i-1], prices[i])
		}
	}
}

func TestQuoteShipping_FreeShippingOverThreshold(t *testing.T) {
	// 2 x 320.00 clears the configured 350 threshold.
	resp := doPost(t, "/api/shipping/quotes", quoteRequest{
		PostalCode: "04538-133",
		Items: []orderItemRequest{
			{VariantID: "pv-oud-edp-75", Quantity: 2},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	quote := decodeJSON[quoteResponse](t, resp)
	if len(quote.Options) == 0 {
		t.Fatal("no shipping options returned")
	}
	if quote.Options[0].Price != "0" {
		t.Errorf("first option price = %s, want 0 (free shipping)", quote.Options[0].Price)
	}
	if quote.Options[0].Service != "free-shipping" {
		t.Errorf("first option service = %s, want free-shipping", quote.Options[0].Service)
	}
}

func TestQuoteShipping_UnknownVariant(t *testing.T) {
	resp := doPost(t, "/api/shipping/quotes", quoteRequest{
		PostalCode: "04538-133",
		Items: []orderItemRequest{
			{VariantID: "pv-ghost", Quantity: 1},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 6 {
		t.Fatalf("products = %d, want 6", len(products))
	}

	resp = doGet(t, "/api/products/pv-noir-edp-50")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status = %d, want 200", resp.StatusCode)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/products", nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without api key", resp.StatusCode)
	}
}

package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/infra"
)

func testClient(baseURL string) *Client {
	cfg := &infra.Config{}
	cfg.Execution.RestURL = baseURL
	cfg.Execution.AccessKey = "key"
	cfg.Execution.SecretKey = "secret"
	cfg.Execution.Passphrase = "pass"
	cfg.Execution.RatePerSec = 100
	return NewClient(cfg)
}

func marketOrder() domain.OrderRequest {
	return domain.OrderRequest{
		ClientOrderID: "trig-1",
		Symbol:        "BTC",
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeMarket,
		Size:          decimal.NewFromFloat(0.01),
	}
}

func TestClient_PlaceOrder(t *testing.T) {
	var gotPath string
	var gotBody placeOrderRequest
	var gotSign string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSign = r.Header.Get("ACCESS-SIGN")
		json.NewDecoder(r.Body).Decode(&gotBody)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"code":"00000","msg":"","data":{"orderId":"V-123","status":"NEW"}}`))
	}))
	defer server.Close()

	ack, err := testClient(server.URL).PlaceOrder(context.Background(), marketOrder())
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if gotPath != placeOrderPath {
		t.Errorf("path = %q, want %q", gotPath, placeOrderPath)
	}
	if gotSign == "" {
		t.Error("request must carry an ACCESS-SIGN header")
	}
	if gotBody.Side != "buy" || gotBody.OrderType != "market" {
		t.Errorf("wire body = %+v", gotBody)
	}
	if gotBody.ClientOrderId != "trig-1" {
		t.Error("client order id must reach the venue for dedup")
	}
	if gotBody.Price != "" {
		t.Error("market orders must not carry a price")
	}

	if ack.OrderID != "V-123" || ack.Status != "NEW" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestClient_PlaceOrder_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"code":"40001","msg":"insufficient margin"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).PlaceOrder(context.Background(), marketOrder())
	if err == nil {
		t.Fatal("Expected rejection error")
	}
	if !errors.Is(err, domain.ErrOrderRejected) {
		t.Errorf("expected ErrOrderRejected, got %v", err)
	}
	if domain.IsRetriable(err) {
		t.Error("business rejection must not be retriable")
	}
}

func TestClient_PlaceOrder_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).PlaceOrder(context.Background(), marketOrder())
	if err == nil {
		t.Fatal("Expected error on 503")
	}
	if !domain.IsRetriable(err) {
		t.Error("5xx must be retriable")
	}
}

func TestClient_CancelOrAdjust(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = map[string]string{}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"code":"00000"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	t.Run("Cancel", func(t *testing.T) {
		err := client.CancelOrAdjust(context.Background(), "BTC", "V-123", domain.Adjustment{Cancel: true})
		if err != nil {
			t.Fatalf("cancel failed: %v", err)
		}
		if gotPath != cancelOrderPath {
			t.Errorf("path = %q, want %q", gotPath, cancelOrderPath)
		}
		if gotBody["orderId"] != "V-123" {
			t.Errorf("body = %v", gotBody)
		}
	})

	t.Run("Reduce", func(t *testing.T) {
		adj := domain.Adjustment{NewSize: decimal.NewFromFloat(0.005)}
		err := client.CancelOrAdjust(context.Background(), "BTC", "V-123", adj)
		if err != nil {
			t.Fatalf("reduce failed: %v", err)
		}
		if gotPath != modifyOrderPath {
			t.Errorf("path = %q, want %q", gotPath, modifyOrderPath)
		}
		if gotBody["newSize"] != "0.005" {
			t.Errorf("body = %v", gotBody)
		}
	})
}

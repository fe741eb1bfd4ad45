package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"sentinel_go/internal/domain"
	"sentinel_go/internal/infra"
)

const (
	placeOrderPath  = "/v1/orders"
	cancelOrderPath = "/v1/orders/cancel"
	modifyOrderPath = "/v1/orders/modify"

	successCode = "00000"
)

// Client is the execution venue REST client (boundary layer). Requests are
// HMAC-signed and paced by a shared limiter so a burst of triggers cannot
// breach the venue's request budget.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *Signer
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new execution API client.
func NewClient(cfg *infra.Config) *Client {
	signer := NewSigner(
		cfg.Execution.AccessKey,
		cfg.Execution.SecretKey,
		cfg.Execution.Passphrase,
	)

	return &Client{
		baseURL: cfg.Execution.RestURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		signer:  signer,
		limiter: rate.NewLimiter(rate.Limit(cfg.Execution.RatePerSec), 1),
		logger:  slog.Default().With("module", "exchange_client"),
	}
}

// placeOrderRequest - wire struct for JSON marshaling
type placeOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`      // buy, sell
	OrderType     string `json:"orderType"` // limit, market
	Price         string `json:"price,omitempty"`
	Size          string `json:"size"`
	ReduceOnly    bool   `json:"reduceOnly,omitempty"`
	ClientOrderId string `json:"clientOid"`
}

type orderAckData struct {
	OrderId    string `json:"orderId"`
	Status     string `json:"status"`
	FilledSize string `json:"filledSize"`
	AvgPrice   string `json:"avgPrice"`
}

// PlaceOrder sends one protective order to the venue. The caller's context
// bounds the whole call including the rate-limiter wait; the venue's own
// dedup uses ClientOrderID, so a timed-out call is safe to retry once.
func (c *Client) PlaceOrder(ctx context.Context, order domain.OrderRequest) (*domain.OrderAck, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.NewNetworkError("place_order", err)
	}

	side := "buy"
	if order.Side == domain.SideSell {
		side = "sell"
	}

	reqBody := placeOrderRequest{
		Symbol:        order.Symbol,
		Side:          side,
		OrderType:     "market",
		Size:          order.Size.String(),
		ReduceOnly:    order.ReduceOnly,
		ClientOrderId: order.ClientOrderID,
	}
	if order.Type == domain.OrderTypeLimit {
		reqBody.OrderType = "limit"
		reqBody.Price = order.Price.String()
	}

	var data orderAckData
	if err := c.doRequest(ctx, "POST", placeOrderPath, reqBody, &data); err != nil {
		return nil, err
	}

	ack := &domain.OrderAck{
		OrderID: data.OrderId,
		Status:  data.Status,
	}
	if data.FilledSize != "" {
		if v, err := decimal.NewFromString(data.FilledSize); err == nil {
			ack.FilledSize = v
		}
	}
	if data.AvgPrice != "" {
		if v, err := decimal.NewFromString(data.AvgPrice); err == nil {
			ack.AvgPrice = v
		}
	}

	c.logger.Info("Order Placed", "oid", order.ClientOrderID, "symbol", order.Symbol, "side", order.Side)
	return ack, nil
}

// CancelOrAdjust cancels a resting order outright or reduces it to the
// adjustment's new size.
func (c *Client) CancelOrAdjust(ctx context.Context, symbol, orderID string, adj domain.Adjustment) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewNetworkError("cancel_or_adjust", err)
	}

	if adj.Cancel {
		reqBody := map[string]string{
			"symbol":  symbol,
			"orderId": orderID,
		}
		return c.doRequest(ctx, "POST", cancelOrderPath, reqBody, nil)
	}

	reqBody := map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
		"newSize": adj.NewSize.String(),
	}
	return c.doRequest(ctx, "POST", modifyOrderPath, reqBody, nil)
}

// doRequest handles auth headers, serialization and the response envelope.
// HTTP 5xx and 429 map to retriable errors; other non-200s and business
// rejections are fatal for the request.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonBytes)
		bodyStr = string(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	headers := c.signer.GenerateHeaders(method, path, "", bodyStr)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("request "+path, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status=%d body=%s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return domain.NewNetworkError("request "+path, err)
		}
		return domain.NewFatalNetworkError("request "+path, fmt.Errorf("%w: %v", domain.ErrOrderRejected, err))
	}

	var apiResp struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Code != successCode {
		return domain.NewFatalNetworkError("request "+path,
			fmt.Errorf("%w: code=%s msg=%s", domain.ErrOrderRejected, apiResp.Code, apiResp.Msg))
	}

	if out != nil && len(apiResp.Data) > 0 {
		if err := json.Unmarshal(apiResp.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}

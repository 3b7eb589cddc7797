package broker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// AlpacaBroker talks to the Alpaca trading and market-data REST APIs.
type AlpacaBroker struct {
	tradingURL string
	dataURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *zap.Logger

	// fillPollInterval controls how often order status is polled after
	// submission; overridable in tests.
	fillPollInterval time.Duration
}

// AlpacaConfig holds Alpaca adapter configuration.
type AlpacaConfig struct {
	TradingURL string
	DataURL    string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewAlpacaBroker creates an Alpaca REST adapter.
func NewAlpacaBroker(cfg *AlpacaConfig) (*AlpacaBroker, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("alpaca credentials cannot be empty")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &AlpacaBroker{
		tradingURL:       cfg.TradingURL,
		dataURL:          cfg.DataURL,
		apiKey:           cfg.APIKey,
		apiSecret:        cfg.APISecret,
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		logger:           cfg.Logger,
		fillPollInterval: 500 * time.Millisecond,
	}, nil
}

// latestQuoteResponse is the shape of GET /v1beta1/options/quotes/latest.
type latestQuoteResponse struct {
	Quotes map[string]struct {
		BidPrice  float64   `json:"bp"`
		AskPrice  float64   `json:"ap"`
		Timestamp time.Time `json:"t"`
	} `json:"quotes"`
}

// GetQuote fetches the latest quote for a contract from the data API.
func (b *AlpacaBroker) GetQuote(ctx context.Context, contract types.OptionContract) (*types.Quote, error) {
	symbol := contract.Symbol()

	start := time.Now()
	defer func() {
		QuoteFetchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/v1beta1/options/quotes/latest?symbols=%s", b.dataURL, symbol)

	body, err := b.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch quote %s: %w", symbol, err)
	}

	var resp latestQuoteResponse
	err = json.Unmarshal(body, &resp)
	if err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}

	q, ok := resp.Quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote returned for %s", symbol)
	}

	QuoteFetchesTotal.WithLabelValues("alpaca").Inc()

	return &types.Quote{
		Symbol:    symbol,
		Bid:       q.BidPrice,
		Ask:       q.AskPrice,
		Mark:      (q.BidPrice + q.AskPrice) / 2,
		FetchedAt: q.Timestamp,
	}, nil
}

// orderRequest is the shape of POST /v2/orders.
type orderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	LimitPrice  string `json:"limit_price"`
	TimeInForce string `json:"time_in_force"`
}

// orderResponse is the subset of the order object the adapter needs.
type orderResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

// SubmitBuy places a buy-to-open limit order and waits for the fill.
func (b *AlpacaBroker) SubmitBuy(ctx context.Context, contract types.OptionContract, quantity int, limitPrice float64) (*types.OrderResult, error) {
	return b.submitOrder(ctx, contract, "buy", quantity, limitPrice)
}

// SubmitSell places a sell-to-close limit order and waits for the fill.
func (b *AlpacaBroker) SubmitSell(ctx context.Context, contract types.OptionContract, quantity int, limitPrice float64) (*types.OrderResult, error) {
	return b.submitOrder(ctx, contract, "sell", quantity, limitPrice)
}

func (b *AlpacaBroker) submitOrder(ctx context.Context, contract types.OptionContract, side string, quantity int, limitPrice float64) (*types.OrderResult, error) {
	symbol := contract.Symbol()

	reqBody, err := json.Marshal(orderRequest{
		Symbol:      symbol,
		Qty:         strconv.Itoa(quantity),
		Side:        side,
		Type:        "limit",
		LimitPrice:  fmt.Sprintf("%.2f", limitPrice),
		TimeInForce: "day",
	})
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	url := fmt.Sprintf("%s/v2/orders", b.tradingURL)

	body, err := b.doRequest(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		OrdersTotal.WithLabelValues("alpaca", side, "error").Inc()
		return nil, fmt.Errorf("submit %s %s: %w", side, symbol, err)
	}

	var order orderResponse
	err = json.Unmarshal(body, &order)
	if err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	b.logger.Info("order-submitted",
		zap.String("order-id", order.ID),
		zap.String("symbol", symbol),
		zap.String("side", side),
		zap.Int("quantity", quantity),
		zap.Float64("limit-price", limitPrice))

	result, err := b.awaitFill(ctx, order.ID)
	if err != nil {
		OrdersTotal.WithLabelValues("alpaca", side, "error").Inc()
		return nil, err
	}

	OrdersTotal.WithLabelValues("alpaca", side, "filled").Inc()

	return result, nil
}

// awaitFill polls order status until it fills, is rejected, or the context
// expires. A context expiry is reported as a timeout, never as success:
// state must reflect confirmed reality.
func (b *AlpacaBroker) awaitFill(ctx context.Context, orderID string) (*types.OrderResult, error) {
	url := fmt.Sprintf("%s/v2/orders/%s", b.tradingURL, orderID)

	ticker := time.NewTicker(b.fillPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("await fill for order %s: %w", orderID, ErrTimeout)
		case <-ticker.C:
		}

		body, err := b.doRequest(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("poll order %s: %w", orderID, err)
		}

		var order orderResponse
		err = json.Unmarshal(body, &order)
		if err != nil {
			return nil, fmt.Errorf("decode order status: %w", err)
		}

		switch order.Status {
		case "filled":
			qty, _ := strconv.Atoi(order.FilledQty)
			price, _ := strconv.ParseFloat(order.FilledAvgPrice, 64)

			return &types.OrderResult{
				OrderID:     order.ID,
				FilledQty:   qty,
				FilledPrice: price,
				FilledAt:    time.Now(),
			}, nil
		case "rejected", "canceled", "expired":
			return nil, &types.RejectionError{
				Code:    types.ErrUnknownStatus,
				Message: fmt.Sprintf("order ended in status %q", order.Status),
				OrderID: order.ID,
			}
		default:
			// new, accepted, partially_filled: keep polling
		}
	}
}

// doRequest performs one authenticated HTTP call with the bounded client.
func (b *AlpacaBroker) doRequest(ctx context.Context, method string, url string, reqBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("APCA-API-KEY-ID", b.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", b.apiSecret)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, &types.RejectionError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: string(body),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

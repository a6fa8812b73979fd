package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"trade_quest/internal/domain"
	"trade_quest/internal/infra"

	"github.com/shopspring/decimal"
)

// Client is the Bitget V2 REST API client, used for the instrument catalog.
type Client struct {
	baseURL     string
	apiKey      string
	productType string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new Bitget API client.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL:     cfg.API.Bitget.RestURL,
		apiKey:      cfg.API.Bitget.APIKey,
		productType: cfg.API.Bitget.ProductType,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "bitget_client"),
	}
}

// FetchTradingPairs lists the tradable USDT-futures instruments with their
// latest price.
func (c *Client) FetchTradingPairs(ctx context.Context) ([]domain.TradingPair, error) {
	query := url.Values{"productType": {c.productType}}
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v2/mix/market/tickers", query)
	if err != nil {
		return nil, fmt.Errorf("bitget fetch tickers failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitget api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			Symbol string `json:"symbol"`
			LastPr string `json:"lastPr"`
		} `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Code != "00000" { // Bitget success code
		return nil, fmt.Errorf("bitget business error: code=%s msg=%s", apiResp.Code, apiResp.Msg)
	}

	now := time.Now()
	pairs := make([]domain.TradingPair, 0, len(apiResp.Data))
	for _, d := range apiResp.Data {
		price, err := decimal.NewFromString(d.LastPr)
		if err != nil {
			c.logger.Warn("skipping pair with unparseable price", "symbol", d.Symbol, "lastPr", d.LastPr)
			continue
		}
		pairs = append(pairs, domain.TradingPair{
			Symbol:    d.Symbol,
			LastPrice: price,
			IsActive:  true,
			UpdatedAt: now,
		})
	}

	c.logger.Info("fetched trading pairs", "count", len(pairs))
	return pairs, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("API-KEY", c.apiKey)
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	return c.httpClient.Do(req)
}

package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"advisor-api/pkg/market"
)

const (
	defaultBaseURL     = "https://api.coingecko.com/api/v3"
	defaultHTTPTimeout = 10 * time.Second
	defaultVsCurrency  = "usd"
	defaultMaxRetries  = 2

	defaultRetryBackoffBase = 250 * time.Millisecond
)

// Client wraps access to the public CoinGecko REST API.
type Client struct {
	baseURL    string
	vsCurrency string
	httpClient *http.Client
	maxRetries int
	logger     *log.Logger
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithVsCurrency sets the quote currency for market charts.
func WithVsCurrency(currency string) Option {
	return func(c *Client) {
		if currency != "" {
			c.vsCurrency = currency
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithLogger injects a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a CoinGecko API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		vsCurrency: defaultVsCurrency,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ListCoins fetches the full asset catalog for id resolution.
func (c *Client) ListCoins(ctx context.Context) ([]coinListEntry, error) {
	var catalog []coinListEntry
	if err := c.doGet(ctx, "/coins/list", nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// MarketChart fetches the irregular price and volume series for an asset
// over the trailing day count.
func (c *Client) MarketChart(ctx context.Context, assetID string, days int) (prices, volumes []market.TimedValue, err error) {
	if days < 1 {
		days = 1
	}
	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("days", fmt.Sprintf("%d", days))

	var payload marketChartResponse
	path := fmt.Sprintf("/coins/%s/market_chart", url.PathEscape(assetID))
	if err := c.doGet(ctx, path, params, &payload); err != nil {
		return nil, nil, err
	}
	return toTimedValues(payload.Prices), toTimedValues(payload.TotalVolumes), nil
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return market.NewFetchError(providerType, market.KindProtocol,
				fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return market.NewFetchError(providerType, market.KindTransient, ctx.Err())
			}
			lastErr = market.NewFetchError(providerType, market.KindTransient, err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = market.NewFetchError(providerType, market.KindTransient,
					fmt.Errorf("read response: %w", readErr))
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = market.NewFetchError(providerType, market.KindTransient,
					fmt.Errorf("http status %d: %s", resp.StatusCode, string(body)))
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				return market.NewFetchError(providerType, market.KindProtocol,
					fmt.Errorf("http status %d: %s", resp.StatusCode, string(body)))
			default:
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return market.NewFetchError(providerType, market.KindProtocol,
							fmt.Errorf("decode response: %w", err))
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			c.logger.Printf("coingecko: retrying %s after %v: %v", path, backoff, lastErr)
			select {
			case <-ctx.Done():
				return market.NewFetchError(providerType, market.KindTransient, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	return lastErr
}

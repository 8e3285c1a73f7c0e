package binancefutures

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"advisor-api/pkg/market"
)

// All data URLs are pinned to the futures host. The spot host
// (api.binance.com) serves an incompatible API; silently answering a futures
// request from it would be a correctness bug, not a connectivity bug.
const (
	defaultBaseURL     = "https://fapi.binance.com/fapi/v1"
	defaultHTTPTimeout = 10 * time.Second
	defaultMaxRetries  = 2

	defaultRetryBackoffBase = 150 * time.Millisecond
	// defaultRequestGap paces requests to stay well inside the documented
	// weight limit for a read-only, low-frequency polling client.
	defaultRequestGap = 100 * time.Millisecond

	maxKlineLimit = 1500
)

// Client wraps access to the futures market-data endpoints for one contract.
type Client struct {
	baseURL    string
	contract   ContractSpec
	httpClient *http.Client
	maxRetries int
	requestGap time.Duration
	logger     *log.Logger

	paceMu      sync.Mutex
	lastRequest time.Time
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client (proxy routing, timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the pinned endpoint. Intended for tests; production
// configuration keeps the futures host.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithMaxRetries adjusts the retry budget for transient failures.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithLogger injects a custom logger (defaults to log.Default()).
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a futures market-data client bound to one contract.
func NewClient(contract ContractSpec, opts ...Option) (*Client, error) {
	if err := contract.validate(); err != nil {
		return nil, err
	}
	client := &Client{
		baseURL:    defaultBaseURL,
		contract:   contract,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		requestGap: defaultRequestGap,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient.Timeout == 0 {
		client.httpClient.Timeout = defaultHTTPTimeout
	}
	return client, nil
}

// Contract returns the injected contract spec.
func (c *Client) Contract() ContractSpec {
	return c.contract
}

// Ping checks connectivity and clock sync via the /time endpoint.
func (c *Client) Ping(ctx context.Context) (time.Time, error) {
	var payload serverTimeResponse
	if err := c.doGet(ctx, "/time", nil, &payload); err != nil {
		return time.Time{}, err
	}
	if payload.ServerTime == 0 {
		return time.Time{}, market.NewFetchError(providerType, market.KindProtocol,
			fmt.Errorf("time endpoint returned zero server time"))
	}
	return time.UnixMilli(payload.ServerTime).UTC(), nil
}

// GetKlines fetches OHLCV rows for the bound contract since the given
// instant. The interval string follows the exchange convention ("1h", "4h",
// "1d").
func (c *Client) GetKlines(ctx context.Context, interval string, since time.Time, limit int) ([]Kline, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	params := url.Values{}
	params.Set("symbol", c.contract.MarketID)
	params.Set("interval", interval)
	params.Set("startTime", fmt.Sprintf("%d", since.UnixMilli()))
	params.Set("limit", fmt.Sprintf("%d", limit))

	var body json.RawMessage
	if err := c.doGet(ctx, "/klines", params, &body); err != nil {
		return nil, err
	}
	klines, err := parseKlineRows(body)
	if err != nil {
		return nil, market.NewFetchError(providerType, market.KindProtocol, err)
	}
	return klines, nil
}

// doGet performs a paced GET with retry on transient failures. Non-2xx
// statuses from the 4xx range are not retried: they indicate a rejected
// request, not a flaky connection.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		c.pace()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return market.NewFetchError(providerType, market.KindProtocol,
				fmt.Errorf("build request: %w", err))
		}

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
					fmt.Errorf("http status %d: %s", resp.StatusCode, apiErrorText(body)))
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				return market.NewFetchError(providerType, market.KindProtocol,
					fmt.Errorf("http status %d: %s", resp.StatusCode, apiErrorText(body)))
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
			c.logger.Printf("binance: retrying %s after %v: %v", path, backoff, lastErr)
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

// pace enforces a minimum gap between consecutive requests.
func (c *Client) pace() {
	if c.requestGap <= 0 {
		return
	}
	c.paceMu.Lock()
	defer c.paceMu.Unlock()
	if wait := c.requestGap - time.Since(c.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

func apiErrorText(body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return fmt.Sprintf("code=%d msg=%s", apiErr.Code, apiErr.Msg)
	}
	return string(body)
}

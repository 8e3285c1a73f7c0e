package ashare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"advisor-api/pkg/market"
)

const (
	defaultHistBaseURL = "https://push2his.eastmoney.com"
	defaultListBaseURL = "https://80.push2.eastmoney.com"
	defaultHTTPTimeout = 10 * time.Second
	defaultMaxRetries  = 2

	defaultRetryBackoffBase = 200 * time.Millisecond

	// klt 101 selects daily bars; fqt 1 selects forward-adjusted prices so
	// historical bars are comparable across splits and dividends.
	kltDaily   = "101"
	adjustQFQ  = "1"
	adjustNone = "0"
	adjustHFQ  = "2"
)

// Client wraps the A-share quote endpoints used for daily history and the
// exchange listing.
type Client struct {
	histBaseURL string
	listBaseURL string
	adjust      string
	httpClient  *http.Client
	maxRetries  int
	logger      *log.Logger
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

// WithBaseURLs overrides both endpoint roots. Intended for tests.
func WithBaseURLs(hist, list string) Option {
	return func(c *Client) {
		if hist != "" {
			c.histBaseURL = hist
		}
		if list != "" {
			c.listBaseURL = list
		}
	}
}

// WithAdjust selects the price adjustment mode: "qfq" (default), "hfq", or
// "none".
func WithAdjust(mode string) Option {
	return func(c *Client) {
		switch strings.ToLower(strings.TrimSpace(mode)) {
		case "", "qfq":
			c.adjust = adjustQFQ
		case "hfq":
			c.adjust = adjustHFQ
		case "none":
			c.adjust = adjustNone
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

// NewClient constructs an A-share market-data client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		histBaseURL: defaultHistBaseURL,
		listBaseURL: defaultListBaseURL,
		adjust:      adjustQFQ,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries:  defaultMaxRetries,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DailyBar is one adjusted daily OHLCV row.
type DailyBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type klineResponse struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

type listResponse struct {
	Data *struct {
		Total int `json:"total"`
		Diff  []struct {
			Code string `json:"f12"`
			Name string `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

// GetDailyHistory fetches adjusted daily bars for a security code over a
// calendar-date window (inclusive, YYYYMMDD strings).
func (c *Client) GetDailyHistory(ctx context.Context, code, startDate, endDate string) ([]DailyBar, error) {
	params := url.Values{}
	params.Set("secid", secID(code))
	params.Set("klt", kltDaily)
	params.Set("fqt", c.adjust)
	params.Set("beg", startDate)
	params.Set("end", endDate)
	params.Set("fields1", "f1,f2,f3,f4,f5,f6")
	params.Set("fields2", "f51,f52,f53,f54,f55,f56,f57")

	var payload klineResponse
	if err := c.doGet(ctx, c.histBaseURL+"/api/qt/stock/kline/get", params, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, market.NewFetchError(providerType, market.KindSymbolNotFound,
			fmt.Errorf("no quote data for code %s", code))
	}

	bars := make([]DailyBar, 0, len(payload.Data.Klines))
	for i, line := range payload.Data.Klines {
		bar, err := parseKlineLine(line)
		if err != nil {
			return nil, market.NewFetchError(providerType, market.KindProtocol,
				fmt.Errorf("kline row %d: %w", i, err))
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// ListSecurities implements market.ListingSource with a single catalog page
// covering both exchanges.
func (c *Client) ListSecurities(ctx context.Context) ([]market.Security, error) {
	params := url.Values{}
	params.Set("pn", "1")
	params.Set("pz", "6000")
	params.Set("po", "0")
	params.Set("np", "1")
	params.Set("fid", "f12")
	params.Set("fs", "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23")
	params.Set("fields", "f12,f14")

	var payload listResponse
	if err := c.doGet(ctx, c.listBaseURL+"/api/qt/clist/get", params, &payload); err != nil {
		return nil, err
	}
	if payload.Data == nil {
		return nil, market.NewFetchError(providerType, market.KindProtocol,
			fmt.Errorf("listing response has no data section"))
	}
	securities := make([]market.Security, 0, len(payload.Data.Diff))
	for _, entry := range payload.Data.Diff {
		if entry.Code == "" {
			continue
		}
		securities = append(securities, market.Security{Code: entry.Code, Name: entry.Name})
	}
	return securities, nil
}

// secID prefixes the exchange market id: 1 for Shanghai (codes starting
// with 6), 0 for Shenzhen and Beijing.
func secID(code string) string {
	if strings.HasPrefix(code, "6") {
		return "1." + code
	}
	return "0." + code
}

// parseKlineLine decodes one comma-separated kline row:
// date,open,close,high,low,volume,amount.
func parseKlineLine(line string) (DailyBar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return DailyBar{}, fmt.Errorf("have %d fields, want at least 7", len(fields))
	}
	date, err := time.ParseInLocation("2006-01-02", fields[0], time.UTC)
	if err != nil {
		return DailyBar{}, fmt.Errorf("parse date %q: %w", fields[0], err)
	}
	var vals [5]float64
	for i := 1; i <= 5; i++ {
		vals[i-1], err = strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return DailyBar{}, fmt.Errorf("parse field %d %q: %w", i, fields[i], err)
		}
	}
	return DailyBar{
		Date:   date,
		Open:   vals[0],
		Close:  vals[1],
		High:   vals[2],
		Low:    vals[3],
		Volume: vals[4],
	}, nil
}

func (c *Client) doGet(ctx context.Context, fullURL string, params url.Values, result interface{}) error {
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
			case resp.StatusCode >= 500:
				lastErr = market.NewFetchError(providerType, market.KindTransient,
					fmt.Errorf("http status %d", resp.StatusCode))
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
			c.logger.Printf("ashare: retrying after %v: %v", backoff, lastErr)
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

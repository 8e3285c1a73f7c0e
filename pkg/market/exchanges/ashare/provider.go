package ashare

import (
	"context"
	"fmt"
	"time"

	"advisor-api/pkg/market"
)

const (
	providerType           = "ashare"
	defaultProviderTimeout = 8 * time.Second
)

// Provider serves adjusted daily bars for A-share security codes. Lookback
// counts trading days: twice the span is requested in calendar days and the
// fetched series trimmed to the most recent N bars, so weekends and holidays
// cannot shorten the result.
type Provider struct {
	name    string
	client  *Client
	timeout time.Duration

	now func() time.Time
}

type providerConfig struct {
	timeout       time.Duration
	clientOptions []Option
}

// ProviderOption customises the A-share provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOptions = append(cfg.clientOptions, options...)
	}
}

// NewProvider constructs an A-share series provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		name:    providerType,
		client:  NewClient(cfg.clientOptions...),
		timeout: cfg.timeout,
		now:     time.Now,
	}
}

func init() {
	market.RegisterProvider(providerType, func(name string, cfg *market.ProviderConfig) (market.SeriesProvider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{WithHTTPClient(cfg.HTTPClient())}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.Adjust != "" {
			clientOptions = append(clientOptions, WithAdjust(cfg.Adjust))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		opts = append(opts, WithClientOptions(clientOptions...))
		provider := NewProvider(opts...)
		provider.name = name
		return provider, nil
	})
}

// Name implements market.SeriesProvider.
func (p *Provider) Name() string {
	return p.name
}

// Resolver returns a code/name resolver backed by this provider's listing.
func (p *Provider) Resolver(ttl time.Duration) *market.SecurityResolver {
	return market.NewSecurityResolver(p.client, ttl)
}

// ListSecurities implements market.ListingSource.
func (p *Provider) ListSecurities(ctx context.Context) ([]market.Security, error) {
	return p.client.ListSecurities(ctx)
}

// FetchSeries implements market.SeriesProvider. Only daily bars exist for
// this market; any other granularity is an invariant violation rather than
// something to silently approximate.
func (p *Provider) FetchSeries(ctx context.Context, req market.SeriesRequest) (*market.Series, error) {
	if req.Symbol.Code == "" {
		return nil, market.NewFetchError(p.name, market.KindSymbolNotFound,
			fmt.Errorf("symbol %q is not a security code", req.Symbol.String()))
	}
	if req.Timeframe != market.Timeframe1d {
		return nil, market.NewFetchError(p.name, market.KindUnsupportedContract,
			fmt.Errorf("only daily bars are available, got %s", req.Timeframe))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startDate, endDate := market.CalendarWindow(p.now(), req.Lookback)
	daily, err := p.client.GetDailyHistory(ctx, req.Symbol.Code, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return nil, market.NewFetchError(p.name, market.KindNoData,
			fmt.Errorf("no trading history for %s in %s..%s (delisted or suspended?)",
				req.Symbol.Code, startDate, endDate))
	}

	bars := make([]market.Bar, 0, len(daily))
	for _, d := range daily {
		bars = append(bars, market.Bar{
			Timestamp: d.Date,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    d.Volume,
		})
	}

	return &market.Series{
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Bars:      market.TrimToLookback(bars, req.Lookback),
		Provider:  p.name,
		Lookback:  req.Lookback,
		FetchedAt: p.now().UTC(),
	}, nil
}

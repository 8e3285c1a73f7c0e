package coingecko

import (
	"context"
	"fmt"
	"time"

	"advisor-api/pkg/market"
)

const (
	providerType           = "coingecko"
	defaultProviderTimeout = 8 * time.Second
)

// Provider adapts the aggregator to the market.SeriesProvider contract:
// resolve the base ticker to an asset id, fetch the irregular price and
// volume series, join them, and resample into bars at the requested
// granularity.
type Provider struct {
	name     string
	client   *Client
	resolver *resolver
	timeout  time.Duration

	now func() time.Time
}

type providerConfig struct {
	timeout       time.Duration
	clientOptions []Option
}

// ProviderOption customises the aggregator provider.
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

// NewProvider constructs a CoinGecko series provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	client := NewClient(cfg.clientOptions...)
	return &Provider{
		name:     providerType,
		client:   client,
		resolver: &resolver{client: client},
		timeout:  cfg.timeout,
		now:      time.Now,
	}
}

func init() {
	market.RegisterProvider(providerType, func(name string, cfg *market.ProviderConfig) (market.SeriesProvider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{WithHTTPClient(cfg.HTTPClient())}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.VsCurrency != "" {
			clientOptions = append(clientOptions, WithVsCurrency(cfg.VsCurrency))
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

// FetchSeries implements market.SeriesProvider.
func (p *Provider) FetchSeries(ctx context.Context, req market.SeriesRequest) (*market.Series, error) {
	if !req.Symbol.IsPair() {
		return nil, market.NewFetchError(p.name, market.KindSymbolNotFound,
			fmt.Errorf("symbol %q is not a BASE/QUOTE pair", req.Symbol.String()))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	assetID, err := p.resolver.Resolve(ctx, req.Symbol.Base)
	if err != nil {
		return nil, err
	}

	window := market.BarWindow(p.now(), req.Timeframe, req.Lookback)
	prices, volumes, err := p.client.MarketChart(ctx, assetID, window.Days())
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, market.NewFetchError(p.name, market.KindNoData,
			fmt.Errorf("no price samples for %s over %d days", assetID, window.Days()))
	}

	raw := market.JoinNearest(prices, volumes, req.Timeframe.Duration()/2)
	raw.Symbol = req.Symbol.String()
	bars := market.Resample(raw, req.Timeframe)
	if len(bars) == 0 {
		return nil, market.NewFetchError(p.name, market.KindNoData,
			fmt.Errorf("resampling produced no bars for %s %s", assetID, req.Timeframe))
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

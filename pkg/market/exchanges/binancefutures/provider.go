package binancefutures

import (
	"context"
	"fmt"
	"sync"
	"time"

	"advisor-api/pkg/market"
)

const (
	providerType           = "binance_futures"
	defaultProviderTimeout = 8 * time.Second
)

// Provider adapts the futures client to the market.SeriesProvider contract.
// A client is constructed lazily per contract and reused; the contract spec
// injection means no market-catalog discovery call ever happens.
type Provider struct {
	name    string
	timeout time.Duration
	options []Option

	clientsMu sync.Mutex
	clients   map[string]*Client

	// now is swappable for tests.
	now func() time.Time
}

type providerConfig struct {
	timeout       time.Duration
	clientOptions []Option
}

// ProviderOption customises the futures provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to underlying clients.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOptions = append(cfg.clientOptions, options...)
	}
}

// NewProvider constructs a futures series provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		name:    providerType,
		timeout: cfg.timeout,
		options: cfg.clientOptions,
		clients: make(map[string]*Client),
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
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
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

// FetchSeries implements market.SeriesProvider. The exchange returns native
// bars at the requested granularity, so no resampling happens on this path;
// the result is trimmed to the lookback and sorted ascending.
func (p *Provider) FetchSeries(ctx context.Context, req market.SeriesRequest) (*market.Series, error) {
	client, err := p.clientFor(req.Symbol)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	window := market.BarWindow(p.now(), req.Timeframe, req.Lookback)
	klines, err := client.GetKlines(ctx, string(req.Timeframe), window.Start, req.Lookback+2)
	if err != nil {
		return nil, err
	}
	if len(klines) == 0 {
		return nil, market.NewFetchError(p.name, market.KindNoData,
			fmt.Errorf("empty kline response for %s %s", client.Contract().MarketID, req.Timeframe))
	}

	bars := make([]market.Bar, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, market.Bar{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
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

// Ping probes connectivity through an ephemeral BTC/USDT client.
func (p *Provider) Ping(ctx context.Context) error {
	client, err := p.clientFor(market.Symbol{Base: "BTC", Quote: "USDT"})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	_, err = client.Ping(ctx)
	return err
}

func (p *Provider) clientFor(sym market.Symbol) (*Client, error) {
	spec, err := NewContractSpec(sym)
	if err != nil {
		return nil, err
	}
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if client, ok := p.clients[spec.MarketID]; ok {
		return client, nil
	}
	client, err := NewClient(spec, p.options...)
	if err != nil {
		return nil, err
	}
	p.clients[spec.MarketID] = client
	return client, nil
}

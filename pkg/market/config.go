package market

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"advisor-api/pkg/confkit"
)

// Config describes the providers available to the retrieval pipeline and the
// fallback chain the orchestrator walks through.
type Config struct {
	Default   string                     `yaml:"default"`
	Fallback  FallbackConfig             `yaml:"fallback"`
	Proxy     *ProxyConfig               `yaml:"proxy,omitempty"`
	Providers map[string]*ProviderConfig `yaml:"providers"`

	CacheTTLRaw string        `yaml:"cache_ttl"`
	CacheTTL    time.Duration `yaml:"-"`
}

// FallbackConfig controls the primary-to-secondary hop.
type FallbackConfig struct {
	Enabled bool     `yaml:"enabled"`
	Chain   []string `yaml:"chain"`
}

// ProxyConfig carries optional HTTP/HTTPS proxy URLs. Absence degrades to a
// direct connection, never an error.
type ProxyConfig struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// ProviderConfig represents configuration for a single provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url"`
	// VsCurrency is the aggregator quote currency (coingecko only).
	VsCurrency string `yaml:"vs_currency"`
	// Adjust selects the price adjustment mode for equities history.
	Adjust string `yaml:"adjust"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`

	// Proxy is inherited from the top-level config during normalisation.
	Proxy *ProxyConfig `yaml:"-"`
}

// ProviderBuilder constructs a SeriesProvider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (SeriesProvider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a provider constructor under a type name.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	if c.Proxy != nil {
		c.Proxy.HTTP = strings.TrimSpace(os.ExpandEnv(c.Proxy.HTTP))
		c.Proxy.HTTPS = strings.TrimSpace(os.ExpandEnv(c.Proxy.HTTPS))
		if c.Proxy.HTTP == "" && c.Proxy.HTTPS == "" {
			c.Proxy = nil
		}
	}
	c.CacheTTLRaw = strings.TrimSpace(os.ExpandEnv(c.CacheTTLRaw))
	if c.CacheTTLRaw != "" {
		d, err := time.ParseDuration(c.CacheTTLRaw)
		if err != nil {
			return fmt.Errorf("market config: invalid cache_ttl %q: %w", c.CacheTTLRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market config: cache_ttl must be positive, got %s", d)
		}
		c.CacheTTL = d
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		provider.Proxy = c.Proxy
		if err := provider.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.VsCurrency = strings.TrimSpace(os.ExpandEnv(p.VsCurrency))
	p.Adjust = strings.TrimSpace(os.ExpandEnv(p.Adjust))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.HTTPTimeoutRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw != "" {
		d, err := time.ParseDuration(p.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: timeout must be positive, got %s", name, d)
		}
		p.Timeout = d
	}
	if p.HTTPTimeoutRaw != "" {
		d, err := time.ParseDuration(p.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid http_timeout %q: %w", name, p.HTTPTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: http_timeout must be positive, got %s", name, d)
		}
		p.HTTPTimeout = d
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("market config: default provider %q not defined", c.Default)
		}
	}
	for _, name := range c.Fallback.Chain {
		if _, ok := c.Providers[name]; !ok {
			return fmt.Errorf("market config: fallback chain member %q not defined", name)
		}
	}
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
	}
	return nil
}

// BuildProviders instantiates providers according to configuration.
func (c *Config) BuildProviders() (map[string]SeriesProvider, error) {
	result := make(map[string]SeriesProvider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}

// BuildOrchestrator instantiates the providers and wires them into an
// orchestrator following the configured fallback chain. With no chain
// configured the default provider runs alone.
func (c *Config) BuildOrchestrator(extra ...OrchestratorOption) (*Orchestrator, error) {
	providers, err := c.BuildProviders()
	if err != nil {
		return nil, err
	}
	names := c.Fallback.Chain
	if len(names) == 0 {
		if c.Default == "" {
			return nil, fmt.Errorf("market config: no fallback chain and no default provider")
		}
		names = []string{c.Default}
	}
	chain := make([]SeriesProvider, 0, len(names))
	for _, name := range names {
		chain = append(chain, providers[name])
	}
	opts := append([]OrchestratorOption{
		WithFallbackEnabled(c.Fallback.Enabled),
		WithCache(NewRetrievalCache(c.CacheTTL)),
	}, extra...)
	return NewOrchestrator(chain, opts...), nil
}

// HTTPClient builds an http.Client honouring the provider's proxy and
// timeout settings. Without a proxy the default transport is used.
func (p *ProviderConfig) HTTPClient() *http.Client {
	client := &http.Client{}
	if p.HTTPTimeout > 0 {
		client.Timeout = p.HTTPTimeout
	}
	if transport := p.Proxy.transport(); transport != nil {
		client.Transport = transport
	}
	return client
}

// transport returns a proxied transport, or nil when no proxy is configured.
func (pc *ProxyConfig) transport() *http.Transport {
	if pc == nil {
		return nil
	}
	httpURL, err1 := url.Parse(pc.HTTP)
	httpsURL, err2 := url.Parse(pc.HTTPS)
	if pc.HTTP == "" || err1 != nil {
		httpURL = nil
	}
	if pc.HTTPS == "" || err2 != nil {
		httpsURL = nil
	}
	if httpURL == nil && httpsURL == nil {
		return nil
	}
	return &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && httpsURL != nil {
				return httpsURL, nil
			}
			if httpURL != nil {
				return httpURL, nil
			}
			return httpsURL, nil
		},
	}
}

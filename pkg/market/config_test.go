package market_test

import (
	"strings"
	"testing"
	"time"

	"advisor-api/pkg/market"
	_ "advisor-api/pkg/market/exchanges/ashare"
	_ "advisor-api/pkg/market/exchanges/binancefutures"
	_ "advisor-api/pkg/market/exchanges/coingecko"
)

const sampleConfig = `
default: binance
fallback:
  enabled: true
  chain: [binance, coingecko]
cache_ttl: 5m
providers:
  binance:
    type: binance_futures
    timeout: 20s
    http_timeout: 15s
    max_retries: 3
  coingecko:
    type: coingecko
    vs_currency: usd
  eastmoney:
    type: ashare
    adjust: qfq
`

func TestLoadConfigFromReader(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Default != "binance" {
		t.Fatalf("default = %q, want binance", cfg.Default)
	}
	if !cfg.Fallback.Enabled {
		t.Fatal("fallback should be enabled")
	}
	if len(cfg.Fallback.Chain) != 2 || cfg.Fallback.Chain[1] != "coingecko" {
		t.Fatalf("chain = %v", cfg.Fallback.Chain)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Fatalf("cache ttl = %s, want 5m", cfg.CacheTTL)
	}
	binance := cfg.Providers["binance"]
	if binance.Timeout != 20*time.Second || binance.HTTPTimeout != 15*time.Second {
		t.Fatalf("binance timeouts = %s / %s", binance.Timeout, binance.HTTPTimeout)
	}
	if cfg.Providers["eastmoney"].Adjust != "qfq" {
		t.Fatalf("eastmoney adjust = %q", cfg.Providers["eastmoney"].Adjust)
	}
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("TEST_MARKET_TTL", "90s")
	t.Setenv("TEST_MARKET_VS", "eur")
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
default: coingecko
cache_ttl: ${TEST_MARKET_TTL}
providers:
  coingecko:
    type: coingecko
    vs_currency: ${TEST_MARKET_VS}
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Fatalf("cache ttl = %s, want 90s", cfg.CacheTTL)
	}
	if cfg.Providers["coingecko"].VsCurrency != "eur" {
		t.Fatalf("vs_currency = %q", cfg.Providers["coingecko"].VsCurrency)
	}
}

func TestLoadConfigProxyInheritance(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
default: binance
proxy:
  http: http://127.0.0.1:7890
providers:
  binance:
    type: binance_futures
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	p := cfg.Providers["binance"]
	if p.Proxy == nil || p.Proxy.HTTP != "http://127.0.0.1:7890" {
		t.Fatalf("provider proxy = %+v", p.Proxy)
	}
	if client := p.HTTPClient(); client.Transport == nil {
		t.Fatal("expected proxied transport")
	}
}

func TestLoadConfigEmptyProxyDropped(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
default: binance
proxy:
  http: ""
  https: ""
providers:
  binance:
    type: binance_futures
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Proxy != nil {
		t.Fatalf("proxy should be dropped, got %+v", cfg.Proxy)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{name: "no providers", yaml: `default: binance`},
		{name: "unknown default", yaml: "default: nope\nproviders:\n  binance:\n    type: binance_futures"},
		{name: "unknown chain member", yaml: "fallback:\n  chain: [ghost]\nproviders:\n  binance:\n    type: binance_futures"},
		{name: "missing type", yaml: "providers:\n  binance:\n    timeout: 5s"},
		{name: "unsupported type", yaml: "providers:\n  binance:\n    type: carrier_pigeon"},
		{name: "bad cache ttl", yaml: "cache_ttl: soon\nproviders:\n  binance:\n    type: binance_futures"},
		{name: "negative timeout", yaml: "providers:\n  binance:\n    type: binance_futures\n    timeout: -5s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := market.LoadConfigFromReader(strings.NewReader(tc.yaml)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildOrchestrator(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	orch, err := cfg.BuildOrchestrator()
	if err != nil {
		t.Fatalf("build orchestrator: %v", err)
	}
	chain := orch.Providers()
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].Name() != "binance" || chain[1].Name() != "coingecko" {
		t.Fatalf("chain = %s, %s", chain[0].Name(), chain[1].Name())
	}
}

func TestBuildOrchestratorDefaultOnly(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
default: eastmoney
providers:
  eastmoney:
    type: ashare
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	orch, err := cfg.BuildOrchestrator()
	if err != nil {
		t.Fatalf("build orchestrator: %v", err)
	}
	if chain := orch.Providers(); len(chain) != 1 || chain[0].Name() != "eastmoney" {
		t.Fatalf("chain = %v", chain)
	}
}

func TestBuildOrchestratorNoChainNoDefault(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
providers:
  binance:
    type: binance_futures
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := cfg.BuildOrchestrator(); err == nil {
		t.Fatal("expected error with no chain and no default")
	}
}

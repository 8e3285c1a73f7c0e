// Package cache defines the Redis key schema and TTL buckets shared by the
// REST service and the ingestion CLI.
package cache

import (
	"strings"
	"time"

	"advisor-api/internal/config"
)

// Namespace is the Redis key prefix for the advisor application.
const Namespace = "advisor"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Series & Price Keys ----------------------------------------------------

// SeriesKey stores the latest persisted OHLCV series for a symbol/timeframe.
func SeriesKey(provider, symbol, timeframe string) string {
	return formatKey("series", provider, symbol, timeframe)
}

// LatestCloseKey returns the provider-agnostic latest close key.
func LatestCloseKey(symbol string) string {
	return formatKey("close", "latest", symbol)
}

// LatestCloseByProviderKey scopes the latest close by provider.
func LatestCloseByProviderKey(provider, symbol string) string {
	return formatKey("close", "latest", provider, symbol)
}

// SeriesTTL is the lifetime for cached series payloads.
func SeriesTTL(t TTLSet) time.Duration {
	return t.Duration(TTLMedium)
}

// LatestCloseTTL is the lifetime for latest close entries.
func LatestCloseTTL(t TTLSet) time.Duration {
	return t.Duration(TTLShort)
}

// --- Symbol Catalog Keys ----------------------------------------------------

// SymbolCatalogKey stores a provider's listed security catalog.
func SymbolCatalogKey(provider string) string {
	return formatKey("symbols", provider)
}

// SymbolCatalogTTL is the lifetime for listed security catalogs.
func SymbolCatalogTTL(t TTLSet) time.Duration {
	return t.Duration(TTLLong)
}

// --- Analysis Keys ----------------------------------------------------------

// AnalysisKey caches the most recent AI analysis per symbol/timeframe.
func AnalysisKey(symbol, timeframe string) string {
	return formatKey("analysis", symbol, timeframe)
}

// AnalysisTTL is the lifetime for cached analyses.
func AnalysisTTL(t TTLSet) time.Duration {
	return t.Duration(TTLLong)
}

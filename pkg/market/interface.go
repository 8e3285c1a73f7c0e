package market

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Timeframe is the bar granularity of a series.
type Timeframe string

const (
	Timeframe1h Timeframe = "1h"
	Timeframe4h Timeframe = "4h"
	Timeframe1d Timeframe = "1d"
)

// ParseTimeframe validates a timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(strings.ToLower(strings.TrimSpace(s))) {
	case Timeframe1h:
		return Timeframe1h, nil
	case Timeframe4h:
		return Timeframe4h, nil
	case Timeframe1d:
		return Timeframe1d, nil
	default:
		return "", fmt.Errorf("market: unsupported timeframe %q", s)
	}
}

// Duration returns the bar width.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Bar is one fixed-interval OHLCV candle. Timestamp is the bucket open time
// in UTC.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Role identifies a provider's position in the fallback chain.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Series is an immutable snapshot of OHLCV bars for one (symbol, timeframe)
// pair, with provenance metadata. Timestamps are strictly increasing; buckets
// a provider has no trade in are dropped, not zero-filled.
type Series struct {
	Symbol    Symbol    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Bars      []Bar     `json:"bars"`
	Provider  string    `json:"provider"`
	Role      Role      `json:"role"`
	Lookback  int       `json:"lookback"`
	FetchedAt time.Time `json:"fetched_at"`
}

// LatestClose returns the most recent close price, or 0 for an empty series.
func (s *Series) LatestClose() float64 {
	if s == nil || len(s.Bars) == 0 {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// Clone returns a deep copy so cached series stay immutable.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Bars = make([]Bar, len(s.Bars))
	copy(cp.Bars, s.Bars)
	return &cp
}

// SeriesRequest describes one retrieval: a canonical symbol, the target
// granularity, and how many bars to return.
type SeriesRequest struct {
	Symbol    Symbol
	Timeframe Timeframe
	Lookback  int
}

// Validate checks request fields before any network call.
func (r SeriesRequest) Validate() error {
	if r.Symbol.IsZero() {
		return fmt.Errorf("market: request symbol is empty")
	}
	if _, err := ParseTimeframe(string(r.Timeframe)); err != nil {
		return err
	}
	if r.Lookback <= 0 {
		return fmt.Errorf("market: lookback must be positive, got %d", r.Lookback)
	}
	return nil
}

// RawPoint is one irregular price sample, optionally carrying a volume
// observation joined from a parallel series.
type RawPoint struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
	HasVolume bool
}

// RawSeries is an irregularly sampled price/volume series. It is not
// bar-shaped and must pass through Resample before reaching callers.
type RawSeries struct {
	Symbol string
	Points []RawPoint
}

// SeriesProvider is the capability the orchestrator depends on. Adapters map
// the canonical symbol to their provider-native identifier internally and
// return bars already trimmed to the requested lookback.
type SeriesProvider interface {
	Name() string
	FetchSeries(ctx context.Context, req SeriesRequest) (*Series, error)
}

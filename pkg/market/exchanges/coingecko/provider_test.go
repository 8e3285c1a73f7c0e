package coingecko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-api/pkg/market"
)

func newMockProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProvider(WithClientOptions(
		WithBaseURL(server.URL),
		WithLogger(log.New(io.Discard, "", 0)),
		WithMaxRetries(0),
	))
}

func TestProviderFetchSeries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	base := now.Add(-4 * time.Hour)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		// Irregular samples, two per hour, covering four hours.
		fmt.Fprint(w, `{"prices":[`)
		for i := 0; i < 8; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			ts := base.Add(time.Duration(i) * 30 * time.Minute).UnixMilli()
			fmt.Fprintf(w, `[%d,%g]`, ts, 68000+float64(i)*10)
		}
		fmt.Fprint(w, `],"total_volumes":[`)
		for i := 0; i < 8; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			ts := base.Add(time.Duration(i) * 30 * time.Minute).UnixMilli()
			fmt.Fprintf(w, `[%d,%g]`, ts, 100.0)
		}
		fmt.Fprint(w, `]}`)
	})
	p := newMockProvider(t, handler)
	p.now = func() time.Time { return now }

	series, err := p.FetchSeries(context.Background(), market.SeriesRequest{
		Symbol:    market.Symbol{Base: "BTC", Quote: "USDT"},
		Timeframe: market.Timeframe1h,
		Lookback:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, "coingecko", series.Provider)
	require.Len(t, series.Bars, 3)

	// Two samples per hourly bucket: open is the first, close the second,
	// volume their sum.
	first := series.Bars[0]
	assert.Equal(t, float64(200), first.Volume)
	assert.Equal(t, first.Open+10, first.Close)
	for i := 1; i < len(series.Bars); i++ {
		assert.True(t, series.Bars[i].Timestamp.After(series.Bars[i-1].Timestamp))
	}
}

func TestProviderFetchSeriesNoData(t *testing.T) {
	p := newMockProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"prices":[],"total_volumes":[]}`)
	}))

	_, err := p.FetchSeries(context.Background(), market.SeriesRequest{
		Symbol:    market.Symbol{Base: "BTC", Quote: "USDT"},
		Timeframe: market.Timeframe1h,
		Lookback:  72,
	})
	require.Error(t, err)
	var fe *market.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, market.KindNoData, fe.Kind)
}

func TestProviderFetchSeriesNonPair(t *testing.T) {
	p := NewProvider()
	_, err := p.FetchSeries(context.Background(), market.SeriesRequest{
		Symbol:    market.Symbol{Code: "600519"},
		Timeframe: market.Timeframe1h,
		Lookback:  72,
	})
	require.Error(t, err)
	assert.Equal(t, market.KindSymbolNotFound, market.KindOf(err))
}

func TestProviderFetchSeriesUnknownTicker(t *testing.T) {
	p := newMockProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/list", r.URL.Path)
		fmt.Fprint(w, `[]`)
	}))

	_, err := p.FetchSeries(context.Background(), market.SeriesRequest{
		Symbol:    market.Symbol{Base: "NOPE", Quote: "USDT"},
		Timeframe: market.Timeframe1h,
		Lookback:  72,
	})
	require.Error(t, err)
	assert.Equal(t, market.KindSymbolNotFound, market.KindOf(err))
}

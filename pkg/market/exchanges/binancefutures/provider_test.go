package binancefutures

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

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p := NewProvider(WithClientOptions(
		WithBaseURL(server.URL),
		WithLogger(log.New(io.Discard, "", 0)),
		WithMaxRetries(0),
	))
	return p
}

func TestProviderFetchSeries(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/klines", r.URL.Path)
		require.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		// 74 bars requested (72 + margin); serve them all.
		start := now.Add(-74 * time.Hour)
		fmt.Fprint(w, "[")
		for i := 0; i < 74; i++ {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			ts := start.Add(time.Duration(i) * time.Hour).UnixMilli()
			fmt.Fprint(w, klineRow(ts, 100+float64(i), 101+float64(i), 99+float64(i), 100.5+float64(i), 10))
		}
		fmt.Fprint(w, "]")
	})
	p := newTestProvider(t, handler)
	p.now = func() time.Time { return now }

	series, err := p.FetchSeries(context.Background(), market.SeriesRequest{
		Symbol:    market.Symbol{Base: "BTC", Quote: "USDT"},
		Timeframe: market.Timeframe1h,
		Lookback:  72,
	})
	require.NoError(t, err)
	require.Len(t, series.Bars, 72)
	assert.Equal(t, "binance_futures", series.Provider)
	assert.Equal(t, market.Timeframe1h, series.Timeframe)
	assert.Equal(t, 72, series.Lookback)
	assert.Equal(t, now, series.FetchedAt)

	// Margin bars are trimmed from the front, so the last bar is the newest.
	last := series.Bars[len(series.Bars)-1]
	assert.Equal(t, now.Add(-time.Hour), last.Timestamp)
	for i := 1; i < len(series.Bars); i++ {
		assert.True(t, series.Bars[i].Timestamp.After(series.Bars[i-1].Timestamp))
	}
}

func TestProviderFetchSeriesEmptyResponse(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
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

func TestProviderFetchSeriesUnsupportedSymbol(t *testing.T) {
	p := NewProvider()
	_, err := p.FetchSeries(context.Background(), market.SeriesRequest{
		Symbol:    market.Symbol{Base: "BTC", Quote: "USD"},
		Timeframe: market.Timeframe1h,
		Lookback:  72,
	})
	require.Error(t, err)
	assert.Equal(t, market.KindUnsupportedContract, market.KindOf(err))
}

func TestProviderReusesClientPerContract(t *testing.T) {
	p := NewProvider()
	first, err := p.clientFor(market.Symbol{Base: "BTC", Quote: "USDT"})
	require.NoError(t, err)
	second, err := p.clientFor(market.Symbol{Base: "BTC", Quote: "USDT"})
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := p.clientFor(market.Symbol{Base: "ETH", Quote: "USDT"})
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestProviderPing(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/time", r.URL.Path)
		fmt.Fprint(w, `{"serverTime":1717200000000}`)
	}))
	assert.NoError(t, p.Ping(context.Background()))
}

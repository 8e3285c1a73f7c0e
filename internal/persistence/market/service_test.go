package marketpersist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"advisor-api/pkg/market"
)

func TestNewServiceRequiresDB(t *testing.T) {
	assert.Nil(t, NewService(Config{}))
}

func TestRecordSeriesNilSafe(t *testing.T) {
	var s *Service
	require.NoError(t, s.RecordSeries(context.Background(), nil))
	require.NoError(t, s.UpsertSymbols(context.Background(), "binance", nil))
}

func TestDecodeSeriesRoundTrip(t *testing.T) {
	series := &market.Series{
		Symbol:    market.Symbol{Base: "BTC", Quote: "USDT"},
		Timeframe: market.Timeframe1h,
		Provider:  "binance",
		Role:      market.RolePrimary,
		Lookback:  72,
		FetchedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Bars: []market.Bar{
			{Timestamp: time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), Open: 68000, High: 68500, Low: 67800, Close: 68200, Volume: 120},
		},
	}

	payload, err := msgpack.Marshal(series)
	require.NoError(t, err)

	got, err := DecodeSeries(payload)
	require.NoError(t, err)
	assert.Equal(t, series.Symbol, got.Symbol)
	assert.Equal(t, series.Provider, got.Provider)
	require.Len(t, got.Bars, 1)
	assert.Equal(t, float64(68200), got.Bars[0].Close)
	assert.True(t, series.Bars[0].Timestamp.Equal(got.Bars[0].Timestamp))
}

func TestDecodeSeriesMalformed(t *testing.T) {
	_, err := DecodeSeries([]byte("not msgpack"))
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "40001"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.False(t, isUniqueViolation(nil))
}

package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-api/pkg/market"
)

func TestResolveStaticTable(t *testing.T) {
	// No server: static hits must never touch the network.
	r := &resolver{client: NewClient(WithBaseURL("http://127.0.0.1:0"))}

	tests := []struct {
		ticker string
		want   string
	}{
		{ticker: "BTC", want: "bitcoin"},
		{ticker: "btc", want: "bitcoin"},
		{ticker: " eth ", want: "ethereum"},
		{ticker: "AVAX", want: "avalanche-2"},
		{ticker: "MATIC", want: "matic-network"},
	}
	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			id, err := r.Resolve(context.Background(), tt.ticker)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestResolveCatalogFallback(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "/coins/list", r.URL.Path)
		fmt.Fprint(w, `[{"id":"pepe","symbol":"pepe","name":"Pepe"},{"id":"wrapped-pepe","symbol":"wpepe","name":"Wrapped Pepe"}]`)
	}))
	t.Cleanup(server.Close)
	r := &resolver{client: NewClient(WithBaseURL(server.URL), WithMaxRetries(0))}

	id, err := r.Resolve(context.Background(), "PEPE")
	require.NoError(t, err)
	assert.Equal(t, "pepe", id)

	// Catalog is cached across lookups.
	id, err = r.Resolve(context.Background(), "WPEPE")
	require.NoError(t, err)
	assert.Equal(t, "wrapped-pepe", id)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResolveNotListed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	t.Cleanup(server.Close)
	r := &resolver{client: NewClient(WithBaseURL(server.URL), WithMaxRetries(0))}

	_, err := r.Resolve(context.Background(), "NOPE")
	require.Error(t, err)
	var fe *market.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, market.KindSymbolNotFound, fe.Kind)
}

func TestResolveEmptyTicker(t *testing.T) {
	r := &resolver{client: NewClient()}
	_, err := r.Resolve(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, market.KindSymbolNotFound, market.KindOf(err))
}

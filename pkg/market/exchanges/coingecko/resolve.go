package coingecko

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"advisor-api/pkg/market"
)

// assetIDs maps common base-asset tickers to CoinGecko asset identifiers.
// The static table avoids a catalog download for the symbols this system is
// actually asked about.
var assetIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"XRP":   "ripple",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"MATIC": "matic-network",
}

const catalogTTL = time.Hour

// resolver maps base-asset tickers to provider asset ids, falling back to a
// one-time catalog listing scan on a static-table miss.
type resolver struct {
	client *Client

	mu        sync.Mutex
	catalog   []coinListEntry
	fetchedAt time.Time
}

// Resolve returns the provider asset id for a base ticker. An unresolvable
// ticker is a SymbolNotFound failure for this adapter.
func (r *resolver) Resolve(ctx context.Context, ticker string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(ticker))
	if upper == "" {
		return "", market.NewFetchError(providerType, market.KindSymbolNotFound,
			fmt.Errorf("empty ticker"))
	}
	if id, ok := assetIDs[upper]; ok {
		return id, nil
	}

	catalog, err := r.listing(ctx)
	if err != nil {
		return "", err
	}
	for _, entry := range catalog {
		if strings.EqualFold(entry.Symbol, upper) {
			return entry.ID, nil
		}
	}
	return "", market.NewFetchError(providerType, market.KindSymbolNotFound,
		fmt.Errorf("ticker %q not listed", ticker))
}

func (r *resolver) listing(ctx context.Context) ([]coinListEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.catalog != nil && time.Since(r.fetchedAt) < catalogTTL {
		return r.catalog, nil
	}
	catalog, err := r.client.ListCoins(ctx)
	if err != nil {
		if r.catalog != nil {
			return r.catalog, nil
		}
		return nil, err
	}
	r.catalog = catalog
	r.fetchedAt = time.Now()
	return catalog, nil
}

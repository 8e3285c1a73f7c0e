package main

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	marketpkg "advisor-api/pkg/market"
)

// ingestor periodically retrieves configured series so the persistence hooks
// mirror them into Postgres/Redis, and refreshes listed security catalogs for
// providers that expose one.
type ingestor struct {
	orchestrator *marketpkg.Orchestrator
	providers    map[string]marketpkg.SeriesProvider
	persistence  marketpkg.Persistence
	resolver     *marketpkg.SecurityResolver

	symbols        []string
	timeframe      marketpkg.Timeframe
	lookback       int
	interval       time.Duration
	catalogRefresh time.Duration
	delayPerSymbol time.Duration

	catalogAt map[string]time.Time
}

const (
	defaultFetchTimeout   = 30 * time.Second
	defaultCatalogTimeout = 60 * time.Second
)

func newIngestor(
	orchestrator *marketpkg.Orchestrator,
	providers map[string]marketpkg.SeriesProvider,
	persistence marketpkg.Persistence,
	resolver *marketpkg.SecurityResolver,
	symbols []string,
	timeframe marketpkg.Timeframe,
	lookback int,
	interval time.Duration,
) *ingestor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	unique := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		unique = append(unique, sym)
	}
	return &ingestor{
		orchestrator:   orchestrator,
		providers:      providers,
		persistence:    persistence,
		resolver:       resolver,
		symbols:        unique,
		timeframe:      timeframe,
		lookback:       lookback,
		interval:       interval,
		catalogRefresh: 12 * time.Hour,
		delayPerSymbol: 500 * time.Millisecond,
		catalogAt:      make(map[string]time.Time, len(providers)),
	}
}

// run starts the ingestion loop and blocks until the context is cancelled.
func (ing *ingestor) run(ctx context.Context) {
	if ing == nil || len(ing.symbols) == 0 {
		logx.Info("ingestor: no symbols configured, nothing to do")
		return
	}
	ing.refreshCatalogs(ctx, true)
	ing.refreshSeries(ctx)
	ticker := time.NewTicker(ing.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ing.refreshCatalogs(ctx, false)
			ing.refreshSeries(ctx)
		}
	}
}

func (ing *ingestor) refreshSeries(ctx context.Context) {
	for _, raw := range ing.symbols {
		if ctx.Err() != nil {
			return
		}
		ing.fetchOne(ctx, raw)
		if ing.delayPerSymbol > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(ing.delayPerSymbol):
			}
		}
	}
}

func (ing *ingestor) fetchOne(ctx context.Context, raw string) {
	fetchCtx, cancel := context.WithTimeout(ctx, defaultFetchTimeout)
	defer cancel()

	sym, err := marketpkg.NormalizeSymbol(fetchCtx, raw, ing.resolver)
	if err != nil {
		logx.WithContext(ctx).Errorf("ingestor: normalise %s: %v", raw, err)
		return
	}

	series, err := ing.orchestrator.GetSeries(fetchCtx, marketpkg.SeriesRequest{
		Symbol:    sym,
		Timeframe: ing.timeframe,
		Lookback:  ing.lookback,
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("ingestor: fetch %s: %v", raw, err)
		return
	}
	logx.WithContext(ctx).Infof("ingestor: %s %s bars=%d provider=%s role=%s",
		series.Symbol, series.Timeframe, len(series.Bars), series.Provider, series.Role)
}

// refreshCatalogs persists listed security catalogs for providers that
// implement market.ListingSource.
func (ing *ingestor) refreshCatalogs(ctx context.Context, force bool) {
	if ing.persistence == nil {
		return
	}
	names := make([]string, 0, len(ing.providers))
	for name := range ing.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	now := time.Now()
	for _, name := range names {
		source, ok := ing.providers[name].(marketpkg.ListingSource)
		if !ok {
			continue
		}
		if !force {
			if at, seen := ing.catalogAt[name]; seen && now.Sub(at) < ing.catalogRefresh {
				continue
			}
		}
		listCtx, cancel := context.WithTimeout(ctx, defaultCatalogTimeout)
		securities, err := source.ListSecurities(listCtx)
		cancel()
		if err != nil {
			logx.WithContext(ctx).Errorf("ingestor: list securities provider=%s err=%v", name, err)
			continue
		}
		if err := ing.persistence.UpsertSymbols(ctx, name, securities); err != nil {
			logx.WithContext(ctx).Errorf("ingestor: upsert symbols provider=%s err=%v", name, err)
			continue
		}
		ing.catalogAt[name] = now
		logx.WithContext(ctx).Infof("ingestor: refreshed catalog provider=%s securities=%d", name, len(securities))
	}
}

// Package marketpersist mirrors retrieved series into Postgres and Redis.
// Failures here are reported to callers but never block the retrieval path;
// the orchestrator logs and continues.
package marketpersist

import (
	"context"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "advisor-api/internal/cache"
	"advisor-api/pkg/market"
)

// Service implements market.Persistence on top of Postgres and Redis.
type Service struct {
	sqlConn sqlx.SqlConn
	redis   *redis.Redis
	ttl     cachekeys.TTLSet
}

// Config enumerates dependencies required to persist market data.
type Config struct {
	SQLConn sqlx.SqlConn
	Redis   *redis.Redis
	TTL     cachekeys.TTLSet
}

// NewService wires a market persistence service. Returns nil when the
// database connection is missing so callers can skip persistence entirely.
func NewService(cfg Config) market.Persistence {
	if cfg.SQLConn == nil {
		return nil
	}
	return &Service{
		sqlConn: cfg.SQLConn,
		redis:   cfg.Redis,
		ttl:     cfg.TTL,
	}
}

// RecordSeries persists the bars of a retrieved series and refreshes the
// Redis mirror of the series and its latest close.
func (s *Service) RecordSeries(ctx context.Context, series *market.Series) error {
	if s == nil || s.sqlConn == nil || series == nil || len(series.Bars) == 0 {
		return nil
	}

	stmt := `
INSERT INTO public.ohlcv_bars (
    provider, symbol, timeframe, bar_ts, open, high, low, close, volume, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
)
ON CONFLICT (provider, symbol, timeframe, bar_ts) DO UPDATE SET
    open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    volume = EXCLUDED.volume,
    updated_at = NOW();`

	symbol := series.Symbol.String()
	for _, bar := range series.Bars {
		if _, err := s.sqlConn.ExecCtx(ctx, stmt,
			series.Provider,
			symbol,
			string(series.Timeframe),
			bar.Timestamp.UTC(),
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
		); err != nil {
			return err
		}
	}

	s.cacheSeries(ctx, series)
	s.cacheLatestClose(ctx, series)
	return nil
}

// UpsertSymbols persists a provider's listed securities. Duplicate listings
// are treated as updates rather than errors.
func (s *Service) UpsertSymbols(ctx context.Context, provider string, securities []market.Security) error {
	if s == nil || s.sqlConn == nil || len(securities) == 0 {
		return nil
	}

	insertStmt := `
INSERT INTO public.symbols (provider, code, name, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW());`
	updateStmt := `
UPDATE public.symbols SET name = $3, updated_at = NOW()
WHERE provider = $1 AND code = $2;`

	for _, sec := range securities {
		code := strings.TrimSpace(sec.Code)
		if code == "" {
			continue
		}
		_, err := s.sqlConn.ExecCtx(ctx, insertStmt, provider, code, sec.Name)
		if err == nil {
			continue
		}
		if !isUniqueViolation(err) {
			return err
		}
		if _, err := s.sqlConn.ExecCtx(ctx, updateStmt, provider, code, sec.Name); err != nil {
			return err
		}
	}

	s.cacheCatalog(ctx, provider, securities)
	return nil
}

func (s *Service) cacheSeries(ctx context.Context, series *market.Series) {
	if s.redis == nil {
		return
	}
	ttl := cachekeys.SeriesTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.SeriesKey(series.Provider, series.Symbol.String(), string(series.Timeframe))
	payload, err := msgpack.Marshal(series)
	if err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: encode series key=%s err=%v", key, err)
		return
	}
	if err := s.redis.SetexCtx(ctx, key, string(payload), int(ttl.Seconds())); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache series key=%s err=%v", key, err)
	}
}

type closePayload struct {
	Close float64 `msgpack:"close"`
	TsMs  int64   `msgpack:"ts_ms"`
}

func (s *Service) cacheLatestClose(ctx context.Context, series *market.Series) {
	if s.redis == nil {
		return
	}
	ttl := cachekeys.LatestCloseTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	payload, err := msgpack.Marshal(closePayload{
		Close: series.LatestClose(),
		TsMs:  time.Now().UTC().UnixMilli(),
	})
	if err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: encode latest close err=%v", err)
		return
	}
	symbol := series.Symbol.String()
	for _, key := range []string{
		cachekeys.LatestCloseByProviderKey(series.Provider, symbol),
		cachekeys.LatestCloseKey(symbol),
	} {
		if err := s.redis.SetexCtx(ctx, key, string(payload), int(ttl.Seconds())); err != nil {
			logx.WithContext(ctx).Errorf("marketpersist: cache latest close key=%s err=%v", key, err)
		}
	}
}

func (s *Service) cacheCatalog(ctx context.Context, provider string, securities []market.Security) {
	if s.redis == nil {
		return
	}
	ttl := cachekeys.SymbolCatalogTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.SymbolCatalogKey(provider)
	payload, err := msgpack.Marshal(securities)
	if err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: encode catalog key=%s err=%v", key, err)
		return
	}
	if err := s.redis.SetexCtx(ctx, key, string(payload), int(ttl.Seconds())); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache catalog key=%s err=%v", key, err)
	}
}

// DecodeSeries restores a series payload written by cacheSeries.
func DecodeSeries(payload []byte) (*market.Series, error) {
	var series market.Series
	if err := msgpack.Unmarshal(payload, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func isUniqueViolation(err error) bool {
	pgErr, ok := err.(*pq.Error)
	return ok && pgErr.Code == "23505"
}

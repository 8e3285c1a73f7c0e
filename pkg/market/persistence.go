package market

import "context"

// Persistence hooks mirror fetched market data into external stores. The
// retrieval path never reads through these hooks; the in-memory cache remains
// the only read-side cache.
type Persistence interface {
	// RecordSeries persists a fetched series snapshot.
	RecordSeries(ctx context.Context, series *Series) error
	// UpsertSymbols persists listing entries used for code/name search.
	UpsertSymbols(ctx context.Context, provider string, securities []Security) error
}

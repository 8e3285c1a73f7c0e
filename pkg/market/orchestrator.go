package market

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"
)

// Orchestrator walks an ordered provider chain for each retrieval: the
// primary first, then on a fallback-eligible failure the secondary. Providers
// are tried strictly sequentially, never concurrently, and the chain never
// loops back. Successful series are tagged with the provider that answered
// and its role in the chain.
type Orchestrator struct {
	chain           []SeriesProvider
	fallbackEnabled bool
	cache           *RetrievalCache
	persistence     Persistence
}

// OrchestratorOption customises orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithFallbackEnabled toggles the primary-to-secondary hop.
func WithFallbackEnabled(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.fallbackEnabled = enabled
	}
}

// WithCache injects the read-through result cache.
func WithCache(cache *RetrievalCache) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cache = cache
	}
}

// WithPersistence wires optional write-behind hooks for fetched series.
func WithPersistence(p Persistence) OrchestratorOption {
	return func(o *Orchestrator) {
		o.persistence = p
	}
}

// NewOrchestrator builds an orchestrator over the given provider chain.
func NewOrchestrator(chain []SeriesProvider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{chain: chain, fallbackEnabled: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func roleFor(position int) Role {
	if position == 0 {
		return RolePrimary
	}
	return RoleSecondary
}

// GetSeries runs the retrieval state machine for one request. On total
// failure the returned error is a *FetchFailure carrying every attempted
// provider's classified error.
func (o *Orchestrator) GetSeries(ctx context.Context, req SeriesRequest) (*Series, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(o.chain) == 0 {
		return nil, fmt.Errorf("market: orchestrator has no providers")
	}

	if series, ok := o.cache.Get(req, o.fallbackEnabled); ok {
		return series, nil
	}

	failure := &FetchFailure{}
	for i, provider := range o.chain {
		series, err := provider.FetchSeries(ctx, req)
		if err == nil {
			series.Role = roleFor(i)
			if series.Provider == "" {
				series.Provider = provider.Name()
			}
			if i > 0 {
				logx.WithContext(ctx).Infof("market: %s fell back to %s for %s %s",
					o.chain[0].Name(), provider.Name(), req.Symbol.String(), req.Timeframe)
			}
			o.cache.Put(req, o.fallbackEnabled, series)
			o.recordSeries(ctx, series)
			return series, nil
		}

		kind := KindOf(err)
		failure.Attempts = append(failure.Attempts, Attempt{
			Provider: provider.Name(),
			Kind:     kind,
			Err:      err,
		})
		if !o.fallbackEnabled || !triggersFallback(kind) {
			break
		}
	}
	return nil, failure
}

// recordSeries pushes a fetched series to the persistence hook without
// blocking the data path on its errors.
func (o *Orchestrator) recordSeries(ctx context.Context, series *Series) {
	if o.persistence == nil || series == nil {
		return
	}
	if err := o.persistence.RecordSeries(ctx, series); err != nil {
		logx.WithContext(ctx).Errorf("market: persist series provider=%s symbol=%s err=%v",
			series.Provider, series.Symbol, err)
	}
}

// Providers exposes the configured chain, primary first.
func (o *Orchestrator) Providers() []SeriesProvider {
	return o.chain
}

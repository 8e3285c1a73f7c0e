package logic

import (
	"context"
	"fmt"

	"advisor-api/internal/svc"
	"advisor-api/pkg/market"
)

// ValidationError marks client input problems so handlers can answer 400
// instead of treating them as upstream failures.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...interface{}) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

// buildSeriesRequest normalises raw query input into a validated retrieval
// request. Equity keywords go through the listing resolver when available.
func buildSeriesRequest(ctx context.Context, svcCtx *svc.ServiceContext, symbol, timeframe string, lookback int) (market.SeriesRequest, error) {
	var req market.SeriesRequest

	tf, err := market.ParseTimeframe(timeframe)
	if err != nil {
		return req, badRequest("invalid timeframe: %v", err)
	}
	if lookback <= 0 {
		return req, badRequest("lookback must be positive, got %d", lookback)
	}

	sym, err := market.NormalizeSymbol(ctx, symbol, svcCtx.SymbolResolver)
	if err != nil {
		return req, err
	}

	req = market.SeriesRequest{
		Symbol:    sym,
		Timeframe: tf,
		Lookback:  lookback,
	}
	if err := req.Validate(); err != nil {
		return req, badRequest("%v", err)
	}
	return req, nil
}

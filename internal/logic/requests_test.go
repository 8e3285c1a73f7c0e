package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-api/internal/svc"
	"advisor-api/pkg/market"
)

func TestBuildSeriesRequest(t *testing.T) {
	svcCtx := &svc.ServiceContext{}

	req, err := buildSeriesRequest(context.Background(), svcCtx, "btc/usdt", "1h", 72)
	require.NoError(t, err)
	assert.Equal(t, market.Symbol{Base: "BTC", Quote: "USDT"}, req.Symbol)
	assert.Equal(t, market.Timeframe1h, req.Timeframe)
	assert.Equal(t, 72, req.Lookback)
}

func TestBuildSeriesRequestSecurityCode(t *testing.T) {
	svcCtx := &svc.ServiceContext{}

	req, err := buildSeriesRequest(context.Background(), svcCtx, "600519", "1d", 30)
	require.NoError(t, err)
	assert.Equal(t, "600519", req.Symbol.Code)
}

func TestBuildSeriesRequestValidation(t *testing.T) {
	svcCtx := &svc.ServiceContext{}

	_, err := buildSeriesRequest(context.Background(), svcCtx, "btc/usdt", "15m", 72)
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))

	_, err = buildSeriesRequest(context.Background(), svcCtx, "btc/usdt", "1h", 0)
	require.True(t, errors.As(err, &validation))
}

func TestBuildSeriesRequestUnresolvableSymbol(t *testing.T) {
	svcCtx := &svc.ServiceContext{}

	// Resolution failures keep their fetch classification; they are not
	// client input errors.
	_, err := buildSeriesRequest(context.Background(), svcCtx, "maotai", "1d", 30)
	require.Error(t, err)
	var validation *ValidationError
	assert.False(t, errors.As(err, &validation))
	assert.Equal(t, market.KindSymbolNotFound, market.KindOf(err))
}

package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"advisor-api/internal/svc"
	"advisor-api/internal/types"
	"advisor-api/pkg/market"
)

type SeriesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSeriesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SeriesLogic {
	return &SeriesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SeriesLogic) Series(req *types.SeriesReq) (*types.SeriesResp, error) {
	fetchReq, err := buildSeriesRequest(l.ctx, l.svcCtx, req.Symbol, req.Timeframe, req.Lookback)
	if err != nil {
		return nil, err
	}

	series, err := l.svcCtx.Orchestrator.GetSeries(l.ctx, fetchReq)
	if err != nil {
		return nil, err
	}
	return seriesView(series), nil
}

func seriesView(s *market.Series) *types.SeriesResp {
	bars := make([]types.BarView, 0, len(s.Bars))
	for _, bar := range s.Bars {
		bars = append(bars, types.BarView{
			Timestamp: bar.Timestamp.UTC().UnixMilli(),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		})
	}
	resp := &types.SeriesResp{
		Symbol:    s.Symbol.String(),
		Timeframe: string(s.Timeframe),
		Provider:  s.Provider,
		Role:      string(s.Role),
		Bars:      bars,
		FetchedAt: s.FetchedAt.UTC().UnixMilli(),
	}
	if !s.Symbol.IsPair() && s.Symbol.Name != "" {
		resp.Name = s.Symbol.Name
	}
	return resp
}

package logic

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"advisor-api/internal/svc"
	"advisor-api/internal/types"
)

type AnalyzeLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewAnalyzeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *AnalyzeLogic {
	return &AnalyzeLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *AnalyzeLogic) Analyze(req *types.AnalyzeReq) (*types.AnalyzeResp, error) {
	if l.svcCtx.Advisor == nil {
		return nil, errors.New("ai analysis is not configured")
	}

	fetchReq, err := buildSeriesRequest(l.ctx, l.svcCtx, req.Symbol, req.Timeframe, req.Lookback)
	if err != nil {
		return nil, err
	}

	series, err := l.svcCtx.Orchestrator.GetSeries(l.ctx, fetchReq)
	if err != nil {
		return nil, err
	}

	analysis, err := l.svcCtx.Advisor.Analyze(l.ctx, series)
	if err != nil {
		return nil, err
	}

	return &types.AnalyzeResp{
		Symbol:      analysis.Symbol.String(),
		Provider:    analysis.Provider,
		Model:       analysis.Model,
		Analysis:    analysis.Text,
		GeneratedAt: analysis.GeneratedAt.UnixMilli(),
	}, nil
}

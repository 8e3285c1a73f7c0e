package logic

import (
	"context"
	"sort"

	"github.com/zeromicro/go-zero/core/logx"

	"advisor-api/internal/svc"
	"advisor-api/internal/types"
)

// pinger is implemented by providers that expose a connectivity probe.
type pinger interface {
	Ping(ctx context.Context) error
}

type ProvidersLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewProvidersLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ProvidersLogic {
	return &ProvidersLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ProvidersLogic) Providers() (*types.ProvidersResp, error) {
	cfg := l.svcCtx.MarketConfig

	names := make([]string, 0, len(l.svcCtx.MarketProviders))
	for name := range l.svcCtx.MarketProviders {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]types.ProviderStatus, 0, len(names))
	for _, name := range names {
		provider := l.svcCtx.MarketProviders[name]
		status := types.ProviderStatus{Name: name}
		if pcfg, ok := cfg.Providers[name]; ok {
			status.Type = pcfg.Type
		}
		if probe, ok := provider.(pinger); ok {
			reachable := true
			if err := probe.Ping(l.ctx); err != nil {
				reachable = false
				status.Error = err.Error()
			}
			status.Reachable = &reachable
		}
		statuses = append(statuses, status)
	}

	return &types.ProvidersResp{
		Default:   cfg.Default,
		Chain:     cfg.Fallback.Chain,
		Providers: statuses,
	}, nil
}

package svc

import (
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "advisor-api/internal/cache"
	"advisor-api/internal/config"
	marketpersist "advisor-api/internal/persistence/market"
	advisorpkg "advisor-api/pkg/advisor"
	llmpkg "advisor-api/pkg/llm"
	marketpkg "advisor-api/pkg/market"
	_ "advisor-api/pkg/market/exchanges/ashare"
	_ "advisor-api/pkg/market/exchanges/binancefutures"
	_ "advisor-api/pkg/market/exchanges/coingecko"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	MarketProviders map[string]marketpkg.SeriesProvider
	Orchestrator    *marketpkg.Orchestrator

	// SymbolResolver maps equity keywords to listed securities when an
	// equities provider is configured.
	SymbolResolver *marketpkg.SecurityResolver

	LLMConfig *llmpkg.Config
	LLMClient *llmpkg.Client
	Advisor   *advisorpkg.Advisor

	DBConn      sqlx.SqlConn
	Redis       *redis.Redis
	TTL         cachekeys.TTLSet
	Persistence marketpkg.Persistence
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTL:    cachekeys.NewTTLSet(c.TTL),
	}

	// Optional storage. Business logic works without either; persistence
	// hooks simply stay disabled.
	if c.Postgres.DSN != "" {
		svc.DBConn = sqlx.NewSqlConn("pgx", c.Postgres.DSN)
	}
	if c.Redis.Host != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		svc.Redis = rds
	}
	svc.Persistence = marketpersist.NewService(marketpersist.Config{
		SQLConn: svc.DBConn,
		Redis:   svc.Redis,
		TTL:     svc.TTL,
	})

	if c.Market.Value == nil {
		log.Fatalf("market config section is required")
	}
	svc.MarketConfig = c.Market.Value

	providers, err := svc.MarketConfig.BuildProviders()
	if err != nil {
		log.Fatalf("failed to build market providers: %v", err)
	}
	svc.MarketProviders = providers

	for _, provider := range providers {
		if src, ok := provider.(interface {
			Resolver(ttl time.Duration) *marketpkg.SecurityResolver
		}); ok {
			svc.SymbolResolver = src.Resolver(cachekeys.SymbolCatalogTTL(svc.TTL))
			break
		}
	}

	var orchOpts []marketpkg.OrchestratorOption
	if svc.Persistence != nil {
		orchOpts = append(orchOpts, marketpkg.WithPersistence(svc.Persistence))
	}
	orchestrator, err := svc.MarketConfig.BuildOrchestrator(orchOpts...)
	if err != nil {
		log.Fatalf("failed to build market orchestrator: %v", err)
	}
	svc.Orchestrator = orchestrator

	if c.LLM.Value != nil {
		svc.LLMConfig = c.LLM.Value
		client, err := llmpkg.NewClient(svc.LLMConfig)
		if err != nil {
			log.Fatalf("failed to initialise llm client: %v", err)
		}
		svc.LLMClient = client

		adv, err := advisorpkg.New(client)
		if err != nil {
			log.Fatalf("failed to initialise advisor: %v", err)
		}
		svc.Advisor = adv
	}

	return svc
}

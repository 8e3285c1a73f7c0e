package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"advisor-api/internal/cli"
	"advisor-api/internal/config"
	"advisor-api/internal/svc"
	marketpkg "advisor-api/pkg/market"
)

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

func main() {
	var (
		configPath = flag.String("f", "etc/advisor.yaml", "the config file")
		symbol     = flag.String("symbol", "", "symbol to fetch, e.g. BTC/USDT or 600519")
		timeframe  = flag.String("timeframe", "1h", "bar timeframe: 1h, 4h or 1d")
		lookback   = flag.Int("lookback", 72, "number of bars to fetch")
		analyze    = flag.Bool("analyze", false, "run AI analysis on the fetched series")
		ask        = flag.String("ask", "", "follow-up question after the analysis")
		ingest     = flag.Bool("ingest", false, "run the background ingestion loop")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	cfg := config.MustLoad(*configPath)
	cli.LogConfigSummary(cfg)
	svcCtx := svc.NewServiceContext(*cfg)

	if *ingest {
		runIngest(cfg, svcCtx)
		return
	}

	if *symbol == "" {
		fatalf("no symbol provided; use -symbol, or -ingest for the background loop")
	}

	ctx := context.Background()
	sym, err := marketpkg.NormalizeSymbol(ctx, *symbol, svcCtx.SymbolResolver)
	if err != nil {
		fatalf("normalise symbol %s: %v", *symbol, err)
	}
	tf, err := marketpkg.ParseTimeframe(*timeframe)
	if err != nil {
		fatalf("parse timeframe: %v", err)
	}

	series, err := svcCtx.Orchestrator.GetSeries(ctx, marketpkg.SeriesRequest{
		Symbol:    sym,
		Timeframe: tf,
		Lookback:  *lookback,
	})
	if err != nil {
		fatalf("fetch series: %v", err)
	}

	fmt.Println(marketpkg.RenderSummary(series, *lookback))
	fmt.Printf("provider: %s (%s)\n", series.Provider, series.Role)

	if !*analyze {
		return
	}
	if svcCtx.Advisor == nil {
		fatalf("analysis requested but no llm config section is set")
	}

	analysis, err := svcCtx.Advisor.Analyze(ctx, series)
	if err != nil {
		fatalf("analyze series: %v", err)
	}
	fmt.Printf("\n=== AI analysis (%s) ===\n%s\n", analysis.Model, analysis.Text)

	if *ask == "" {
		return
	}
	conversation, err := svcCtx.Advisor.Converse(analysis)
	if err != nil {
		fatalf("open conversation: %v", err)
	}
	answer, err := conversation.Ask(ctx, *ask)
	if err != nil {
		fatalf("follow-up question: %v", err)
	}
	fmt.Printf("\n=== Follow-up ===\nQ: %s\nA: %s\n", *ask, answer)
}

func runIngest(cfg *config.Config, svcCtx *svc.ServiceContext) {
	tf, err := marketpkg.ParseTimeframe(cfg.Ingest.Timeframe)
	if err != nil {
		fatalf("ingest timeframe: %v", err)
	}

	ing := newIngestor(
		svcCtx.Orchestrator,
		svcCtx.MarketProviders,
		svcCtx.Persistence,
		svcCtx.SymbolResolver,
		cfg.Ingest.Symbols,
		tf,
		cfg.Ingest.Lookback,
		time.Duration(cfg.Ingest.Interval)*time.Second,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logx.Infof("received signal %s, stopping ingestion loop", sig)
		cancel()
	}()

	logx.Infof("starting ingestion loop: symbols=%d timeframe=%s lookback=%d",
		len(cfg.Ingest.Symbols), tf, cfg.Ingest.Lookback)
	ing.run(ctx)
	logx.Info("ingestion loop stopped")
}

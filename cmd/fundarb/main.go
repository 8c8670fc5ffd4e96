package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"fundarb/internal/application/port"
	appservice "fundarb/internal/application/service"
	"fundarb/internal/application/usecase/monitor"
	"fundarb/internal/domain/model"
	domainservice "fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/exchange"
	"fundarb/internal/infrastructure/exchange/binance"
	"fundarb/internal/infrastructure/exchange/bybit"
	"fundarb/internal/infrastructure/exchange/gate"
	"fundarb/internal/infrastructure/logger"
	"fundarb/internal/infrastructure/pricefeed"
	compositerepo "fundarb/internal/infrastructure/storage/composite"
	pgrepo "fundarb/internal/infrastructure/storage/postgres"
	redisrepo "fundarb/internal/infrastructure/storage/redis"
	sqliterepo "fundarb/internal/infrastructure/storage/sqlite"
	"fundarb/internal/interfaces/console"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	openSpec := flag.String("open", "", "open a hedge: TOKEN,long_exchange,short_exchange,position_size")
	closeToken := flag.String("close", "", "close the hedge for one base token")
	closeAll := flag.Bool("close-all", false, "close every position on every exchange")
	showPositions := flag.Bool("positions", false, "print the cross-exchange hedge view and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := exchange.NewRegistry()
	for _, name := range cfg.EnabledExchanges() {
		ec := cfg.Exchange[name]
		var ad port.Adapter
		switch name {
		case exchange.ExchangeBinance:
			ad = binance.NewAdapter(ec.APIKey, ec.APISecret, ec.HTTPURL)
		case exchange.ExchangeBybit:
			ad = bybit.NewAdapter(ec.APIKey, ec.APISecret, ec.HTTPURL)
		case exchange.ExchangeGate:
			ad = gate.NewAdapter(ec.APIKey, ec.APISecret, ec.HTTPURL)
		}
		if err := registry.Register(ad); err != nil {
			log.Fatal().Err(err).Str("exchange", name).Msg("register adapter failed")
		}
	}
	if len(registry.Enabled()) < 2 {
		log.Fatal().Msg("funding arbitrage needs at least two enabled exchanges")
	}

	repo := buildRepository(cfg)
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn().Err(err).Msg("close repository failed")
		}
	}()

	aggregator := appservice.NewRateAggregator(registry.Enabled())
	detector := domainservice.NewOpportunityDetector(cfg.Arbitrage.Limit, cfg.Arbitrage.Threshold)
	snapshots := appservice.NewSnapshotService(aggregator, detector,
		cfg.Arbitrage.Policy, time.Duration(cfg.Cache.TTLSec)*time.Second)
	executor := appservice.NewHedgeExecutor(registry, repo)
	reconciler := appservice.NewPositionReconciler(registry.Enabled())

	svc := monitor.NewService(monitor.ServiceDeps{
		Feeds:         buildFeeds(cfg),
		Tokens:        cfg.Tokens.List,
		RefreshEvery:  time.Duration(cfg.App.RefreshEverySec) * time.Second,
		Top:           cfg.App.Top,
		RateThreshold: cfg.Arbitrage.Threshold,
		Snapshots:     snapshots,
		Executor:      executor,
		Reconciler:    reconciler,
		Sink:          console.NewSink(),
		Repo:          repo,
	})

	// 操作者命令：执行后退出，不进入监控循环
	switch {
	case *openSpec != "":
		runOpen(ctx, svc, cfg, *openSpec)
		return
	case *closeToken != "":
		runClose(ctx, svc, *closeToken)
		return
	case *closeAll:
		runCloseAll(ctx, svc)
		return
	case *showPositions:
		runPositions(ctx, svc)
		return
	}

	log.Info().
		Str("config", *configPath).
		Strs("exchanges", cfg.EnabledExchanges()).
		Int("tokens", len(cfg.Tokens.List)).
		Int("refresh_every_sec", cfg.App.RefreshEverySec).
		Float64("threshold", cfg.Arbitrage.Threshold).
		Str("policy", cfg.Arbitrage.Policy).
		Msg("fundarb started")

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("monitor service exited")
	}
}

// buildRepository 按配置组合存储后端: sqlite 为主, redis/postgres 可选
func buildRepository(cfg *config.Config) port.Repository {
	var repos []port.Repository

	if cfg.Storage.SQLitePath != "" {
		r, err := sqliterepo.New(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("open sqlite failed")
		}
		repos = append(repos, r)
	}

	if cfg.Storage.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Storage.RedisAddr})
		repos = append(repos, redisrepo.New(rdb, cfg.Storage.RedisPrefix,
			time.Duration(cfg.Cache.TTLSec)*time.Second))
	}

	if cfg.Storage.PostgresDSN != "" {
		r, err := pgrepo.New(cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres failed")
		}
		repos = append(repos, r)
	}

	switch len(repos) {
	case 0:
		log.Warn().Msg("no storage configured, opportunities will not be persisted")
		return monitor.NewNoopRepo()
	case 1:
		return repos[0]
	default:
		return compositerepo.New(repos...)
	}
}

// buildFeeds 只为配置了 ws_url 且有注册工厂的交易所建流
func buildFeeds(cfg *config.Config) []monitor.PriceFeed {
	var feeds []monitor.PriceFeed
	for _, name := range cfg.EnabledExchanges() {
		ec := cfg.Exchange[name]
		if ec.WsURL == "" {
			continue
		}
		factory, ok := pricefeed.Get(name)
		if !ok {
			log.Warn().Str("exchange", name).Msg("ws_url set but no price feed registered")
			continue
		}
		feeds = append(feeds, factory(ec.WsURL))
	}
	return feeds
}

func runOpen(ctx context.Context, svc *monitor.Service, cfg *config.Config, spec string) {
	intent, err := parseOpenSpec(spec, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("open", spec).Msg("invalid open spec")
	}

	report, err := svc.ExecuteHedge(ctx, intent)
	if err != nil {
		log.Error().Err(err).Str("base_token", intent.BaseToken).Msg("hedge execution failed")
	}
	if report != nil {
		fmt.Printf("hedge %s: status=%s long=%s(%s) short=%s(%s)\n",
			report.BaseToken, report.Status,
			report.LongLeg.Exchange, legOutcome(report.LongLeg.Err),
			report.ShortLeg.Exchange, legOutcome(report.ShortLeg.Err))
	}
}

func legOutcome(errText string) string {
	if errText == "" {
		return "filled"
	}
	return errText
}

func runClose(ctx context.Context, svc *monitor.Service, token string) {
	results, err := svc.CloseHedge(ctx, strings.ToUpper(token))
	if err != nil {
		log.Fatal().Err(err).Str("base_token", token).Msg("close hedge failed")
	}
	printCloseResults(results)
}

func runCloseAll(ctx context.Context, svc *monitor.Service) {
	results, err := svc.CloseEverything(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("close all failed")
	}
	printCloseResults(results)
}

func printCloseResults(results []model.CloseResult) {
	if len(results) == 0 {
		fmt.Println("no open positions to close")
		return
	}
	for _, r := range results {
		if r.Err != "" {
			fmt.Printf("close %s %s: FAILED: %s\n", r.Exchange, r.Symbol, r.Err)
			continue
		}
		fmt.Printf("close %s %s: ok\n", r.Exchange, r.Symbol)
	}
}

func runPositions(ctx context.Context, svc *monitor.Service) {
	groups, err := svc.HedgedPositions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("reconcile positions failed")
	}
	if len(groups) == 0 {
		fmt.Println("no open positions")
		return
	}
	for _, g := range groups {
		state := "UNHEDGED"
		if g.HasHedge {
			state = "hedged"
		}
		fmt.Printf("%-8s %s\n", g.BaseToken, state)
		if g.Long != nil {
			fmt.Printf("  long  %-8s %s contracts=%g\n", g.Long.Exchange, g.Long.Symbol, g.Long.Contracts)
		}
		if g.Short != nil {
			fmt.Printf("  short %-8s %s contracts=%g\n", g.Short.Exchange, g.Short.Symbol, g.Short.Contracts)
		}
	}

	// 未处理的半腿敞口比任何持仓行都值得先看
	records, err := svc.OpenPartialHedges(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("list open partial hedges failed")
		return
	}
	for _, rec := range records {
		fmt.Printf("PARTIAL HEDGE %s: %s filled on %s, %s failed (%s)\n",
			rec.ID, rec.FilledSide, rec.FilledExchange, rec.FailedExchange, rec.FailedReason)
	}
}

// parseOpenSpec 解析 "TOKEN,long,short,size"；杠杆与滑点取配置默认
func parseOpenSpec(spec string, cfg *config.Config) (model.TradeIntent, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return model.TradeIntent{}, fmt.Errorf("expected TOKEN,long,short,size, got %q", spec)
	}

	size, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return model.TradeIntent{}, fmt.Errorf("position size: %w", err)
	}

	return model.TradeIntent{
		BaseToken:       strings.ToUpper(strings.TrimSpace(parts[0])),
		LongExchange:    strings.ToLower(strings.TrimSpace(parts[1])),
		ShortExchange:   strings.ToLower(strings.TrimSpace(parts[2])),
		PositionSize:    size,
		Leverage:        cfg.Execution.Leverage,
		SlippagePercent: cfg.Execution.SlippagePercent,
	}, nil
}

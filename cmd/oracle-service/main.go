package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/betting"
	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/internal/engine/settlement"
	gwcache "github.com/aetherwave/market-engine/internal/gateway/cache"
	httpapi "github.com/aetherwave/market-engine/internal/gateway/http"
	"github.com/aetherwave/market-engine/internal/notify"
	"github.com/aetherwave/market-engine/internal/scheduler"
	"github.com/aetherwave/market-engine/internal/shared/cache"
	"github.com/aetherwave/market-engine/internal/shared/config"
	"github.com/aetherwave/market-engine/internal/shared/db"
	"github.com/aetherwave/market-engine/internal/shared/kafka"
	"github.com/aetherwave/market-engine/internal/shared/logger"
	"github.com/aetherwave/market-engine/internal/shared/metrics"
	pgstore "github.com/aetherwave/market-engine/internal/store/postgres"
)

// Métricas Prometheus do motor de mercados
var (
	marketsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_markets_created_total",
		Help: "Mercados abertos pelo scheduler ou por requisição",
	})
	marketsResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_markets_resolved_total",
		Help: "Mercados resolvidos e liquidados",
	})
	resolveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_resolve_errors_total",
		Help: "Tentativas de resolução que falharam (antes do retry)",
	})
	betsPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_bets_placed_total",
		Help: "Apostas confirmadas",
	})
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_ws_connections",
		Help: "Assinantes WebSocket conectados",
	})
)

func main() {
	cfg := config.Load()

	log, err := logger.New("oracle-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env), zap.String("store", cfg.StoreBackend))

	prometheus.MustRegister(marketsCreated, marketsResolved, resolveErrors, betsPlaced, wsConnections)

	ctx := context.Background()

	// Stores: "postgres" é a fiação durável completa (pg + redis + kafka);
	// "memory" roda o motor inteiro em processo, sem infra (demo/teste).
	var (
		marketStore market.Store
		ledgerStore ledger.Store
		pg          *sql.DB
		rdb         *redis.Client
	)

	switch cfg.StoreBackend {
	case "postgres":
		pg, err = db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		log.Info("postgres connected")

		rdb, err = cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		log.Info("redis connected")

		marketStore = pgstore.NewMarketStore(pg)
		ledgerStore = pgstore.NewLedgerStore(pg, cfg.StartingBalanceCents)
	default:
		marketStore = market.NewMemory()
		ledgerStore = ledger.NewMemory(cfg.StartingBalanceCents)
	}

	// Serviços do motor
	bettingSvc := betting.NewService(log, marketStore, ledgerStore)
	bettingSvc.OnBetPlaced = betsPlaced.Inc
	resolver := settlement.NewService(log, marketStore, ledgerStore)
	outcomes := settlement.RandomOutcome{Probability: cfg.OutcomeProbability}

	// Fan-out: hub WS local; com Redis, o hub é alimentado pelo canal
	// pub/sub e o caminho que muda estado publica só no canal + Kafka.
	hub := notify.NewHub(log, marketStore)
	hub.OnConnect = wsConnections.Inc
	hub.OnDisconnect = wsConnections.Dec

	var (
		bus        notify.Broadcaster = hub
		auditor    *notify.KafkaAuditor
		listCache  *gwcache.Cache
		betAuditor httpapi.BetAuditor
	)

	if rdb != nil {
		auditor = &notify.KafkaAuditor{
			Created:  kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketCreated),
			Resolved: kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketResolved),
			Settled:  kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketSettled),
			Bets:     kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced),
		}
		defer auditor.Created.Close()
		defer auditor.Resolved.Close()
		defer auditor.Settled.Close()
		defer auditor.Bets.Close()

		bus = &notify.Multi{Log: log, Sinks: []notify.Broadcaster{
			&notify.RedisBroadcaster{R: rdb, Channel: cfg.RedisPubSubChannel},
			auditor,
		}}
		notify.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log)

		listCache = gwcache.New(rdb, 3*time.Second)
		betAuditor = auditor
	}

	// Scheduler de eventos: abre mercados na cadência e agenda resoluções
	var sink scheduler.SettlementSink
	if auditor != nil {
		sink = auditor
	}
	sched := scheduler.New(log, marketStore, resolver, outcomes, bus, sink, cfg.EventInterval, cfg.MarketTTL)
	sched.OnMarketCreated = marketsCreated.Inc
	sched.OnResolved = marketsResolved.Inc
	sched.OnResolveError = resolveErrors.Inc
	if err := sched.Start(ctx); err != nil {
		log.Fatal("scheduler start", zap.Error(err))
	}
	log.Info("scheduler started",
		zap.Duration("interval", cfg.EventInterval),
		zap.Duration("market_ttl", cfg.MarketTTL),
	)

	// Servidor de métricas e health
	metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		if pg != nil {
			if err := pg.PingContext(hctx); err != nil {
				return err
			}
		}
		if rdb != nil {
			if err := rdb.Ping(hctx).Err(); err != nil {
				return err
			}
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	// API pública (REST + WS)
	api := &httpapi.API{
		Log:      log,
		Markets:  marketStore,
		Ledger:   ledgerStore,
		Betting:  bettingSvc,
		Resolver: resolver,
		Hub:      hub,
		Bus:      bus,
		Bets:     betAuditor,
		Cache:    listCache,
		TTL:      cfg.MarketTTL,
	}
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/shared/config"
	"github.com/aetherwave/market-engine/internal/shared/db"
	"github.com/aetherwave/market-engine/internal/shared/kafka"
	"github.com/aetherwave/market-engine/internal/shared/logger"
	"github.com/aetherwave/market-engine/internal/shared/metrics"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

var (
	settlementsAudited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditor_settlements_total",
		Help: "Relatórios de liquidação persistidos",
	})
	auditErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auditor_errors_total",
		Help: "Falhas de consumo/persistência",
	})
)

func main() {
	cfg := config.Load()

	log, err := logger.New("settlement-auditor", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(settlementsAudited, auditErrors)

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMarketSettled, "settlement-auditor")
	defer reader.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		return pg.PingContext(hctx)
	})

	log.Info("settlement-auditor started", zap.String("consume", cfg.TopicMarketSettled))

	ctx := context.Background()

	// Loop principal: consome relatórios de liquidação e grava a trilha
	// de auditoria (uma linha por pagamento).
	for {
		_, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			auditErrors.Inc()
			time.Sleep(time.Second)
			continue
		}

		var settled events.MarketSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal market_settled", zap.Error(jerr))
			auditErrors.Inc()
			continue
		}

		if err := persistSettlement(ctx, pg, settled); err != nil {
			log.Error("persist settlement",
				zap.String("marketId", settled.MarketID),
				zap.Error(err),
			)
			auditErrors.Inc()
			time.Sleep(500 * time.Millisecond)
			continue
		}

		settlementsAudited.Inc()
		log.Info("settlement audited",
			zap.String("marketId", settled.MarketID),
			zap.Bool("outcome", settled.Outcome),
			zap.Int("payouts", len(settled.Payouts)),
		)
	}
}

// persistSettlement grava o relatório numa transação: idempotente por
// (market_id, owner), então reprocessar a mesma mensagem não duplica.
func persistSettlement(ctx context.Context, pg *sql.DB, s events.MarketSettled) error {
	tx, err := pg.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range s.Payouts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settlement_audit (market_id, outcome, owner, payout_cents, total_pool_cents, settled_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (market_id, owner) DO NOTHING`,
			s.MarketID, s.Outcome, p.Owner, p.AmountCents, s.TotalPoolCents, s.Ts,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Package settlement resolve mercados e liquida os pagamentos parimutuel.
package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/internal/engine/odds"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

// Report é o resultado de uma liquidação: uma entrada por conta vencedora.
// Emitido pra notificação/auditoria; este componente não o persiste.
type Report struct {
	MarketID       string
	Outcome        bool
	TotalPoolCents int64
	Payouts        []events.PayoutEntry
}

type Service struct {
	log     *zap.Logger
	markets market.Store
	ledger  ledger.Store
}

func NewService(log *zap.Logger, markets market.Store, ledg ledger.Store) *Service {
	return &Service{log: log, markets: markets, ledger: ledg}
}

// Resolve faz a transição Open -> Resolved e credita cada aposta vencedora
// com stake * totalPool / winningPool, usando o snapshot de pools congelado
// no momento da transição. Uma segunda chamada falha com ErrAlreadyResolved
// e não toca o ledger.
func (s *Service) Resolve(ctx context.Context, marketID string, outcome bool) (Report, error) {
	m, err := s.markets.Resolve(ctx, marketID, outcome)
	if err != nil {
		return Report{}, err
	}

	winningSide := market.SideNo
	if outcome {
		winningSide = market.SideYes
	}
	winningPool := m.PoolCents(winningSide)
	total := m.TotalPoolCents()

	rep := Report{
		MarketID:       marketID,
		Outcome:        outcome,
		TotalPoolCents: total,
	}

	bets, err := s.ledger.BetsForMarket(ctx, marketID)
	if err != nil {
		return Report{}, err
	}

	for _, b := range bets {
		if b.Side != winningSide {
			continue
		}
		payout := odds.Payout(b.AmountCents, winningPool, total)
		if payout <= 0 {
			continue
		}
		if err := s.ledger.Credit(ctx, b.Owner, payout); err != nil {
			// Crédito no ledger em memória/pg não falha por regra de
			// negócio; se falhar é infra e o chamador decide o retry.
			return Report{}, err
		}
		rep.Payouts = append(rep.Payouts, events.PayoutEntry{Owner: b.Owner, AmountCents: payout})
	}

	s.log.Info("market settled",
		zap.String("marketId", marketID),
		zap.Bool("outcome", outcome),
		zap.Int64("total_pool_cents", total),
		zap.Int("winners", len(rep.Payouts)),
	)

	return rep, nil
}

// Settled converte o relatório no evento de auditoria publicado no Kafka.
func (r Report) Settled() events.MarketSettled {
	return events.MarketSettled{
		MarketID:       r.MarketID,
		Outcome:        r.Outcome,
		TotalPoolCents: r.TotalPoolCents,
		Payouts:        r.Payouts,
		Ts:             time.Now().UTC(),
	}
}

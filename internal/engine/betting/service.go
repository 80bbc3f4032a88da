// Package betting valida e aplica stakes contra o ledger e o store de
// mercados.
package betting

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
)

var ErrInvalidAmount = errors.New("invalid bet amount")

type Service struct {
	log     *zap.Logger
	markets market.Store
	ledger  ledger.Store

	// OnBetPlaced é chamado após cada aposta confirmada (métricas).
	OnBetPlaced func()
}

func NewService(log *zap.Logger, markets market.Store, ledg ledger.Store) *Service {
	return &Service{log: log, markets: markets, ledger: ledg}
}

// PlaceBet aplica um stake em três passos atômicos em ordem fixa
// (sempre conta antes de mercado): debita e grava como pendente,
// incrementa o pool, confirma o registro. Pendente fica invisível pra
// liquidação — uma resolução que corre no meio não pode pagar uma
// aposta que nunca entrou no pool. Se o incremento não confirma, o
// débito é compensado. Apostas confirmadas são irrevogáveis.
func (s *Service) PlaceBet(ctx context.Context, owner, marketID string, side market.Side, amountCents int64) (ledger.Bet, error) {
	if amountCents <= 0 || !side.Valid() {
		return ledger.Bet{}, ErrInvalidAmount
	}

	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return ledger.Bet{}, err
	}
	if !m.Open(time.Now().UTC()) {
		return ledger.Bet{}, market.ErrClosed
	}

	if _, err := s.ledger.Stake(ctx, ledger.Bet{
		Owner:       owner,
		MarketID:    marketID,
		Side:        side,
		AmountCents: amountCents,
		PlacedAt:    time.Now().UTC(),
	}); err != nil {
		return ledger.Bet{}, err
	}

	if err := s.markets.AddToPool(ctx, marketID, side, amountCents); err != nil {
		// Mercado fechou (ou sumiu) entre a checagem e o incremento:
		// estorna o débito pendente e rejeita.
		if rerr := s.ledger.RevertStake(ctx, owner, marketID, amountCents); rerr != nil {
			s.log.Error("stake revert failed",
				zap.String("owner", owner),
				zap.String("marketId", marketID),
				zap.Error(rerr),
			)
		}
		return ledger.Bet{}, err
	}

	bet, err := s.ledger.ConfirmStake(ctx, owner, marketID, amountCents)
	if err != nil {
		// O valor já está no pool; falha aqui é infra, não regra de negócio.
		s.log.Error("stake confirm failed",
			zap.String("owner", owner),
			zap.String("marketId", marketID),
			zap.Error(err),
		)
		return ledger.Bet{}, err
	}

	if s.OnBetPlaced != nil {
		s.OnBetPlaced()
	}

	s.log.Debug("bet placed",
		zap.String("owner", owner),
		zap.String("marketId", marketID),
		zap.String("side", string(side)),
		zap.Int64("amount_cents", amountCents),
	)

	return bet, nil
}

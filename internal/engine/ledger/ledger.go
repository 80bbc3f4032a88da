package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/aetherwave/market-engine/internal/engine/market"
)

// Bet é uma aposta registrada contra uma conta. AmountCents é o valor
// confirmado (já dentro do pool); um novo stake no mesmo mercado
// acumula no registro existente.
type Bet struct {
	Owner       string      `json:"owner"`
	MarketID    string      `json:"marketId"`
	Side        market.Side `json:"side"`
	AmountCents int64       `json:"amount_cents"`
	PlacedAt    time.Time   `json:"placed_at"`
}

// Account é a conta de um owner. ActiveBets mapeia marketId -> aposta;
// no máximo um registro por (owner, mercado).
type Account struct {
	Owner        string         `json:"owner"`
	BalanceCents int64          `json:"balance_cents"`
	ActiveBets   map[string]Bet `json:"activeBets"`
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflictingBet    = errors.New("existing bet on opposite side")
)

// Store é o dono canônico de saldos e registros de aposta.
// Débitos e créditos sobre uma mesma conta são linearizáveis.
type Store interface {
	// GetOrCreate retorna a conta do owner, criando com o saldo inicial
	// configurado no primeiro acesso.
	GetOrCreate(ctx context.Context, owner string) (Account, error)

	// Debit decrementa o saldo; falha com ErrInsufficientFunds sem efeito.
	Debit(ctx context.Context, owner string, amountCents int64) error

	// Credit incrementa o saldo; cria a conta se necessário.
	Credit(ctx context.Context, owner string, amountCents int64) error

	// Stake debita o valor e grava/acumula a aposta como PENDENTE num
	// passo atômico. Valor pendente ainda não entrou no pool: fica fora
	// de BetsForMarket (e portanto da liquidação) até ConfirmStake.
	// Falha com ErrInsufficientFunds ou, se já existe aposta do owner no
	// mesmo mercado pelo lado oposto, com ErrConflictingBet. Retorna a
	// projeção do registro (confirmado + pendente).
	Stake(ctx context.Context, b Bet) (Bet, error)

	// ConfirmStake move o valor pendente pro registro liquidável, depois
	// que o incremento de pool confirmou. Retorna o registro acumulado.
	ConfirmStake(ctx context.Context, owner, marketID string, amountCents int64) (Bet, error)

	// RevertStake desfaz um Stake pendente (crédito de volta + estorno do
	// registro). Compensação usada quando o incremento de pool não
	// confirma; sempre seguro porque o valor nunca ficou liquidável.
	RevertStake(ctx context.Context, owner, marketID string, amountCents int64) error

	// BetsForMarket retorna as apostas confirmadas num mercado.
	BetsForMarket(ctx context.Context, marketID string) ([]Bet, error)
}

// Package odds deriva probabilidades implícitas e multiplicadores de
// pagamento a partir dos pools de um mercado. Funções puras; fonte única
// da matemática usada tanto pra exibição quanto pra liquidação.
package odds

import (
	"math/big"

	"github.com/aetherwave/market-engine/internal/engine/market"
)

// Implied retorna a probabilidade implícita de um lado: a fração do pool
// oposto sobre o total. Pool vazio retorna 0.5 (prior não informativo).
// Pra pools não vazios, Implied(Yes) + Implied(No) == 1.
func Implied(yesPoolCents, noPoolCents int64, side market.Side) float64 {
	total := yesPoolCents + noPoolCents
	if total == 0 {
		return 0.5
	}
	if side == market.SideYes {
		return float64(noPoolCents) / float64(total)
	}
	return float64(yesPoolCents) / float64(total)
}

// PayoutMultiplier retorna 1/Implied. Não deve ser chamado quando a
// probabilidade implícita do lado é zero.
func PayoutMultiplier(yesPoolCents, noPoolCents int64, side market.Side) float64 {
	return 1 / Implied(yesPoolCents, noPoolCents, side)
}

// Payout calcula o pagamento parimutuel de uma aposta vencedora em
// centavos: stake * totalPool / winningPool, truncado. O truncamento
// garante que a soma dos pagamentos nunca excede o pool total.
// O produto intermediário pode estourar int64 com pools grandes, então
// a conta passa por big.Int; o resultado cabe em int64 porque
// stake <= winningPool implica payout <= totalPool.
func Payout(stakeCents, winningPoolCents, totalPoolCents int64) int64 {
	if winningPoolCents <= 0 {
		return 0
	}
	p := new(big.Int).Mul(big.NewInt(stakeCents), big.NewInt(totalPoolCents))
	p.Quo(p, big.NewInt(winningPoolCents))
	return p.Int64()
}

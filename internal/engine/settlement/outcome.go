package settlement

import (
	"context"
	"math/rand"

	"github.com/aetherwave/market-engine/internal/engine/market"
)

// OutcomeProvider decide a resolução verdadeira de um mercado.
// A implementação de produção liga aqui um feed real de observação de
// partidas sem tocar na lógica de liquidação.
type OutcomeProvider interface {
	Determine(ctx context.Context, m market.Market) (bool, error)
}

// RandomOutcome é o provider demo: retorna true com probabilidade fixa,
// independente dos pools (de propósito — descorrelacionado das odds pra
// não ser manipulável pelo próprio motor).
type RandomOutcome struct {
	Probability float64 // ex: 0.7
}

func (r RandomOutcome) Determine(_ context.Context, _ market.Market) (bool, error) {
	return rand.Float64() < r.Probability, nil
}

package events

import "time"

// Evento publicado no tópico "market_settled" após a liquidação de um mercado.
// Uma entrada por conta vencedora; mercados sem vencedores geram Payouts vazio.
type MarketSettled struct {
	MarketID       string        `json:"marketId"`
	Outcome        bool          `json:"outcome"`
	TotalPoolCents int64         `json:"total_pool_cents"`
	Payouts        []PayoutEntry `json:"payouts"`
	Ts             time.Time     `json:"ts"`
}

type PayoutEntry struct {
	Owner       string `json:"owner"`
	AmountCents int64  `json:"amount_cents"`
}

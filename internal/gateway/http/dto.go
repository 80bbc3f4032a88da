package httpapi

import (
	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/internal/engine/odds"
)

type PlaceBetRequest struct {
	Owner       string `json:"owner"`
	MarketID    string `json:"marketId"`
	Side        string `json:"side"` // "Yes" | "No"
	AmountCents int64  `json:"amount_cents"`
}

type DepositRequest struct {
	Owner       string `json:"owner"`
	AmountCents int64  `json:"amount_cents"`
}

type CreateMarketRequest struct {
	Creator     string `json:"creator"`
	Description string `json:"description"`
}

type ResolveRequest struct {
	Outcome bool `json:"outcome"`
}

type PlaceBetResponse struct {
	Bet ledger.Bet `json:"bet"`
}

// MarketView é um mercado com as odds implícitas anexadas pra exibição.
type MarketView struct {
	market.Market
	YesOdds float64 `json:"yesOdds"`
	NoOdds  float64 `json:"noOdds"`
}

func toView(m market.Market) MarketView {
	return MarketView{
		Market:  m,
		YesOdds: odds.Implied(m.YesPoolCents, m.NoPoolCents, market.SideYes),
		NoOdds:  odds.Implied(m.YesPoolCents, m.NoPoolCents, market.SideNo),
	}
}

func toViews(ms []market.Market) []MarketView {
	out := make([]MarketView, 0, len(ms))
	for _, m := range ms {
		out = append(out, toView(m))
	}
	return out
}

package topics

const (
	// Ciclo de vida de mercados
	MarketCreated  = "market_created"
	MarketResolved = "market_resolved"
	MarketSettled  = "market_settled"

	// Apostas
	BetPlaced = "bet_placed"
)

package events

type BetPlaced struct {
	Owner       string `json:"owner"`
	MarketID    string `json:"marketId"`
	Side        string `json:"side"` // "Yes" | "No"
	AmountCents int64  `json:"amount_cents"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}

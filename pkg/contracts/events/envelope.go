package events

// Tipos de mensagem do canal push (WS) e do pub/sub interno.
const (
	TypeInitialMarkets = "INITIAL_MARKETS"
	TypeMarketCreated  = "MARKET_CREATED"
	TypeMarketResolved = "MARKET_RESOLVED"
)

// Envelope é a unidade enviada aos assinantes do canal push.
// Payload carrega um mercado (criação/snapshot) ou um MarketResolved.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// MarketResolved é o payload de resolução enviado aos assinantes.
type MarketResolved struct {
	MarketID string `json:"marketId"`
	Outcome  bool   `json:"outcome"`
}

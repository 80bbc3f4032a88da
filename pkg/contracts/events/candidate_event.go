package events

import "time"

// CandidateEvent é um evento sintético de esports candidato a virar mercado.
// Exposto também em GET /v1/events como amostra de diagnóstico.
type CandidateEvent struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"` // ex: "first_blood", "baron_kill"
	Team    string    `json:"team"`
	MatchID string    `json:"matchId"`
	Ts      time.Time `json:"ts"`
}

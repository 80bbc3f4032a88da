package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

// Catálogo fixo de momentos de jogo que viram mercados.
var eventTypes = []string{
	"first_blood",
	"baron_kill",
	"dragon_take",
	"tower_destroy",
	"inhibitor_destroy",
	"ace",
	"penta_kill",
}

var teams = []string{"Team A", "Team B"}

// RandomEvent sintetiza um evento candidato do catálogo.
func RandomEvent() events.CandidateEvent {
	now := time.Now().UTC()
	return events.CandidateEvent{
		ID:      fmt.Sprintf("event_%d", now.UnixMilli()),
		Type:    eventTypes[rand.Intn(len(eventTypes))],
		Team:    teams[rand.Intn(len(teams))],
		MatchID: "mock_match_1",
		Ts:      now,
	}
}

// Describe deriva a descrição legível do mercado a partir do evento.
func Describe(ev events.CandidateEvent, ttl time.Duration) string {
	return fmt.Sprintf("Will %s achieve %s in the next %s?", ev.Team, ev.Type, ttlLabel(ttl))
}

func ttlLabel(ttl time.Duration) string {
	if ttl >= time.Minute && ttl%time.Minute == 0 {
		min := int(ttl / time.Minute)
		if min == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", min)
	}
	return ttl.String()
}

package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

// KafkaAuditor publica o ciclo de vida dos mercados em tópicos Kafka:
// criação, resolução, liquidação e apostas. Trilha de auditoria — a
// entrega aos assinantes WS não depende dele.
type KafkaAuditor struct {
	Created  *kafka.Writer
	Resolved *kafka.Writer
	Settled  *kafka.Writer
	Bets     *kafka.Writer
}

// Publish implementa Broadcaster: roteia o envelope pro tópico do seu tipo.
// Snapshots iniciais são por-assinante e não geram auditoria.
func (a *KafkaAuditor) Publish(ctx context.Context, ev events.Envelope) error {
	var w *kafka.Writer
	switch ev.Type {
	case events.TypeMarketCreated:
		w = a.Created
	case events.TypeMarketResolved:
		w = a.Resolved
	default:
		return nil
	}
	if w == nil {
		return nil
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Value: b, Time: time.Now()})
}

// PublishSettlement publica o relatório de liquidação no tópico dedicado,
// com o marketId como chave pra ordenar por partição.
func (a *KafkaAuditor) PublishSettlement(ctx context.Context, s events.MarketSettled) error {
	if a.Settled == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return a.Settled.WriteMessages(ctx, kafka.Message{
		Key:   []byte(s.MarketID),
		Value: b,
		Time:  time.Now(),
	})
}

// PublishBetPlaced publica a aposta confirmada no tópico bet_placed.
func (a *KafkaAuditor) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	if a.Bets == nil {
		return nil
	}
	e.TsUnixMs = time.Now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return a.Bets.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.MarketID),
		Value: b,
		Time:  time.Now(),
	})
}

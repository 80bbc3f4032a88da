// Package notify faz o fan-out de eventos de ciclo de vida dos mercados:
// hub WebSocket pra assinantes conectados, canal Redis Pub/Sub pra
// distribuir entre réplicas e tópicos Kafka pra auditoria.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

// Broadcaster publica um envelope pros assinantes. Entrega best-effort,
// at-most-once; nunca bloqueia nem falha o caminho que muda estado.
type Broadcaster interface {
	Publish(ctx context.Context, ev events.Envelope) error
}

// Multi publica em vários sinks; erro de um sink é logado e não
// interrompe os demais.
type Multi struct {
	Log   *zap.Logger
	Sinks []Broadcaster
}

func (m *Multi) Publish(ctx context.Context, ev events.Envelope) error {
	for _, s := range m.Sinks {
		if err := s.Publish(ctx, ev); err != nil {
			m.Log.Warn("broadcast sink failed", zap.String("type", ev.Type), zap.Error(err))
		}
	}
	return nil
}

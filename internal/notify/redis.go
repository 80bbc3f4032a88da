package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

// RedisBroadcaster publica envelopes num canal Redis Pub/Sub.
// Desacopla o caminho que muda estado (scheduler, gateway) da entrega
// WebSocket e permite múltiplas réplicas de gateway compartilharem o
// mesmo stream.
type RedisBroadcaster struct {
	R       *redis.Client
	Channel string
}

func (b *RedisBroadcaster) Publish(ctx context.Context, ev events.Envelope) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.R.Publish(ctx, b.Channel, payload).Err()
}

// StartRedisSubscriber escuta o canal Pub/Sub e repassa cada envelope
// recebido pro hub local. Roda até o contexto encerrar.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var env events.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Warn("pubsub envelope unmarshal failed", zap.Error(err))
					continue
				}
				hub.Broadcast(env)
			}
		}
	}()
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/shared/config"
	"github.com/aetherwave/market-engine/internal/shared/logger"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

const redialDelay = 3 * time.Second

// market-watcher: cliente de demonstração/diagnóstico do canal push.
// Conecta no /ws do oracle-service e loga cada envelope recebido.
func main() {
	cfg := config.Load()

	log, err := logger.New("market-watcher", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	watch(context.Background(), cfg.OracleWSURL, log, redialDelay)
}

// watch reconecta em loop. O intervalo vale pra qualquer desconexão,
// inclusive fechamento normal — sem ele um servidor que fecha limpo na
// hora vira busy-loop de reconexão.
func watch(ctx context.Context, url string, log *zap.Logger, delay time.Duration) {
	for {
		if err := connectAndListen(ctx, url, log); err != nil {
			log.Warn("connection closed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func connectAndListen(ctx context.Context, url string, log *zap.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info("connected to oracle WS", zap.String("url", url))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var env events.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Warn("invalid envelope", zap.Error(err))
			continue
		}

		switch env.Type {
		case events.TypeInitialMarkets:
			markets, _ := env.Payload.([]any)
			log.Info("initial snapshot", zap.Int("open_markets", len(markets)))
		case events.TypeMarketCreated:
			log.Info("market created", zap.Any("market", env.Payload))
		case events.TypeMarketResolved:
			log.Info("market resolved", zap.Any("resolution", env.Payload))
		default:
			log.Debug("envelope", zap.String("type", env.Type))
		}
	}
}

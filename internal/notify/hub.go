package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

const writeTimeout = 2 * time.Second

// Snapshotter fornece os mercados abertos enviados a cada novo assinante.
type Snapshotter interface {
	ListOpen(ctx context.Context) ([]market.Market, error)
}

type clientConn struct {
	id   string
	conn *websocket.Conn

	// gorilla/websocket proíbe escritores concorrentes na mesma conexão;
	// todo write passa por este mutex.
	writeMu sync.Mutex
}

func (c *clientConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub gerencia o conjunto de assinantes WebSocket conectados.
// Todo assinante recebe um snapshot INITIAL_MARKETS no connect; depois
// disso só broadcasts — não há replay, quem conecta tarde converge pelo
// snapshot.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	snaps    Snapshotter

	mu      sync.RWMutex
	clients map[string]*clientConn

	// Hooks de métricas
	OnConnect    func()
	OnDisconnect func()
	OnSent       func()
}

func NewHub(log *zap.Logger, snaps Snapshotter) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		snaps:   snaps,
		clients: make(map[string]*clientConn),
	}
}

// HandleWS faz o upgrade, envia o snapshot inicial e mantém a conexão
// até o cliente desconectar. Mensagens recebidas são descartadas.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	id := fmt.Sprintf("%d", time.Now().UnixNano())
	c := &clientConn{id: id, conn: conn}

	// Snapshot antes de registrar: o assinante tem visão completa dos
	// mercados abertos antes de qualquer broadcast chegar.
	if err := h.sendSnapshot(r.Context(), c); err != nil {
		h.log.Warn("initial snapshot failed", zap.String("client_id", id), zap.Error(err))
		_ = conn.Close()
		return
	}

	h.add(c)

	go func() {
		defer func() {
			h.remove(id)
			_ = conn.Close()
		}()
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) sendSnapshot(ctx context.Context, c *clientConn) error {
	open, err := h.snaps.ListOpen(ctx)
	if err != nil {
		return err
	}
	if open == nil {
		open = []market.Market{}
	}
	msg, err := json.Marshal(events.Envelope{Type: events.TypeInitialMarkets, Payload: open})
	if err != nil {
		return err
	}
	return c.write(msg)
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	if h.OnConnect != nil {
		h.OnConnect()
	}
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	_, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		if h.OnDisconnect != nil {
			h.OnDisconnect()
		}
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Broadcast envia o envelope a todos os assinantes conectados agora.
// Conexão que falha a escrita é fechada e removida em silêncio; nunca
// bloqueia o chamador além do write deadline por conexão.
func (h *Hub) Broadcast(ev events.Envelope) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("envelope marshal failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(msg); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", c.id), zap.Error(err))
			_ = c.conn.Close()
			h.remove(c.id)
			continue
		}
		if h.OnSent != nil {
			h.OnSent()
		}
	}
}

// Publish implementa Broadcaster pra fiação local (modo memory, sem Redis).
func (h *Hub) Publish(_ context.Context, ev events.Envelope) error {
	h.Broadcast(ev)
	return nil
}

// Subscribers retorna o número de assinantes conectados.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

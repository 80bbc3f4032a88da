package market

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusOpen     Status = "Open"
	StatusResolved Status = "Resolved"
)

type Side string

const (
	SideYes Side = "Yes"
	SideNo  Side = "No"
)

// Valid reporta se o lado é um dos dois lados conhecidos.
func (s Side) Valid() bool { return s == SideYes || s == SideNo }

// Market é um mercado binário de evento de esports.
// Os pools acumulam o total apostado em cada lado; Resolution só existe
// depois do mercado resolvido e nunca muda.
type Market struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Creator      string    `json:"creator"`
	YesPoolCents int64     `json:"yes_pool_cents"`
	NoPoolCents  int64     `json:"no_pool_cents"`
	Status       Status    `json:"status"`
	Resolution   *bool     `json:"resolution,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Open reporta se o mercado ainda aceita apostas no instante now.
// Depois de ExpiresAt o mercado está logicamente fechado mesmo que a
// resolução agendada ainda não tenha rodado.
func (m Market) Open(now time.Time) bool {
	return m.Status == StatusOpen && now.Before(m.ExpiresAt)
}

// TotalPoolCents retorna a soma dos dois pools.
func (m Market) TotalPoolCents() int64 { return m.YesPoolCents + m.NoPoolCents }

// PoolCents retorna o pool do lado pedido.
func (m Market) PoolCents(side Side) int64 {
	if side == SideYes {
		return m.YesPoolCents
	}
	return m.NoPoolCents
}

var (
	ErrNotFound        = errors.New("market not found")
	ErrClosed          = errors.New("market closed")
	ErrAlreadyResolved = errors.New("market already resolved")
)

// Store é o dono canônico dos mercados e do seu ciclo de vida.
// Mutação de um mesmo mercado é linearizável: dois AddToPool concorrentes
// nunca perdem incremento.
type Store interface {
	Create(ctx context.Context, description, creator string, ttl time.Duration) (Market, error)
	Get(ctx context.Context, id string) (Market, error)
	List(ctx context.Context) ([]Market, error)
	ListOpen(ctx context.Context) ([]Market, error)

	// AddToPool incrementa o pool do lado indicado. Falha com ErrClosed
	// quando o mercado não está Open ou já passou de ExpiresAt.
	AddToPool(ctx context.Context, id string, side Side, amountCents int64) error

	// Resolve faz a transição Open -> Resolved e retorna o snapshot
	// congelado dos pools. Falha com ErrAlreadyResolved na segunda chamada.
	Resolve(ctx context.Context, id string, outcome bool) (Market, error)

	// ListUnresolved retorna mercados ainda não resolvidos, vencidos ou não.
	// Usado pelo scheduler pra rearmar resoluções após restart.
	ListUnresolved(ctx context.Context) ([]Market, error)
}

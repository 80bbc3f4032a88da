// Package scheduler fabrica mercados numa cadência fixa e agenda a
// resolução de cada um exatamente no seu ExpiresAt. A resolução é
// dirigida por tempo, não por demanda: dispara mesmo que nenhum cliente
// consulte o mercado.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aetherwave/market-engine/internal/engine/market"
	"github.com/aetherwave/market-engine/internal/engine/settlement"
	"github.com/aetherwave/market-engine/internal/notify"
	"github.com/aetherwave/market-engine/pkg/contracts/events"
)

const (
	retryBase = time.Second
	retryCap  = 30 * time.Second
)

// SettlementSink recebe os relatórios de liquidação (auditoria Kafka).
type SettlementSink interface {
	PublishSettlement(ctx context.Context, s events.MarketSettled) error
}

// Scheduler abre um mercado por tick e arma um timer de resolução por
// mercado. No Start, rearma os mercados não resolvidos já persistidos —
// vencidos resolvem imediatamente (recuperação pós-restart).
type Scheduler struct {
	log      *zap.Logger
	markets  market.Store
	resolver *settlement.Service
	outcomes settlement.OutcomeProvider
	bus      notify.Broadcaster
	sink     SettlementSink // opcional

	creator  string
	interval time.Duration
	ttl      time.Duration

	wg sync.WaitGroup

	// Hooks de métricas
	OnMarketCreated func()
	OnResolved      func()
	OnResolveError  func()
}

func New(
	log *zap.Logger,
	markets market.Store,
	resolver *settlement.Service,
	outcomes settlement.OutcomeProvider,
	bus notify.Broadcaster,
	sink SettlementSink,
	interval, ttl time.Duration,
) *Scheduler {
	return &Scheduler{
		log:      log,
		markets:  markets,
		resolver: resolver,
		outcomes: outcomes,
		bus:      bus,
		sink:     sink,
		creator:  "oracle",
		interval: interval,
		ttl:      ttl,
	}
}

// Start rearma as resoluções pendentes e inicia o loop de geração.
// Retorna depois de armar tudo; o trabalho segue em goroutines até o
// contexto encerrar.
func (s *Scheduler) Start(ctx context.Context) error {
	pending, err := s.markets.ListUnresolved(ctx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		s.log.Info("re-arming resolution",
			zap.String("marketId", m.ID),
			zap.Time("expires_at", m.ExpiresAt),
		)
		s.armResolution(ctx, m)
	}

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Wait bloqueia até todas as goroutines do scheduler encerrarem.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick sintetiza um evento candidato, abre o mercado correspondente e
// agenda sua resolução.
func (s *Scheduler) tick(ctx context.Context) {
	ev := RandomEvent()
	m, err := s.markets.Create(ctx, Describe(ev, s.ttl), s.creator, s.ttl)
	if err != nil {
		s.log.Error("market create failed", zap.Error(err))
		return
	}

	s.log.Info("market created",
		zap.String("marketId", m.ID),
		zap.String("description", m.Description),
		zap.Time("expires_at", m.ExpiresAt),
	)
	if s.OnMarketCreated != nil {
		s.OnMarketCreated()
	}

	_ = s.bus.Publish(ctx, events.Envelope{Type: events.TypeMarketCreated, Payload: m})

	s.armResolution(ctx, m)
}

// armResolution agenda a resolução pro ExpiresAt do mercado. Mercados já
// vencidos resolvem de imediato.
func (s *Scheduler) armResolution(ctx context.Context, m market.Market) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if delay := time.Until(m.ExpiresAt); delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}

		s.resolveWithRetry(ctx, m)
	}()
}

// resolveWithRetry determina o desfecho e liquida, com backoff
// exponencial em falha de infra. Um mercado nunca fica sem resolução;
// ErrAlreadyResolved (ex: resolução administrativa no meio tempo) é
// tratado como no-op.
func (s *Scheduler) resolveWithRetry(ctx context.Context, m market.Market) {
	backoff := retryBase
	for {
		err := s.resolveOnce(ctx, m)
		if err == nil || errors.Is(err, market.ErrAlreadyResolved) || errors.Is(err, market.ErrNotFound) {
			return
		}

		if s.OnResolveError != nil {
			s.OnResolveError()
		}
		s.log.Warn("resolution failed, retrying",
			zap.String("marketId", m.ID),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > retryCap {
			backoff = retryCap
		}
	}
}

func (s *Scheduler) resolveOnce(ctx context.Context, m market.Market) error {
	outcome, err := s.outcomes.Determine(ctx, m)
	if err != nil {
		return err
	}

	rep, err := s.resolver.Resolve(ctx, m.ID, outcome)
	if err != nil {
		return err
	}

	if s.OnResolved != nil {
		s.OnResolved()
	}

	_ = s.bus.Publish(ctx, events.Envelope{
		Type:    events.TypeMarketResolved,
		Payload: events.MarketResolved{MarketID: m.ID, Outcome: outcome},
	})

	if s.sink != nil {
		if err := s.sink.PublishSettlement(ctx, rep.Settled()); err != nil {
			// Auditoria é best-effort; a liquidação já está aplicada.
			s.log.Warn("settlement audit publish failed", zap.String("marketId", m.ID), zap.Error(err))
		}
	}

	return nil
}

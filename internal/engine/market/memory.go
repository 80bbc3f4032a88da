package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory é a implementação em memória do Store.
// Um único mutex serializa toda mutação; suficiente pro volume do motor
// e elimina a corrida clássica de read-modify-write nos pools.
type Memory struct {
	mu      sync.RWMutex
	markets map[string]*Market
}

func NewMemory() *Memory {
	return &Memory{markets: make(map[string]*Market)}
}

func (s *Memory) Create(_ context.Context, description, creator string, ttl time.Duration) (Market, error) {
	now := time.Now().UTC()
	m := Market{
		ID:          uuid.NewString(),
		Description: description,
		Creator:     creator,
		Status:      StatusOpen,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	s.mu.Lock()
	s.markets[m.ID] = &m
	s.mu.Unlock()

	return m, nil
}

func (s *Memory) Get(_ context.Context, id string) (Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return Market{}, ErrNotFound
	}
	return *m, nil
}

func (s *Memory) List(_ context.Context) ([]Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, *m)
	}
	sortByCreation(out)
	return out, nil
}

func (s *Memory) ListOpen(_ context.Context) ([]Market, error) {
	now := time.Now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Market
	for _, m := range s.markets {
		if m.Open(now) {
			out = append(out, *m)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *Memory) AddToPool(_ context.Context, id string, side Side, amountCents int64) error {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return ErrNotFound
	}
	if !m.Open(now) {
		return ErrClosed
	}

	if side == SideYes {
		m.YesPoolCents += amountCents
	} else {
		m.NoPoolCents += amountCents
	}
	return nil
}

func (s *Memory) Resolve(_ context.Context, id string, outcome bool) (Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.markets[id]
	if !ok {
		return Market{}, ErrNotFound
	}
	if m.Status == StatusResolved {
		return Market{}, ErrAlreadyResolved
	}

	m.Status = StatusResolved
	out := outcome
	m.Resolution = &out
	return *m, nil
}

func (s *Memory) ListUnresolved(_ context.Context) ([]Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Market
	for _, m := range s.markets {
		if m.Status != StatusResolved {
			out = append(out, *m)
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(ms []Market) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].ID < ms[j].ID
		}
		return ms[i].CreatedAt.Before(ms[j].CreatedAt)
	})
}

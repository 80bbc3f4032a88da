package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// betRecord separa o valor confirmado (dentro do pool, liquidável) do
// valor pendente (debitado mas ainda fora do pool).
type betRecord struct {
	bet          Bet // AmountCents = confirmado
	pendingCents int64
}

type account struct {
	balanceCents int64
	bets         map[string]*betRecord
}

// Memory é a implementação em memória do Store.
type Memory struct {
	mu            sync.Mutex
	accounts      map[string]*account
	startingCents int64
}

// NewMemory cria o ledger em memória; startingCents é o saldo atribuído
// a cada conta no primeiro acesso.
func NewMemory(startingCents int64) *Memory {
	return &Memory{
		accounts:      make(map[string]*account),
		startingCents: startingCents,
	}
}

// getOrCreateLocked assume s.mu já adquirido.
func (s *Memory) getOrCreateLocked(owner string) *account {
	acc, ok := s.accounts[owner]
	if !ok {
		acc = &account{
			balanceCents: s.startingCents,
			bets:         make(map[string]*betRecord),
		}
		s.accounts[owner] = acc
	}
	return acc
}

func (s *Memory) GetOrCreate(_ context.Context, owner string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return snapshot(owner, s.getOrCreateLocked(owner)), nil
}

func (s *Memory) Debit(_ context.Context, owner string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.getOrCreateLocked(owner)
	if acc.balanceCents < amountCents {
		return ErrInsufficientFunds
	}
	acc.balanceCents -= amountCents
	return nil
}

func (s *Memory) Credit(_ context.Context, owner string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateLocked(owner).balanceCents += amountCents
	return nil
}

func (s *Memory) Stake(_ context.Context, b Bet) (Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.getOrCreateLocked(b.Owner)

	rec, ok := acc.bets[b.MarketID]
	if ok && rec.bet.Side != b.Side {
		return Bet{}, ErrConflictingBet
	}
	if acc.balanceCents < b.AmountCents {
		return Bet{}, ErrInsufficientFunds
	}

	acc.balanceCents -= b.AmountCents

	if !ok {
		placed := b.PlacedAt
		if placed.IsZero() {
			placed = time.Now().UTC()
		}
		rec = &betRecord{bet: Bet{
			Owner:    b.Owner,
			MarketID: b.MarketID,
			Side:     b.Side,
			PlacedAt: placed, // mantém o instante do primeiro stake
		}}
		acc.bets[b.MarketID] = rec
	}
	rec.pendingCents += b.AmountCents

	proj := rec.bet
	proj.AmountCents += rec.pendingCents
	return proj, nil
}

func (s *Memory) ConfirmStake(_ context.Context, owner, marketID string, amountCents int64) (Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.getOrCreateLocked(owner)
	rec, ok := acc.bets[marketID]
	if !ok || rec.pendingCents < amountCents {
		return Bet{}, fmt.Errorf("no pending stake of %d for %s on market %s", amountCents, owner, marketID)
	}

	rec.pendingCents -= amountCents
	rec.bet.AmountCents += amountCents
	return rec.bet, nil
}

func (s *Memory) RevertStake(_ context.Context, owner, marketID string, amountCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.getOrCreateLocked(owner)
	acc.balanceCents += amountCents

	if rec, ok := acc.bets[marketID]; ok {
		rec.pendingCents -= amountCents
		if rec.bet.AmountCents <= 0 && rec.pendingCents <= 0 {
			delete(acc.bets, marketID)
		}
	}
	return nil
}

func (s *Memory) BetsForMarket(_ context.Context, marketID string) ([]Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Bet
	for _, acc := range s.accounts {
		if rec, ok := acc.bets[marketID]; ok && rec.bet.AmountCents > 0 {
			out = append(out, rec.bet)
		}
	}
	return out, nil
}

// snapshot copia a conta pra fora do lock; só apostas confirmadas
// aparecem em ActiveBets.
func snapshot(owner string, acc *account) Account {
	out := Account{
		Owner:        owner,
		BalanceCents: acc.balanceCents,
		ActiveBets:   make(map[string]Bet, len(acc.bets)),
	}
	for id, rec := range acc.bets {
		if rec.bet.AmountCents > 0 {
			out.ActiveBets[id] = rec.bet
		}
	}
	return out
}

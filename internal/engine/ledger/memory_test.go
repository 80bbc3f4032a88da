package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
)

func TestMemory_GetOrCreate_StartingBalance(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	acc, err := s.GetOrCreate(ctx, "user_123")
	require.NoError(t, err)
	assert.Equal(t, "user_123", acc.Owner)
	assert.Equal(t, int64(100_000), acc.BalanceCents)
	assert.Empty(t, acc.ActiveBets)

	// segundo acesso não recredita o saldo inicial
	require.NoError(t, s.Debit(ctx, "user_123", 40_000))
	acc, _ = s.GetOrCreate(ctx, "user_123")
	assert.Equal(t, int64(60_000), acc.BalanceCents)
}

func TestMemory_Debit_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100)

	err := s.Debit(ctx, "u", 101)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	acc, _ := s.GetOrCreate(ctx, "u")
	assert.Equal(t, int64(100), acc.BalanceCents) // sem efeito parcial
}

func TestMemory_Stake_DebitsAndHoldsPending(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	bet, err := s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideYes, AmountCents: 10_000})
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), bet.AmountCents)
	assert.False(t, bet.PlacedAt.IsZero())

	// pendente: debitado mas invisível pra liquidação e pro snapshot
	acc, _ := s.GetOrCreate(ctx, "u")
	assert.Equal(t, int64(90_000), acc.BalanceCents)
	assert.Empty(t, acc.ActiveBets)

	bets, err := s.BetsForMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, bets)

	confirmed, err := s.ConfirmStake(ctx, "u", "m1", 10_000)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), confirmed.AmountCents)

	acc, _ = s.GetOrCreate(ctx, "u")
	assert.Equal(t, confirmed, acc.ActiveBets["m1"])
	bets, _ = s.BetsForMarket(ctx, "m1")
	require.Len(t, bets, 1)
	assert.Equal(t, confirmed, bets[0])
}

func TestMemory_ConfirmStake_RequiresPending(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	_, err := s.ConfirmStake(ctx, "u", "m1", 100)
	assert.Error(t, err)

	_, err = s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideYes, AmountCents: 100})
	require.NoError(t, err)
	_, err = s.ConfirmStake(ctx, "u", "m1", 200) // mais do que o pendente
	assert.Error(t, err)
}

func TestMemory_Stake_AccumulatesSameSide(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	first, err := s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideYes, AmountCents: 10_000})
	require.NoError(t, err)
	_, err = s.ConfirmStake(ctx, "u", "m1", 10_000)
	require.NoError(t, err)

	second, err := s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideYes, AmountCents: 5_000})
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), second.AmountCents) // projeção confirmado+pendente
	assert.Equal(t, first.PlacedAt, second.PlacedAt)   // mantém o primeiro instante

	confirmed, err := s.ConfirmStake(ctx, "u", "m1", 5_000)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), confirmed.AmountCents)

	acc, _ := s.GetOrCreate(ctx, "u")
	assert.Equal(t, int64(85_000), acc.BalanceCents)
	assert.Len(t, acc.ActiveBets, 1)
}

func TestMemory_Stake_RejectsOppositeSide(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	_, err := s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideYes, AmountCents: 10_000})
	require.NoError(t, err)

	_, err = s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideNo, AmountCents: 5_000})
	assert.ErrorIs(t, err, ledger.ErrConflictingBet)

	acc, _ := s.GetOrCreate(ctx, "u")
	assert.Equal(t, int64(90_000), acc.BalanceCents) // rejeição não debita
}

func TestMemory_Stake_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(1_000)

	_, err := s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideNo, AmountCents: 2_000})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	acc, _ := s.GetOrCreate(ctx, "u")
	assert.Equal(t, int64(1_000), acc.BalanceCents)
	assert.Empty(t, acc.ActiveBets)
}

func TestMemory_RevertStake(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	_, err := s.Stake(ctx, ledger.Bet{Owner: "u", MarketID: "m1", Side: market.SideYes, AmountCents: 10_000})
	require.NoError(t, err)

	require.NoError(t, s.RevertStake(ctx, "u", "m1", 10_000))

	acc, _ := s.GetOrCreate(ctx, "u")
	assert.Equal(t, int64(100_000), acc.BalanceCents)
	assert.Empty(t, acc.ActiveBets)
}

func TestMemory_BetsForMarket(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemory(100_000)

	for _, b := range []ledger.Bet{
		{Owner: "a", MarketID: "m1", Side: market.SideYes, AmountCents: 100},
		{Owner: "b", MarketID: "m1", Side: market.SideNo, AmountCents: 200},
		{Owner: "a", MarketID: "m2", Side: market.SideNo, AmountCents: 300},
	} {
		_, err := s.Stake(ctx, b)
		require.NoError(t, err)
		_, err = s.ConfirmStake(ctx, b.Owner, b.MarketID, b.AmountCents)
		require.NoError(t, err)
	}

	bets, err := s.BetsForMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, bets, 2)

	var total int64
	for _, b := range bets {
		total += b.AmountCents
	}
	assert.Equal(t, int64(300), total)
}

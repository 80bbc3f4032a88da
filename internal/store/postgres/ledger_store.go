package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aetherwave/market-engine/internal/engine/ledger"
	"github.com/aetherwave/market-engine/internal/engine/market"
)

type LedgerStore struct {
	db            *sql.DB
	startingCents int64
}

func NewLedgerStore(db *sql.DB, startingCents int64) *LedgerStore {
	return &LedgerStore{db: db, startingCents: startingCents}
}

// ensureAccount garante a linha da conta (saldo inicial no primeiro
// acesso) e a trava pra atualização.
func (s *LedgerStore) ensureAccount(ctx context.Context, tx *sql.Tx, owner string) (balance int64, err error) {
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (owner, balance_cents) VALUES ($1,$2)
		ON CONFLICT (owner) DO NOTHING`,
		owner, s.startingCents); err != nil {
		return 0, err
	}

	err = tx.QueryRowContext(ctx,
		`SELECT balance_cents FROM accounts WHERE owner=$1 FOR UPDATE`, owner).
		Scan(&balance)
	return balance, err
}

func (s *LedgerStore) GetOrCreate(ctx context.Context, owner string) (ledger.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Account{}, err
	}
	defer tx.Rollback()

	balance, err := s.ensureAccount(ctx, tx, owner)
	if err != nil {
		return ledger.Account{}, err
	}

	acc := ledger.Account{
		Owner:        owner,
		BalanceCents: balance,
		ActiveBets:   make(map[string]ledger.Bet),
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT market_id, side, amount_cents, placed_at
		FROM bets WHERE owner=$1 AND amount_cents > 0`, owner)
	if err != nil {
		return ledger.Account{}, err
	}
	defer rows.Close()

	for rows.Next() {
		b := ledger.Bet{Owner: owner}
		var side string
		if err := rows.Scan(&b.MarketID, &side, &b.AmountCents, &b.PlacedAt); err != nil {
			return ledger.Account{}, err
		}
		b.Side = market.Side(side)
		acc.ActiveBets[b.MarketID] = b
	}
	if err := rows.Err(); err != nil {
		return ledger.Account{}, err
	}

	if err := tx.Commit(); err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func (s *LedgerStore) Debit(ctx context.Context, owner string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	balance, err := s.ensureAccount(ctx, tx, owner)
	if err != nil {
		return err
	}
	if balance < amountCents {
		return ledger.ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents - $1 WHERE owner=$2`,
		amountCents, owner); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *LedgerStore) Credit(ctx context.Context, owner string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = s.ensureAccount(ctx, tx, owner); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + $1 WHERE owner=$2`,
		amountCents, owner); err != nil {
		return err
	}

	return tx.Commit()
}

// Stake debita e grava/acumula a aposta como pendente numa única
// transação; o lock da conta serializa stakes concorrentes do mesmo
// owner. O valor só vira liquidável em ConfirmStake.
func (s *LedgerStore) Stake(ctx context.Context, b ledger.Bet) (ledger.Bet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Bet{}, err
	}
	defer tx.Rollback()

	balance, err := s.ensureAccount(ctx, tx, b.Owner)
	if err != nil {
		return ledger.Bet{}, err
	}

	var prevSide string
	err = tx.QueryRowContext(ctx, `
		SELECT side FROM bets WHERE owner=$1 AND market_id=$2 FOR UPDATE`,
		b.Owner, b.MarketID).Scan(&prevSide)
	if err != nil && err != sql.ErrNoRows {
		return ledger.Bet{}, err
	}
	if err == nil && market.Side(prevSide) != b.Side {
		return ledger.Bet{}, ledger.ErrConflictingBet
	}

	if balance < b.AmountCents {
		return ledger.Bet{}, ledger.ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents - $1 WHERE owner=$2`,
		b.AmountCents, b.Owner); err != nil {
		return ledger.Bet{}, err
	}

	if b.PlacedAt.IsZero() {
		b.PlacedAt = time.Now().UTC()
	}

	rec := b
	var side string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO bets (owner, market_id, side, amount_cents, pending_cents, placed_at)
		VALUES ($1,$2,$3,0,$4,$5)
		ON CONFLICT (owner, market_id) DO UPDATE
		  SET pending_cents = bets.pending_cents + EXCLUDED.pending_cents
		RETURNING side, amount_cents + pending_cents, placed_at`,
		b.Owner, b.MarketID, string(b.Side), b.AmountCents, b.PlacedAt).
		Scan(&side, &rec.AmountCents, &rec.PlacedAt)
	if err != nil {
		return ledger.Bet{}, err
	}
	rec.Side = market.Side(side)

	if err = tx.Commit(); err != nil {
		return ledger.Bet{}, err
	}
	return rec, nil
}

// ConfirmStake torna liquidável o valor pendente de um Stake, depois
// que o incremento de pool confirmou.
func (s *LedgerStore) ConfirmStake(ctx context.Context, owner, marketID string, amountCents int64) (ledger.Bet, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Bet{}, err
	}
	defer tx.Rollback()

	rec := ledger.Bet{Owner: owner, MarketID: marketID}
	var side string
	err = tx.QueryRowContext(ctx, `
		UPDATE bets
		SET amount_cents = amount_cents + $1, pending_cents = pending_cents - $1
		WHERE owner=$2 AND market_id=$3 AND pending_cents >= $1
		RETURNING side, amount_cents, placed_at`,
		amountCents, owner, marketID).
		Scan(&side, &rec.AmountCents, &rec.PlacedAt)
	if err == sql.ErrNoRows {
		return ledger.Bet{}, fmt.Errorf("no pending stake of %d for %s on market %s", amountCents, owner, marketID)
	} else if err != nil {
		return ledger.Bet{}, err
	}
	rec.Side = market.Side(side)

	if err = tx.Commit(); err != nil {
		return ledger.Bet{}, err
	}
	return rec, nil
}

// RevertStake compensa um Stake pendente cujo incremento de pool não
// confirmou.
func (s *LedgerStore) RevertStake(ctx context.Context, owner, marketID string, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = s.ensureAccount(ctx, tx, owner); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + $1 WHERE owner=$2`,
		amountCents, owner); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE bets SET pending_cents = pending_cents - $1
		WHERE owner=$2 AND market_id=$3`,
		amountCents, owner, marketID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		DELETE FROM bets WHERE owner=$1 AND market_id=$2 AND amount_cents <= 0 AND pending_cents <= 0`,
		owner, marketID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *LedgerStore) BetsForMarket(ctx context.Context, marketID string) ([]ledger.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, market_id, side, amount_cents, placed_at
		FROM bets WHERE market_id=$1 AND amount_cents > 0`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Bet
	for rows.Next() {
		var b ledger.Bet
		var side string
		if err := rows.Scan(&b.Owner, &b.MarketID, &side, &b.AmountCents, &b.PlacedAt); err != nil {
			return nil, err
		}
		b.Side = market.Side(side)
		out = append(out, b)
	}
	return out, rows.Err()
}

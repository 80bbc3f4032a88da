// Package postgres implementa os stores duráveis de mercado e ledger.
// A linearização por agregado vem de locks de linha (FOR UPDATE) dentro
// de transações curtas.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/aetherwave/market-engine/internal/engine/market"
)

type MarketStore struct{ db *sql.DB }

func NewMarketStore(db *sql.DB) *MarketStore { return &MarketStore{db: db} }

func (s *MarketStore) Create(ctx context.Context, description, creator string, ttl time.Duration) (market.Market, error) {
	now := time.Now().UTC()
	m := market.Market{
		ID:          uuid.NewString(),
		Description: description,
		Creator:     creator,
		Status:      market.StatusOpen,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets (id, description, creator, yes_pool_cents, no_pool_cents, status, created_at, expires_at)
		VALUES ($1,$2,$3,0,0,$4,$5,$6)`,
		m.ID, m.Description, m.Creator, string(m.Status), m.CreatedAt, m.ExpiresAt,
	)
	if err != nil {
		return market.Market{}, err
	}
	return m, nil
}

const marketColumns = `id, description, creator, yes_pool_cents, no_pool_cents, status, resolution, created_at, expires_at`

func scanMarket(row interface{ Scan(...any) error }) (market.Market, error) {
	var m market.Market
	var status string
	var resolution sql.NullBool
	if err := row.Scan(&m.ID, &m.Description, &m.Creator, &m.YesPoolCents, &m.NoPoolCents,
		&status, &resolution, &m.CreatedAt, &m.ExpiresAt); err != nil {
		return market.Market{}, err
	}
	m.Status = market.Status(status)
	if resolution.Valid {
		v := resolution.Bool
		m.Resolution = &v
	}
	return m, nil
}

func (s *MarketStore) Get(ctx context.Context, id string) (market.Market, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id=$1`, id)
	m, err := scanMarket(row)
	if err == sql.ErrNoRows {
		return market.Market{}, market.ErrNotFound
	}
	return m, err
}

func (s *MarketStore) List(ctx context.Context) ([]market.Market, error) {
	return s.query(ctx, `SELECT `+marketColumns+` FROM markets ORDER BY created_at, id`)
}

func (s *MarketStore) ListOpen(ctx context.Context) ([]market.Market, error) {
	return s.query(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE status = 'Open' AND expires_at > now()
		ORDER BY created_at, id`)
}

func (s *MarketStore) ListUnresolved(ctx context.Context) ([]market.Market, error) {
	return s.query(ctx, `
		SELECT `+marketColumns+` FROM markets
		WHERE status <> 'Resolved'
		ORDER BY created_at, id`)
}

func (s *MarketStore) query(ctx context.Context, q string, args ...any) ([]market.Market, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddToPool incrementa o pool do lado dentro de uma transação com lock
// de linha. O deadline é verificado sob o lock: depois de expires_at a
// aposta é rejeitada mesmo que a resolução agendada ainda não tenha rodado.
func (s *MarketStore) AddToPool(ctx context.Context, id string, side market.Side, amountCents int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT status, expires_at FROM markets WHERE id=$1 FOR UPDATE`, id).
		Scan(&status, &expiresAt)
	if err == sql.ErrNoRows {
		return market.ErrNotFound
	} else if err != nil {
		return err
	}

	if market.Status(status) != market.StatusOpen || !time.Now().UTC().Before(expiresAt) {
		return market.ErrClosed
	}

	column := "no_pool_cents"
	if side == market.SideYes {
		column = "yes_pool_cents"
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE markets SET `+column+` = `+column+` + $1 WHERE id=$2`, amountCents, id); err != nil {
		return err
	}

	return tx.Commit()
}

// Resolve faz a transição Open -> Resolved e retorna o snapshot congelado.
func (s *MarketStore) Resolve(ctx context.Context, id string, outcome bool) (market.Market, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return market.Market{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id=$1 FOR UPDATE`, id)
	m, err := scanMarket(row)
	if err == sql.ErrNoRows {
		return market.Market{}, market.ErrNotFound
	} else if err != nil {
		return market.Market{}, err
	}

	if m.Status == market.StatusResolved {
		return market.Market{}, market.ErrAlreadyResolved
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE markets SET status=$1, resolution=$2 WHERE id=$3`,
		string(market.StatusResolved), outcome, id); err != nil {
		return market.Market{}, err
	}

	if err = tx.Commit(); err != nil {
		return market.Market{}, err
	}

	m.Status = market.StatusResolved
	m.Resolution = &outcome
	return m, nil
}

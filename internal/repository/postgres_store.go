package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/neurovault/vault/internal/domain"
)

// Sequence names in vault_sequences.
const (
	seqProduct      = "product"
	seqEntry        = "entry"
	seqDistribution = "distribution"
	seqInstrument   = "instrument"
	seqInvestment   = "investment"
	seqActivity     = "activity"
)

// PostgresStore persists vault state. Every Commit is one SQL transaction.
type PostgresStore struct {
	db            *sqlx.DB
	activityLimit int
}

// NewPostgresStore creates a store that loads at most activityLimit recent
// activities at startup (<= 0 loads all).
func NewPostgresStore(db *sqlx.DB, activityLimit int) *PostgresStore {
	return &PostgresStore{db: db, activityLimit: activityLimit}
}

// Load rebuilds the full vault state. A fresh database yields an empty state
// with zero settings.
func (s *PostgresStore) Load(ctx context.Context) (*domain.VaultState, error) {
	st := domain.NewVaultState(0)

	err := s.db.GetContext(ctx, &st.Settings,
		`SELECT pooled_balance, lock_period_minutes FROM vault_settings WHERE id = 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store.Load settings: %w", err)
	}

	var admins []uuid.UUID
	if err := s.db.SelectContext(ctx, &admins, `SELECT principal FROM vault_admins ORDER BY added_at`); err != nil {
		return nil, fmt.Errorf("store.Load admins: %w", err)
	}
	for _, a := range admins {
		st.Admins[a] = struct{}{}
	}

	var products []domain.Product
	if err := s.db.SelectContext(ctx, &products, `SELECT * FROM products ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store.Load products: %w", err)
	}
	for i := range products {
		st.Products[products[i].ID] = &products[i]
	}

	var entries []domain.VaultEntry
	if err := s.db.SelectContext(ctx, &entries, `SELECT * FROM vault_entries ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store.Load entries: %w", err)
	}
	for i := range entries {
		st.Entries[entries[i].ID] = &entries[i]
	}

	var dists []domain.DividendDistribution
	if err := s.db.SelectContext(ctx, &dists, `SELECT * FROM dividend_distributions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store.Load distributions: %w", err)
	}
	for i := range dists {
		st.Distributions[dists[i].ID] = &dists[i]
	}

	var claims []domain.ClaimRecord
	if err := s.db.SelectContext(ctx, &claims, `SELECT * FROM dividend_claims`); err != nil {
		return nil, fmt.Errorf("store.Load claims: %w", err)
	}
	for _, c := range claims {
		st.Claims[c.Key()] = c
	}

	var instruments []domain.Instrument
	if err := s.db.SelectContext(ctx, &instruments, `SELECT * FROM instruments ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store.Load instruments: %w", err)
	}
	for i := range instruments {
		st.Instruments[instruments[i].ID] = &instruments[i]
	}

	var investments []domain.Investment
	if err := s.db.SelectContext(ctx, &investments, `SELECT * FROM instrument_investments ORDER BY id`); err != nil {
		return nil, fmt.Errorf("store.Load investments: %w", err)
	}
	for i := range investments {
		st.Investments[investments[i].ID] = &investments[i]
	}

	var grants []domain.FaucetGrant
	if err := s.db.SelectContext(ctx, &grants, `SELECT * FROM faucet_grants`); err != nil {
		return nil, fmt.Errorf("store.Load faucet: %w", err)
	}
	for _, g := range grants {
		st.FaucetGrants[g.Principal] = g.GrantedAt
	}

	limit := s.activityLimit
	if limit <= 0 {
		limit = -1
	}
	var acts []domain.Activity
	if err := s.db.SelectContext(ctx, &acts, `
		SELECT * FROM (
			SELECT * FROM activities ORDER BY id DESC LIMIT NULLIF($1, -1)
		) recent ORDER BY id ASC`, limit); err != nil {
		return nil, fmt.Errorf("store.Load activities: %w", err)
	}
	st.Activities = acts

	var seqs []struct {
		Name  string `db:"name"`
		Value uint64 `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &seqs, `SELECT name, value FROM vault_sequences`); err != nil {
		return nil, fmt.Errorf("store.Load sequences: %w", err)
	}
	for _, sq := range seqs {
		switch sq.Name {
		case seqProduct:
			st.Seq.Product = sq.Value
		case seqEntry:
			st.Seq.Entry = sq.Value
		case seqDistribution:
			st.Seq.Distribution = sq.Value
		case seqInstrument:
			st.Seq.Instrument = sq.Value
		case seqInvestment:
			st.Seq.Investment = sq.Value
		case seqActivity:
			st.Seq.Activity = sq.Value
		}
	}

	return st, nil
}

// Commit writes cs atomically.
func (s *PostgresStore) Commit(ctx context.Context, cs *domain.Changeset) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.Commit begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = writeChangeset(ctx, tx, cs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store.Commit: %w", err)
	}
	return nil
}

func writeChangeset(ctx context.Context, tx *sqlx.Tx, cs *domain.Changeset) error {
	if cs.Settings != nil {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO vault_settings (id, pooled_balance, lock_period_minutes, updated_at)
			VALUES (1, :pooled_balance, :lock_period_minutes, now())
			ON CONFLICT (id) DO UPDATE
			SET pooled_balance = EXCLUDED.pooled_balance,
			    lock_period_minutes = EXCLUDED.lock_period_minutes,
			    updated_at = now()`, cs.Settings); err != nil {
			return fmt.Errorf("store.Commit settings: %w", err)
		}
	}

	for _, a := range cs.AddedAdmins {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vault_admins (principal, added_at) VALUES ($1, now()) ON CONFLICT DO NOTHING`, a); err != nil {
			return fmt.Errorf("store.Commit admin add: %w", err)
		}
	}
	for _, a := range cs.RemovedAdmins {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vault_admins WHERE principal = $1`, a); err != nil {
			return fmt.Errorf("store.Commit admin remove: %w", err)
		}
	}

	for i := range cs.Products {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO products (id, name, description, available_durations, is_active, created_at, updated_at)
			VALUES (:id, :name, :description, :available_durations, :is_active, :created_at, :updated_at)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    available_durations = EXCLUDED.available_durations,
			    is_active = EXCLUDED.is_active,
			    updated_at = EXCLUDED.updated_at`, &cs.Products[i]); err != nil {
			return fmt.Errorf("store.Commit product: %w", err)
		}
	}
	for _, id := range cs.DeletedProducts {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return fmt.Errorf("store.Commit product delete: %w", err)
		}
	}

	for i := range cs.Entries {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO vault_entries
				(id, owner, product_id, amount, selected_duration, is_flexible, locked_at,
				 unlock_time, status, unlocked_at, emergency)
			VALUES
				(:id, :owner, :product_id, :amount, :selected_duration, :is_flexible, :locked_at,
				 :unlock_time, :status, :unlocked_at, :emergency)
			ON CONFLICT (id) DO UPDATE
			SET status = EXCLUDED.status,
			    unlocked_at = EXCLUDED.unlocked_at,
			    emergency = EXCLUDED.emergency`, &cs.Entries[i]); err != nil {
			return fmt.Errorf("store.Commit entry: %w", err)
		}
	}

	for i := range cs.Distributions {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO dividend_distributions
				(id, total_amount, snapshot_total, per_token_amount, distributed_at, distributed_by, snapshot, entry_ids)
			VALUES
				(:id, :total_amount, :snapshot_total, :per_token_amount, :distributed_at, :distributed_by, :snapshot, :entry_ids)`,
			&cs.Distributions[i]); err != nil {
			return fmt.Errorf("store.Commit distribution: %w", err)
		}
	}

	for i := range cs.Claims {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO dividend_claims (distribution_id, owner, amount, claimed_at)
			VALUES (:distribution_id, :owner, :amount, :claimed_at)`, &cs.Claims[i]); err != nil {
			return fmt.Errorf("store.Commit claim: %w", err)
		}
	}

	for i := range cs.Instruments {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO instruments
				(id, name, description, instrument_type, expected_apy, risk_level, min_investment,
				 max_investment, lock_period_days, total_invested, status, created_at, updated_at)
			VALUES
				(:id, :name, :description, :instrument_type, :expected_apy, :risk_level, :min_investment,
				 :max_investment, :lock_period_days, :total_invested, :status, :created_at, :updated_at)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    instrument_type = EXCLUDED.instrument_type,
			    expected_apy = EXCLUDED.expected_apy,
			    risk_level = EXCLUDED.risk_level,
			    min_investment = EXCLUDED.min_investment,
			    max_investment = EXCLUDED.max_investment,
			    lock_period_days = EXCLUDED.lock_period_days,
			    total_invested = EXCLUDED.total_invested,
			    status = EXCLUDED.status,
			    updated_at = EXCLUDED.updated_at`, &cs.Instruments[i]); err != nil {
			return fmt.Errorf("store.Commit instrument: %w", err)
		}
	}
	for _, id := range cs.DeletedInstruments {
		if _, err := tx.ExecContext(ctx, `DELETE FROM instruments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("store.Commit instrument delete: %w", err)
		}
	}

	for i := range cs.Investments {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO instrument_investments
				(id, instrument_id, amount_invested, current_value, yield_earned, status, invested_at,
				 last_yield_at, last_yield_type, exited_at, exit_amount)
			VALUES
				(:id, :instrument_id, :amount_invested, :current_value, :yield_earned, :status, :invested_at,
				 :last_yield_at, :last_yield_type, :exited_at, :exit_amount)
			ON CONFLICT (id) DO UPDATE
			SET current_value = EXCLUDED.current_value,
			    yield_earned = EXCLUDED.yield_earned,
			    status = EXCLUDED.status,
			    last_yield_at = EXCLUDED.last_yield_at,
			    last_yield_type = EXCLUDED.last_yield_type,
			    exited_at = EXCLUDED.exited_at,
			    exit_amount = EXCLUDED.exit_amount`, &cs.Investments[i]); err != nil {
			return fmt.Errorf("store.Commit investment: %w", err)
		}
	}

	for i := range cs.FaucetGrants {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO faucet_grants (principal, amount, granted_at)
			VALUES (:principal, :amount, :granted_at)
			ON CONFLICT (principal) DO UPDATE
			SET amount = EXCLUDED.amount, granted_at = EXCLUDED.granted_at`, &cs.FaucetGrants[i]); err != nil {
			return fmt.Errorf("store.Commit faucet: %w", err)
		}
	}

	for i := range cs.Activities {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO activities (id, principal, type, amount, ref_id, details, created_at)
			VALUES (:id, :principal, :type, :amount, :ref_id, :details, :created_at)`, &cs.Activities[i]); err != nil {
			return fmt.Errorf("store.Commit activity: %w", err)
		}
	}

	for _, b := range sequenceBumps(cs) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO vault_sequences (name, value) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET value = GREATEST(vault_sequences.value, EXCLUDED.value)`,
			b.name, int64(b.value)); err != nil {
			return fmt.Errorf("store.Commit sequence: %w", err)
		}
	}
	return nil
}

type seqBump struct {
	name  string
	value uint64
}

// sequenceBumps returns the highest id per entity kind touched by cs, in a
// fixed kind order.
func sequenceBumps(cs *domain.Changeset) []seqBump {
	highest := make(map[string]uint64)
	bump := func(name string, id uint64) {
		if id > highest[name] {
			highest[name] = id
		}
	}
	for _, p := range cs.Products {
		bump(seqProduct, uint64(p.ID))
	}
	for _, e := range cs.Entries {
		bump(seqEntry, uint64(e.ID))
	}
	for _, d := range cs.Distributions {
		bump(seqDistribution, uint64(d.ID))
	}
	for _, i := range cs.Instruments {
		bump(seqInstrument, uint64(i.ID))
	}
	for _, v := range cs.Investments {
		bump(seqInvestment, uint64(v.ID))
	}
	for _, a := range cs.Activities {
		bump(seqActivity, uint64(a.ID))
	}

	var out []seqBump
	for _, name := range []string{seqProduct, seqEntry, seqDistribution, seqInstrument, seqInvestment, seqActivity} {
		if v, ok := highest[name]; ok {
			out = append(out, seqBump{name: name, value: v})
		}
	}
	return out
}

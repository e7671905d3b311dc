package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/jmoiron/sqlx"
)

// PostgresLedgerStore persists write-through snapshots of the protocol
// singleton and every credit vault. The engine's in-memory state is the
// source of truth; this store exists to survive restarts.
type PostgresLedgerStore struct {
	db *sqlx.DB
}

func NewPostgresLedgerStore(db *sqlx.DB) *PostgresLedgerStore {
	store := &PostgresLedgerStore{db: db}
	_ = store.ensureSchema(context.Background())
	return store
}

func (s *PostgresLedgerStore) SaveProtocol(ctx context.Context, p *model.ProtocolState) error {
	if p == nil {
		return nil
	}
	// singleton row, id is always 1
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO protocol_state (
			id, authority, treasury, default_ltv_bps, base_interest_rate_bps,
			paused, total_vaults, total_collateral, total_credit_issued,
			total_outstanding, total_interest_collected, created_at, last_update
		) VALUES (
			1,$1,$2,$3,$4,
			$5,$6,$7,$8,
			$9,$10,$11,$12
		)
		ON CONFLICT (id) DO UPDATE SET
			authority = EXCLUDED.authority,
			treasury = EXCLUDED.treasury,
			default_ltv_bps = EXCLUDED.default_ltv_bps,
			base_interest_rate_bps = EXCLUDED.base_interest_rate_bps,
			paused = EXCLUDED.paused,
			total_vaults = EXCLUDED.total_vaults,
			total_collateral = EXCLUDED.total_collateral,
			total_credit_issued = EXCLUDED.total_credit_issued,
			total_outstanding = EXCLUDED.total_outstanding,
			total_interest_collected = EXCLUDED.total_interest_collected,
			last_update = EXCLUDED.last_update
	`, p.Authority, p.Treasury, int64(p.DefaultLTVBps), int64(p.BaseInterestRateBps),
		p.Paused, int64(p.TotalVaults), int64(p.TotalCollateral), int64(p.TotalCreditIssued),
		int64(p.TotalOutstanding), int64(p.TotalInterestCollected), p.CreatedAt, p.LastUpdate)
	return err
}

func (s *PostgresLedgerStore) SaveVault(ctx context.Context, v *model.CreditVault) error {
	if v == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_vaults (
			owner_id, vault_id, collateral_amount, credit_limit, outstanding_balance,
			ltv_bps, interest_rate_bps, daily_limit, daily_spent, daily_window_start,
			last_accrual_time, total_payments, total_payment_volume, interest_paid,
			active, created_at
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,
			$11,$12,$13,$14,
			$15,$16
		)
		ON CONFLICT (owner_id, vault_id) DO UPDATE SET
			collateral_amount = EXCLUDED.collateral_amount,
			credit_limit = EXCLUDED.credit_limit,
			outstanding_balance = EXCLUDED.outstanding_balance,
			ltv_bps = EXCLUDED.ltv_bps,
			interest_rate_bps = EXCLUDED.interest_rate_bps,
			daily_limit = EXCLUDED.daily_limit,
			daily_spent = EXCLUDED.daily_spent,
			daily_window_start = EXCLUDED.daily_window_start,
			last_accrual_time = EXCLUDED.last_accrual_time,
			total_payments = EXCLUDED.total_payments,
			total_payment_volume = EXCLUDED.total_payment_volume,
			interest_paid = EXCLUDED.interest_paid,
			active = EXCLUDED.active
	`, v.Owner, int64(v.VaultID), int64(v.CollateralAmount), int64(v.CreditLimit), int64(v.OutstandingBalance),
		int64(v.LTVBps), int64(v.InterestRateBps), int64(v.DailyLimit), int64(v.DailySpent), v.DailyWindowStart,
		v.LastAccrualTime, int64(v.TotalPayments), int64(v.TotalPaymentVolume), int64(v.InterestPaid),
		v.Active, v.CreatedAt)
	return err
}

// LoadProtocol returns the persisted protocol singleton, or nil when the
// protocol has never been initialized.
func (s *PostgresLedgerStore) LoadProtocol(ctx context.Context) (*model.ProtocolState, error) {
	var row struct {
		Authority              string `db:"authority"`
		Treasury               string `db:"treasury"`
		DefaultLTVBps          int64  `db:"default_ltv_bps"`
		BaseInterestRateBps    int64  `db:"base_interest_rate_bps"`
		Paused                 bool   `db:"paused"`
		TotalVaults            int64  `db:"total_vaults"`
		TotalCollateral        int64  `db:"total_collateral"`
		TotalCreditIssued      int64  `db:"total_credit_issued"`
		TotalOutstanding       int64  `db:"total_outstanding"`
		TotalInterestCollected int64  `db:"total_interest_collected"`
		CreatedAt              sql.NullTime `db:"created_at"`
		LastUpdate             sql.NullTime `db:"last_update"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT authority, treasury, default_ltv_bps, base_interest_rate_bps, paused, total_vaults, total_collateral, total_credit_issued, total_outstanding, total_interest_collected, created_at, last_update FROM protocol_state WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p := &model.ProtocolState{
		Authority:              row.Authority,
		Treasury:               row.Treasury,
		DefaultLTVBps:          uint64(row.DefaultLTVBps),
		BaseInterestRateBps:    uint64(row.BaseInterestRateBps),
		Paused:                 row.Paused,
		TotalVaults:            uint64(row.TotalVaults),
		TotalCollateral:        uint64(row.TotalCollateral),
		TotalCreditIssued:      uint64(row.TotalCreditIssued),
		TotalOutstanding:       uint64(row.TotalOutstanding),
		TotalInterestCollected: uint64(row.TotalInterestCollected),
	}
	if row.CreatedAt.Valid {
		p.CreatedAt = row.CreatedAt.Time
	}
	if row.LastUpdate.Valid {
		p.LastUpdate = row.LastUpdate.Time
	}
	return p, nil
}

// LoadVaults returns every persisted vault snapshot for engine hydration.
func (s *PostgresLedgerStore) LoadVaults(ctx context.Context) ([]*model.CreditVault, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT owner_id, vault_id, collateral_amount, credit_limit, outstanding_balance, ltv_bps, interest_rate_bps, daily_limit, daily_spent, daily_window_start, last_accrual_time, total_payments, total_payment_volume, interest_paid, active, created_at FROM credit_vaults`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vaults []*model.CreditVault
	for rows.Next() {
		var v model.CreditVault
		var vaultID, collateral, limit, outstanding, ltv, rate, dailyLimit, dailySpent, payments, volume, interestPaid int64
		if err := rows.Scan(
			&v.Owner, &vaultID, &collateral, &limit, &outstanding,
			&ltv, &rate, &dailyLimit, &dailySpent, &v.DailyWindowStart,
			&v.LastAccrualTime, &payments, &volume, &interestPaid,
			&v.Active, &v.CreatedAt,
		); err != nil {
			return nil, err
		}
		v.VaultID = uint64(vaultID)
		v.CollateralAmount = uint64(collateral)
		v.CreditLimit = uint64(limit)
		v.OutstandingBalance = uint64(outstanding)
		v.LTVBps = uint64(ltv)
		v.InterestRateBps = uint64(rate)
		v.DailyLimit = uint64(dailyLimit)
		v.DailySpent = uint64(dailySpent)
		v.TotalPayments = uint64(payments)
		v.TotalPaymentVolume = uint64(volume)
		v.InterestPaid = uint64(interestPaid)
		vaults = append(vaults, &v)
	}
	return vaults, rows.Err()
}

func (s *PostgresLedgerStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS protocol_state (
			id INTEGER PRIMARY KEY,
			authority TEXT NOT NULL,
			treasury TEXT NOT NULL,
			default_ltv_bps BIGINT NOT NULL,
			base_interest_rate_bps BIGINT NOT NULL,
			paused BOOLEAN NOT NULL DEFAULT FALSE,
			total_vaults BIGINT NOT NULL DEFAULT 0,
			total_collateral BIGINT NOT NULL DEFAULT 0,
			total_credit_issued BIGINT NOT NULL DEFAULT 0,
			total_outstanding BIGINT NOT NULL DEFAULT 0,
			total_interest_collected BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ,
			last_update TIMESTAMPTZ
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS credit_vaults (
			owner_id TEXT NOT NULL,
			vault_id BIGINT NOT NULL,
			collateral_amount BIGINT NOT NULL DEFAULT 0,
			credit_limit BIGINT NOT NULL DEFAULT 0,
			outstanding_balance BIGINT NOT NULL DEFAULT 0,
			ltv_bps BIGINT NOT NULL,
			interest_rate_bps BIGINT NOT NULL,
			daily_limit BIGINT NOT NULL,
			daily_spent BIGINT NOT NULL DEFAULT 0,
			daily_window_start TIMESTAMPTZ,
			last_accrual_time TIMESTAMPTZ,
			total_payments BIGINT NOT NULL DEFAULT 0,
			total_payment_volume BIGINT NOT NULL DEFAULT 0,
			interest_paid BIGINT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ,
			PRIMARY KEY (owner_id, vault_id)
		)
	`)
	return err
}

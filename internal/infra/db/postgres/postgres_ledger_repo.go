package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sheets-access-control/internal/domain"
	"sheets-access-control/internal/domain/model"
	"sheets-access-control/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

// ledgerRepo persists PaymentRecords in a single `payments` table.
//
// Schema:
//
//	CREATE TABLE payments (
//	    id                UUID PRIMARY KEY,
//	    payment_id        TEXT NOT NULL UNIQUE,
//	    order_id          TEXT,
//	    principal         TEXT NOT NULL,
//	    amount            BIGINT NOT NULL,
//	    tier              INT NOT NULL,
//	    granted_resources TEXT NOT NULL, -- JSON-encoded array, round-tripped only
//	    recorded_at       TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX payments_principal_idx ON payments (principal);
//
// The UNIQUE constraint on payment_id is what makes concurrent webhook
// deliveries safe; there is no application-level locking.
type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

const ledgerColumns = `id, payment_id, order_id, principal, amount, tier, granted_resources, recorded_at`

func (r *ledgerRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.PaymentRecord, error) {
	q := `SELECT ` + ledgerColumns + ` FROM payments WHERE payment_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		return nil, err
	}
	return scanRecord(row)
}

func (r *ledgerRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.PaymentRecord) error {
	granted, err := json.Marshal(rec.GrantedResources)
	if err != nil {
		return domain.ErrInvalidArgument
	}

	const q = `
INSERT INTO payments (` + ledgerColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err = execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.PaymentID, rec.OrderID, rec.Principal, rec.Amount, rec.Tier, string(granted), rec.RecordedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ledgerRepo) FindByPrincipal(ctx context.Context, tx repository.Tx, principal string) ([]*model.PaymentRecord, error) {
	const q = `SELECT ` + ledgerColumns + ` FROM payments WHERE principal=$1 ORDER BY recorded_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, principal)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*model.PaymentRecord, error) {
	rec := &model.PaymentRecord{}
	var granted string
	err := row.Scan(&rec.ID, &rec.PaymentID, &rec.OrderID, &rec.Principal, &rec.Amount, &rec.Tier, &granted, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal([]byte(granted), &rec.GrantedResources); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return rec, nil
}

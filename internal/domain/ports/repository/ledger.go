package repository

import (
	"context"

	"sheets-access-control/internal/domain/model"
)

// -----------------------------
// Entitlement ledger
// -----------------------------

// LedgerRepository is the durable record of processed payments. It backs the
// idempotency check and reconstructs what was granted to whom. Records are
// write-once: there is no update method on purpose.
type LedgerRepository interface {
	// FindByPaymentID returns domain.ErrNotFound when the payment was never recorded.
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.PaymentRecord, error)
	// Insert returns domain.ErrAlreadyExists when another processor won the
	// race on the same payment_id.
	Insert(ctx context.Context, tx Tx, rec *model.PaymentRecord) error
	FindByPrincipal(ctx context.Context, tx Tx, principal string) ([]*model.PaymentRecord, error)
}

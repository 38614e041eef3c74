// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sheets-access-control/internal/domain"
	"sheets-access-control/internal/domain/model"
	"sheets-access-control/internal/domain/ports/adapter"
	"sheets-access-control/internal/domain/ports/repository"
	"sheets-access-control/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// ProcessedCache is an optional shortcut in front of the ledger's idempotency
// lookup. Implementations must be safe to skip entirely: the ledger's
// uniqueness constraint remains the source of idempotency truth.
type ProcessedCache interface {
	Seen(ctx context.Context, paymentID string) bool
	Mark(ctx context.Context, paymentID string)
}

type PaymentUseCase interface {
	// Process runs one webhook event through the full pipeline: idempotency
	// check, event filter, validation, tier resolution, grant orchestration
	// and ledger write. It always returns a terminal result; failures surface
	// through the outcome, never as an error.
	Process(ctx context.Context, fact *model.PaymentFact) *model.ProcessResult

	// RevokeForPrincipal removes every grant recorded for the principal and
	// returns the number of confirmed removals. domain.ErrNotFound when the
	// principal has no ledger records at all.
	RevokeForPrincipal(ctx context.Context, principal string) (int, error)
}

type paymentUC struct {
	ledger  repository.LedgerRepository
	gateway adapter.ResourceGateway
	tiers   *TierTable
	cache   ProcessedCache
	log     *zerolog.Logger
	dev     bool
}

func NewPaymentUseCase(
	ledger repository.LedgerRepository,
	gateway adapter.ResourceGateway,
	tiers *TierTable,
	cache ProcessedCache,
	logger *zerolog.Logger,
	dev bool,
) *paymentUC {
	return &paymentUC{ledger: ledger, gateway: gateway, tiers: tiers, cache: cache, log: logger, dev: dev}
}

func (u *paymentUC) Process(ctx context.Context, fact *model.PaymentFact) *model.ProcessResult {
	log := logging.With(ctx, u.log)

	// 1. Idempotency: a repeat delivery of a recorded payment_id is a no-op.
	if fact.PaymentID != "" {
		if u.cache != nil && u.cache.Seen(ctx, fact.PaymentID) {
			log.Info().Str("payment_id", fact.PaymentID).Msg("replay short-circuited by cache")
			return accepted(fact.PaymentID, "Payment already processed")
		}
		_, err := u.ledger.FindByPaymentID(ctx, repository.NoTX, fact.PaymentID)
		switch {
		case err == nil:
			log.Info().Str("payment_id", fact.PaymentID).Msg("payment already processed")
			return accepted(fact.PaymentID, "Payment already processed")
		case errors.Is(err, domain.ErrNotFound):
			// first delivery, continue
		default:
			log.Error().Err(err).Str("payment_id", fact.PaymentID).Msg("ledger lookup failed")
			return failed(fact.PaymentID, "Failed to check payment record")
		}
	}

	// 2. Event filter: act only on captured payments.
	if fact.EventName != "payment.captured" {
		log.Info().Str("event", fact.EventName).Msg("ignoring event")
		return &model.ProcessResult{Outcome: model.OutcomeIgnored, PaymentID: fact.PaymentID, Message: fmt.Sprintf("ignoring event %q", fact.EventName)}
	}
	if fact.Status != "captured" {
		log.Warn().Str("status", fact.Status).Msg("payment status is not captured")
		return &model.ProcessResult{Outcome: model.OutcomeIgnored, PaymentID: fact.PaymentID, Message: "payment not captured"}
	}

	// 3. Required fields. Malformed input, distinct from business failure.
	if fact.PaymentID == "" {
		return &model.ProcessResult{Outcome: model.OutcomeRejected, Message: "missing payment_id"}
	}
	if fact.Principal == "" {
		return &model.ProcessResult{Outcome: model.OutcomeRejected, PaymentID: fact.PaymentID, Message: "missing email"}
	}

	principal := logging.Redact(fact.Principal, u.dev)

	// 4. Tier resolution: exact amount match only.
	tier, ok := u.tiers.Resolve(fact.Amount)
	if !ok {
		log.Error().Int64("amount", fact.Amount).Str("payment_id", fact.PaymentID).Msg("unrecognized amount")
		return failed(fact.PaymentID, fmt.Sprintf("Invalid payment amount: %d", fact.Amount))
	}

	// 5. Resource resolution.
	resources := u.tiers.Resources(tier)
	if len(resources) == 0 {
		log.Error().Int("tier", tier).Str("payment_id", fact.PaymentID).Msg("no resources configured for tier")
		return failed(fact.PaymentID, fmt.Sprintf("No resources configured for tier %d", tier))
	}

	// 6. Grant, best-effort across resources. Nothing is persisted unless at
	// least one grant succeeded, so a redelivery after a total failure is
	// reprocessed from scratch instead of being blocked by idempotency.
	outcomes := u.gateway.GrantMany(ctx, resources, fact.Principal)
	var granted []string
	for _, o := range outcomes {
		if o.Granted() {
			granted = append(granted, o.ResourceID)
		}
	}
	if len(granted) == 0 {
		log.Error().Str("payment_id", fact.PaymentID).Str("principal", principal).Msg("failed to grant any resource")
		return failed(fact.PaymentID, "Failed to grant access to resources")
	}
	if len(granted) < len(resources) {
		// Partial success is success; the missing resources are not retried
		// automatically and must be re-granted administratively.
		log.Warn().
			Str("payment_id", fact.PaymentID).
			Strs("granted", granted).
			Int("requested", len(resources)).
			Msg("partial grant")
	}

	// 7. Persist. Losing the insert race to a concurrent delivery is benign.
	rec := &model.PaymentRecord{
		ID:               uuid.NewString(),
		PaymentID:        fact.PaymentID,
		OrderID:          fact.OrderID,
		Principal:        fact.Principal,
		Amount:           fact.Amount,
		Tier:             tier,
		GrantedResources: granted,
		RecordedAt:       time.Now().UTC(),
	}
	if err := u.ledger.Insert(ctx, repository.NoTX, rec); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.Info().Str("payment_id", fact.PaymentID).Msg("lost insert race to concurrent delivery")
			return accepted(fact.PaymentID, "Payment already processed")
		}
		log.Error().Err(err).Str("payment_id", fact.PaymentID).Msg("failed to record payment")
		return failed(fact.PaymentID, "Failed to record payment")
	}
	if u.cache != nil {
		u.cache.Mark(ctx, fact.PaymentID)
	}

	log.Info().
		Str("payment_id", fact.PaymentID).
		Str("principal", principal).
		Int("tier", tier).
		Strs("granted", granted).
		Msg("payment processed")
	return accepted(fact.PaymentID, "Access granted successfully")
}

func (u *paymentUC) RevokeForPrincipal(ctx context.Context, principal string) (int, error) {
	records, err := u.ledger.FindByPrincipal(ctx, repository.NoTX, principal)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, domain.ErrNotFound
	}

	// Best-effort per resource; a failed revoke only fails to count. Records
	// may reference overlapping resources, in which case the second attempt
	// finds no live permission and reports false.
	revoked := 0
	for _, rec := range records {
		for _, resourceID := range rec.GrantedResources {
			if u.gateway.Revoke(ctx, resourceID, principal) {
				revoked++
			}
		}
	}

	u.log.Info().
		Str("principal", logging.Redact(principal, u.dev)).
		Int("revoked", revoked).
		Int("records", len(records)).
		Msg("revoked access")
	return revoked, nil
}

func accepted(paymentID, msg string) *model.ProcessResult {
	return &model.ProcessResult{Outcome: model.OutcomeAccepted, PaymentID: paymentID, Message: msg}
}

func failed(paymentID, msg string) *model.ProcessResult {
	return &model.ProcessResult{Outcome: model.OutcomeFailed, PaymentID: paymentID, Message: msg}
}

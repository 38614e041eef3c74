//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"sheets-access-control/internal/domain"
	"sheets-access-control/internal/domain/model"
	"sheets-access-control/internal/usecase"
)

const (
	tier1Price = int64(99900)
	tier2Price = int64(199900)
)

// testDeps holds all the mock dependencies for the processor tests.
type testDeps struct {
	ledger  *mockLedger
	gateway *mockGateway
	cache   *mockCache
}

func newDeps() *testDeps {
	return &testDeps{ledger: newMockLedger(), gateway: newMockGateway(), cache: newMockCache()}
}

func (d *testDeps) build() usecase.PaymentUseCase {
	tiers := usecase.NewTierTable([]usecase.Tier{
		{Number: 1, Price: tier1Price, Resources: []string{"sheetA"}},
		{Number: 2, Price: tier2Price, Resources: []string{"sheetB"}},
	})
	return usecase.NewPaymentUseCase(d.ledger, d.gateway, tiers, d.cache, newTestLogger(), true)
}

func capturedFact(paymentID string, amount int64) *model.PaymentFact {
	return &model.PaymentFact{
		EventName: "payment.captured",
		PaymentID: paymentID,
		OrderID:   "order_1",
		Principal: "a@x.com",
		Amount:    amount,
		Status:    "captured",
		Method:    "card",
	}
}

func TestProcess_HappyPath(t *testing.T) {
	deps := newDeps()
	uc := deps.build()

	res := uc.Process(context.Background(), capturedFact("pay_1", tier1Price))

	if res.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected accepted, got %s (%s)", res.Outcome, res.Message)
	}
	if res.PaymentID != "pay_1" {
		t.Errorf("expected payment_id pay_1, got %q", res.PaymentID)
	}
	if deps.gateway.GrantCalls != 1 {
		t.Errorf("expected 1 gateway call, got %d", deps.gateway.GrantCalls)
	}
	if got := deps.gateway.Requested[0]; len(got) != 1 || got[0] != "sheetA" {
		t.Errorf("expected grant request [sheetA], got %v", got)
	}

	rec, err := deps.ledger.FindByPaymentID(context.Background(), nil, "pay_1")
	if err != nil {
		t.Fatalf("expected a ledger record: %v", err)
	}
	if rec.Tier != 1 {
		t.Errorf("expected tier 1, got %d", rec.Tier)
	}
	if len(rec.GrantedResources) != 1 || rec.GrantedResources[0] != "sheetA" {
		t.Errorf("expected granted [sheetA], got %v", rec.GrantedResources)
	}
}

func TestProcess_Tier2GrantsSuperset(t *testing.T) {
	deps := newDeps()
	uc := deps.build()

	res := uc.Process(context.Background(), capturedFact("pay_2", tier2Price))

	if res.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", res.Outcome)
	}
	got := deps.gateway.Requested[0]
	if len(got) != 2 || got[0] != "sheetA" || got[1] != "sheetB" {
		t.Errorf("expected tier 2 to request [sheetA sheetB], got %v", got)
	}
}

func TestProcess_IdempotentReplay(t *testing.T) {
	deps := newDeps()
	uc := deps.build()
	ctx := context.Background()

	first := uc.Process(ctx, capturedFact("pay_1", tier1Price))
	second := uc.Process(ctx, capturedFact("pay_1", tier1Price))

	if first.Outcome != model.OutcomeAccepted || second.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected both deliveries accepted, got %s then %s", first.Outcome, second.Outcome)
	}
	if first.PaymentID != second.PaymentID {
		t.Errorf("replay response differs: %q vs %q", first.PaymentID, second.PaymentID)
	}
	if deps.gateway.GrantCalls != 1 {
		t.Errorf("replay must not call the gateway again: got %d calls", deps.gateway.GrantCalls)
	}
	if deps.ledger.count() != 1 {
		t.Errorf("expected a single ledger row, got %d", deps.ledger.count())
	}
}

func TestProcess_ReplayWithoutCacheHitsLedger(t *testing.T) {
	deps := newDeps()
	tiers := usecase.NewTierTable([]usecase.Tier{{Number: 1, Price: tier1Price, Resources: []string{"sheetA"}}})
	uc := usecase.NewPaymentUseCase(deps.ledger, deps.gateway, tiers, nil, newTestLogger(), true)
	ctx := context.Background()

	uc.Process(ctx, capturedFact("pay_1", tier1Price))
	res := uc.Process(ctx, capturedFact("pay_1", tier1Price))

	if res.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", res.Outcome)
	}
	if deps.gateway.GrantCalls != 1 {
		t.Errorf("expected 1 gateway call, got %d", deps.gateway.GrantCalls)
	}
}

func TestProcess_IgnoresOtherEvents(t *testing.T) {
	deps := newDeps()
	uc := deps.build()

	fact := capturedFact("pay_1", tier1Price)
	fact.EventName = "payment.authorized"
	res := uc.Process(context.Background(), fact)

	if res.Outcome != model.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", res.Outcome)
	}
	if deps.gateway.GrantCalls != 0 {
		t.Errorf("ignored event must not reach the gateway")
	}
}

func TestProcess_IgnoresNonCapturedStatus(t *testing.T) {
	deps := newDeps()
	uc := deps.build()

	fact := capturedFact("pay_1", tier1Price)
	fact.Status = "authorized"
	res := uc.Process(context.Background(), fact)

	if res.Outcome != model.OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", res.Outcome)
	}
}

func TestProcess_RejectsMissingFields(t *testing.T) {
	t.Run("missing payment_id", func(t *testing.T) {
		deps := newDeps()
		fact := capturedFact("", tier1Price)
		res := deps.build().Process(context.Background(), fact)
		if res.Outcome != model.OutcomeRejected {
			t.Fatalf("expected rejected, got %s", res.Outcome)
		}
	})
	t.Run("missing email", func(t *testing.T) {
		deps := newDeps()
		fact := capturedFact("pay_1", tier1Price)
		fact.Principal = ""
		res := deps.build().Process(context.Background(), fact)
		if res.Outcome != model.OutcomeRejected {
			t.Fatalf("expected rejected, got %s", res.Outcome)
		}
		if deps.ledger.count() != 0 {
			t.Errorf("rejected event must not be persisted")
		}
	})
}

func TestProcess_UnrecognizedAmountFails(t *testing.T) {
	deps := newDeps()
	uc := deps.build()

	res := uc.Process(context.Background(), capturedFact("pay_1", 12345))

	if res.Outcome != model.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if deps.gateway.GrantCalls != 0 {
		t.Errorf("unmatched amount must not reach the gateway")
	}
	if deps.ledger.count() != 0 {
		t.Errorf("unmatched amount must not be persisted")
	}
}

func TestProcess_EmptyResourceConfigFails(t *testing.T) {
	deps := newDeps()
	tiers := usecase.NewTierTable([]usecase.Tier{{Number: 1, Price: tier1Price, Resources: nil}})
	uc := usecase.NewPaymentUseCase(deps.ledger, deps.gateway, tiers, deps.cache, newTestLogger(), true)

	res := uc.Process(context.Background(), capturedFact("pay_1", tier1Price))

	if res.Outcome != model.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if deps.gateway.GrantCalls != 0 {
		t.Errorf("empty resource config must not reach the gateway")
	}
}

func TestProcess_PartialGrantIsSuccess(t *testing.T) {
	deps := newDeps()
	deps.gateway.FailResources["sheetB"] = true
	uc := deps.build()

	res := uc.Process(context.Background(), capturedFact("pay_1", tier2Price))

	if res.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected accepted on partial grant, got %s", res.Outcome)
	}
	rec, err := deps.ledger.FindByPaymentID(context.Background(), nil, "pay_1")
	if err != nil {
		t.Fatalf("expected a ledger record: %v", err)
	}
	if len(rec.GrantedResources) != 1 || rec.GrantedResources[0] != "sheetA" {
		t.Errorf("expected granted [sheetA], got %v", rec.GrantedResources)
	}
}

func TestProcess_ZeroGrantsFailsAndAllowsRetry(t *testing.T) {
	deps := newDeps()
	deps.gateway.FailResources["sheetA"] = true
	uc := deps.build()
	ctx := context.Background()

	res := uc.Process(ctx, capturedFact("pay_1", tier1Price))

	if res.Outcome != model.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if deps.ledger.count() != 0 {
		t.Fatalf("zero grants must not be persisted")
	}

	// Redelivery after the external system recovers succeeds from scratch.
	deps.gateway.FailResources = map[string]bool{}
	res = uc.Process(ctx, capturedFact("pay_1", tier1Price))
	if res.Outcome != model.OutcomeAccepted {
		t.Fatalf("expected redelivery to succeed, got %s", res.Outcome)
	}
	if deps.ledger.count() != 1 {
		t.Errorf("expected one ledger row after retry, got %d", deps.ledger.count())
	}
}

func TestProcess_LostInsertRaceIsAccepted(t *testing.T) {
	deps := newDeps()
	deps.ledger.InsertErr = domain.ErrAlreadyExists
	uc := deps.build()

	res := uc.Process(context.Background(), capturedFact("pay_1", tier1Price))

	if res.Outcome != model.OutcomeAccepted {
		t.Fatalf("duplicate-key race must resolve to accepted, got %s", res.Outcome)
	}
}

func TestProcess_StorageErrorFails(t *testing.T) {
	deps := newDeps()
	deps.ledger.InsertErr = domain.ErrOperationFailed
	uc := deps.build()

	res := uc.Process(context.Background(), capturedFact("pay_1", tier1Price))

	if res.Outcome != model.OutcomeFailed {
		t.Fatalf("expected failed on storage error, got %s", res.Outcome)
	}
}

func TestRevokeForPrincipal(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes every recorded resource, counting confirmed removals", func(t *testing.T) {
		deps := newDeps()
		uc := deps.build()

		// Two payments for the same principal with overlapping resources.
		uc.Process(ctx, capturedFact("pay_1", tier1Price)) // grants sheetA
		uc.Process(ctx, capturedFact("pay_2", tier2Price)) // grants sheetA, sheetB
		deps.gateway.RevokeCalls = 0

		revoked, err := uc.RevokeForPrincipal(ctx, "a@x.com")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if deps.gateway.RevokeCalls != 3 {
			t.Errorf("expected 3 revoke attempts, got %d", deps.gateway.RevokeCalls)
		}
		// The duplicate sheetA target finds no live permission the second time.
		if revoked != 2 {
			t.Errorf("expected 2 confirmed removals, got %d", revoked)
		}
	})

	t.Run("unknown principal reports not found", func(t *testing.T) {
		deps := newDeps()
		uc := deps.build()

		_, err := uc.RevokeForPrincipal(ctx, "nobody@x.com")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

//go:build !integration

package usecase_test

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"sheets-access-control/internal/domain"
	"sheets-access-control/internal/domain/model"
	"sheets-access-control/internal/domain/ports/adapter"
	"sheets-access-control/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- Mock ledger ---

type mockLedger struct {
	mu        sync.Mutex
	byPayment map[string]*model.PaymentRecord

	FindErr   error // overrides FindByPaymentID when set
	InsertErr error // overrides Insert when set
	Inserts   int
}

func newMockLedger() *mockLedger {
	return &mockLedger{byPayment: make(map[string]*model.PaymentRecord)}
}

func (m *mockLedger) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.PaymentRecord, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byPayment[paymentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockLedger) Insert(ctx context.Context, tx repository.Tx, rec *model.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inserts++
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if _, dup := m.byPayment[rec.PaymentID]; dup {
		return domain.ErrAlreadyExists
	}
	cp := *rec
	m.byPayment[rec.PaymentID] = &cp
	return nil
}

func (m *mockLedger) FindByPrincipal(ctx context.Context, tx repository.Tx, principal string) ([]*model.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentRecord
	for _, rec := range m.byPayment {
		if rec.Principal == principal {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPayment)
}

// --- Mock resource gateway ---

// mockGateway grants everything by default. FailResources simulates per-resource
// failures; revokes behave like the live permission system: a second revoke of
// the same resource finds nothing and reports false.
type mockGateway struct {
	mu            sync.Mutex
	FailResources map[string]bool
	GrantCalls    int
	Requested     [][]string
	RevokeCalls   int
	revoked       map[string]bool
}

func newMockGateway() *mockGateway {
	return &mockGateway{FailResources: make(map[string]bool), revoked: make(map[string]bool)}
}

func (m *mockGateway) GrantMany(ctx context.Context, resourceIDs []string, principal string) []adapter.GrantOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GrantCalls++
	m.Requested = append(m.Requested, append([]string(nil), resourceIDs...))
	out := make([]adapter.GrantOutcome, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		o := adapter.GrantOutcome{ResourceID: id, GrantID: "perm-" + id}
		if m.FailResources[id] {
			o.GrantID = ""
			o.Err = context.DeadlineExceeded
		}
		out = append(out, o)
	}
	return out
}

func (m *mockGateway) Revoke(ctx context.Context, resourceID, principal string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevokeCalls++
	key := principal + "|" + resourceID
	if m.revoked[key] {
		return false
	}
	m.revoked[key] = true
	return true
}

// --- Mock processed cache ---

type mockCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMockCache() *mockCache { return &mockCache{seen: make(map[string]bool)} }

func (m *mockCache) Seen(ctx context.Context, paymentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[paymentID]
}

func (m *mockCache) Mark(ctx context.Context, paymentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[paymentID] = true
}

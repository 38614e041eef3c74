package adapter

import "context"

// GrantOutcome is the per-resource result of one grant attempt.
// A nil Err with a non-empty GrantID means the external system confirmed the
// grant. The gateway never retries; retry policy belongs to the caller.
type GrantOutcome struct {
	ResourceID string
	GrantID    string
	Err        error
}

// Granted reports whether this attempt succeeded.
func (o GrantOutcome) Granted() bool { return o.Err == nil && o.GrantID != "" }

// ResourceGateway is the hex port over the external permission system.
//
// The external system, not the ledger, is the source of truth for current
// grants: Revoke looks up the live permission for the principal before
// removing it.
type ResourceGateway interface {
	// GrantMany attempts to grant every resource to the principal, best-effort
	// and in input order. A failure on one resource does not abort the rest.
	// The returned slice has exactly one outcome per requested resource.
	GrantMany(ctx context.Context, resourceIDs []string, principal string) []GrantOutcome

	// Revoke removes the principal's grant on one resource. Returns false when
	// no grant existed or removal failed.
	Revoke(ctx context.Context, resourceID, principal string) bool
}

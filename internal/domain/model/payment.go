package model

import "time"

// PaymentFact is the normalized view of a provider webhook envelope.
// Every field may be empty at this stage; required-field validation is the
// processor's job, not the extractor's.
type PaymentFact struct {
	EventName string
	PaymentID string
	OrderID   string
	Principal string // buyer email the access is granted to
	Amount    int64  // smallest currency unit (paise)
	Status    string
	Method    string
}

// PaymentRecord is the unit of truth for a processed transaction.
// Records are immutable after insertion; revocation never mutates them,
// it only uses GrantedResources as its workset.
type PaymentRecord struct {
	ID               string // surrogate UUID
	PaymentID        string // provider payment id, unique, idempotency key
	OrderID          string
	Principal        string
	Amount           int64
	Tier             int
	GrantedResources []string // resources confirmed granted, in attempt order
	RecordedAt       time.Time
}

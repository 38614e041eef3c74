package model

// Outcome is the terminal state of processing one webhook event.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted" // access granted, or an idempotent replay
	OutcomeIgnored  Outcome = "ignored"  // event we do not act on
	OutcomeRejected Outcome = "rejected" // malformed input (missing required fields)
	OutcomeFailed   Outcome = "failed"   // business failure; nothing persisted
)

// ProcessResult is what the processor hands back to the endpoint layer.
type ProcessResult struct {
	Outcome   Outcome
	PaymentID string
	Message   string
}

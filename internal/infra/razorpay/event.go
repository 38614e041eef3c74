package razorpay

import (
	"encoding/json"
	"fmt"

	"sheets-access-control/internal/domain"
	"sheets-access-control/internal/domain/model"
)

// envelope mirrors the Razorpay webhook payload shape:
// {"event": "...", "payload": {"payment": {"entity": {...}}}}
type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Email   string `json:"email"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
	Method  string `json:"method"`
}

// ExtractFact normalizes a webhook body into a flat PaymentFact. Missing keys
// yield zero values; only a body that is not a JSON object is an error.
// Extraction has no side effects and does no validation.
func ExtractFact(body []byte) (*model.PaymentFact, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEnvelope, err)
	}

	e := env.Payload.Payment.Entity
	return &model.PaymentFact{
		EventName: env.Event,
		PaymentID: e.ID,
		OrderID:   e.OrderID,
		Principal: e.Email,
		Amount:    e.Amount,
		Status:    e.Status,
		Method:    e.Method,
	}, nil
}

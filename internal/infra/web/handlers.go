package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"sheets-access-control/internal/domain"
	"sheets-access-control/internal/domain/model"
	"sheets-access-control/internal/infra/logging"
	"sheets-access-control/internal/infra/metrics"
	"sheets-access-control/internal/infra/razorpay"
	rds "sheets-access-control/internal/infra/redis"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type webhookResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type revokeRequest struct {
	Email string `json:"email"`
}

type revokeResponse struct {
	Success      bool   `json:"success"`
	Email        string `json:"email"`
	RevokedCount int    `json:"revoked_count"`
	Message      string `json:"message"`
}

// handleWebhook is the Razorpay inbound event endpoint.
//
// The raw body is verified byte-for-byte before any decoding. Signature
// problems answer 401 and a malformed body 400. Every processing outcome,
// including failed, answers 200: Razorpay redelivers on non-2xx, and a
// redelivered grant re-sends the notification email.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if signature == "" {
		log.Error().Msg("missing X-Razorpay-Signature header")
		writeError(w, http.StatusUnauthorized, "Missing signature header")
		return
	}
	if !razorpay.VerifySignature(body, signature, s.secret) {
		log.Error().Msg("invalid webhook signature")
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	fact, err := razorpay.ExtractFact(body)
	if err != nil {
		log.Error().Err(err).Msg("invalid JSON payload")
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	log.Info().Str("event", fact.EventName).Msg("received webhook event")

	if s.limiter != nil && fact.PaymentID != "" {
		allowed, lerr := s.limiter.Allow(ctx, rds.WebhookKey(fact.PaymentID), webhookRateLimit, webhookRateWindow)
		if lerr == nil && !allowed {
			log.Warn().Str("payment_id", fact.PaymentID).Msg("webhook redelivery throttled")
			writeError(w, http.StatusTooManyRequests, "Too many deliveries for this payment")
			return
		}
	}

	start := time.Now()
	res := s.payUC.Process(logging.WithPaymentID(ctx, fact.PaymentID), fact)
	metrics.ObserveProcessing(time.Since(start))
	metrics.IncWebhookEvent(string(res.Outcome))

	writeJSON(w, http.StatusOK, webhookResponse{
		Status:    responseStatus(res.Outcome),
		PaymentID: res.PaymentID,
		Message:   res.Message,
	})
}

// handleRevoke is the admin endpoint removing every grant for one principal.
// Authentication is an external collaborator's responsibility.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := r.URL.Query().Get("email")
	if email == "" {
		var req revokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			email = req.Email
		}
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	revoked, err := s.payUC.RevokeForPrincipal(logging.WithPrincipal(ctx, email), email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No payments found for "+email)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to revoke access")
		return
	}

	writeJSON(w, http.StatusOK, revokeResponse{
		Success:      true,
		Email:        email,
		RevokedCount: revoked,
		Message:      fmt.Sprintf("Revoked access to %d resources for %s", revoked, email),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Sheets Access Control API",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "operational",
	})
}

// responseStatus maps the processor outcome onto the wire vocabulary; an
// accepted event reports "success" to match what the provider dashboard shows.
func responseStatus(o model.Outcome) string {
	if o == model.OutcomeAccepted {
		return "success"
	}
	return string(o)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sheets-access-control/internal/infra/logging"
	"sheets-access-control/internal/usecase"
)

// Limiter throttles webhook redeliveries per payment_id. Optional; a nil
// limiter admits everything.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Redelivery throttle per payment_id. Generous: legitimate providers redeliver
// a handful of times, a poison event loops far beyond this.
const (
	webhookRateLimit  = 10
	webhookRateWindow = time.Minute
)

type Server struct {
	payUC   usecase.PaymentUseCase
	secret  string
	limiter Limiter
	log     *zerolog.Logger
}

func NewServer(payUC usecase.PaymentUseCase, webhookSecret string, limiter Limiter, logger *zerolog.Logger) *Server {
	return &Server{payUC: payUC, secret: webhookSecret, limiter: limiter, log: logger}
}

// Router builds the HTTP surface: the Razorpay webhook, the admin revoke
// endpoint, health checks and prometheus metrics.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/razorpay", func(r chi.Router) {
		r.Post("/webhook", s.handleWebhook)
		r.Post("/revoke", s.handleRevoke)
	})
	return r
}

// traceMiddleware assigns a ULID trace id to each request and logs completion.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := ulid.Make().String()
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-Id", traceID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		s.log.Debug().
			Str("trace_id", traceID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

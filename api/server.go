/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/leases/*         Lease contracts and their schedules
  /api/buyouts/*        Buyout contracts and their receivable
  /api/schedules/*      Schedule preview
  /api/receivables/*    Monthly listing and collection edits
  /api/payables/*       Sales/service payables and their status
  /api/customers/*      Customer directory
  /api/companies/*      Sales/service company directory
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness + database ping

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/leases", func(r chi.Router) {
			r.Get("/", h.ListLeases)
			r.Post("/", h.CreateLease)
			r.Get("/{code}", h.GetLease)
			r.Put("/{code}", h.UpdateLease)
			r.Delete("/{code}", h.DeleteLease)
			r.Get("/{code}/receivables", h.GetLeaseReceivables)
			r.Post("/{code}/regenerate", h.RegenerateLease)
		})

		r.Route("/buyouts", func(r chi.Router) {
			r.Get("/", h.ListBuyouts)
			r.Post("/", h.CreateBuyout)
			r.Get("/{code}", h.GetBuyout)
			r.Put("/{code}", h.UpdateBuyout)
			r.Delete("/{code}", h.DeleteBuyout)
			r.Get("/{code}/receivables", h.GetBuyoutReceivables)
			r.Post("/{code}/regenerate", h.RegenerateBuyout)
		})

		r.Post("/schedules/preview", h.PreviewSchedule)

		r.Route("/receivables", func(r chi.Router) {
			r.Get("/", h.GetStatement)
			r.Put("/{kind}/{code}/{seq}", h.UpdateCollection)
		})

		r.Route("/payables", func(r chi.Router) {
			r.Get("/", h.ListPayables)
			r.Put("/{kind}/{code}/{party}", h.UpdatePayable)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{code}", h.GetCustomer)
			r.Put("/{code}", h.UpdateCustomer)
			r.Delete("/{code}", h.DeleteCustomer)
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompanies)
			r.Post("/", h.CreateCompany)
			r.Get("/{code}", h.GetCompany)
			r.Put("/{code}", h.UpdateCompany)
			r.Delete("/{code}", h.DeleteCompany)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

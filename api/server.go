/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP behind proxies
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the collection frontend

ROUTE GROUPS:
  /api/panchayats/*  Tenancy, tariffs, billing runs, reports
  /api/villages/*    Village registration
  /api/houses/*      House registration and per-house billing
  /api/bills/*       Bill lookup and payment collection
  /api/scenarios/*   Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Panchayat routes
		r.Route("/panchayats", func(r chi.Router) {
			r.Get("/", h.ListPanchayats)
			r.Post("/", h.CreatePanchayat)
			r.Get("/{id}", h.GetPanchayat)
			r.Get("/{id}/tariff", h.GetTariff)
			r.Put("/{id}/tariff", h.PutTariff)
			r.Get("/{id}/villages", h.ListVillages)
			r.Get("/{id}/bills", h.ListPanchayatBills)
			r.Post("/{id}/bills/generate", h.GenerateRun)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/defaulters", h.GetDefaulters)
		})

		// Village routes
		r.Route("/villages", func(r chi.Router) {
			r.Post("/", h.CreateVillage)
			r.Get("/{id}/houses", h.ListHousesByVillage)
			r.Get("/{id}/summary", h.GetVillageSummary)
		})

		// House routes
		r.Route("/houses", func(r chi.Router) {
			r.Post("/", h.CreateHouse)
			r.Get("/{id}", h.GetHouse)
			r.Get("/{id}/bills", h.GetHouseBills)
			r.Post("/{id}/bills", h.GenerateBill)
		})

		// Bill routes
		r.Route("/bills", func(r chi.Router) {
			r.Get("/{id}", h.GetBill)
			r.Get("/{id}/payments", h.GetBillPayments)
			r.Post("/{id}/payments", h.CollectPayment)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	// Landing page with endpoint index.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Jaldhara Billing Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Jaldhara Water Billing API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/panchayats">/api/panchayats</a> - List Gram Panchayats</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}

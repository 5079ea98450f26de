package routes

import (
	"infinite-experiment/edigate/internal/api"
	"infinite-experiment/edigate/internal/config"
	"infinite-experiment/edigate/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAS2Routes registers the public AS2 endpoints. Partners
// authenticate through AS2 identifiers and signatures, not tokens.
func RegisterAS2Routes(r chi.Router, cfg *config.AppConfig, deps *api.Dependencies) {
	limiter := middleware.NewRateLimiter(cfg.AS2RateLimit, cfg.AS2RateBurst)

	r.Route("/as2", func(as2r chi.Router) {
		as2r.Use(limiter.Middleware)
		as2r.Post("/receive", api.AS2ReceiveHandler(deps.Services.AS2, cfg.MaxAS2BodyBytes))
		as2r.Post("/mdn", api.AS2MDNHandler(deps.Services.AS2, cfg.MaxAS2BodyBytes))
	})
}

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, cfg *config.AppConfig, deps *api.Dependencies) {
	partners := deps.Services.Partners
	scheduler := deps.Services.Scheduler

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware(cfg.JWTSecret)) // every route is tenant scoped

		v1.Route("/partners", func(pr chi.Router) {
			pr.Get("/", api.ListPartnersHandler(partners))
			pr.Post("/", api.CreatePartnerHandler(partners))
			pr.Get("/{id}", api.GetPartnerHandler(partners))
			pr.Put("/{id}", api.UpdatePartnerHandler(partners))
			pr.Delete("/{id}", api.DeactivatePartnerHandler(partners))
			pr.Get("/{id}/mappings/{docType}", api.GetMappingsHandler(partners))
			pr.Put("/{id}/mappings/{docType}", api.ReplaceMappingsHandler(partners))
		})

		v1.Get("/settings", api.GetSettingsHandler(partners))
		v1.Put("/settings", api.UpdateSettingsHandler(partners))

		v1.Get("/transactions", api.ListTransactionsHandler(deps.Repo.Transactions))
		v1.Get("/transactions/{id}", api.GetTransactionHandler(deps.Repo.Transactions))

		v1.Post("/outbound/{docType}", api.SendOutboundHandler(deps.Services.Outbound))

		v1.Post("/jobs/poll", api.PollAllHandler(scheduler))
		v1.Post("/jobs/poll/{partnerId}", api.PollPartnerHandler(scheduler))
		v1.Post("/jobs/refresh", api.RefreshJobsHandler(scheduler))
		v1.Get("/jobs/status", api.JobStatusHandler(scheduler))
	})
}

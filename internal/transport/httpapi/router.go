package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/agrovest/internal/transport/httpapi/handler"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger          *logger.Logger
	AllowedOrigins  []string
	RateLimitRPS    float64
	RateLimitBurst  int
	AuthHandler     *handler.AuthHandler
	WalletHandler   *handler.WalletHandler
	OfferingHandler *handler.OfferingHandler
	PositionHandler *handler.PositionHandler
	AdminHandler    *handler.AdminHandler
	HealthHandler   *handler.HealthHandler
	JWTMiddleware   func(http.Handler) http.Handler
	Metrics         middleware.RequestObserver
	MetricsHandler  http.Handler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	rps, burst := cfg.RateLimitRPS, cfg.RateLimitBurst
	if rps <= 0 {
		rps = 20
	}
	if burst <= 0 {
		burst = 40
	}

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit(rps, burst))

	// Health and metrics (no authentication required)
	r.Get("/health", handler.GetHealth)
	r.Get("/health/live", handler.GetLiveness)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
		r.Get("/health/detailed", cfg.HealthHandler.GetHealthDetailed)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		if cfg.AuthHandler != nil {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
		}
		if cfg.OfferingHandler != nil {
			r.Get("/offerings", cfg.OfferingHandler.ListOfferings)
			r.Get("/offerings/{id}", cfg.OfferingHandler.GetOffering)
		}

		if cfg.JWTMiddleware == nil {
			return
		}

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(cfg.JWTMiddleware)

			if cfg.AuthHandler != nil {
				r.Delete("/account", cfg.AuthHandler.DeleteAccount)
			}

			if cfg.WalletHandler != nil {
				r.Get("/wallet", cfg.WalletHandler.GetBalance)
				r.Get("/wallet/transactions", cfg.WalletHandler.GetHistory)
				r.Post("/wallet/fund", cfg.WalletHandler.InitiateFunding)
				r.Post("/wallet/fund/confirm", cfg.WalletHandler.ConfirmFunding)
				r.Post("/wallet/withdraw", cfg.WalletHandler.RequestWithdrawal)
				r.Get("/banks/resolve", cfg.WalletHandler.ResolveAccount)
			}

			if cfg.OfferingHandler != nil {
				r.Post("/offerings/{id}/invest", cfg.OfferingHandler.Invest)
			}

			if cfg.PositionHandler != nil {
				r.Get("/positions", cfg.PositionHandler.ListPositions)
				r.Get("/positions/{id}", cfg.PositionHandler.GetPosition)
			}

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				if cfg.OfferingHandler != nil {
					r.Post("/offerings", cfg.OfferingHandler.CreateOffering)
					r.Post("/offerings/{id}/close", cfg.OfferingHandler.CloseOffering)
				}

				if cfg.AdminHandler != nil {
					r.Get("/withdrawals", cfg.AdminHandler.ListWithdrawals)
					r.Post("/withdrawals/{id}/resolve", cfg.AdminHandler.ResolveWithdrawal)
					r.Post("/positions/{id}/payout", cfg.AdminHandler.PayYield)
					r.Post("/reconcile", cfg.AdminHandler.Reconcile)
					r.Delete("/users/{id}", cfg.AdminHandler.DeleteUser)
				}
			})
		})
	})

	return r
}

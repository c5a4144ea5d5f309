package server

import (
	"net/http"
	"time"

	"happymeter-backend/internal/config"
	"happymeter-backend/internal/domain"
	"happymeter-backend/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	card handler.CardHandler,
	scan handler.ScanHandler,
	program handler.ProgramHandler,
	staff handler.StaffHandler,
	rewards handler.RewardAdminHandler,
	tiers handler.TierAdminHandler,
	rules handler.RuleAdminHandler,
	promotions handler.PromotionAdminHandler,
	export handler.ExportHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Card-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	card.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(AuthMiddleware(cfg.JWTSecret))
		// staff-level (staff/owner)
		pr.Group(func(sr chi.Router) {
			sr.Use(RequireRole(domain.RoleOwner, domain.RoleStaff))
			scan.RegisterRoutes(sr)
		})
		// owner-level
		pr.Group(func(or chi.Router) {
			or.Use(RequireRole(domain.RoleOwner))
			program.RegisterRoutes(or)
			staff.RegisterRoutes(or)
			rewards.RegisterRoutes(or)
			tiers.RegisterRoutes(or)
			rules.RegisterRoutes(or)
			promotions.RegisterRoutes(or)
			export.RegisterRoutes(or)
		})
	})

	return r
}

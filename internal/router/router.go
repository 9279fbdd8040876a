package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/washtrack/api/internal/config"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/enum"
	"github.com/washtrack/api/internal/handler"
	mw "github.com/washtrack/api/internal/middleware"
	"github.com/washtrack/api/internal/service"
	"github.com/washtrack/api/internal/ws"
	"go.uber.org/zap"
)

// Deps holds everything the routes need. Cache may be nil, in which case the
// service catalogue is read from the database on every request.
type Deps struct {
	Config   *config.Config
	Queries  *database.Queries
	Orders   *service.OrderService
	Verifier handler.Verifier
	Cache    handler.ServiceCache
	Hub      *ws.Hub
	Logger   *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(d Deps) chi.Router {
	cfg := d.Config
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.IdempotencyHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(d.Queries, d.Verifier, cfg.JWTSecret, cfg.RequireEmailVerification, d.Logger)
	authHandler.RegisterRoutes(r)

	serviceHandler := handler.NewServiceHandler(d.Queries, d.Cache, d.Logger)
	r.Route("/services", serviceHandler.RegisterPublicRoutes)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, d.Logger, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Customer routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCustomer))

			profileHandler := handler.NewProfileHandler(d.Queries, d.Logger)
			customerOrders := handler.NewCustomerOrderHandler(d.Orders, d.Queries, d.Logger)
			r.Route("/me", func(r chi.Router) {
				profileHandler.RegisterRoutes(r)
				r.Route("/orders", customerOrders.RegisterRoutes)
			})
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))

			r.Route("/users", handler.NewUserHandler(d.Queries, d.Logger).RegisterRoutes)
			r.Route("/staff", handler.NewStaffHandler(d.Queries, d.Logger).RegisterRoutes)
			r.Route("/services", serviceHandler.RegisterAdminRoutes)
			r.Route("/orders", handler.NewOrderHandler(d.Orders, d.Queries, d.Logger).RegisterRoutes)
			r.Route("/reports", handler.NewReportsHandler(d.Queries, cfg.Location(), d.Logger).RegisterRoutes)
		})
	})

	d.Logger.Info("router initialized")
	return r
}

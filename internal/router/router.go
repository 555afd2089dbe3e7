package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mealmasters/api/internal/config"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
	"github.com/mealmasters/api/internal/handler"
	mw "github.com/mealmasters/api/internal/middleware"
	"github.com/mealmasters/api/internal/notify"
	"github.com/mealmasters/api/internal/service"
	"github.com/mealmasters/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware per route group.
// It fails when cfg.Timezone cannot be loaded.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, notifier notify.Notifier) (chi.Router, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	catalogService := service.NewCatalogService(queries)
	orderService := service.NewOrderService(queries, notifier, loc)
	deliveryService := service.NewDeliveryService(
		pool,
		queries,
		func(db database.DBTX) service.DeliveryStore {
			return database.New(db)
		},
		notifier,
	)

	catalogHandler := handler.NewCatalogHandler(catalogService)
	orderHandler := handler.NewOrderHandler(orderService)
	deliveryHandler := handler.NewDeliveryHandler(deliveryService)
	userHandler := handler.NewUserHandler(queries)
	profileHandler := handler.NewProfileHandler(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.TokenTTL, cfg.RefreshTTL)
	r.Route("/user", authHandler.RegisterRoutes)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/customer", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleCustomer))
			catalogHandler.RegisterCustomerRoutes(r)
			orderHandler.RegisterCustomerRoutes(r)
			deliveryHandler.RegisterCustomerRoutes(r)
			profileHandler.RegisterCustomerRoutes(r)
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleVendor))
			catalogHandler.RegisterVendorRoutes(r)
			orderHandler.RegisterVendorRoutes(r)
			deliveryHandler.RegisterVendorRoutes(r)
			profileHandler.RegisterVendorRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			catalogHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
			deliveryHandler.RegisterAdminRoutes(r)
			userHandler.RegisterRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")
	return r, nil
}

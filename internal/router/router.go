package router

import (
	"net/http"
	"time"

	"admithub/internal/handlers/api/v1/admin"
	"admithub/internal/handlers/api/v1/applications"
	"admithub/internal/handlers/api/v1/auth"
	"admithub/internal/handlers/api/v1/users"
	"admithub/internal/middleware"
	"admithub/internal/response"
	"admithub/internal/services"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	sc *services.ServiceCollection,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recovery(middleware.DefaultRecoveryConfig(), logger))
	r.Use(middleware.RateLimit(rateLimiter))

	// Controllers
	authController := auth.NewAuthController(sc, &sc.Config.Auth, logger, responseBuilder)
	usersController := users.NewUsersController(sc, logger, responseBuilder)
	applicationsController := applications.NewApplicationsController(sc, logger, responseBuilder)
	adminController := admin.NewAdminController(sc, logger, responseBuilder)

	// Health and readiness
	r.Get("/health", healthHandler(sc, responseBuilder))

	// API documentation
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public authentication endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authController.Register)
			r.Post("/login", authController.Login)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.OptionalAuth())
				r.Post("/logout", authController.Logout)
			})
		})

		// Profile endpoints
		r.Route("/users", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth())
			r.Get("/me", usersController.GetMe)
			r.Patch("/me", usersController.UpdateProfile)
			r.Post("/me/photo", usersController.UploadPhoto)
		})

		// Applicant application endpoints
		r.Route("/applications", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth())
			r.Get("/me", applicationsController.GetApplication)
			r.Get("/me/sections", applicationsController.GetSections)
			r.Patch("/me/sections/{section}", applicationsController.SaveSection)
			r.Put("/me/current-section", applicationsController.SetCurrentSection)
			r.Put("/me/plan", applicationsController.SetSelectedPlan)
			r.Post("/me/submit", applicationsController.Submit)

			r.Get("/me/video", applicationsController.GetVideoInfo)
			r.Post("/me/video", applicationsController.UploadVideo)
			r.Delete("/me/video", applicationsController.DeleteVideo)
		})

		// Admin endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth())
			r.Use(authMiddleware.RequireAdmin())

			r.Get("/users", adminController.ListUsers)
			r.Delete("/users/{id}", adminController.DeleteUser)

			// Role changes need the highest privilege level
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireSuperAdmin())
				r.Put("/users/{id}/role", adminController.UpdateUserRole)
			})

			r.Get("/applications", adminController.ListApplications)
			r.Get("/applications/stats", adminController.GetStats)
			r.Get("/applications/{id}", adminController.GetApplication)
			r.Put("/applications/{id}/status", adminController.SetApplicationStatus)
			r.Delete("/applications/{id}", adminController.DeleteApplication)
		})
	})

	return r
}

// healthHandler reports service and dependency health
func healthHandler(sc *services.ServiceCollection, responseBuilder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		health, err := sc.HealthCheck(ctx)
		if err != nil {
			responseBuilder.WriteError(w, r, err)
			return
		}

		status := http.StatusOK
		if health.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}

		responseBuilder.WriteJSON(w, r, responseBuilder.Success(ctx, health), status)
	}
}

// NewServer builds an http.Server with sane timeouts around the router
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

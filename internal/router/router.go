package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"delivery-portal/internal/config"
	"delivery-portal/internal/handler"
	"delivery-portal/internal/middleware"
)

type Handlers struct {
	Pages   *handler.PageHandler
	Health  *handler.HealthHandler
	API     http.Handler
	Metrics http.Handler
}

func New(cfg *config.Config, guard *middleware.Guard, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	// Unrouted paths are still pages: the guard answers before the 404.
	r.NotFound(guard.Handler(http.HandlerFunc(handler.NotFound)).ServeHTTP)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// The API forwarder sits outside the guard; the backend authorizes
	// every call itself.
	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Deadline(cfg.RequestTimeout))
		api.Get("/*", h.API.ServeHTTP)
		api.Post("/*", h.API.ServeHTTP)
		api.Put("/*", h.API.ServeHTTP)
		api.Delete("/*", h.API.ServeHTTP)
	})

	r.Group(func(pages chi.Router) {
		pages.Use(guard.Handler)

		pages.Get("/", h.Pages.Home)
		pages.Get(cfg.Policy.SignInPath, h.Pages.SignIn)
		pages.Get("/signup", h.Pages.SignUp)
		pages.Get(cfg.Policy.UnauthorizedPath, h.Pages.Unauthorized)

		pages.Get("/dashboard", h.Pages.Dashboard("Dashboard"))
		pages.Get("/dashboard/admin", h.Pages.Dashboard("Admin dashboard"))
		pages.Get("/dashboard/admin/*", h.Pages.Dashboard("Admin dashboard"))
		pages.Get("/dashboard/restaurant", h.Pages.Dashboard("Restaurant dashboard"))
		pages.Get("/dashboard/restaurant/*", h.Pages.Dashboard("Restaurant dashboard"))
		pages.Get("/dashboard/rider", h.Pages.Dashboard("Rider dashboard"))
		pages.Get("/dashboard/rider/*", h.Pages.Dashboard("Rider dashboard"))
		pages.Get("/rider/*", h.Pages.Dashboard("Rider"))
		pages.Get("/customer/*", h.Pages.Dashboard("Customer"))
		pages.Get("/restaurants/*", h.Pages.Dashboard("Restaurants"))
		pages.Get("/orders/*", h.Pages.Dashboard("Orders"))
	})

	return r
}

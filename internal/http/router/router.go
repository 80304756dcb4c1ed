package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/echo-backend/internal/health"
	"github.com/sandeepkv93/echo-backend/internal/http/handler"
	"github.com/sandeepkv93/echo-backend/internal/http/middleware"
	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

const maxBodyBytes = 1 << 20

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	DeviceHandler     *handler.DeviceHandler
	StorageHandler    *handler.StorageHandler
	AccessValidator   service.AccessValidator
	CORSOrigins       []string
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter RateLimiterFunc
	AuthRateLimiter   RateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type RateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter)
		r.Post("/signup", dep.AuthHandler.Signup)
		r.Post("/login", dep.AuthHandler.Login)
		r.Post("/guest", dep.AuthHandler.Guest)
		r.Post("/refresh", dep.AuthHandler.Refresh)
		r.Get("/email", dep.AuthHandler.CheckEmail)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(dep.AccessValidator))

		r.Get("/auth/validate", dep.AuthHandler.Validate)
		r.Post("/auth/logout", dep.AuthHandler.Logout)

		r.Get("/user", dep.UserHandler.Me)
		r.Put("/user", dep.UserHandler.Update)
		r.Delete("/user", dep.UserHandler.Delete)

		r.Get("/device", dep.DeviceHandler.List)
		r.Patch("/device/{id}", dep.DeviceHandler.Update)
		r.Delete("/device/{id}", dep.DeviceHandler.Delete)

		r.Get("/storage/sign/put", dep.StorageHandler.SignPut)
		r.Get("/storage/sign/get", dep.StorageHandler.SignGet)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

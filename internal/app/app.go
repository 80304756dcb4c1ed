package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sandeepkv93/echo-backend/internal/config"
	"github.com/sandeepkv93/echo-backend/internal/health"
	"github.com/sandeepkv93/echo-backend/internal/http/handler"
	"github.com/sandeepkv93/echo-backend/internal/http/middleware"
	"github.com/sandeepkv93/echo-backend/internal/http/router"
	"github.com/sandeepkv93/echo-backend/internal/observability"
	"github.com/sandeepkv93/echo-backend/internal/repository"
	"github.com/sandeepkv93/echo-backend/internal/security"
	"github.com/sandeepkv93/echo-backend/internal/service"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const (
	rateLimitKeyPrefix = "echo:rl"
	emailCachePrefix   = "echo:email_absent"
	emailCacheTTL      = 30 * time.Second
)

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Observability   *observability.Runtime
	DB              *gorm.DB
	Redis           redis.UniversalClient
	Readiness       *health.ProbeRunner
	ShutdownTimeout time.Duration
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, readiness *health.ProbeRunner) *App {
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		Readiness:       readiness,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Build wires storage, services and the HTTP server from cfg. The database
// schema is migrated before the server is returned.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*App, error) {
	runtime, err := observability.InitRuntime(ctx, cfg, logger, lp)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	a := &App{Config: cfg, Logger: logger, Observability: runtime, ShutdownTimeout: cfg.ShutdownTimeout}

	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		_ = a.Shutdown(ctx)
		return nil, err
	}
	a.DB = db
	if err := repository.Migrate(db); err != nil {
		_ = a.Shutdown(ctx)
		return nil, err
	}

	checks := []health.Check{health.DatabaseCheck(db)}
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		checks = append(checks, health.RedisCheck(a.Redis))
	}
	a.Readiness = health.NewProbeRunner(2*time.Second, time.Second, checks...)

	users := repository.NewUserRepository(db)
	devices := repository.NewDeviceRepository(db)
	sessions := repository.NewSessionRepository(db)
	hasher := security.NewPasswordHasher(security.DefaultArgon2Params())
	tokens := service.NewTokenService(security.NewJWTManager(cfg.JWTSecret), security.NewEnvelopeCipher(), sessions, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authSvc := service.NewAuthService(users, devices, tokens, hasher)
	if a.Redis != nil {
		authSvc.WithEmailLookupCache(service.NewRedisNegativeLookupCache(a.Redis, emailCachePrefix), emailCacheTTL)
	} else {
		authSvc.WithEmailLookupCache(service.NewInMemoryNegativeLookupCache(), emailCacheTTL)
	}

	storageCfg := service.StorageConfig{
		Endpoint:      cfg.StorageEndpoint,
		Region:        cfg.StorageRegion,
		AccessKey:     cfg.StorageAccessKey,
		SecretKey:     cfg.StorageSecretKey,
		Bucket:        cfg.StorageBucket,
		PublicBaseURL: cfg.StoragePublicBaseURL,
		UseSSL:        cfg.StorageUseSSL,
		TTL:           cfg.StoragePresignTTL,
	}
	var presigner service.ObjectPresigner
	if cfg.StorageEnabled() {
		client, err := service.NewMinioPresigner(storageCfg)
		if err != nil {
			_ = a.Shutdown(ctx)
			return nil, fmt.Errorf("init storage: %w", err)
		}
		presigner = client
	} else {
		logger.Info("object storage disabled")
	}

	deps := router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(authSvc),
		UserHandler:      handler.NewUserHandler(service.NewUserService(users, hasher)),
		DeviceHandler:    handler.NewDeviceHandler(service.NewDeviceService(devices)),
		StorageHandler:   handler.NewStorageHandler(service.NewStorageService(presigner, storageCfg)),
		AccessValidator:  authSvc,
		CORSOrigins:      cfg.CORSAllowedOrigins,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		Readiness:        a.Readiness,
		EnableOTelHTTP:   cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	}
	if a.Redis != nil {
		mode := middleware.FailClosed
		if cfg.RateLimitFailOpen {
			mode = middleware.FailOpen
		}
		limiter := middleware.NewRedisFixedWindowLimiter(a.Redis, rateLimitKeyPrefix)
		deps.GlobalRateLimiter = middleware.NewDistributedRateLimiter(limiter, cfg.APIRateLimitRPM, time.Minute, mode, "api").Middleware()
		deps.AuthRateLimiter = middleware.NewDistributedRateLimiter(limiter, cfg.AuthRateLimitRPM, time.Minute, mode, "auth").Middleware()
	}

	a.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// Run serves until ctx is cancelled, then drains the server and releases
// every dependency.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("db close: %w", err))
			}
		}
	}
	if err := a.Observability.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	if len(errs) == 0 {
		a.Logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

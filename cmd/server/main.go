package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/placements/internal/client/staffdirectory"
	"github.com/yourorg/placements/internal/featureflags"
	"github.com/yourorg/placements/internal/handler"
	"github.com/yourorg/placements/internal/infrastructure/logger"
	"github.com/yourorg/placements/internal/infrastructure/redis"
	"github.com/yourorg/placements/internal/observability/metrics"
	"github.com/yourorg/placements/internal/observability/tracing"
	"github.com/yourorg/placements/internal/repository"
	"github.com/yourorg/placements/internal/security"
	"github.com/yourorg/placements/internal/security/audit"
	"github.com/yourorg/placements/internal/security/auth"
	"github.com/yourorg/placements/internal/security/middleware"
	"github.com/yourorg/placements/internal/security/ratelimit"
	"github.com/yourorg/placements/internal/service"
	"github.com/yourorg/placements/internal/worker"
	"github.com/yourorg/placements/pkg/config"
	"github.com/yourorg/placements/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting placements server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op without an OTLP endpoint configured)
	shutdownTracing, err := tracing.Init(ctx, log, "placements", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// 4. Connect to Postgres
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	// 5. Initialize the feature-flag store. Redis is optional; without it
	// flags fall back to environment variables.
	var flagStore featureflags.Store
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		flagStore = redisClient
	}
	flags := featureflags.New(flagStore, log)

	// 6. Initialize the staff directory client
	staffClient := staffdirectory.NewClient(
		cfg.StaffDirectoryBaseURL,
		time.Duration(cfg.StaffDirectoryTimeoutSeconds)*time.Second,
		log,
	)

	// 7. Initialize repositories
	userRepo := repository.NewPostgresUserRepository(db, log)
	roleRepo := repository.NewPostgresRoleRepository(db, log)
	qualificationRepo := repository.NewPostgresQualificationRepository(db, log)
	regionRepo := repository.NewPostgresProbationRegionRepository(db, log)
	apAreaRepo := repository.NewPostgresApAreaRepository(db, log)
	pduRepo := repository.NewPostgresPduRepository(db, log)
	postcodeRepo := repository.NewPostgresPostcodeDistrictRepository(db, log)
	characteristicRepo := repository.NewPostgresCharacteristicRepository(db, log)
	bedSearchRepo := repository.NewPostgresBedSearchRepository(db, log)

	// 8. Initialize services
	apAreaService := service.NewApAreaService(apAreaRepo, cfg.ApAreaTeamOverrides, log)
	offenderService := service.NewOffenderService(staffClient, log)
	userService := service.NewUserService(
		userRepo,
		roleRepo,
		qualificationRepo,
		regionRepo,
		pduRepo,
		staffClient,
		apAreaService,
		offenderService,
		log,
	)
	bedSearchService := service.NewBedSearchService(bedSearchRepo, postcodeRepo, characteristicRepo, log)

	// 9. Initialize security components
	tokenManager := auth.NewTokenManager(os.Getenv("JWT_SECRET"), "placements")
	authorizer := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute) // 100 requests per minute per user
	auditLogger := audit.NewLogger(log)

	// 10. Initialize handlers
	bedSearchHandler := handler.NewBedSearchHandler(bedSearchService, userService, auditLogger, log)
	usersHandler := handler.NewUsersHandler(userService, authorizer, auditLogger, log)
	healthHandler := handler.NewHealthHandler(pool, redisPinger(redisClient), log)

	// 11. Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/beds/search/approved-premises", bedSearchHandler.SearchApprovedPremises)
	mux.HandleFunc("POST /api/beds/search/temporary-accommodation", bedSearchHandler.SearchTemporaryAccommodation)
	mux.HandleFunc("GET /api/users/me", usersHandler.Me)
	mux.HandleFunc("GET /api/users/me/version", usersHandler.MeVersion)
	mux.HandleFunc("GET /api/users", usersHandler.Search)
	mux.HandleFunc("GET /api/users/allocatable", usersHandler.Allocatable)
	mux.HandleFunc("PUT /api/users/{id}", usersHandler.Update)
	mux.HandleFunc("PUT /api/users/{id}/pdu", usersHandler.UpdatePdu)
	mux.HandleFunc("PUT /api/users/{id}/roles", usersHandler.UpdateRoles)
	mux.HandleFunc("DELETE /api/users/{id}", usersHandler.Delete)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Service-Name")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> CORS -> JWT -> rate limit -> content type
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.ValidateJSONContentType(log)(handlerWithCORS),
				),
			),
		),
		log,
	)
	tracedHandler := otelhttp.NewHandler(rootHandler, "http.server")

	// 12. Start staff sync worker in background
	syncWorker := worker.NewStaffSyncWorker(
		userRepo,
		userService,
		flags,
		log,
		time.Duration(cfg.StaffSyncIntervalMinutes)*time.Minute,
	)
	go syncWorker.Start(ctx)

	// 13. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      tracedHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", 100),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop staff sync worker
	rateLimiter.Stop()
	log.Info("server stopped")
}

// redisPinger avoids handing the health handler a typed nil when Redis is
// not configured.
func redisPinger(c *redis.Client) handler.Pinger {
	if c == nil {
		return nil
	}
	return c
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}

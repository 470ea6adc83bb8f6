package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/emav/internal/api"
	"github.com/RMahshie/emav/internal/api/handlers"
	"github.com/RMahshie/emav/internal/config"
	"github.com/RMahshie/emav/internal/logging"
	"github.com/RMahshie/emav/internal/metrics"
	"github.com/RMahshie/emav/internal/processing"
	"github.com/RMahshie/emav/internal/repository/postgres"
	"github.com/RMahshie/emav/internal/storage"
	"github.com/RMahshie/emav/internal/unv"
	"github.com/RMahshie/emav/internal/validation"
	"github.com/RMahshie/emav/pkg/models"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Logging)

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	cancelPing()

	// Object storage
	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	if cfg.Storage.EnsureBucket {
		if err := store.EnsureBucket(context.Background()); err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("Failed to ensure bucket")
		}
	}

	mode, err := validation.ParseMode(cfg.Parsing.ReconstructedMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid reconstructed mode")
	}

	m := metrics.New()
	reader := unv.NewReader(cfg.Parsing.FilteredDatasets...)
	repo := postgres.NewPostgresValidationRepository(db)
	processingSvc := processing.NewValidationService(store, repo,
		processing.WithReader(reader),
		processing.WithMetrics(m),
		processing.WithDefaultMode(mode),
		processing.WithUploadCleanup(cfg.Storage.DeleteUploads),
	)

	recordHandler := handlers.NewRecordHandler(reader, m, mode)
	validationHandler := handlers.NewValidationHandler(repo, store, processingSvc, cfg.Server.MaxUploadBytes)

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.Server.MaxUploadBytes > 0 {
		// Two records plus JSON framing.
		router.Use(middleware.RequestSize(2*cfg.Server.MaxUploadBytes + 64*1024))
	}

	// Create Huma API
	humaConfig := huma.DefaultConfig("EMAV API", version)
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		if err := db.PingContext(ctx); err != nil {
			resp.Body.Status = "degraded"
		}
		resp.Body.Version = version
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, recordHandler, validationHandler)
	router.Handle(cfg.Server.MetricsPath, m.Handler())

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("Starting EMAV API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

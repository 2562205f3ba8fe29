package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"triageapi/internal/assign"
	"triageapi/internal/audit"
	"triageapi/internal/config"
	"triageapi/internal/database"
	"triageapi/internal/database/migration"
	"triageapi/internal/extractor"
	handlers "triageapi/internal/http/handler"
	"triageapi/internal/http/middleware"
	"triageapi/internal/otel"
	"triageapi/internal/pipeline"
	"triageapi/internal/repository/postgres"
	"triageapi/internal/service"
	"triageapi/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := time.UTC
	if tz := os.Getenv("TZ"); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (no-op when OTEL_SDK_DISABLED=true)
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Repositories
	docRepo := postgres.NewDocumentPostgres(db)
	patientRepo := postgres.NewPatientPostgres(db)
	doctorRepo := postgres.NewDoctorPostgres(db)
	auditRepo := postgres.NewAuditPostgres(db)

	// Audit writes never fail callers; failures are logged instead.
	auditor := audit.NewRecorder(auditRepo)

	ext, err := extractor.NewHTTP(cfg.Extractor)
	if err != nil {
		log.Fatalf("failed to initialize extractor client: %v", err)
	}

	// Background extraction worker pool
	pipe, err := pipeline.New(docRepo, ext, auditor, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to initialize pipeline: %v", err)
	}

	resolver := assign.NewResolver(patientRepo, doctorRepo)
	docSvc := service.NewDocumentService(objStore, docRepo, patientRepo, resolver, pipe, auditor)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// The transport ceiling sits well above the validation ceiling so an
		// oversized upload reaches the service and gets the FILE_TOO_LARGE
		// response instead of an aborted connection.
		BodyLimit: 2 * service.MaxFileSize,
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(middleware.Role())
	app.Use(otelfiber.Middleware())

	promMw, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register HTTP metrics: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, db, docSvc, doctorRepo)

	// Serve until interrupted, then drain the pipeline before exit.
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	pipe.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown error: %v", err)
	}
}

package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"dkn/docs"
	"dkn/internal/config"
	"dkn/internal/database"
	"dkn/internal/database/migration"
	handlers "dkn/internal/http/handler"
	"dkn/internal/http/middleware"
	"dkn/internal/logger"
	apptrace "dkn/internal/otel"
	"dkn/internal/repository/postgres"
	"dkn/internal/service"
	"dkn/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title                      Knowledge Network Document API
// @version                    1.0
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel, cfg.Location())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server_exit", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := apptrace.Init(ctx, zl)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			zl.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, zl, cfg.Database.Host); err != nil {
		return err
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return err
	}
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := newApp(cfg, zl, db, store, reg, metrics, promMw)

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server_start", zap.String("addr", ":"+cfg.Port), zap.String("storage_driver", cfg.Storage.Driver))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("server_shutdown")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func newStorage(ctx context.Context, cfg *config.AppConfig) (storage.Storage, error) {
	if cfg.Storage.Driver == "minio" {
		return storage.NewMinIO(ctx, cfg.MinIO)
	}
	return storage.NewLocal(cfg.Storage.UploadDir, cfg.Storage.PublicPath)
}

func newApp(cfg *config.AppConfig, zl *zap.Logger, db *sql.DB, store storage.Storage,
	reg *prometheus.Registry, metrics *service.Metrics, promMw *middleware.PrometheusMiddleware) *fiber.App {
	docRepo := postgres.NewDocumentPostgres(db)
	userRepo := postgres.NewUserPostgres(db)

	docSvc := service.NewDocumentService(store, docRepo, userRepo, cfg.MinIO.PresignExpiry(), zl, metrics)
	reviewSvc := service.NewReviewService(docRepo, userRepo, zl, metrics)
	dirSvc := service.NewDirectoryService(userRepo)

	app := fiber.New(fiber.Config{
		AppName:      "dkn-api",
		ErrorHandler: handlers.ErrorHandler(cfg.Storage.MaxUploadBytes),
		// Multipart overhead on top of the largest accepted file.
		BodyLimit: int(cfg.Storage.MaxUploadBytes) + 1<<20,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.RequestIDHeader,
	}))
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(zl))
	app.Use(promMw.Handler())

	rc := handlers.RouteConfig{
		DB:             db,
		Documents:      docSvc,
		Reviews:        reviewSvc,
		Directory:      dirSvc,
		JWTSecret:      cfg.Auth.JWTSecret,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Gatherer:       reg,
	}
	if cfg.Storage.Driver != "minio" {
		rc.UploadDir = cfg.Storage.UploadDir
		rc.PublicPath = cfg.Storage.PublicPath
	}

	// Swagger UI with host and scheme taken from the request.
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, rc)
	return app
}

package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dkn/internal/http/middleware"
	"dkn/internal/service"
)

// RouteConfig carries the dependencies of the HTTP surface.
type RouteConfig struct {
	DB        *sql.DB
	Documents service.DocumentService
	Reviews   service.ReviewService
	Directory service.DirectoryService

	JWTSecret      string
	MaxUploadBytes int64

	// UploadDir is served under PublicPath when set (local storage driver).
	UploadDir  string
	PublicPath string

	// Gatherer backs /metrics when set.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches every route to app.
func RegisterRoutes(app *fiber.App, rc RouteConfig) {
	app.Get("/healthz", LivenessProbe())
	if rc.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(rc.Gatherer, promhttp.HandlerOpts{})))
	}
	if rc.UploadDir != "" && rc.PublicPath != "" {
		app.Static(rc.PublicPath, rc.UploadDir, fiber.Static{Browse: false})
	}

	api := app.Group("/api")
	api.Get("/health", HealthCheck(rc.DB))

	requireAuth := middleware.RequireAuth(rc.JWTSecret)

	docs := api.Group("/documents", requireAuth)
	docs.Post("/upload", UploadDocument(rc.Documents, rc.MaxUploadBytes))
	docs.Get("/", ListDocuments(rc.Documents))
	// Literal segments go before /:id.
	docs.Get("/recent", RecentDocuments(rc.Documents))
	docs.Get("/pending", PendingDocuments(rc.Documents))
	docs.Get("/:id", GetDocument(rc.Documents))
	docs.Get("/:id/download", DownloadDocument(rc.Documents))
	docs.Put("/:id/review", ReviewDocument(rc.Reviews))
	docs.Delete("/:id", DeleteDocument(rc.Documents))

	users := api.Group("/users", requireAuth)
	users.Get("/leaderboard", Leaderboard(rc.Directory))
	users.Get("/experts", Experts(rc.Directory))
	users.Get("/stats/:id?", UserStats(rc.Directory))
	users.Get("/departments", Departments(rc.Directory))
	users.Get("/regions", Regions(rc.Directory))
}

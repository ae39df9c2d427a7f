// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, error normalization, panic
// recovery, metrics, CORS, security headers and idempotency.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - One error path: every failure reaches the problem middleware
//   - Deterministic, minimal router setup; all dependencies injected
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/config"
	"github.com/tbourn/test-stack-api/internal/domain"
	"github.com/tbourn/test-stack-api/internal/http/handlers"
	"github.com/tbourn/test-stack-api/internal/http/middleware"
	"github.com/tbourn/test-stack-api/internal/http/problem"
	"github.com/tbourn/test-stack-api/internal/repo"
	"github.com/tbourn/test-stack-api/internal/services"
)

// repoShim adapts the repository free functions to the services.ItemRepo and
// services.NoteRepo interfaces. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type repoShim struct{}

func (repoShim) CreateItem(ctx context.Context, db *gorm.DB, name string) (*domain.Item, error) {
	return repo.CreateItem(ctx, db, name)
}

func (repoShim) ListItems(ctx context.Context, db *gorm.DB, opts repo.ListOptions) ([]domain.Item, int64, error) {
	return repo.ListItems(ctx, db, opts)
}

func (repoShim) GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.Item, error) {
	return repo.GetItem(ctx, db, id)
}

func (repoShim) ItemsStats(ctx context.Context, db *gorm.DB) (repo.Stats, error) {
	return repo.ItemsStats(ctx, db)
}

func (repoShim) CreateNote(ctx context.Context, db *gorm.DB, content string) (*domain.Note, error) {
	return repo.CreateNote(ctx, db, content)
}

func (repoShim) ListNotes(ctx context.Context, db *gorm.DB, opts repo.ListOptions) ([]domain.Note, int64, error) {
	return repo.ListNotes(ctx, db, opts)
}

func (repoShim) GetNote(ctx context.Context, db *gorm.DB, id string) (*domain.Note, error) {
	return repo.GetNote(ctx, db, id)
}

func (repoShim) NotesStats(ctx context.Context, db *gorm.DB) (repo.Stats, error) {
	return repo.NotesStats(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the X-Trace-ID correlation id
//  3. Logger: one structured completion entry per request, with redaction
//  4. Metrics
//  5. Gzip (optional), outside the problem handler so error bodies compress
//  6. Problem handler: renders every recorded error as problem+json
//  7. Recovery: turns panics into recorded errors for the problem handler
//  8. Body size limiter
//  9. CORS and security headers
//  10. Idempotency validator (create routes only)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 5) Compression. Registered outside the problem handler so error bodies
	// are written while the gzip writer is still open.
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}

	// 6) + 7) Error normalization, fed by recovery
	r.Use(problem.Handler(problem.Options{Development: cfg.Development()}))
	r.Use(middleware.Recovery())

	// 8) Global body size limit
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 9) CORS posture and security headers
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Dependency injection: services ← repo/db
	itemsSvc := services.NewItemsService(db, repoShim{}, cfg.IdempotencyTTL)
	notesSvc := services.NewNotesService(db, repoShim{}, cfg.IdempotencyTTL)
	h := handlers.New(itemsSvc, notesSvc, handlers.Options{
		Development:    cfg.Development(),
		BasePath:       cfg.APIBasePath,
		SwaggerEnabled: cfg.SwaggerEnabled,
	})

	// 10) Idempotency validation for create routes
	idem := middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200})

	// Fallbacks
	r.NoRoute(h.NotFound)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/", h.Root)
		api.GET("/health", h.Health)
		api.GET("/contracts", h.Contracts)
		api.GET("/openapi.json", h.OpenAPI)

		api.GET("/items", h.ListItems)
		api.POST("/items", idem, h.CreateItem)
		api.GET("/items/:id", h.GetItem)

		api.GET("/notes", h.ListNotes)
		api.POST("/notes", idem, h.CreateNote)
		api.GET("/notes/:id", h.GetNote)

		if cfg.SwaggerEnabled {
			api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
				ginSwagger.URL(prefixed(cfg.APIBasePath, "/openapi.json")),
			))
		}
	}
}

// corsConfig builds the CORS policy. Origins may contain a single "*"
// wildcard (e.g. https://*.github.dev); an empty list allows every origin
// without credentials.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
			middleware.TraceIDHeader, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders: []string{
			middleware.TraceIDHeader, "ETag", "Content-Length", handlers.HeaderIdempotentReplayed,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(c.AllowedOrigins) == 0 {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = c.AllowedOrigins
	cc.AllowWildcard = true
	cc.AllowCredentials = true
	return cc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// fail in the validation gate.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func prefixed(base, path string) string {
	if base == "" || base == "/" {
		return path
	}
	return base + path
}

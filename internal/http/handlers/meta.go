package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/apperr"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// Service identity reported by GET /.
const (
	ServiceName        = "Test Stack API"
	ServiceVersion     = "1.0.0"
	ServiceDescription = "Educational full-stack demo API"
)

// Root handles GET / with the service name, version and endpoint links.
func (h *Handlers) Root(c *gin.Context) {
	base := h.opts.BasePath
	endpoints := map[string]string{
		"health":    base + "/health",
		"items":     base + "/items",
		"notes":     base + "/notes",
		"contracts": base + "/contracts",
		"openapi":   base + "/openapi.json",
		"metrics":   "/metrics",
	}
	if h.opts.SwaggerEnabled {
		endpoints["docs"] = base + "/swagger/index.html"
	}
	h.ok(c, http.StatusOK, contracts.ServiceInfo{
		Name:        ServiceName,
		Version:     ServiceVersion,
		Description: ServiceDescription,
		Endpoints:   endpoints,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(c *gin.Context) {
	h.ok(c, http.StatusOK, contracts.HealthResponse{Status: "ok", Timestamp: h.opts.Now().UTC()})
}

// Contracts handles GET /contracts with the published contract document.
func (h *Handlers) Contracts(c *gin.Context) {
	c.JSON(http.StatusOK, contracts.Document())
}

// OpenAPI handles GET /openapi.json.
func (h *Handlers) OpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, contracts.OpenAPI())
}

// NotFound is the fallback for unmatched routes.
func (h *Handlers) NotFound(c *gin.Context) {
	fail(c, apperr.NotFound("route not found", apperr.CodeRouteNotFound))
}

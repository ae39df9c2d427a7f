package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/http/middleware"
	"github.com/tbourn/test-stack-api/internal/services"
	"github.com/tbourn/test-stack-api/internal/validate"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// ListItems handles GET /items. It supports a weak ETag via If-None-Match
// and may return 304.
func (h *Handlers) ListItems(c *gin.Context) {
	q, bad := validate.Query[contracts.ListItemsQuery](c)
	if bad != nil {
		fail(c, bad)
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if v, err := h.items.Version(ctx); err == nil {
		if notModified(c, listETag("items", v, q.Page, q.PageSize, q.Q)) {
			return
		}
	} else {
		middleware.LoggerFrom(c).Debug().Err(err).Msg("items etag skipped")
	}

	resp, err := h.items.List(ctx, q)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, resp)
}

// CreateItem handles POST /items. A valid Idempotency-Key makes retries
// return the originally created item.
func (h *Handlers) CreateItem(c *gin.Context) {
	body, bad := validate.Body[contracts.CreateItemBody](c)
	if bad != nil {
		fail(c, bad)
		return
	}

	dto, replayed, err := h.items.Create(c.Request.Context(), body, idempotency(c))
	if err != nil {
		fail(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotentReplayed, "true")
	}
	h.ok(c, http.StatusCreated, dto)
}

// GetItem handles GET /items/{id}.
func (h *Handlers) GetItem(c *gin.Context) {
	id := contracts.ResourceID{ID: c.Param("id")}
	if bad := validate.Value(id); bad != nil {
		fail(c, bad)
		return
	}

	dto, err := h.items.Get(c.Request.Context(), id.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, dto)
}

// idempotency scopes the validated Idempotency-Key to the matched route.
func idempotency(c *gin.Context) services.Idempotency {
	key, ok := middleware.GetIdempotencyKey(c)
	if !ok {
		return services.Idempotency{}
	}
	return services.Idempotency{Scope: c.FullPath(), Key: key}
}

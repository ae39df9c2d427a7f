package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/test-stack-api/internal/http/middleware"
	"github.com/tbourn/test-stack-api/internal/validate"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// ListNotes handles GET /notes.
func (h *Handlers) ListNotes(c *gin.Context) {
	q, bad := validate.Query[contracts.ListNotesQuery](c)
	if bad != nil {
		fail(c, bad)
		return
	}
	ctx := c.Request.Context()

	if v, err := h.notes.Version(ctx); err == nil {
		if notModified(c, listETag("notes", v, q.Page, q.PageSize, q.Q)) {
			return
		}
	} else {
		middleware.LoggerFrom(c).Debug().Err(err).Msg("notes etag skipped")
	}

	resp, err := h.notes.List(ctx, q)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, resp)
}

// CreateNote handles POST /notes.
func (h *Handlers) CreateNote(c *gin.Context) {
	body, bad := validate.Body[contracts.CreateNoteBody](c)
	if bad != nil {
		fail(c, bad)
		return
	}

	dto, replayed, err := h.notes.Create(c.Request.Context(), body, idempotency(c))
	if err != nil {
		fail(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotentReplayed, "true")
	}
	h.ok(c, http.StatusCreated, dto)
}

// GetNote handles GET /notes/{id}.
func (h *Handlers) GetNote(c *gin.Context) {
	id := contracts.ResourceID{ID: c.Param("id")}
	if bad := validate.Value(id); bad != nil {
		fail(c, bad)
		return
	}

	dto, err := h.notes.Get(c.Request.Context(), id.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, dto)
}

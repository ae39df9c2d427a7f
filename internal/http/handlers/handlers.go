// Package handlers exposes the REST endpoints of the API:
//   - GET  /                service info
//   - GET  /health          liveness
//   - GET  /contracts       published contract document
//   - GET  /openapi.json    OpenAPI 3.1 description
//   - GET  /items, POST /items, GET /items/{id}
//   - GET  /notes, POST /notes, GET /notes/{id}
//
// Handlers are transport-thin: they run every input through the validation
// gate, call application services, and translate results into HTTP
// responses (including conditional responses). Errors go to fail().
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/test-stack-api/internal/repo"
	"github.com/tbourn/test-stack-api/internal/services"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

//
// Service contracts (context-aware)
//

// ItemsService defines the item operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ItemsService interface {
	List(ctx context.Context, q contracts.ListItemsQuery) (contracts.ListItemsResponse, error)
	Create(ctx context.Context, body contracts.CreateItemBody, idem services.Idempotency) (contracts.ItemDTO, bool, error)
	Get(ctx context.Context, id string) (contracts.ItemDTO, error)
	// Version returns table statistics for weak ETags.
	Version(ctx context.Context) (repo.Stats, error)
}

// NotesService defines the note operations consumed by HTTP handlers.
type NotesService interface {
	List(ctx context.Context, q contracts.ListNotesQuery) (contracts.ListNotesResponse, error)
	Create(ctx context.Context, body contracts.CreateNoteBody, idem services.Idempotency) (contracts.NoteDTO, bool, error)
	Get(ctx context.Context, id string) (contracts.NoteDTO, error)
	Version(ctx context.Context) (repo.Stats, error)
}

//
// Handler wiring
//

// Options configures Handlers.
type Options struct {
	// Development enables response contract checks.
	Development bool
	// BasePath prefixes the endpoint links in the service info.
	BasePath string
	// SwaggerEnabled advertises the Swagger UI link.
	SwaggerEnabled bool
	// Now is the clock used for health timestamps; defaults to time.Now.
	Now func() time.Time
}

// Handlers groups HTTP endpoints for items, notes and service metadata.
type Handlers struct {
	items ItemsService
	notes NotesService
	opts  Options
}

// New constructs and returns a Handlers instance bound to the given services.
func New(items ItemsService, notes NotesService, opts Options) *Handlers {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BasePath == "/" {
		opts.BasePath = ""
	}
	return &Handlers{items: items, notes: notes, opts: opts}
}

// Header set on create responses that replayed a stored result.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

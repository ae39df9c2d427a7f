// Package contracts defines the request and response shapes published by the
// API. Each contract is a Go struct: the struct is the static type, and its
// `validate` tags are the runtime rule set. The same definitions are consumed
// by the HTTP handlers (through the validation gate) and by pkg/client, so a
// caller in another process validates against exactly what the server
// enforces.
//
// Conventions:
//   - `json` names are the wire names and the names used in issue paths.
//   - `form` tags mark query-string fields; `default=` declares the value used
//     when the parameter is absent.
//   - `validate` tags follow go-playground/validator syntax. The published
//     ContractDocument derives bounds, required fields and defaults from the
//     same tags, so there is a single source of truth.
//
// Contracts are immutable after process start and safe for concurrent use.
package contracts

import "time"

// ContractVersion identifies the revision of the published contract set. It
// changes whenever a field, bound or default changes shape.
const ContractVersion = "1.0.0"

// Pagination limits shared by every list contract.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

//
// Items
//

// CreateItemBody is the request body for POST /items.
type CreateItemBody struct {
	Name string `json:"name" validate:"min=1,max=200" doc:"Display name of the item" example:"API Route Handler"`
}

// ListItemsQuery holds the query parameters for GET /items.
type ListItemsQuery struct {
	Page     int    `json:"page" form:"page,default=1" validate:"gt=0" doc:"1-based page number"`
	PageSize int    `json:"pageSize" form:"pageSize,default=20" validate:"min=1,max=100" doc:"Items per page"`
	Q        string `json:"q,omitempty" form:"q" doc:"Case-insensitive substring filter on name"`
}

// ItemDTO is the public representation of an item.
type ItemDTO struct {
	ID        string    `json:"id" validate:"required,uuid" format:"uuid"`
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// ListItemsResponse is the response body for GET /items.
type ListItemsResponse struct {
	Items    []ItemDTO `json:"items" validate:"dive"`
	Page     int       `json:"page" validate:"gt=0"`
	PageSize int       `json:"pageSize" validate:"min=1,max=100"`
	Total    int64     `json:"total" validate:"min=0"`
}

//
// Notes
//

// CreateNoteBody is the request body for POST /notes.
type CreateNoteBody struct {
	Content string `json:"content" validate:"min=1,max=1000" doc:"Free-text note" example:"Always validate inputs at the edge"`
}

// ListNotesQuery holds the query parameters for GET /notes.
type ListNotesQuery struct {
	Page     int    `json:"page" form:"page,default=1" validate:"gt=0" doc:"1-based page number"`
	PageSize int    `json:"pageSize" form:"pageSize,default=20" validate:"min=1,max=100" doc:"Notes per page"`
	Q        string `json:"q,omitempty" form:"q" doc:"Case-insensitive substring filter on content"`
}

// NoteDTO is the public representation of a note.
type NoteDTO struct {
	ID        string    `json:"id" validate:"required,uuid" format:"uuid"`
	Content   string    `json:"content" validate:"required"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// ListNotesResponse is the response body for GET /notes.
type ListNotesResponse struct {
	Notes    []NoteDTO `json:"notes" validate:"dive"`
	Page     int       `json:"page" validate:"gt=0"`
	PageSize int       `json:"pageSize" validate:"min=1,max=100"`
	Total    int64     `json:"total" validate:"min=0"`
}

// ResourceID is the path parameter contract for single-resource lookups.
type ResourceID struct {
	ID string `json:"id" validate:"required,uuid" format:"uuid"`
}

//
// Service endpoints
//

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status" validate:"required" example:"ok"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	Name        string            `json:"name" validate:"required"`
	Version     string            `json:"version" validate:"required"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}

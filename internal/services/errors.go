// Package services defines the business logic for items and notes.
// This file centralizes the domain errors service methods return. They are
// apperr values, so the HTTP error normalizer renders them without any
// handler-side mapping.
package services

import "github.com/tbourn/test-stack-api/internal/apperr"

var (
	// ErrItemNotFound indicates that the requested item does not exist.
	ErrItemNotFound = apperr.NotFound("Item not found", apperr.CodeItemNotFound)

	// ErrNoteNotFound indicates that the requested note does not exist.
	ErrNoteNotFound = apperr.NotFound("Note not found", apperr.CodeNoteNotFound)

	// ErrIdempotencyKeyReused is returned when an Idempotency-Key is sent
	// again with a different payload while its record is still live.
	ErrIdempotencyKeyReused = apperr.Conflict(
		"Idempotency-Key was already used with a different request payload",
		apperr.CodeIdempotencyKeyReused,
	)
)

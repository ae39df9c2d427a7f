// Package services – NotesService
//
// This file implements NotesService, the notes counterpart of ItemsService.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/domain"
	"github.com/tbourn/test-stack-api/internal/repo"
	"github.com/tbourn/test-stack-api/pkg/contracts"
)

// NoteRepo defines the repository contract required by NotesService.
type NoteRepo interface {
	CreateNote(ctx context.Context, db *gorm.DB, content string) (*domain.Note, error)
	ListNotes(ctx context.Context, db *gorm.DB, opts repo.ListOptions) ([]domain.Note, int64, error)
	GetNote(ctx context.Context, db *gorm.DB, id string) (*domain.Note, error)
	NotesStats(ctx context.Context, db *gorm.DB) (repo.Stats, error)
}

// NotesService provides note operations.
type NotesService struct {
	DB             *gorm.DB
	Repo           NoteRepo
	IdempotencyTTL time.Duration
}

// NewNotesService constructs a NotesService.
func NewNotesService(db *gorm.DB, r NoteRepo, ttl time.Duration) *NotesService {
	return &NotesService{DB: db, Repo: r, IdempotencyTTL: ttl}
}

// List returns the requested page of notes, newest first.
func (s *NotesService) List(ctx context.Context, q contracts.ListNotesQuery) (contracts.ListNotesResponse, error) {
	ctx, span := otel.Tracer("services/NotesService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("page", q.Page),
			attribute.Int("page_size", q.PageSize),
			attribute.Bool("search", q.Q != ""),
		),
	)
	defer span.End()

	rows, total, err := s.Repo.ListNotes(ctx, s.DB, repo.ListOptions{Page: q.Page, PageSize: q.PageSize, Q: q.Q})
	if err != nil {
		span.RecordError(err)
		return contracts.ListNotesResponse{}, err
	}

	out := contracts.ListNotesResponse{
		Notes:    make([]contracts.NoteDTO, 0, len(rows)),
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
	}
	for i := range rows {
		out.Notes = append(out.Notes, NoteDTO(&rows[i]))
	}
	return out, nil
}

// Create stores a new note; see ItemsService.Create for replay semantics.
func (s *NotesService) Create(ctx context.Context, body contracts.CreateNoteBody, idem Idempotency) (dto contracts.NoteDTO, replayed bool, err error) {
	ctx, span := otel.Tracer("services/NotesService").Start(ctx, "Create",
		trace.WithAttributes(attribute.Bool("idempotent", idem.enabled())),
	)
	defer span.End()

	body.Content = norm.NFC.String(body.Content)

	n, replayed, err := createOnce(ctx, s.DB, s.IdempotencyTTL, idem, body,
		s.Repo.GetNote,
		func(ctx context.Context, db *gorm.DB) (*domain.Note, string, error) {
			n, err := s.Repo.CreateNote(ctx, db, body.Content)
			if err != nil {
				return nil, "", err
			}
			return n, n.ID, nil
		},
	)
	if err != nil {
		span.RecordError(err)
		return contracts.NoteDTO{}, false, err
	}
	span.SetAttributes(attribute.String("note.id", n.ID), attribute.Bool("replayed", replayed))
	return NoteDTO(n), replayed, nil
}

// Get returns a single note or ErrNoteNotFound.
func (s *NotesService) Get(ctx context.Context, id string) (contracts.NoteDTO, error) {
	ctx, span := otel.Tracer("services/NotesService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("note.id", id)),
	)
	defer span.End()

	n, err := s.Repo.GetNote(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return contracts.NoteDTO{}, ErrNoteNotFound
	}
	if err != nil {
		span.RecordError(err)
		return contracts.NoteDTO{}, err
	}
	return NoteDTO(n), nil
}

// Version returns the notes table statistics used for weak ETags.
func (s *NotesService) Version(ctx context.Context) (repo.Stats, error) {
	return s.Repo.NotesStats(ctx, s.DB)
}

// NoteDTO maps a persisted note to its public representation.
func NoteDTO(n *domain.Note) contracts.NoteDTO {
	return contracts.NoteDTO{ID: n.ID, Content: n.Content, CreatedAt: n.CreatedAt.UTC()}
}

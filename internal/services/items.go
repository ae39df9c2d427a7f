// Package services – ItemsService
//
// This file implements ItemsService, which lists, creates and fetches items.
// It receives only payloads that already passed the validation gate, maps
// rows to their public DTOs and translates missing rows into domain errors.
//
// Observability: all public methods are OpenTelemetry-instrumented.
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

// ItemRepo defines the repository contract required by ItemsService.
type ItemRepo interface {
	// CreateItem inserts a new item.
	CreateItem(ctx context.Context, db *gorm.DB, name string) (*domain.Item, error)

	// ListItems returns one page of items and the total number of matches.
	ListItems(ctx context.Context, db *gorm.DB, opts repo.ListOptions) ([]domain.Item, int64, error)

	// GetItem fetches an item by ID or returns repo.ErrNotFound.
	GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.Item, error)

	// ItemsStats returns the table version used for ETags.
	ItemsStats(ctx context.Context, db *gorm.DB) (repo.Stats, error)
}

// ItemsService provides item operations.
type ItemsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the item repository used by this service.
	Repo ItemRepo
	// IdempotencyTTL bounds how long a create can be replayed.
	IdempotencyTTL time.Duration
}

// NewItemsService constructs an ItemsService.
func NewItemsService(db *gorm.DB, r ItemRepo, ttl time.Duration) *ItemsService {
	return &ItemsService{DB: db, Repo: r, IdempotencyTTL: ttl}
}

// List returns the requested page of items, newest first.
func (s *ItemsService) List(ctx context.Context, q contracts.ListItemsQuery) (contracts.ListItemsResponse, error) {
	ctx, span := otel.Tracer("services/ItemsService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("page", q.Page),
			attribute.Int("page_size", q.PageSize),
			attribute.Bool("search", q.Q != ""),
		),
	)
	defer span.End()

	rows, total, err := s.Repo.ListItems(ctx, s.DB, repo.ListOptions{Page: q.Page, PageSize: q.PageSize, Q: q.Q})
	if err != nil {
		span.RecordError(err)
		return contracts.ListItemsResponse{}, err
	}

	out := contracts.ListItemsResponse{
		Items:    make([]contracts.ItemDTO, 0, len(rows)),
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
	}
	for i := range rows {
		out.Items = append(out.Items, ItemDTO(&rows[i]))
	}
	return out, nil
}

// Create stores a new item. When idem carries a key the create is
// replay-safe; replayed reports that a previously stored item was returned.
func (s *ItemsService) Create(ctx context.Context, body contracts.CreateItemBody, idem Idempotency) (dto contracts.ItemDTO, replayed bool, err error) {
	ctx, span := otel.Tracer("services/ItemsService").Start(ctx, "Create",
		trace.WithAttributes(attribute.Bool("idempotent", idem.enabled())),
	)
	defer span.End()

	body.Name = norm.NFC.String(body.Name)

	it, replayed, err := createOnce(ctx, s.DB, s.IdempotencyTTL, idem, body,
		s.Repo.GetItem,
		func(ctx context.Context, db *gorm.DB) (*domain.Item, string, error) {
			it, err := s.Repo.CreateItem(ctx, db, body.Name)
			if err != nil {
				return nil, "", err
			}
			return it, it.ID, nil
		},
	)
	if err != nil {
		span.RecordError(err)
		return contracts.ItemDTO{}, false, err
	}
	span.SetAttributes(attribute.String("item.id", it.ID), attribute.Bool("replayed", replayed))
	return ItemDTO(it), replayed, nil
}

// Get returns a single item or ErrItemNotFound.
func (s *ItemsService) Get(ctx context.Context, id string) (contracts.ItemDTO, error) {
	ctx, span := otel.Tracer("services/ItemsService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	it, err := s.Repo.GetItem(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return contracts.ItemDTO{}, ErrItemNotFound
	}
	if err != nil {
		span.RecordError(err)
		return contracts.ItemDTO{}, err
	}
	return ItemDTO(it), nil
}

// Version returns the items table statistics used for weak ETags.
func (s *ItemsService) Version(ctx context.Context) (repo.Stats, error) {
	return s.Repo.ItemsStats(ctx, s.DB)
}

// ItemDTO maps a persisted item to its public representation.
func ItemDTO(it *domain.Item) contracts.ItemDTO {
	return contracts.ItemDTO{ID: it.ID, Name: it.Name, CreatedAt: it.CreatedAt.UTC()}
}

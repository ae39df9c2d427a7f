package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/domain"
)

// CreateNote inserts a new Note with a random UUID and a UTC timestamp.
func CreateNote(ctx context.Context, db *gorm.DB, content string) (*domain.Note, error) {
	n := &domain.Note{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotes returns one page of notes, newest first, filtered by content.
func ListNotes(ctx context.Context, db *gorm.DB, opts ListOptions) ([]domain.Note, int64, error) {
	return listPage[domain.Note](ctx, db, "content", opts)
}

// CountNotes returns the number of notes whose content matches q.
func CountNotes(ctx context.Context, db *gorm.DB, q string) (int64, error) {
	var total int64
	err := search(db.WithContext(ctx).Model(&domain.Note{}), "content", q).Count(&total).Error
	return total, err
}

// GetNote fetches a single note, or ErrNotFound.
func GetNote(ctx context.Context, db *gorm.DB, id string) (*domain.Note, error) {
	return getByID[domain.Note](ctx, db, id)
}

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/domain"
)

// CreateItem inserts a new Item with a random UUID and a UTC timestamp.
func CreateItem(ctx context.Context, db *gorm.DB, name string) (*domain.Item, error) {
	it := &domain.Item{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(it).Error; err != nil {
		return nil, err
	}
	return it, nil
}

// ListItems returns one page of items, newest first, filtered by name, and
// the total number of matching items.
func ListItems(ctx context.Context, db *gorm.DB, opts ListOptions) ([]domain.Item, int64, error) {
	return listPage[domain.Item](ctx, db, "name", opts)
}

// CountItems returns the number of items whose name matches q.
func CountItems(ctx context.Context, db *gorm.DB, q string) (int64, error) {
	var total int64
	err := search(db.WithContext(ctx).Model(&domain.Item{}), "name", q).Count(&total).Error
	return total, err
}

// GetItem fetches a single item, or ErrNotFound.
func GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.Item, error) {
	return getByID[domain.Item](ctx, db, id)
}

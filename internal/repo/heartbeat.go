package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/domain"
)

// CreateHeartbeat records a liveness row.
func CreateHeartbeat(ctx context.Context, db *gorm.DB, message string) (*domain.Heartbeat, error) {
	hb := &domain.Heartbeat{
		ID:        uuid.NewString(),
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(hb).Error; err != nil {
		return nil, err
	}
	return hb, nil
}

// LatestHeartbeat returns the most recent heartbeat, or ErrNotFound.
func LatestHeartbeat(ctx context.Context, db *gorm.DB) (*domain.Heartbeat, error) {
	var hb domain.Heartbeat
	if err := db.WithContext(ctx).Order("created_at desc").First(&hb).Error; err != nil {
		return nil, err
	}
	return &hb, nil
}

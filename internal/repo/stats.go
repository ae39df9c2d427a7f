// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/domain"
)

// Stats is the row count and newest creation time of a table.
type Stats struct {
	Count    int64
	LatestAt *time.Time
}

// ItemsStats returns aggregate metadata for the items table.
func ItemsStats(ctx context.Context, db *gorm.DB) (Stats, error) {
	return tableStats(ctx, db, &domain.Item{})
}

// NotesStats returns aggregate metadata for the notes table.
func NotesStats(ctx context.Context, db *gorm.DB) (Stats, error) {
	return tableStats(ctx, db, &domain.Note{})
}

// tableStats executes two lightweight queries against model's table. When the
// table is empty, Count is 0 and LatestAt is nil.
func tableStats(ctx context.Context, db *gorm.DB, model any) (Stats, error) {
	var s Stats
	if err := db.WithContext(ctx).Model(model).Count(&s.Count).Error; err != nil {
		return Stats{}, err
	}
	if s.Count == 0 {
		return s, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err := db.WithContext(ctx).Model(model).Select("created_at").Order("created_at desc").Limit(1).Scan(&row).Error; err != nil {
		return Stats{}, err
	}
	s.LatestAt = &row.CreatedAt
	return s, nil
}

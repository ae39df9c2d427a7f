package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/test-stack-api/internal/domain"
)

func TestItemsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := ItemsStats(context.Background(), db); err == nil {
		t.Fatalf("expected error due to missing items table")
	}
}

func TestItemsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Item{})
	s, err := ItemsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ItemsStats error: %v", err)
	}
	if s.Count != 0 || s.LatestAt != nil {
		t.Fatalf("expected (0, nil), got %+v", s)
	}
}

func TestItemsStats_CountAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.Item{})
	seedItems(t, db, "a", "b", "c")

	s, err := ItemsStats(context.Background(), db)
	if err != nil {
		t.Fatalf("ItemsStats error: %v", err)
	}
	want := time.Date(2025, 1, 1, 10, 2, 0, 0, time.UTC)
	if s.Count != 3 || s.LatestAt == nil || !s.LatestAt.Equal(want) {
		t.Fatalf("unexpected stats: count=%d latest=%v", s.Count, s.LatestAt)
	}
}

func TestNotesStats(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	if _, err := CreateNote(context.Background(), db, "n"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	s, err := NotesStats(context.Background(), db)
	if err != nil || s.Count != 1 || s.LatestAt == nil {
		t.Fatalf("NotesStats = %+v, %v", s, err)
	}
}

package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/test-stack-api/internal/domain"
)

func TestNotes_CreateGetList(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	ctx := context.Background()

	n, err := CreateNote(ctx, db, "Remember the contracts")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := CreateNote(ctx, db, "unrelated"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	got, err := GetNote(ctx, db, n.ID)
	if err != nil || got.Content != "Remember the contracts" {
		t.Fatalf("GetNote: got=%+v err=%v", got, err)
	}

	list, total, err := ListNotes(ctx, db, ListOptions{Page: 1, PageSize: 10, Q: "CONTRACT"})
	if err != nil || total != 1 || len(list) != 1 || list[0].ID != n.ID {
		t.Fatalf("ListNotes search: %+v total=%d err=%v", list, total, err)
	}
	if c, err := CountNotes(ctx, db, ""); err != nil || c != 2 {
		t.Fatalf("CountNotes = %d, %v; want 2", c, err)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.Note{})
	if _, err := GetNote(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHeartbeat_CreateAndLatest(t *testing.T) {
	db := newTestDB(t, &domain.Heartbeat{})
	ctx := context.Background()

	if _, err := LatestHeartbeat(ctx, db); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}
	hb, err := CreateHeartbeat(ctx, db, "Heartbeat from background job")
	if err != nil {
		t.Fatalf("CreateHeartbeat: %v", err)
	}
	latest, err := LatestHeartbeat(ctx, db)
	if err != nil || latest.ID != hb.ID || latest.Message != hb.Message {
		t.Fatalf("LatestHeartbeat = %+v, %v", latest, err)
	}
}

func TestCreateHeartbeat_Error_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateHeartbeat(context.Background(), db, "x"); err == nil {
		t.Fatalf("expected error without table")
	}
}

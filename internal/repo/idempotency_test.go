package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/test-stack-api/internal/domain"
)

func TestGetIdempotency_EmptyKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	rec, err := GetIdempotency(context.Background(), db, "/items", "   ", time.Now().UTC())
	if rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for empty key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID: "expired", Scope: "/items", Key: "k1", RequestHash: "h", ResourceID: "r", Status: 201,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "/items", "k1", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "/items", "missing", now); rec != nil || err != ErrNotFound {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_RoundTripAndScope(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	in := IdempotencyRecord{Scope: "/items", Key: "k1", RequestHash: "abc", ResourceID: "r1", Status: 201}

	rec, err := CreateIdempotency(ctx, db, in, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ExpiresAt.Sub(rec.CreatedAt) != time.Hour {
		t.Fatalf("expiry should be CreatedAt+ttl: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "/items", "k1", time.Now().UTC())
	if err != nil || got.ResourceID != "r1" || got.RequestHash != "abc" || got.Status != 201 {
		t.Fatalf("GetIdempotency = %+v, %v", got, err)
	}
	if _, err := GetIdempotency(ctx, db, "/notes", "k1", time.Now().UTC()); err != ErrNotFound {
		t.Fatalf("key must be scoped, got %v", err)
	}
}

func TestCreateIdempotency_Duplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	in := IdempotencyRecord{Scope: "/items", Key: "k1", RequestHash: "abc", ResourceID: "r1", Status: 201}

	if _, err := CreateIdempotency(ctx, db, in, time.Hour); err != nil {
		t.Fatalf("first CreateIdempotency: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, in, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCreateIdempotency_ReplacesExpired(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	old := &domain.Idempotency{
		ID: "old", Scope: "/notes", Key: "k1", RequestHash: "h0", ResourceID: "r0", Status: 201,
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(old).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, err := CreateIdempotency(ctx, db, IdempotencyRecord{Scope: "/notes", Key: "k1", RequestHash: "h1", ResourceID: "r1", Status: 201}, time.Hour)
	if err != nil || rec.ResourceID != "r1" {
		t.Fatalf("expired key should be reusable: %+v, %v", rec, err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	now := time.Now().UTC()
	for i, exp := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		rec := &domain.Idempotency{
			ID: string(rune('a' + i)), Scope: "/items", Key: string(rune('a' + i)), RequestHash: "h", ResourceID: "r",
			Status: 201, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: exp,
		}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := PurgeExpiredIdempotency(context.Background(), db, now)
	if err != nil || n != 2 {
		t.Fatalf("PurgeExpiredIdempotency = %d, %v; want 2", n, err)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("expected 1 live record, got %d", left)
	}
}

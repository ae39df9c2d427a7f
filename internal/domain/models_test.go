package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Item{}.TableName():        "items",
		Note{}.TableName():        "notes",
		Heartbeat{}.TableName():   "heartbeats",
		Idempotency{}.TableName(): "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Item{}, &Note{}, &Heartbeat{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&Item{}, &Note{}, &Heartbeat{}, &Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Item{}, "idx_items_created") {
		t.Fatalf("expected index idx_items_created on items")
	}
	if !m.HasIndex(&Note{}, "idx_notes_created") {
		t.Fatalf("expected index idx_notes_created on notes")
	}
	if !m.HasIndex(&Idempotency{}, "ux_idem_scope_key") {
		t.Fatalf("expected unique index ux_idem_scope_key on idempotency")
	}
}

func TestIdempotency_UniqueScopeKey(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	rec := func(id, scope string) *Idempotency {
		return &Idempotency{ID: id, Scope: scope, Key: "k1", RequestHash: "h", ResourceID: "r", Status: 201, ExpiresAt: now.Add(time.Hour)}
	}
	if err := db.Create(rec("a", "/items")).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := db.Create(rec("b", "/notes")).Error; err != nil {
		t.Fatalf("same key in another scope should be allowed: %v", err)
	}
	if err := db.Create(rec("c", "/items")).Error; err == nil {
		t.Fatalf("duplicate (scope, key) should violate the unique index")
	}
}

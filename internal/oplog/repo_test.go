package oplog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/VoidX3D/Anime-Tracker/pkg/database"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(db)
}

func TestRecentOrderAndLimit(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		err := r.Insert(ctx, "SMART_SYNC", fmt.Sprintf("run %d", i), map[string]any{"updated": i})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	entries, err := r.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Description != "run 5" || entries[2].Description != "run 3" {
		t.Fatalf("order wrong: first %q last %q, want newest first", entries[0].Description, entries[2].Description)
	}
	if len(entries[0].Meta) == 0 {
		t.Fatal("meta payload missing")
	}
}

func TestRecentClampsOversizedLimit(t *testing.T) {
	r := testRepo(t)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		if err := r.Insert(ctx, "SMART_SYNC", fmt.Sprintf("run %d", i), nil); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	// an oversized limit is clamped to the cap, not reset to the default
	entries, err := r.Recent(ctx, 5000)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 25 {
		t.Fatalf("len = %d, want all 25 rows back", len(entries))
	}

	entries, err = r.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent default: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("default len = %d, want 20", len(entries))
	}
}

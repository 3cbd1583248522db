package database_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vidrelay/internal/database"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "library.db"),
	})
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestLibraryCreateAndGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	created, err := db.Library.Create(ctx, "drive-abc123", "launch-video.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := db.Library.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UpstreamID != "drive-abc123" || got.Name != "launch-video.mp4" {
		t.Fatalf("Get() = %+v", got)
	}
}

func TestLibraryList(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		if _, err := db.Library.Create(ctx, "up-"+name, name, ""); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	entries, err := db.Library.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
}

func TestLibraryDelete(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	created, err := db.Library.Create(ctx, "drive-abc123", "clip.mp4", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	upstreamID, err := db.Library.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if upstreamID != "drive-abc123" {
		t.Fatalf("Delete() upstream id = %q", upstreamID)
	}

	if _, err := db.Library.Get(ctx, created.ID); !errors.Is(err, database.ErrEntryNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrEntryNotFound", err)
	}
}

func TestLibraryGetMissing(t *testing.T) {
	db := setupDB(t)

	if _, err := db.Library.Get(context.Background(), "nope"); !errors.Is(err, database.ErrEntryNotFound) {
		t.Fatalf("Get() error = %v, want ErrEntryNotFound", err)
	}
}

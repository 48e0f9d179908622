package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"studio-go/internal/studio"
	"studio-go/internal/testutil"
)

// newTestStore creates a new in-memory store with schema applied.
func newTestStore(t *testing.T) (*SQLiteStore, *testutil.FixedClock) {
	t.Helper()

	clock := testutil.NewFixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store, err := Open(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store, clock
}

func TestSQLiteStore_PutProject(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps last updated and returns stored copy", func(t *testing.T) {
		store, clock := newTestStore(t)

		stored, err := store.PutProject(ctx, &studio.Project{
			ID:    "p1",
			Type:  studio.ProjectTypeShorts,
			Title: "First cut",
		})
		if err != nil {
			t.Fatalf("PutProject() error = %v", err)
		}
		if stored.LastUpdated != clock.Now().UnixMilli() {
			t.Errorf("LastUpdated = %d, want %d", stored.LastUpdated, clock.Now().UnixMilli())
		}

		found, err := store.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		if found == nil {
			t.Fatal("GetProject() returned nil, want project")
		}
		if found.Title != "First cut" {
			t.Errorf("Title = %q, want %q", found.Title, "First cut")
		}
		if found.LastUpdated != stored.LastUpdated {
			t.Errorf("LastUpdated = %d, want %d", found.LastUpdated, stored.LastUpdated)
		}
	})

	t.Run("strips binary payloads before persisting", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.PutProject(ctx, &studio.Project{
			ID:     "p1",
			Type:   studio.ProjectTypeShorts,
			Title:  "With preview",
			Config: json.RawMessage(`{"voice":"en","preview":{"__binary__":true,"bytes":"AAAA"}}`),
		})
		if err != nil {
			t.Fatalf("PutProject() error = %v", err)
		}

		found, err := store.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		var cfg map[string]any
		if err := json.Unmarshal(found.Config, &cfg); err != nil {
			t.Fatalf("decoding config: %v", err)
		}
		if _, ok := cfg["preview"]; ok {
			t.Error("binary payload survived the write")
		}
		if cfg["voice"] != "en" {
			t.Errorf("voice = %v, want en", cfg["voice"])
		}
	})

	t.Run("overwrites an existing project", func(t *testing.T) {
		store, clock := newTestStore(t)

		if _, err := store.PutProject(ctx, &studio.Project{ID: "p1", Type: studio.ProjectTypeShorts, Title: "v1"}); err != nil {
			t.Fatalf("PutProject() error = %v", err)
		}
		clock.Advance(time.Minute)
		if _, err := store.PutProject(ctx, &studio.Project{ID: "p1", Type: studio.ProjectTypeShorts, Title: "v2"}); err != nil {
			t.Fatalf("PutProject() error = %v", err)
		}

		found, err := store.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		if found.Title != "v2" {
			t.Errorf("Title = %q, want v2", found.Title)
		}
		if found.LastUpdated != clock.Now().UnixMilli() {
			t.Errorf("LastUpdated = %d, want %d", found.LastUpdated, clock.Now().UnixMilli())
		}

		all, err := store.ListProjects(ctx)
		if err != nil {
			t.Fatalf("ListProjects() error = %v", err)
		}
		if len(all) != 1 {
			t.Errorf("len(projects) = %d, want 1", len(all))
		}
	})

	t.Run("rejects a project without an id", func(t *testing.T) {
		store, _ := newTestStore(t)

		if _, err := store.PutProject(ctx, &studio.Project{Title: "anonymous"}); err == nil {
			t.Error("PutProject() accepted a project without an id")
		}
	})
}

func TestSQLiteStore_GetProject(t *testing.T) {
	t.Run("returns nil when project not found", func(t *testing.T) {
		store, _ := newTestStore(t)

		found, err := store.GetProject(context.Background(), "missing")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		if found != nil {
			t.Errorf("GetProject() = %v, want nil", found)
		}
	})
}

func TestSQLiteStore_DeleteProject(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the project", func(t *testing.T) {
		store, _ := newTestStore(t)

		if _, err := store.PutProject(ctx, &studio.Project{ID: "p1", Type: studio.ProjectTypeShorts, Title: "doomed"}); err != nil {
			t.Fatalf("PutProject() error = %v", err)
		}
		if err := store.DeleteProject(ctx, "p1"); err != nil {
			t.Fatalf("DeleteProject() error = %v", err)
		}

		found, err := store.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		if found != nil {
			t.Error("project still present after delete")
		}
	})

	t.Run("tolerates a missing project", func(t *testing.T) {
		store, _ := newTestStore(t)

		if err := store.DeleteProject(ctx, "missing"); err != nil {
			t.Errorf("DeleteProject() error = %v, want nil", err)
		}
	})
}

func TestSQLiteStore_QueueItems(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a queue item", func(t *testing.T) {
		store, _ := newTestStore(t)

		item := &studio.QueueItem{
			ID:        "vid_1",
			ProjectID: "p1",
			Metadata:  studio.UploadMetadata{Title: "clip", PrivacyStatus: studio.PrivacyPrivate},
			Status:    studio.StatusPending,
			AddedAt:   100,
		}
		if err := store.PutQueueItem(ctx, item); err != nil {
			t.Fatalf("PutQueueItem() error = %v", err)
		}

		found, err := store.GetQueueItem(ctx, "vid_1")
		if err != nil {
			t.Fatalf("GetQueueItem() error = %v", err)
		}
		if found == nil {
			t.Fatal("GetQueueItem() returned nil, want item")
		}
		if found.Metadata.Title != "clip" || found.Status != studio.StatusPending || found.AddedAt != 100 {
			t.Errorf("stored item = %+v", found)
		}
	})

	t.Run("returns nil for a missing item", func(t *testing.T) {
		store, _ := newTestStore(t)

		found, err := store.GetQueueItem(ctx, "missing")
		if err != nil {
			t.Fatalf("GetQueueItem() error = %v", err)
		}
		if found != nil {
			t.Errorf("GetQueueItem() = %v, want nil", found)
		}
	})

	t.Run("lists and deletes items", func(t *testing.T) {
		store, _ := newTestStore(t)

		for _, id := range []string{"vid_1", "vid_2"} {
			item := &studio.QueueItem{ID: id, ProjectID: "p1", Status: studio.StatusPending, AddedAt: 100}
			if err := store.PutQueueItem(ctx, item); err != nil {
				t.Fatalf("PutQueueItem(%s) error = %v", id, err)
			}
		}

		items, err := store.ListQueueItems(ctx)
		if err != nil {
			t.Fatalf("ListQueueItems() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("len(items) = %d, want 2", len(items))
		}

		if err := store.DeleteQueueItem(ctx, "vid_1"); err != nil {
			t.Fatalf("DeleteQueueItem() error = %v", err)
		}
		items, err = store.ListQueueItems(ctx)
		if err != nil {
			t.Fatalf("ListQueueItems() error = %v", err)
		}
		if len(items) != 1 || items[0].ID != "vid_2" {
			t.Errorf("items after delete = %+v", items)
		}
	})
}

func TestSQLiteStore_PatchQueueItem(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a partial patch", func(t *testing.T) {
		store, _ := newTestStore(t)

		item := &studio.QueueItem{
			ID:        "vid_1",
			ProjectID: "p1",
			Metadata:  studio.UploadMetadata{Title: "clip", PrivacyStatus: studio.PrivacyPrivate},
			Status:    studio.StatusPending,
			AddedAt:   100,
		}
		if err := store.PutQueueItem(ctx, item); err != nil {
			t.Fatalf("PutQueueItem() error = %v", err)
		}

		status := studio.StatusUploading
		progress := 40
		patched, err := store.PatchQueueItem(ctx, "vid_1", studio.QueuePatch{Status: &status, Progress: &progress})
		if err != nil {
			t.Fatalf("PatchQueueItem() error = %v", err)
		}
		if patched.Status != studio.StatusUploading || patched.Progress != 40 {
			t.Errorf("patched = %+v", patched)
		}
		if patched.Metadata.Title != "clip" {
			t.Errorf("Title = %q, patch clobbered untouched fields", patched.Metadata.Title)
		}

		found, err := store.GetQueueItem(ctx, "vid_1")
		if err != nil {
			t.Fatalf("GetQueueItem() error = %v", err)
		}
		if found.Status != studio.StatusUploading {
			t.Errorf("stored Status = %v, want uploading", found.Status)
		}
	})

	t.Run("reports a missing item", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.PatchQueueItem(ctx, "missing", studio.QueuePatch{})
		if !errors.Is(err, studio.ErrNotFound) {
			t.Errorf("PatchQueueItem() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStore_SharedHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("stores on the same path share one database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "studio.db")

		first, err := Open(path, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer first.Close()

		second, err := Open(path, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer second.Close()

		if _, err := first.PutProject(ctx, &studio.Project{ID: "p1", Type: studio.ProjectTypeShorts, Title: "shared"}); err != nil {
			t.Fatalf("PutProject() error = %v", err)
		}

		found, err := second.GetProject(ctx, "p1")
		if err != nil {
			t.Fatalf("GetProject() error = %v", err)
		}
		if found == nil || found.Title != "shared" {
			t.Errorf("second store did not see the write: %+v", found)
		}
	})

	t.Run("connection survives until the last close", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "studio.db")

		first, err := Open(path, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		second, err := Open(path, nil)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		if err := first.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		// The shared connection must still work for the remaining store.
		if _, err := second.PutProject(ctx, &studio.Project{ID: "p1", Type: studio.ProjectTypeShorts, Title: "still open"}); err != nil {
			t.Errorf("PutProject() after sibling close error = %v", err)
		}
		if err := second.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})
}

func TestSQLiteStore_CheckMigrations(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v, want nil", err)
	}
}

package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"studio-go/internal/config"
	"studio-go/internal/studio"
)

func newTestApp(t *testing.T) *StudioApp {
	t.Helper()

	cfg := config.NewConfig("", t.TempDir())
	cfg.LogDir = t.TempDir()
	cfg.Database.Type = "memory"
	cfg.Vault.Type = "memory"

	a, err := NewStudioApp(cfg)
	if err != nil {
		t.Fatalf("NewStudioApp() error = %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a
}

func TestStudioApp_ProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	saved, err := a.SaveProject(ctx, &studio.Project{
		ID:    "p1",
		Type:  studio.ProjectTypeShorts,
		Title: "First short",
	})
	if err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if saved.LastUpdated == 0 {
		t.Error("SaveProject() did not stamp LastUpdated")
	}
	if saved.Synced {
		t.Error("Synced = true with no remote store configured")
	}

	found, err := a.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if found == nil || found.Title != "First short" {
		t.Errorf("GetProject() = %+v", found)
	}

	all, err := a.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(projects) = %d, want 1", len(all))
	}

	if err := a.DeleteProject(ctx, "p1"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	found, err = a.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if found != nil {
		t.Error("project still present after delete")
	}
}

func TestStudioApp_QueueLifecycle(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	item, err := a.EnqueueUpload(ctx, &studio.QueueItem{
		ProjectID: "p1",
		Metadata:  studio.UploadMetadata{Title: "my clip"},
	})
	if err != nil {
		t.Fatalf("EnqueueUpload() error = %v", err)
	}
	if item.ID == "" || item.Status != studio.StatusPending {
		t.Errorf("enqueued item = %+v", item)
	}

	items, err := a.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(queue) = %d, want 1", len(items))
	}

	if err := a.RemoveUpload(ctx, item.ID); err != nil {
		t.Fatalf("RemoveUpload() error = %v", err)
	}
	items, err = a.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(queue) = %d after remove, want 0", len(items))
	}
}

func TestStudioApp_AttachRender(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	item, err := a.EnqueueUpload(ctx, &studio.QueueItem{
		ProjectID: "p1",
		Metadata:  studio.UploadMetadata{Title: "with render"},
	})
	if err != nil {
		t.Fatalf("EnqueueUpload() error = %v", err)
	}

	videoPath := filepath.Join(t.TempDir(), "render.mp4")
	if err := os.WriteFile(videoPath, []byte("fake video bytes"), 0644); err != nil {
		t.Fatalf("writing render: %v", err)
	}

	checksum, err := a.AttachRender(ctx, item.ID, videoPath)
	if err != nil {
		t.Fatalf("AttachRender() error = %v", err)
	}
	if checksum == "" {
		t.Fatal("AttachRender() returned empty checksum")
	}

	exists, err := a.vault.Exists(checksum)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("render not stored in the vault")
	}

	items, err := a.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue() error = %v", err)
	}
	if items[0].VideoRef != checksum {
		t.Errorf("VideoRef = %q, want %q", items[0].VideoRef, checksum)
	}
}

func TestStudioApp_RejectsInvalidMetadata(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	longTitle := make([]byte, 150)
	for i := range longTitle {
		longTitle[i] = 'x'
	}

	_, err := a.EnqueueUpload(ctx, &studio.QueueItem{
		ProjectID: "p1",
		Metadata:  studio.UploadMetadata{Title: string(longTitle)},
	})
	var verr *studio.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("EnqueueUpload() error = %v, want *ValidationError", err)
	}

	items, err := a.ListQueue(ctx)
	if err != nil {
		t.Fatalf("ListQueue() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("invalid item was persisted: %+v", items)
	}
}

func TestStudioApp_CheckMigrations(t *testing.T) {
	a := newTestApp(t)

	if err := a.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
}

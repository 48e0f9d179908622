package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"studio-go/internal/config"
	"studio-go/internal/localstore"
	"studio-go/internal/remotestore"
	"studio-go/internal/studio"
	"studio-go/internal/uploader"
	"studio-go/internal/vault"
)

// StudioApp is the application layer between the CLI and the core services.
// It constructs all dependencies from config, exposes high-level operations,
// and manages the store lifecycle on Close.
type StudioApp struct {
	cfg     *config.Config
	local   studio.LocalStore
	remote  studio.RemoteStore // nil when remote sync is disabled or unreachable
	vault   studio.MediaVault
	engine  *studio.SyncEngine
	queue   *studio.QueueService
	logger  studio.Logger
	logFile *os.File
}

// NewStudioApp creates a fully wired StudioApp from the given config.
// The caller must call Close when done.
//
// A remote store that is configured but unreachable does not fail startup:
// the app degrades to local-only operation with a warning, which is exactly
// what an offline device needs.
func NewStudioApp(cfg *config.Config) (*StudioApp, error) {
	runID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	clock := studio.RealClock{}

	local, err := localstore.NewFromConfig(cfg.Database, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating local store: %w", err)
	}

	var remote studio.RemoteStore
	if cfg.Remote.Enabled && cfg.Remote.DSN != "" {
		timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
		pg, err := remotestore.Open(cfg.Remote.DSN, timeout)
		if err != nil {
			logger.Warn("remote store unreachable, running local-only", "error", err)
		} else {
			remote = pg
		}
	}

	mediaVault, err := vault.NewVaultFromConfig(context.Background(), cfg.Vault)
	if err != nil {
		local.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	engine := studio.NewSyncEngine(local, remote, cfg.OwnerID, clock, logger)
	queue := studio.NewQueueService(local, nil, clock, logger)

	return &StudioApp{
		cfg:     cfg,
		local:   local,
		remote:  remote,
		vault:   mediaVault,
		engine:  engine,
		queue:   queue,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Project operations

// SaveProject persists the project local-first and mirrors it to the remote
// store when a session exists.
func (a *StudioApp) SaveProject(ctx context.Context, project *studio.Project) (*studio.Project, error) {
	return a.engine.Save(ctx, project)
}

// GetProject returns the project by id, or (nil, nil) when it exists nowhere.
func (a *StudioApp) GetProject(ctx context.Context, id string) (*studio.Project, error) {
	return a.engine.Get(ctx, id)
}

// ListProjects returns the merged local/remote view, most recent first.
func (a *StudioApp) ListProjects(ctx context.Context) ([]*studio.Project, error) {
	return a.engine.List(ctx)
}

// DeleteProject removes the project from both stores.
func (a *StudioApp) DeleteProject(ctx context.Context, id string) error {
	return a.engine.Delete(ctx, id)
}

// Queue operations

// EnqueueUpload validates and inserts a queue item for the given project.
func (a *StudioApp) EnqueueUpload(ctx context.Context, item *studio.QueueItem) (*studio.QueueItem, error) {
	return a.queue.Enqueue(ctx, item)
}

// ListQueue returns the upload queue oldest-first.
func (a *StudioApp) ListQueue(ctx context.Context) ([]*studio.QueueItem, error) {
	return a.queue.List(ctx)
}

// RetryUpload resets a failed queue item so it is picked up again.
func (a *StudioApp) RetryUpload(ctx context.Context, id string) (*studio.QueueItem, error) {
	return a.queue.Retry(ctx, id)
}

// RemoveUpload deletes the item from the queue.
func (a *StudioApp) RemoveUpload(ctx context.Context, id string) error {
	return a.queue.Remove(ctx, id)
}

// AttachRender stores the rendered video file in the media vault and links it
// to the queue item by checksum. The file is hashed first so the vault entry
// is content-addressed and re-attaching the same render is a no-op.
func (a *StudioApp) AttachRender(ctx context.Context, itemID string, videoPath string) (string, error) {
	checksum, size, err := hashFile(videoPath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("opening render: %w", err)
	}
	defer f.Close()

	if err := a.vault.Put(checksum, f, size); err != nil {
		return "", fmt.Errorf("storing render: %w", err)
	}

	if _, err := a.queue.Update(ctx, itemID, studio.QueuePatch{VideoRef: &checksum}); err != nil {
		return "", err
	}
	a.logger.Info("render attached", "item", itemID, "checksum", checksum)
	return checksum, nil
}

// RunUploader starts the queue consumer and blocks until ctx is cancelled.
// Requires uploader.service_account_file to be configured.
func (a *StudioApp) RunUploader(ctx context.Context) error {
	if a.cfg.Uploader.ServiceAccountFile == "" {
		return fmt.Errorf("uploader.service_account_file not configured")
	}

	publisher, err := uploader.NewYouTubePublisher(ctx, a.cfg.Uploader.ServiceAccountFile)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}

	interval := time.Duration(a.cfg.Uploader.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	worker := uploader.NewWorker(a.queue, a.vault, publisher, a.logger)
	a.logger.Info("uploader started", "interval", interval)
	return worker.Run(ctx, interval)
}

// CheckMigrations verifies the local database schema is up-to-date.
func (a *StudioApp) CheckMigrations() error {
	type migrationChecker interface {
		CheckMigrations() error
	}
	if c, ok := a.local.(migrationChecker); ok {
		return c.CheckMigrations()
	}
	return nil
}

// ValidateVault verifies the media vault is accessible.
func (a *StudioApp) ValidateVault() error {
	return a.vault.ValidateSetup()
}

// Close releases the stores and the log file.
func (a *StudioApp) Close() error {
	var firstErr error

	if err := a.local.Close(); err != nil {
		firstErr = fmt.Errorf("closing local store: %w", err)
	}

	if pg, ok := a.remote.(*remotestore.PostgresStore); ok {
		if err := pg.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing remote store: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// hashFile returns the hex SHA-256 of the file's contents and its size.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

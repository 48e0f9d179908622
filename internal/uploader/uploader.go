package uploader

import (
	"context"
	"fmt"
	"io"
	"time"

	"studio-go/internal/studio"
)

// Publisher pushes a finished render to a video platform and returns the
// platform's id for the published video.
type Publisher interface {
	Publish(ctx context.Context, meta studio.UploadMetadata, media io.Reader) (string, error)
}

// Worker is the queue consumer. It polls the upload queue oldest-first,
// streams each pending item's render out of the media vault and hands it to
// the publisher, recording progress and errors back onto the queue item.
//
// A failed item stays in the queue with its error message; it is only
// retried after an explicit reset (QueueService.Retry).
type Worker struct {
	queue     *studio.QueueService
	vault     studio.MediaVault
	publisher Publisher
	logger    studio.Logger
}

// NewWorker creates a queue consumer. logger defaults to the no-op logger.
func NewWorker(queue *studio.QueueService, vault studio.MediaVault, publisher Publisher, logger studio.Logger) *Worker {
	if logger == nil {
		logger = studio.NewNopLogger()
	}
	return &Worker{queue: queue, vault: vault, publisher: publisher, logger: logger}
}

// Run polls the queue every interval until ctx is cancelled. Errors from
// individual items are recorded on the item and logged, never fatal.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("queue poll failed", "error", err)
			}
		}
	}
}

// Tick processes the oldest pending item, if any. Returns an error only when
// the queue itself cannot be read; per-item failures are recorded on the item.
func (w *Worker) Tick(ctx context.Context) error {
	items, err := w.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("listing queue: %w", err)
	}

	for _, item := range items {
		if item.Status != studio.StatusPending {
			continue
		}
		w.process(ctx, item)
		return nil
	}
	return nil
}

func (w *Worker) process(ctx context.Context, item *studio.QueueItem) {
	if item.VideoRef == "" {
		w.fail(ctx, item.ID, "no rendered video attached")
		return
	}

	if !w.setProgress(ctx, item.ID, studio.StatusUploading, 10) {
		// Item vanished between List and now; nothing to do.
		return
	}

	// Stream straight from the vault to the publisher so a multi-gigabyte
	// render never has to fit in memory.
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(w.vault.Get(item.VideoRef, pw))
	}()

	videoID, err := w.publisher.Publish(ctx, item.Metadata, pr)
	pr.Close()
	if err != nil {
		w.logger.Error("upload failed", "item", item.ID, "error", err)
		w.fail(ctx, item.ID, err.Error())
		return
	}

	if w.setProgress(ctx, item.ID, studio.StatusCompleted, 100) {
		w.logger.Info("upload completed", "item", item.ID, "video", videoID)
	}
}

// setProgress patches status and progress, tolerating an item that was
// removed mid-flight. Reports whether the item still exists.
func (w *Worker) setProgress(ctx context.Context, id string, status studio.QueueStatus, progress int) bool {
	_, err := w.queue.Update(ctx, id, studio.QueuePatch{
		Status:     &status,
		Progress:   &progress,
		ClearError: true,
	})
	if err != nil {
		w.logger.Warn("could not update queue item", "item", id, "error", err)
		return false
	}
	return true
}

func (w *Worker) fail(ctx context.Context, id string, message string) {
	status := studio.StatusError
	if _, err := w.queue.Update(ctx, id, studio.QueuePatch{
		Status: &status,
		Error:  &message,
	}); err != nil {
		w.logger.Warn("could not record upload failure", "item", id, "error", err)
	}
}

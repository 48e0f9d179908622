package studio

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// QueueService manages the upload queue entirely in the local store. Queue
// entries never leave the device; the remote store knows nothing about them.
//
// The service is state-agnostic: it stores whatever status a caller
// supplies and never checks transition legality. The producer/consumer
// coupling that drives pending → uploading → completed lives in whatever
// process polls the queue (see internal/uploader).
type QueueService struct {
	store  LocalStore
	ids    IDGenerator
	clock  Clock
	logger Logger
}

// NewQueueService creates a queue service over the local store. ids and
// clock default to the production implementations when nil.
func NewQueueService(store LocalStore, ids IDGenerator, clock Clock, logger Logger) *QueueService {
	if clock == nil {
		clock = RealClock{}
	}
	if ids == nil {
		ids = NewQueueIDGenerator(clock)
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &QueueService{store: store, ids: ids, clock: clock, logger: logger}
}

// Enqueue validates the upload metadata and inserts the item. When the
// metadata violates platform limits, nothing is persisted and the returned
// *ValidationError lists every violation — the service never truncates or
// stores an invalid item on the caller's behalf.
//
// Blank bookkeeping fields are filled in: id (vid_<millis>), status
// (pending), privacy (private), AddedAt and QueuedAt from the clock.
func (s *QueueService) Enqueue(ctx context.Context, item *QueueItem) (*QueueItem, error) {
	if item == nil {
		return nil, fmt.Errorf("queue item required")
	}

	q := item.Clone()
	if q.Metadata.PrivacyStatus == "" {
		q.Metadata.PrivacyStatus = PrivacyPrivate
	}
	if err := ValidateUploadMetadata(q.Metadata); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if q.ID == "" {
		q.ID = s.ids.New()
	}
	if q.Status == "" {
		q.Status = StatusPending
	}
	if q.AddedAt == 0 {
		q.AddedAt = now.UnixMilli()
	}
	if q.QueuedAt == "" {
		q.QueuedAt = now.UTC().Format(time.RFC3339)
	}

	if err := s.store.PutQueueItem(ctx, q); err != nil {
		return nil, fmt.Errorf("storing queue item: %w", err)
	}
	s.logger.Info("upload queued", "item", q.ID, "project", q.ProjectID)
	return q, nil
}

// List returns the queue ordered by AddedAt ascending — oldest first, the
// order any consumer processes it.
func (s *QueueService) List(ctx context.Context) ([]*QueueItem, error) {
	items, err := s.store.ListQueueItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt != items[j].AddedAt {
			return items[i].AddedAt < items[j].AddedAt
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// Get returns a queue item, or (nil, nil) when absent.
func (s *QueueService) Get(ctx context.Context, id string) (*QueueItem, error) {
	return s.store.GetQueueItem(ctx, id)
}

// Update merges the partial fields into an existing item and returns the
// updated record. Returns ErrNotFound when the id was never enqueued —
// callers must treat that as a real failure, since it means their view of
// the queue is stale.
func (s *QueueService) Update(ctx context.Context, id string, patch QueuePatch) (*QueueItem, error) {
	return s.store.PatchQueueItem(ctx, id, patch)
}

// Retry resets a failed item so a consumer picks it up again: status back
// to pending, progress zero, error cleared. Every other field, including
// the metadata, is left untouched. Only items in error or failed can be
// retried.
func (s *QueueService) Retry(ctx context.Context, id string) (*QueueItem, error) {
	item, err := s.store.GetQueueItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading queue item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("queue item %s: %w", id, ErrNotFound)
	}
	if item.Status != StatusError && item.Status != StatusFailed {
		return nil, fmt.Errorf("queue item %s is %s; only error or failed items can be retried", id, item.Status)
	}

	pending := StatusPending
	zero := 0
	updated, err := s.store.PatchQueueItem(ctx, id, QueuePatch{
		Status:     &pending,
		Progress:   &zero,
		ClearError: true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("upload reset for retry", "item", id)
	return updated, nil
}

// Remove deletes the item from the queue.
func (s *QueueService) Remove(ctx context.Context, id string) error {
	if err := s.store.DeleteQueueItem(ctx, id); err != nil {
		return fmt.Errorf("removing queue item: %w", err)
	}
	return nil
}

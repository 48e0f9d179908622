package studio

import "context"

// LocalStore is the on-device, offline-capable persistence layer. It owns
// the device-local copy of projects and the entire upload queue, survives
// restarts and works with zero network dependency.
type LocalStore interface {
	// PutProject sanitizes the project's opaque payloads, stamps LastUpdated
	// with the store's clock (overriding any caller-supplied value — this is
	// what makes "local wins when more recent" meaningful) and inserts or
	// fully replaces the row with the same id. Returns the stored copy.
	PutProject(ctx context.Context, project *Project) (*Project, error)

	// GetProject returns the stored project, or (nil, nil) when absent.
	GetProject(ctx context.Context, id string) (*Project, error)

	// ListProjects returns all local projects in no particular order;
	// sorting is the caller's responsibility.
	ListProjects(ctx context.Context) ([]*Project, error)

	// DeleteProject removes the project. A missing id is not an error.
	DeleteProject(ctx context.Context, id string) error

	// PutQueueItem inserts or fully replaces a queue item.
	PutQueueItem(ctx context.Context, item *QueueItem) error

	// GetQueueItem returns the stored item, or (nil, nil) when absent.
	GetQueueItem(ctx context.Context, id string) (*QueueItem, error)

	// ListQueueItems returns all queue items in no particular order.
	ListQueueItems(ctx context.Context) ([]*QueueItem, error)

	// DeleteQueueItem removes the item. A missing id is not an error.
	DeleteQueueItem(ctx context.Context, id string) error

	// PatchQueueItem merges the patch into the stored item in a single
	// read-modify-write. Returns ErrNotFound when the id is absent — this is
	// not an upsert.
	PatchQueueItem(ctx context.Context, id string, patch QueuePatch) (*QueueItem, error)

	// Close releases the underlying database handle.
	Close() error
}

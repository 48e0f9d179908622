package studio

import "context"

// RemoteStore is the hosted, multi-device persistence layer for projects.
// Every call takes an explicit owner id and implementations enforce the
// scope in the query itself — a caller can never reach another owner's rows
// no matter what ids it passes. The queue has no remote mirror.
type RemoteStore interface {
	// UpsertProject inserts or updates the row keyed by the project id,
	// storing the project as an opaque payload plus a denormalized title.
	// The server assigns updated_at with its own clock.
	UpsertProject(ctx context.Context, ownerID string, project *Project) error

	// FetchProject returns the owner's project, or (nil, nil) when no
	// owner-visible row exists.
	FetchProject(ctx context.Context, ownerID, id string) (*Project, error)

	// ListProjects returns all of the owner's projects ordered by server
	// update time descending. Each returned project carries LastUpdated
	// derived from updated_at and is marked Synced.
	ListProjects(ctx context.Context, ownerID string) ([]*Project, error)

	// DeleteProject removes the owner's row. A missing id is not an error.
	DeleteProject(ctx context.Context, ownerID, id string) error
}

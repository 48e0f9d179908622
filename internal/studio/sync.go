package studio

import (
	"context"
	"fmt"
	"sort"
)

// SyncEngine is the single entry point the rest of the application uses for
// project persistence. It hides the two-store topology behind one CRUD
// surface: writes land in the local store first and are mirrored to the
// remote store best-effort; reads merge both sides with a last-write-wins
// rule on LastUpdated.
//
// The merge is deliberately coarse: whole records win or lose on their
// timestamp, with no field-level conflict resolution. Two devices saving the
// same project concurrently lose the older write. That trade-off is accepted
// here in exchange for offline writes that never block on the network.
type SyncEngine struct {
	local   LocalStore
	remote  RemoteStore // nil when no account is signed in
	ownerID string
	clock   Clock
	logger  Logger
}

// NewSyncEngine creates an engine over the given stores. remote may be nil
// (or ownerID empty) for local-only, anonymous use; every remote leg is then
// skipped silently. clock and logger default to the production
// implementations when nil.
func NewSyncEngine(local LocalStore, remote RemoteStore, ownerID string, clock Clock, logger Logger) *SyncEngine {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &SyncEngine{
		local:   local,
		remote:  remote,
		ownerID: ownerID,
		clock:   clock,
		logger:  logger,
	}
}

// hasSession reports whether remote calls can be attempted. Anonymous use is
// an expected condition, not an error.
func (e *SyncEngine) hasSession() bool {
	return e.remote != nil && e.ownerID != ""
}

// Save writes the project locally, then mirrors it to the remote store.
// Neither a local storage failure nor a remote failure surfaces to the
// caller — the save degrades instead of failing, and the merged view heals
// once connectivity returns. The only error Save returns is caller misuse
// (missing id). The returned copy carries the stamped LastUpdated, and is
// marked Synced when the remote mirror succeeded.
func (e *SyncEngine) Save(ctx context.Context, project *Project) (*Project, error) {
	if project == nil || project.ID == "" {
		return nil, fmt.Errorf("project must have an id")
	}

	stored, err := e.local.PutProject(ctx, project)
	if err != nil {
		e.logger.Error("local save failed", "project", project.ID, "error", err)
		// The remote mirror still runs off a sanitized, freshly stamped copy,
		// matching what the local store would have produced.
		stored = SanitizeProject(project)
		stored.LastUpdated = e.clock.Now().UnixMilli()
	}

	if !e.hasSession() {
		e.logger.Debug("no session, skipping remote sync", "project", stored.ID)
		return stored, nil
	}

	if err := e.remote.UpsertProject(ctx, e.ownerID, stored); err != nil {
		e.logger.Warn("remote sync failed, keeping local copy", "project", stored.ID, "error", err)
		return stored, nil
	}
	stored.Synced = true
	return stored, nil
}

// Get returns the project by id, or (nil, nil) when it exists nowhere.
// A local hit is returned immediately — for resuming an edit, latency and
// offline availability beat freshness. Only a local miss falls through to
// the remote store, which is what lets a project opened on another device
// appear here for the first time.
func (e *SyncEngine) Get(ctx context.Context, id string) (*Project, error) {
	local, err := e.local.GetProject(ctx, id)
	if err != nil {
		e.logger.Error("local read failed", "project", id, "error", err)
	}
	if local != nil {
		return local, nil
	}

	if !e.hasSession() {
		return nil, nil
	}
	remote, err := e.remote.FetchProject(ctx, e.ownerID, id)
	if err != nil {
		e.logger.Warn("remote fetch failed", "project", id, "error", err)
		return nil, nil
	}
	return remote, nil
}

// List returns the merged view of both stores, sorted by LastUpdated
// descending, one entry per id.
//
// The remote set is the baseline. A local copy replaces it only when its
// LastUpdated is strictly greater (equal timestamps keep the remote copy —
// the server-confirmed state wins ties). Local-only projects are included
// unmarked; remote-only projects are included as-is. No id is ever dropped:
// a copy that exists in only one store always survives the merge.
func (e *SyncEngine) List(ctx context.Context) ([]*Project, error) {
	merged := make(map[string]*Project)

	if e.hasSession() {
		remote, err := e.remote.ListProjects(ctx, e.ownerID)
		if err != nil {
			e.logger.Warn("remote list failed, serving local view", "error", err)
		} else {
			for _, p := range remote {
				p.Synced = true
				merged[p.ID] = p
			}
		}
	}

	local, err := e.local.ListProjects(ctx)
	if err != nil {
		e.logger.Error("local list failed", "error", err)
	}
	for _, p := range local {
		if remote, ok := merged[p.ID]; ok && remote.LastUpdated >= p.LastUpdated {
			continue
		}
		p.Synced = false
		merged[p.ID] = p
	}

	out := make([]*Project, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastUpdated != out[j].LastUpdated {
			return out[i].LastUpdated > out[j].LastUpdated
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the project from both stores, best-effort on each leg: the
// local delete always runs, the remote delete only runs with a session, and
// a failure in either never prevents the other or surfaces to the caller.
func (e *SyncEngine) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("project id required")
	}

	if err := e.local.DeleteProject(ctx, id); err != nil {
		e.logger.Error("local delete failed", "project", id, "error", err)
	}

	if !e.hasSession() {
		e.logger.Debug("no session, skipping remote delete", "project", id)
		return nil
	}
	if err := e.remote.DeleteProject(ctx, e.ownerID, id); err != nil {
		e.logger.Warn("remote delete failed", "project", id, "error", err)
	}
	return nil
}

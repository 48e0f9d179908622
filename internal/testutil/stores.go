package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studio-go/internal/studio"
)

// MemoryLocalStore is an in-memory studio.LocalStore for tests. It mirrors
// the SQLite implementation's contract: PutProject sanitizes payloads and
// stamps LastUpdated from the clock, and PatchQueueItem is a
// read-modify-write that fails on missing ids.
type MemoryLocalStore struct {
	mu       sync.RWMutex
	clock    studio.Clock
	projects map[string]*studio.Project
	queue    map[string]*studio.QueueItem

	// FailWrites makes every write return an error, simulating a full or
	// corrupted on-device store.
	FailWrites bool
}

func NewMemoryLocalStore(clock studio.Clock) *MemoryLocalStore {
	if clock == nil {
		clock = studio.RealClock{}
	}
	return &MemoryLocalStore{
		clock:    clock,
		projects: make(map[string]*studio.Project),
		queue:    make(map[string]*studio.QueueItem),
	}
}

func (m *MemoryLocalStore) PutProject(_ context.Context, project *studio.Project) (*studio.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return nil, fmt.Errorf("local store write failed")
	}
	p := studio.SanitizeProject(project)
	p.LastUpdated = m.clock.Now().UnixMilli()
	p.Synced = false
	m.projects[p.ID] = p.Clone()
	return p, nil
}

// SeedProject stores a project without the LastUpdated stamp, for tests
// that need a specific timestamp already in place.
func (m *MemoryLocalStore) SeedProject(project *studio.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = project.Clone()
}

func (m *MemoryLocalStore) GetProject(_ context.Context, id string) (*studio.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.projects[id].Clone(), nil
}

func (m *MemoryLocalStore) ListProjects(_ context.Context) ([]*studio.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*studio.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *MemoryLocalStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("local store write failed")
	}
	delete(m.projects, id)
	return nil
}

func (m *MemoryLocalStore) PutQueueItem(_ context.Context, item *studio.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("local store write failed")
	}
	m.queue[item.ID] = item.Clone()
	return nil
}

func (m *MemoryLocalStore) GetQueueItem(_ context.Context, id string) (*studio.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queue[id].Clone(), nil
}

func (m *MemoryLocalStore) ListQueueItems(_ context.Context) ([]*studio.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*studio.QueueItem, 0, len(m.queue))
	for _, q := range m.queue {
		out = append(out, q.Clone())
	}
	return out, nil
}

func (m *MemoryLocalStore) DeleteQueueItem(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return fmt.Errorf("local store write failed")
	}
	delete(m.queue, id)
	return nil
}

func (m *MemoryLocalStore) PatchQueueItem(_ context.Context, id string, patch studio.QueuePatch) (*studio.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return nil, fmt.Errorf("local store write failed")
	}
	existing, ok := m.queue[id]
	if !ok {
		return nil, fmt.Errorf("queue item %s: %w", id, studio.ErrNotFound)
	}
	updated := existing.Clone()
	patch.Apply(updated)
	m.queue[id] = updated.Clone()
	return updated, nil
}

func (m *MemoryLocalStore) Close() error { return nil }

// QueueLen reports the number of stored queue items.
func (m *MemoryLocalStore) QueueLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queue)
}

var _ studio.LocalStore = (*MemoryLocalStore)(nil)

type remoteRow struct {
	project   *studio.Project
	updatedAt time.Time
}

// MemoryRemoteStore is an in-memory studio.RemoteStore keyed by owner and
// project id. Upserts take updatedAt from the store's clock, matching the
// server-assigned column of the real implementation.
type MemoryRemoteStore struct {
	mu    sync.RWMutex
	clock studio.Clock
	rows  map[string]map[string]remoteRow

	// FailAll makes every call return an error, simulating an unreachable
	// backing service.
	FailAll bool
}

func NewMemoryRemoteStore(clock studio.Clock) *MemoryRemoteStore {
	if clock == nil {
		clock = studio.RealClock{}
	}
	return &MemoryRemoteStore{
		clock: clock,
		rows:  make(map[string]map[string]remoteRow),
	}
}

// Seed places a row with an explicit server timestamp.
func (m *MemoryRemoteStore) Seed(ownerID string, project *studio.Project, updatedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(ownerID, project, updatedAt)
}

func (m *MemoryRemoteStore) put(ownerID string, project *studio.Project, updatedAt time.Time) {
	owner, ok := m.rows[ownerID]
	if !ok {
		owner = make(map[string]remoteRow)
		m.rows[ownerID] = owner
	}
	owner[project.ID] = remoteRow{project: project.Clone(), updatedAt: updatedAt}
}

func (m *MemoryRemoteStore) UpsertProject(_ context.Context, ownerID string, project *studio.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return fmt.Errorf("remote store unreachable")
	}
	m.put(ownerID, project, m.clock.Now())
	return nil
}

func (m *MemoryRemoteStore) FetchProject(_ context.Context, ownerID, id string) (*studio.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailAll {
		return nil, fmt.Errorf("remote store unreachable")
	}
	row, ok := m.rows[ownerID][id]
	if !ok {
		return nil, nil
	}
	return m.toProject(row), nil
}

func (m *MemoryRemoteStore) ListProjects(_ context.Context, ownerID string) ([]*studio.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailAll {
		return nil, fmt.Errorf("remote store unreachable")
	}
	rows := m.rows[ownerID]
	out := make([]*studio.Project, 0, len(rows))
	for _, row := range rows {
		out = append(out, m.toProject(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated > out[j].LastUpdated })
	return out, nil
}

func (m *MemoryRemoteStore) DeleteProject(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAll {
		return fmt.Errorf("remote store unreachable")
	}
	delete(m.rows[ownerID], id)
	return nil
}

func (m *MemoryRemoteStore) toProject(row remoteRow) *studio.Project {
	p := row.project.Clone()
	p.LastUpdated = row.updatedAt.UnixMilli()
	p.Synced = true
	return p
}

// Has reports whether the owner has a row for id.
func (m *MemoryRemoteStore) Has(ownerID, id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rows[ownerID][id]
	return ok
}

var _ studio.RemoteStore = (*MemoryRemoteStore)(nil)

// FixedClock returns a preset time, advanced manually by tests.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{t: t} }

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Set pins the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// SeqIDGenerator returns "id-1", "id-2", ... for deterministic assertions.
type SeqIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *SeqIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

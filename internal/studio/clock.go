package studio

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so merge decisions are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs. Used for project ids.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// QueueIDGenerator produces "vid_<millis>" identifiers for queue items.
// Successive calls within the same millisecond bump the timestamp so ids
// stay unique.
type QueueIDGenerator struct {
	clock Clock

	mu   sync.Mutex
	last int64
}

func NewQueueIDGenerator(clock Clock) *QueueIDGenerator {
	if clock == nil {
		clock = RealClock{}
	}
	return &QueueIDGenerator{clock: clock}
}

func (g *QueueIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.clock.Now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return fmt.Sprintf("vid_%d", ms)
}

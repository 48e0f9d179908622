package studio

import "encoding/json"

// ProjectType determines which downstream editor consumes a project.
type ProjectType string

const (
	ProjectTypeShorts  ProjectType = "shorts"
	ProjectTypeLong    ProjectType = "long"
	ProjectTypePodcast ProjectType = "podcast"
)

// Project is a user's video-creation work in progress.
//
// Config and Script are opaque editor payloads: the persistence layer
// round-trips them byte for byte without interpreting their contents, apart
// from the binary-stripping pass applied before every local write (see
// SanitizeProject).
//
// LastUpdated is the sole arbiter of merge precedence between the local and
// remote stores. The local store overwrites it with its own clock on every
// write; the remote store derives it from the server's updated_at column.
type Project struct {
	ID          string          `json:"id"`
	Type        ProjectType     `json:"type"`
	Title       string          `json:"title"`
	Topic       string          `json:"topic,omitempty"`
	LastUpdated int64           `json:"lastUpdated"` // epoch milliseconds
	Config      json.RawMessage `json:"config,omitempty"`
	Script      json.RawMessage `json:"script,omitempty"`

	// Synced reports whether this copy of the project came from, or is known
	// to match, the remote store. Derived at read time, never persisted.
	Synced bool `json:"-"`
}

// Clone returns a deep copy of the project. The opaque payloads are copied
// so mutating the clone never aliases the original's backing arrays.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	if p.Config != nil {
		out.Config = append(json.RawMessage(nil), p.Config...)
	}
	if p.Script != nil {
		out.Script = append(json.RawMessage(nil), p.Script...)
	}
	return &out
}

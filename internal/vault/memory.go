package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"studio-go/internal/studio"
)

// MemoryVault is an in-memory implementation of the MediaVault interface.
// It stores all media in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	media map[string][]byte // checksum -> media bytes
	mu    sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		media: make(map[string][]byte),
	}
}

// Put stores media identified by its checksum.
func (m *MemoryVault) Put(checksum string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read media: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: storing the same checksum multiple times is safe
	m.media[checksum] = data
	return nil
}

// Get retrieves media by checksum.
func (m *MemoryVault) Get(checksum string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.media[checksum]
	if !ok {
		return fmt.Errorf("media not found: %s", checksum)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write media: %w", err)
	}

	return nil
}

// Delete removes media by checksum. A missing checksum is not an error.
func (m *MemoryVault) Delete(checksum string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.media, checksum)
	return nil
}

// Exists reports whether media for checksum is present.
func (m *MemoryVault) Exists(checksum string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.media[checksum]
	return ok, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements the MediaVault interface
var _ studio.MediaVault = (*MemoryVault)(nil)

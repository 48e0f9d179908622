package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"studio-go/internal/studio"
)

// FileSystemVault is a filesystem-based implementation of the MediaVault
// interface. It stores rendered media as files named by checksum:
//
//	<root>/
//	  media/
//	    <checksum>     (media files, named by SHA-256)
type FileSystemVault struct {
	root     string
	mediaDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	mediaDir := filepath.Join(root, "media")

	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &FileSystemVault{
		root:     root,
		mediaDir: mediaDir,
	}, nil
}

// Put stores media identified by its checksum.
// The operation is idempotent: storing the same checksum multiple times is safe.
func (v *FileSystemVault) Put(checksum string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.mediaDir, checksum)

	// If media already exists, skip (idempotent)
	if _, err := os.Stat(destPath); err == nil {
		// Consume the reader to maintain expected behavior
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read media: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	return v.writeFile(destPath, r, size)
}

// Get retrieves media by checksum and writes it to w.
func (v *FileSystemVault) Get(checksum string, w io.Writer) error {
	srcPath := filepath.Join(v.mediaDir, checksum)

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("media not found: %s", checksum)
		}
		return fmt.Errorf("failed to open media: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read media: %w", err)
	}

	return nil
}

// Delete removes media by checksum. A missing checksum is not an error.
func (v *FileSystemVault) Delete(checksum string) error {
	err := os.Remove(filepath.Join(v.mediaDir, checksum))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

// Exists reports whether media for checksum is present.
func (v *FileSystemVault) Exists(checksum string) (bool, error) {
	_, err := os.Stat(filepath.Join(v.mediaDir, checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat media: %w", err)
	}
	return true, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	// Check that root directory exists and is a directory
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	info, err = os.Stat(v.mediaDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.mediaDir)
	}

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	// Copy data to temp file
	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write media: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Verify size
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements the MediaVault interface
var _ studio.MediaVault = (*FileSystemVault)(nil)

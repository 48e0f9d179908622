package studio

import "io"

// MediaVault stores rendered video files, addressed by content checksum.
// All operations stream through io.Reader/io.Writer so large renders never
// have to fit in memory. Vault contents stay on whatever backend the
// operator configured; they are never merged into the project RemoteStore.
type MediaVault interface {
	// Put stores media under its checksum. Idempotent: storing the same
	// checksum twice is safe. size is the number of bytes r will produce.
	Put(checksum string, r io.Reader, size int64) error

	// Get writes the media for checksum to w.
	Get(checksum string, w io.Writer) error

	// Delete removes the media. A missing checksum is not an error.
	Delete(checksum string) error

	// Exists reports whether media for checksum is present.
	Exists(checksum string) (bool, error)

	// ValidateSetup verifies the vault is accessible and properly configured.
	ValidateSetup() error
}

package studio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an operation targets a record that does not
// exist. For the queue this is the one storage error that crosses the
// subsystem boundary: patching a missing item means the caller's view is
// stale (the item was deleted concurrently) and must not be swallowed.
var ErrNotFound = errors.New("record not found")

// ValidationError reports every platform constraint an upload's metadata
// violates, so a caller can render each violation rather than the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("upload metadata invalid: %s", strings.Join(e.Violations, "; "))
}

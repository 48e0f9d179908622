package studio

import (
	"fmt"
	"unicode/utf8"
)

// Platform limits enforced before an item enters the upload queue.
const (
	MaxUploadTitleLen       = 100
	MaxUploadDescriptionLen = 5000
)

// ValidateUploadMetadata checks m against the publishing platform's limits.
// Returns a *ValidationError listing every violated constraint, or nil when
// the metadata is acceptable. Nothing is truncated on the caller's behalf.
func ValidateUploadMetadata(m UploadMetadata) error {
	var violations []string

	if n := utf8.RuneCountInString(m.Title); n > MaxUploadTitleLen {
		violations = append(violations,
			fmt.Sprintf("title exceeds %d characters (got %d)", MaxUploadTitleLen, n))
	}
	if n := utf8.RuneCountInString(m.Description); n > MaxUploadDescriptionLen {
		violations = append(violations,
			fmt.Sprintf("description exceeds %d characters (got %d)", MaxUploadDescriptionLen, n))
	}
	switch m.PrivacyStatus {
	case PrivacyPublic, PrivacyPrivate, PrivacyUnlisted:
	default:
		violations = append(violations,
			fmt.Sprintf("privacy_status %q must be public, private or unlisted", m.PrivacyStatus))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

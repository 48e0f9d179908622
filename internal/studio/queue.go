package studio

// QueueStatus describes where an upload is in its life. The queue itself
// never validates transitions — whatever process consumes the queue applies
// them, and any status may be overwritten externally.
type QueueStatus string

const (
	StatusPending    QueueStatus = "pending"
	StatusWaiting    QueueStatus = "waiting"
	StatusGenerating QueueStatus = "generating"
	StatusRendering  QueueStatus = "rendering"
	StatusUploading  QueueStatus = "uploading"
	StatusCompleted  QueueStatus = "completed"
	StatusError      QueueStatus = "error"
	StatusFailed     QueueStatus = "failed"
)

// PrivacyStatus is the visibility of a published video.
type PrivacyStatus string

const (
	PrivacyPublic   PrivacyStatus = "public"
	PrivacyPrivate  PrivacyStatus = "private"
	PrivacyUnlisted PrivacyStatus = "unlisted"
)

// UploadMetadata is the video's publishing metadata, constrained by the
// platform limits in ValidateUploadMetadata.
type UploadMetadata struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Tags          []string      `json:"tags"`
	PrivacyStatus PrivacyStatus `json:"privacy_status"`
	PublishAt     string        `json:"publish_at,omitempty"` // ISO-8601, scheduled publish
}

// QueueItem is a pending or in-flight request to publish a rendered video.
// Items copy the project data they need at enqueue time rather than
// re-reading the project at dispatch time; ProjectID is a back-reference,
// not an ownership relation.
//
// VideoRef is the media-vault checksum of the rendered file. The bytes live
// in the vault and the reference lives here; neither is ever synced to the
// remote store.
type QueueItem struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	ProjectType ProjectType    `json:"projectType"`
	Metadata    UploadMetadata `json:"metadata"`
	Status      QueueStatus    `json:"status"`
	Progress    int            `json:"progress"` // 0-100, advisory
	Error       string         `json:"error,omitempty"`
	VideoRef    string         `json:"videoRef,omitempty"`
	AddedAt     int64          `json:"addedAt"`             // epoch millis, defines queue order
	QueuedAt    string         `json:"queued_at,omitempty"` // ISO-8601, informational
}

// Clone returns a deep copy of the queue item.
func (q *QueueItem) Clone() *QueueItem {
	if q == nil {
		return nil
	}
	out := *q
	if q.Metadata.Tags != nil {
		out.Metadata.Tags = append([]string(nil), q.Metadata.Tags...)
	}
	return &out
}

// QueuePatch is a partial update to a queue item. Nil fields leave the
// stored value untouched; ClearError removes the error message, which a nil
// Error pointer cannot express.
type QueuePatch struct {
	Metadata   *UploadMetadata
	Status     *QueueStatus
	Progress   *int
	Error      *string
	ClearError bool
	VideoRef   *string
}

// Apply merges the patch into item in place.
func (p QueuePatch) Apply(item *QueueItem) {
	if p.Metadata != nil {
		item.Metadata = *p.Metadata
		if p.Metadata.Tags != nil {
			item.Metadata.Tags = append([]string(nil), p.Metadata.Tags...)
		}
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.Progress != nil {
		item.Progress = *p.Progress
	}
	if p.Error != nil {
		item.Error = *p.Error
	}
	if p.ClearError {
		item.Error = ""
	}
	if p.VideoRef != nil {
		item.VideoRef = *p.VideoRef
	}
}

package models

import "time"

// ResourceTypeVideo is the only resource type audiowave publishes or queries.
const ResourceTypeVideo = "video"

// AudioSubmission is an uploaded audio file staged on local disk for one run.
type AudioSubmission struct {
	SourcePath       string `json:"source_path"`
	OriginalFileName string `json:"original_file_name"`
}

// TrackMetadata holds the tags read from a submission. A nil field means the
// tag was absent or unreadable; it is never the empty string.
type TrackMetadata struct {
	Title           *string  `json:"title,omitempty"`
	Artist          *string  `json:"artist,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// PublishedResource describes a video as the asset store reports it.
// PublicID is its identity.
type PublishedResource struct {
	PublicID     string    `json:"public_id"`
	SecureURL    string    `json:"secure_url"`
	Format       string    `json:"format,omitempty"`
	ResourceType string    `json:"resource_type"`
	Bytes        int64     `json:"bytes"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResourceList is the result of listing a folder.
type ResourceList struct {
	Resources []PublishedResource `json:"resources"`
}

// Per-id outcomes reported by a delete.
const (
	DeleteStatusDeleted  = "deleted"
	DeleteStatusNotFound = "not_found"
)

// DeleteResult maps each requested public id to its outcome.
type DeleteResult struct {
	Deleted map[string]string `json:"deleted"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// Package videofile maps public ids onto object names for stores that keep
// plain files (local disk, S3, Drive).
package videofile

import (
	"mime"
	"path"
	"strings"
)

// Ext is the extension rendered videos are stored with.
const Ext = ".mp4"

var videoExts = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// Key returns the object name for publicID.
func Key(publicID string) string {
	return publicID + Ext
}

// PublicID is the inverse of Key. ok is false for any other object name,
// including videos in other containers, since Get and Delete could not
// address them.
func PublicID(key string) (string, bool) {
	id, ok := strings.CutSuffix(key, Ext)
	if !ok || id == "" || strings.HasSuffix(id, "/") {
		return "", false
	}
	return id, true
}

// ContentType returns the MIME type for a video object name.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := videoExts[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Format returns the container format name ("mp4") for an object name.
func Format(name string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

package models

import "time"

// FileMetadata describes what is known about a remote media object.
// SizeBytes is treated as immutable for a given id while a cache entry lives;
// remote objects are never rewritten in place.
type FileMetadata struct {
	ID         string    `json:"id"`
	SizeBytes  int64     `json:"sizeBytes"`
	MimeType   string    `json:"mimeType,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`
}

// LibraryEntry is a locally registered media item pointing at an upstream file.
type LibraryEntry struct {
	ID         string    `json:"id"`
	UpstreamID string    `json:"upstreamId"`
	Name       string    `json:"name"`
	MimeHint   string    `json:"mimeHint,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

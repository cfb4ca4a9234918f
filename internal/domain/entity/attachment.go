package entity

import "time"

// Attachment is file metadata attached to a document. The blob itself lives in
// external file storage; only the descriptor is persisted here.
type Attachment struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"document_id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type,omitempty"`
	StorageKey  string    `json:"storage_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

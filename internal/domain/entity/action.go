package entity

import "time"

// ApprovalAction is one entry in a document's append-only audit trail. Rows are
// immutable once written; their created_at order defines the history.
type ApprovalAction struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

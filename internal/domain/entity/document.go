package entity

import "time"

// ApprovalDocument is the aggregate root of the approval workflow: a drafted
// document with an ordered approver sequence and a lifecycle status.
type ApprovalDocument struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	TemplateID       string     `json:"template_id,omitempty"`
	AuthorID         string     `json:"author_id"`
	PreservationDays int        `json:"preservation_days"`
	Status           string     `json:"status"`
	DraftedAt        time.Time  `json:"drafted_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsTerminal reports whether the document has reached a final status.
func (d *ApprovalDocument) IsTerminal() bool {
	switch d.Status {
	case DocumentStatusApproved, DocumentStatusRejected, DocumentStatusCanceled:
		return true
	}
	return false
}

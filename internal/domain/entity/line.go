package entity

import "time"

// ApprovalLine is one entry in a document's approver sequence. Position is the
// 0-based order of evaluation; it is frozen once the document is submitted.
type ApprovalLine struct {
	ID           int64      `json:"id"`
	DocumentID   int64      `json:"document_id"`
	ApproverID   string     `json:"approver_id"`
	Position     int        `json:"position"`
	ApprovalType string     `json:"approval_type"`
	DecisionType string     `json:"decision_type"`
	Status       string     `json:"status"`
	Comment      string     `json:"comment,omitempty"`
	ActedAt      *time.Time `json:"acted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsActionable reports whether the line takes part in the sequential approval
// chain. Reference lines are cc-only and never block progression.
func (l *ApprovalLine) IsActionable() bool {
	return l.ApprovalType != ApprovalTypeReference
}

// IsTerminal reports whether the line has reached a final status.
func (l *ApprovalLine) IsTerminal() bool {
	switch l.Status {
	case LineStatusApproved, LineStatusRejected, LineStatusSkipped:
		return true
	}
	return false
}

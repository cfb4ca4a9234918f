package entity

// Status constants for ApprovalDocument
const (
	DocumentStatusDraft    = "DRAFT"
	DocumentStatusPending  = "PENDING"
	DocumentStatusApproved = "APPROVED"
	DocumentStatusRejected = "REJECTED"
	DocumentStatusCanceled = "CANCELED"
)

// Status constants for ApprovalLine
const (
	LineStatusWaiting  = "WAITING"
	LineStatusPending  = "PENDING"
	LineStatusApproved = "APPROVED"
	LineStatusRejected = "REJECTED"
	LineStatusSkipped  = "SKIPPED"
)

// Approval type constants for ApprovalLine. Agreement lines participate in the
// same sequential chain as approval lines; the distinction is a display label.
// Reference lines are cc-only and never act.
const (
	ApprovalTypeApproval  = "APPROVAL"
	ApprovalTypeAgreement = "AGREEMENT"
	ApprovalTypeReference = "REFERENCE"
)

// Decision type constants for ApprovalLine
const (
	DecisionTypeApproval = "APPROVAL"
	DecisionTypeDelegate = "DELEGATE"
)

// Action constants for ApprovalAction
const (
	ActionSubmit  = "SUBMIT"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionCancel  = "CANCEL"
)

// ValidApprovalType reports whether t is a known approval type.
func ValidApprovalType(t string) bool {
	switch t {
	case ApprovalTypeApproval, ApprovalTypeAgreement, ApprovalTypeReference:
		return true
	}
	return false
}

// ValidDecisionType reports whether t is a known decision type.
func ValidDecisionType(t string) bool {
	switch t {
	case DecisionTypeApproval, DecisionTypeDelegate:
		return true
	}
	return false
}

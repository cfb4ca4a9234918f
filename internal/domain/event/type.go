package event

// Type identifies the type of domain event
type Type string

const (
	TypeDocumentSubmitted Type = "document.submitted"
	TypeDocumentApproved  Type = "document.approved"
	TypeDocumentRejected  Type = "document.rejected"
	TypeDocumentCanceled  Type = "document.canceled"
	TypeLineActivated     Type = "line.activated"
	TypeLineDecided       Type = "line.decided"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeDocumentSubmitted,
		TypeDocumentApproved,
		TypeDocumentRejected,
		TypeDocumentCanceled,
		TypeLineActivated,
		TypeLineDecided:
		return true
	}
	return false
}

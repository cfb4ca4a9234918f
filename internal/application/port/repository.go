package port

import (
	"context"
	"time"

	"github.com/teamnova/groupware-approval/internal/domain/entity"
)

// CompletedFilter narrows the completed-document archive queries
type CompletedFilter struct {
	Status   string // APPROVED, REJECTED or CANCELED; empty matches all three
	AuthorID string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// DocumentRepository defines persistence operations for ApprovalDocument
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.ApprovalDocument) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalDocument, error)
	Update(ctx context.Context, doc *entity.ApprovalDocument) error
	Delete(ctx context.Context, id int64) error

	// UpdateStatusIf transitions status from expected to next, optionally
	// stamping submitted_at / completed_at. Returns the number of rows
	// changed: zero means the document no longer holds the expected status.
	UpdateStatusIf(ctx context.Context, id int64, expected, next string, submittedAt, completedAt *time.Time) (int64, error)

	// FindAuthoredBy returns documents authored by userID, newest first
	FindAuthoredBy(ctx context.Context, userID string, limit, offset int) ([]*entity.ApprovalDocument, error)

	// FindPendingFor returns documents whose currently pending line belongs to userID
	FindPendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error)

	// FindCompleted returns terminal documents matching the filter
	FindCompleted(ctx context.Context, filter CompletedFilter) ([]*entity.ApprovalDocument, error)
}

// LineRepository defines persistence operations for ApprovalLine
type LineRepository interface {
	Create(ctx context.Context, line *entity.ApprovalLine) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalLine, error)

	// GetByDocumentID returns all lines of a document ordered by position
	GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error)

	// ReplaceForDocument deletes the document's lines and inserts the given
	// ones. Only meaningful while the document is a draft.
	ReplaceForDocument(ctx context.Context, documentID int64, lines []*entity.ApprovalLine) error

	// UpdateStatusIf moves a line from expected to next status. Returns rows
	// changed; zero means the line was modified concurrently.
	UpdateStatusIf(ctx context.Context, id int64, expected, next string) (int64, error)

	// RecordDecision stores the terminal decision of the pending line
	RecordDecision(ctx context.Context, id int64, status, comment string, actedAt time.Time) (int64, error)

	// SkipRemaining marks every non-terminal line of the document after
	// fromPosition as skipped. fromPosition -1 skips all non-terminal lines.
	SkipRemaining(ctx context.Context, documentID int64, fromPosition int) error
}

// ActionRepository defines persistence operations for the append-only
// ApprovalAction audit trail
type ActionRepository interface {
	Create(ctx context.Context, action *entity.ApprovalAction) error

	// GetByDocumentID returns the audit trail in chronological order
	GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalAction, error)
}

// PresetRepository defines persistence operations for ApprovalLinePreset
type PresetRepository interface {
	Create(ctx context.Context, preset *entity.ApprovalLinePreset) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error)
	GetByOwner(ctx context.Context, ownerID string) ([]*entity.ApprovalLinePreset, error)
	Update(ctx context.Context, preset *entity.ApprovalLinePreset) error
	Delete(ctx context.Context, id int64) error
}

// AttachmentRepository defines persistence operations for Attachment metadata
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetByID(ctx context.Context, id int64) (*entity.Attachment, error)
	GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionManager runs a function within a database transaction. The
// transaction is carried in the context so repositories join it transparently.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	"github.com/teamnova/groupware-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const documentColumns = `id, title, content, template_id, author_id, preservation_days,
		status, drafted_at, submitted_at, completed_at, created_at, updated_at`

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.ApprovalDocument) error {
	query := `
		INSERT INTO approval_documents (
			title, content, template_id, author_id, preservation_days,
			status, drafted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var templateID sql.NullString
	if doc.TemplateID != "" {
		templateID = sql.NullString{String: doc.TemplateID, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.Title,
		doc.Content,
		templateID,
		doc.AuthorID,
		doc.PreservationDays,
		doc.Status,
		doc.DraftedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document",
			zap.String("author_id", doc.AuthorID),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	return nil
}

// GetByID retrieves a document by its ID
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM approval_documents WHERE id = ?`

	doc, err := r.scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// Update rewrites the mutable draft fields of a document
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.ApprovalDocument) error {
	query := `
		UPDATE approval_documents
		SET title = ?, content = ?, template_id = ?, preservation_days = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var templateID sql.NullString
	if doc.TemplateID != "" {
		templateID = sql.NullString{String: doc.TemplateID, Valid: true}
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.Title,
		doc.Content,
		templateID,
		doc.PreservationDays,
		doc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update document",
			zap.Int64("id", doc.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update document: %w", err)
	}

	return nil
}

// Delete removes a document; lines, actions and attachments cascade
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM approval_documents WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete document",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}

	return nil
}

// UpdateStatusIf transitions status from expected to next. The WHERE clause on
// the expected status makes concurrent transitions lose with zero rows changed.
func (r *DocumentRepository) UpdateStatusIf(ctx context.Context, id int64, expected, next string, submittedAt, completedAt *time.Time) (int64, error) {
	query := `
		UPDATE approval_documents
		SET status = ?,
			submitted_at = COALESCE(?, submitted_at),
			completed_at = COALESCE(?, completed_at),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	var submitted, completed sql.NullTime
	if submittedAt != nil {
		submitted = sql.NullTime{Time: *submittedAt, Valid: true}
	}
	if completedAt != nil {
		completed = sql.NullTime{Time: *completedAt, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, next, submitted, completed, id, expected)
	if err != nil {
		r.logger.Error("Failed to update document status",
			zap.Int64("id", id),
			zap.String("expected", expected),
			zap.String("next", next),
			zap.Error(err))
		return 0, fmt.Errorf("failed to update document status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// FindAuthoredBy retrieves documents authored by a user, newest first
func (r *DocumentRepository) FindAuthoredBy(ctx context.Context, userID string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM approval_documents
		WHERE author_id = ?
		ORDER BY drafted_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to find documents by author",
			zap.String("author_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find authored documents: %w", err)
	}
	defer rows.Close()

	return r.scanDocuments(rows)
}

// FindPendingFor retrieves circulating documents whose pending line belongs to
// the user. This is the approval inbox query.
func (r *DocumentRepository) FindPendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error) {
	query := `
		SELECT d.id, d.title, d.content, d.template_id, d.author_id, d.preservation_days,
			d.status, d.drafted_at, d.submitted_at, d.completed_at, d.created_at, d.updated_at
		FROM approval_documents d
		JOIN approval_lines l ON l.document_id = d.id
		WHERE d.status = 'PENDING' AND l.approver_id = ? AND l.status = 'PENDING'
		ORDER BY d.submitted_at ASC, d.id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to find pending documents",
			zap.String("approver_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find pending documents: %w", err)
	}
	defer rows.Close()

	return r.scanDocuments(rows)
}

// FindCompleted retrieves terminal documents matching the filter
func (r *DocumentRepository) FindCompleted(ctx context.Context, filter port.CompletedFilter) ([]*entity.ApprovalDocument, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	} else {
		conditions = append(conditions, "status IN ('APPROVED', 'REJECTED', 'CANCELED')")
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, "author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.From != nil {
		conditions = append(conditions, "completed_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "completed_at < ?")
		args = append(args, *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + documentColumns + `
		FROM approval_documents
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY completed_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, filter.Offset)

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to find completed documents", zap.Error(err))
		return nil, fmt.Errorf("failed to find completed documents: %w", err)
	}
	defer rows.Close()

	return r.scanDocuments(rows)
}

// scanDocument scans a single document row
func (r *DocumentRepository) scanDocument(row *sql.Row) (*entity.ApprovalDocument, error) {
	var doc entity.ApprovalDocument
	var templateID sql.NullString
	var submittedAt, completedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.Title,
		&doc.Content,
		&templateID,
		&doc.AuthorID,
		&doc.PreservationDays,
		&doc.Status,
		&doc.DraftedAt,
		&submittedAt,
		&completedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if templateID.Valid {
		doc.TemplateID = templateID.String
	}
	if submittedAt.Valid {
		doc.SubmittedAt = &submittedAt.Time
	}
	if completedAt.Valid {
		doc.CompletedAt = &completedAt.Time
	}

	return &doc, nil
}

// scanDocuments scans multiple document rows
func (r *DocumentRepository) scanDocuments(rows *sql.Rows) ([]*entity.ApprovalDocument, error) {
	var docs []*entity.ApprovalDocument

	for rows.Next() {
		var doc entity.ApprovalDocument
		var templateID sql.NullString
		var submittedAt, completedAt sql.NullTime

		err := rows.Scan(
			&doc.ID,
			&doc.Title,
			&doc.Content,
			&templateID,
			&doc.AuthorID,
			&doc.PreservationDays,
			&doc.Status,
			&doc.DraftedAt,
			&submittedAt,
			&completedAt,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		if templateID.Valid {
			doc.TemplateID = templateID.String
		}
		if submittedAt.Valid {
			doc.SubmittedAt = &submittedAt.Time
		}
		if completedAt.Valid {
			doc.CompletedAt = &completedAt.Time
		}

		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *DocumentRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	"github.com/teamnova/groupware-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const lineColumns = `id, document_id, approver_id, position, approval_type,
		decision_type, status, comment, acted_at, created_at`

// LineRepository implements port.LineRepository
type LineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLineRepository creates a new line repository
func NewLineRepository(db *sql.DB, logger *zap.Logger) port.LineRepository {
	return &LineRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new approval line
func (r *LineRepository) Create(ctx context.Context, line *entity.ApprovalLine) error {
	query := `
		INSERT INTO approval_lines (
			document_id, approver_id, position, approval_type,
			decision_type, status
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		line.DocumentID,
		line.ApproverID,
		line.Position,
		line.ApprovalType,
		line.DecisionType,
		line.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create approval line",
			zap.Int64("document_id", line.DocumentID),
			zap.Int("position", line.Position),
			zap.Error(err))
		return fmt.Errorf("failed to create approval line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	line.ID = id
	return nil
}

// GetByID retrieves a line by its ID
func (r *LineRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalLine, error) {
	query := `SELECT ` + lineColumns + ` FROM approval_lines WHERE id = ?`

	line, err := r.scanLine(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval line by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval line: %w", err)
	}

	return line, nil
}

// GetByDocumentID retrieves all lines of a document ordered by position
func (r *LineRepository) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM approval_lines
		WHERE document_id = ?
		ORDER BY position
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get approval lines",
			zap.Int64("document_id", documentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval lines: %w", err)
	}
	defer rows.Close()

	return r.scanLines(rows)
}

// ReplaceForDocument deletes the document's lines and inserts the given ones
func (r *LineRepository) ReplaceForDocument(ctx context.Context, documentID int64, lines []*entity.ApprovalLine) error {
	exec := r.getExecutor(ctx)

	if _, err := exec.ExecContext(ctx, `DELETE FROM approval_lines WHERE document_id = ?`, documentID); err != nil {
		r.logger.Error("Failed to clear approval lines",
			zap.Int64("document_id", documentID),
			zap.Error(err))
		return fmt.Errorf("failed to clear approval lines: %w", err)
	}

	for _, line := range lines {
		line.DocumentID = documentID
		if err := r.Create(ctx, line); err != nil {
			return err
		}
	}

	return nil
}

// UpdateStatusIf moves a line from expected to next status. Zero rows changed
// means another actor got there first.
func (r *LineRepository) UpdateStatusIf(ctx context.Context, id int64, expected, next string) (int64, error) {
	query := `UPDATE approval_lines SET status = ? WHERE id = ? AND status = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, next, id, expected)
	if err != nil {
		r.logger.Error("Failed to update line status",
			zap.Int64("id", id),
			zap.String("expected", expected),
			zap.String("next", next),
			zap.Error(err))
		return 0, fmt.Errorf("failed to update line status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// RecordDecision stores the terminal decision of a pending line
func (r *LineRepository) RecordDecision(ctx context.Context, id int64, status, comment string, actedAt time.Time) (int64, error) {
	query := `
		UPDATE approval_lines
		SET status = ?, comment = ?, acted_at = ?
		WHERE id = ? AND status = 'PENDING'
	`

	var commentVal sql.NullString
	if comment != "" {
		commentVal = sql.NullString{String: comment, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, commentVal, actedAt, id)
	if err != nil {
		r.logger.Error("Failed to record line decision",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return 0, fmt.Errorf("failed to record line decision: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// SkipRemaining marks non-terminal lines after fromPosition as skipped.
// fromPosition -1 covers every non-terminal line of the document.
func (r *LineRepository) SkipRemaining(ctx context.Context, documentID int64, fromPosition int) error {
	query := `
		UPDATE approval_lines
		SET status = 'SKIPPED'
		WHERE document_id = ? AND position > ?
			AND status IN ('WAITING', 'PENDING')
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, documentID, fromPosition)
	if err != nil {
		r.logger.Error("Failed to skip remaining lines",
			zap.Int64("document_id", documentID),
			zap.Int("from_position", fromPosition),
			zap.Error(err))
		return fmt.Errorf("failed to skip remaining lines: %w", err)
	}

	return nil
}

// scanLine scans a single line row
func (r *LineRepository) scanLine(row *sql.Row) (*entity.ApprovalLine, error) {
	var line entity.ApprovalLine
	var comment sql.NullString
	var actedAt sql.NullTime

	err := row.Scan(
		&line.ID,
		&line.DocumentID,
		&line.ApproverID,
		&line.Position,
		&line.ApprovalType,
		&line.DecisionType,
		&line.Status,
		&comment,
		&actedAt,
		&line.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if comment.Valid {
		line.Comment = comment.String
	}
	if actedAt.Valid {
		line.ActedAt = &actedAt.Time
	}

	return &line, nil
}

// scanLines scans multiple line rows
func (r *LineRepository) scanLines(rows *sql.Rows) ([]*entity.ApprovalLine, error) {
	var lines []*entity.ApprovalLine

	for rows.Next() {
		var line entity.ApprovalLine
		var comment sql.NullString
		var actedAt sql.NullTime

		err := rows.Scan(
			&line.ID,
			&line.DocumentID,
			&line.ApproverID,
			&line.Position,
			&line.ApprovalType,
			&line.DecisionType,
			&line.Status,
			&comment,
			&actedAt,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval line: %w", err)
		}

		if comment.Valid {
			line.Comment = comment.String
		}
		if actedAt.Valid {
			line.ActedAt = &actedAt.Time
		}

		lines = append(lines, &line)
	}

	return lines, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *LineRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.LineRepository = (*LineRepository)(nil)

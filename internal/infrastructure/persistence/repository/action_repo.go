package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	"github.com/teamnova/groupware-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ActionRepository implements port.ActionRepository. The table is append-only;
// there are no update or delete operations.
type ActionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewActionRepository creates a new action repository
func NewActionRepository(db *sql.DB, logger *zap.Logger) port.ActionRepository {
	return &ActionRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an action to the document's audit trail
func (r *ActionRepository) Create(ctx context.Context, action *entity.ApprovalAction) error {
	query := `
		INSERT INTO approval_actions (document_id, actor_id, action, comment)
		VALUES (?, ?, ?, ?)
	`

	var comment sql.NullString
	if action.Comment != "" {
		comment = sql.NullString{String: action.Comment, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		action.DocumentID,
		action.ActorID,
		action.Action,
		comment,
	)
	if err != nil {
		r.logger.Error("Failed to create approval action",
			zap.Int64("document_id", action.DocumentID),
			zap.String("action", action.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create approval action: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	action.ID = id
	return nil
}

// GetByDocumentID retrieves the audit trail in chronological order
func (r *ActionRepository) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalAction, error) {
	query := `
		SELECT id, document_id, actor_id, action, comment, created_at
		FROM approval_actions
		WHERE document_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get approval actions",
			zap.Int64("document_id", documentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get approval actions: %w", err)
	}
	defer rows.Close()

	var actions []*entity.ApprovalAction
	for rows.Next() {
		var action entity.ApprovalAction
		var comment sql.NullString

		err := rows.Scan(
			&action.ID,
			&action.DocumentID,
			&action.ActorID,
			&action.Action,
			&comment,
			&action.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval action: %w", err)
		}

		if comment.Valid {
			action.Comment = comment.String
		}

		actions = append(actions, &action)
	}

	return actions, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *ActionRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.ActionRepository = (*ActionRepository)(nil)

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

// AttachmentRepository implements port.AttachmentRepository
type AttachmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *sql.DB, logger *zap.Logger) port.AttachmentRepository {
	return &AttachmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts attachment metadata
func (r *AttachmentRepository) Create(ctx context.Context, att *entity.Attachment) error {
	query := `
		INSERT INTO approval_attachments (
			document_id, file_name, file_size, content_type, storage_key
		) VALUES (?, ?, ?, ?, ?)
	`

	var contentType, storageKey sql.NullString
	if att.ContentType != "" {
		contentType = sql.NullString{String: att.ContentType, Valid: true}
	}
	if att.StorageKey != "" {
		storageKey = sql.NullString{String: att.StorageKey, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		att.DocumentID,
		att.FileName,
		att.FileSize,
		contentType,
		storageKey,
	)
	if err != nil {
		r.logger.Error("Failed to create attachment",
			zap.Int64("document_id", att.DocumentID),
			zap.String("file_name", att.FileName),
			zap.Error(err))
		return fmt.Errorf("failed to create attachment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// GetByID retrieves an attachment by its ID
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*entity.Attachment, error) {
	query := `
		SELECT id, document_id, file_name, file_size, content_type, storage_key, created_at
		FROM approval_attachments
		WHERE id = ?
	`

	att, err := r.scanAttachment(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get attachment by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}

	return att, nil
}

// GetByDocumentID retrieves a document's attachments in upload order
func (r *AttachmentRepository) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.Attachment, error) {
	query := `
		SELECT id, document_id, file_name, file_size, content_type, storage_key, created_at
		FROM approval_attachments
		WHERE document_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get attachments",
			zap.Int64("document_id", documentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*entity.Attachment
	for rows.Next() {
		var att entity.Attachment
		var contentType, storageKey sql.NullString

		err := rows.Scan(
			&att.ID,
			&att.DocumentID,
			&att.FileName,
			&att.FileSize,
			&contentType,
			&storageKey,
			&att.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}

		if contentType.Valid {
			att.ContentType = contentType.String
		}
		if storageKey.Valid {
			att.StorageKey = storageKey.String
		}

		attachments = append(attachments, &att)
	}

	return attachments, rows.Err()
}

// Delete removes attachment metadata
func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`DELETE FROM approval_attachments WHERE id = ?`, id,
	)
	if err != nil {
		r.logger.Error("Failed to delete attachment",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete attachment: %w", err)
	}

	return nil
}

// scanAttachment scans a single attachment row
func (r *AttachmentRepository) scanAttachment(row *sql.Row) (*entity.Attachment, error) {
	var att entity.Attachment
	var contentType, storageKey sql.NullString

	err := row.Scan(
		&att.ID,
		&att.DocumentID,
		&att.FileName,
		&att.FileSize,
		&contentType,
		&storageKey,
		&att.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if contentType.Valid {
		att.ContentType = contentType.String
	}
	if storageKey.Valid {
		att.StorageKey = storageKey.String
	}

	return &att, nil
}

// getExecutor returns appropriate executor based on context
func (r *AttachmentRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.AttachmentRepository = (*AttachmentRepository)(nil)

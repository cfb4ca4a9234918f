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

// PresetRepository implements port.PresetRepository. Entries are stored in a
// child table and always loaded with their preset.
type PresetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPresetRepository creates a new preset repository
func NewPresetRepository(db *sql.DB, logger *zap.Logger) port.PresetRepository {
	return &PresetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a preset together with its entries
func (r *PresetRepository) Create(ctx context.Context, preset *entity.ApprovalLinePreset) error {
	exec := r.getExecutor(ctx)

	result, err := exec.ExecContext(ctx,
		`INSERT INTO approval_line_presets (owner_id, name) VALUES (?, ?)`,
		preset.OwnerID, preset.Name,
	)
	if err != nil {
		r.logger.Error("Failed to create preset",
			zap.String("owner_id", preset.OwnerID),
			zap.Error(err))
		return fmt.Errorf("failed to create preset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	preset.ID = id

	if err := r.insertEntries(ctx, preset.ID, preset.Entries); err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a preset with its entries
func (r *PresetRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM approval_line_presets
		WHERE id = ?
	`

	var preset entity.ApprovalLinePreset
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&preset.ID,
		&preset.OwnerID,
		&preset.Name,
		&preset.CreatedAt,
		&preset.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get preset by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}

	entries, err := r.loadEntries(ctx, preset.ID)
	if err != nil {
		return nil, err
	}
	preset.Entries = entries

	return &preset, nil
}

// GetByOwner retrieves all presets of a user, newest first
func (r *PresetRepository) GetByOwner(ctx context.Context, ownerID string) ([]*entity.ApprovalLinePreset, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM approval_line_presets
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to get presets by owner",
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get presets: %w", err)
	}
	defer rows.Close()

	var presets []*entity.ApprovalLinePreset
	for rows.Next() {
		var preset entity.ApprovalLinePreset
		err := rows.Scan(
			&preset.ID,
			&preset.OwnerID,
			&preset.Name,
			&preset.CreatedAt,
			&preset.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, &preset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, preset := range presets {
		entries, err := r.loadEntries(ctx, preset.ID)
		if err != nil {
			return nil, err
		}
		preset.Entries = entries
	}

	return presets, nil
}

// Update rewrites a preset's name and replaces its entries
func (r *PresetRepository) Update(ctx context.Context, preset *entity.ApprovalLinePreset) error {
	exec := r.getExecutor(ctx)

	_, err := exec.ExecContext(ctx,
		`UPDATE approval_line_presets SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		preset.Name, preset.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update preset",
			zap.Int64("id", preset.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update preset: %w", err)
	}

	if _, err := exec.ExecContext(ctx,
		`DELETE FROM approval_line_preset_entries WHERE preset_id = ?`, preset.ID,
	); err != nil {
		return fmt.Errorf("failed to clear preset entries: %w", err)
	}

	return r.insertEntries(ctx, preset.ID, preset.Entries)
}

// Delete removes a preset; entries cascade
func (r *PresetRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`DELETE FROM approval_line_presets WHERE id = ?`, id,
	)
	if err != nil {
		r.logger.Error("Failed to delete preset",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete preset: %w", err)
	}

	return nil
}

func (r *PresetRepository) insertEntries(ctx context.Context, presetID int64, entries []*entity.PresetEntry) error {
	exec := r.getExecutor(ctx)

	for _, entry := range entries {
		result, err := exec.ExecContext(ctx, `
			INSERT INTO approval_line_preset_entries (
				preset_id, approver_id, position, approval_type, decision_type
			) VALUES (?, ?, ?, ?, ?)`,
			presetID,
			entry.ApproverID,
			entry.Position,
			entry.ApprovalType,
			entry.DecisionType,
		)
		if err != nil {
			r.logger.Error("Failed to create preset entry",
				zap.Int64("preset_id", presetID),
				zap.Int("position", entry.Position),
				zap.Error(err))
			return fmt.Errorf("failed to create preset entry: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		entry.ID = id
		entry.PresetID = presetID
	}

	return nil
}

func (r *PresetRepository) loadEntries(ctx context.Context, presetID int64) ([]*entity.PresetEntry, error) {
	query := `
		SELECT id, preset_id, approver_id, position, approval_type, decision_type
		FROM approval_line_preset_entries
		WHERE preset_id = ?
		ORDER BY position
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, presetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preset entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.PresetEntry
	for rows.Next() {
		var entry entity.PresetEntry
		err := rows.Scan(
			&entry.ID,
			&entry.PresetID,
			&entry.ApproverID,
			&entry.Position,
			&entry.ApprovalType,
			&entry.DecisionType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *PresetRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.PresetRepository = (*PresetRepository)(nil)

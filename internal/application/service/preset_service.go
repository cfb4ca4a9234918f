package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// PresetInput carries a preset create or update
type PresetInput struct {
	Name    string      `json:"name"`
	Entries []LineInput `json:"entries"`
}

// ApplyResult is the outcome of copying a preset onto a draft. Warnings list
// approvers the directory no longer knows; they are surfaced, not rejected.
type ApplyResult struct {
	Lines    []*entity.ApprovalLine `json:"lines"`
	Warnings []string               `json:"warnings,omitempty"`
}

// PresetService manages reusable approval-line orderings
type PresetService interface {
	Create(ctx context.Context, ownerID string, input PresetInput) (*entity.ApprovalLinePreset, error)
	Get(ctx context.Context, id int64, ownerID string) (*entity.ApprovalLinePreset, error)
	List(ctx context.Context, ownerID string) ([]*entity.ApprovalLinePreset, error)
	Update(ctx context.Context, id int64, ownerID string, input PresetInput) (*entity.ApprovalLinePreset, error)
	Delete(ctx context.Context, id int64, ownerID string) error

	// Apply copies the preset's entries onto a draft as fresh lines,
	// replacing any existing ones. Order is preserved; approvers missing
	// from the directory produce warnings.
	Apply(ctx context.Context, presetID, documentID int64, actorID string) (*ApplyResult, error)
}

type presetServiceImpl struct {
	presetRepo port.PresetRepository
	docRepo    port.DocumentRepository
	lineRepo   port.LineRepository
	directory  port.Directory
	txManager  port.TransactionManager
	logger     Logger
}

// NewPresetService creates a new PresetService
func NewPresetService(
	presetRepo port.PresetRepository,
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	directory port.Directory,
	txManager port.TransactionManager,
	logger Logger,
) PresetService {
	return &presetServiceImpl{
		presetRepo: presetRepo,
		docRepo:    docRepo,
		lineRepo:   lineRepo,
		directory:  directory,
		txManager:  txManager,
		logger:     logger,
	}
}

// Create validates and stores a new preset for the owner
func (s *presetServiceImpl) Create(ctx context.Context, ownerID string, input PresetInput) (*entity.ApprovalLinePreset, error) {
	entries, err := buildEntries(input)
	if err != nil {
		return nil, err
	}

	preset := &entity.ApprovalLinePreset{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(input.Name),
		Entries: entries,
	}
	if err := s.presetRepo.Create(ctx, preset); err != nil {
		s.logger.Error("Failed to create preset", "error", err, "owner", ownerID)
		return nil, err
	}

	s.logger.Info("Preset created", "id", preset.ID, "owner", ownerID)
	return preset, nil
}

// Get returns the owner's preset
func (s *presetServiceImpl) Get(ctx context.Context, id int64, ownerID string) (*entity.ApprovalLinePreset, error) {
	return s.requireOwned(ctx, id, ownerID)
}

// List returns all presets of the owner
func (s *presetServiceImpl) List(ctx context.Context, ownerID string) ([]*entity.ApprovalLinePreset, error) {
	return s.presetRepo.GetByOwner(ctx, ownerID)
}

// Update replaces the preset name and entries
func (s *presetServiceImpl) Update(ctx context.Context, id int64, ownerID string, input PresetInput) (*entity.ApprovalLinePreset, error) {
	preset, err := s.requireOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	entries, err := buildEntries(input)
	if err != nil {
		return nil, err
	}

	preset.Name = strings.TrimSpace(input.Name)
	preset.Entries = entries
	if err := s.presetRepo.Update(ctx, preset); err != nil {
		return nil, err
	}

	s.logger.Info("Preset updated", "id", id, "owner", ownerID)
	return preset, nil
}

// Delete removes the owner's preset
func (s *presetServiceImpl) Delete(ctx context.Context, id int64, ownerID string) error {
	if _, err := s.requireOwned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.presetRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Preset deleted", "id", id, "owner", ownerID)
	return nil
}

// Apply copies preset entries onto the actor's draft as fresh lines
func (s *presetServiceImpl) Apply(ctx context.Context, presetID, documentID int64, actorID string) (*ApplyResult, error) {
	preset, err := s.requireOwned(ctx, presetID, actorID)
	if err != nil {
		return nil, err
	}

	var result *ApplyResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.GetByID(txCtx, documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: document %d", domainwf.ErrNotFound, documentID)
		}
		if doc.AuthorID != actorID {
			return fmt.Errorf("%w: document %d belongs to %s", domainwf.ErrNotAuthorized, documentID, doc.AuthorID)
		}
		if doc.Status != entity.DocumentStatusDraft {
			return fmt.Errorf("%w: document %d is %s, lines are frozen", domainwf.ErrInvalidState, documentID, doc.Status)
		}

		lines := make([]*entity.ApprovalLine, 0, len(preset.Entries))
		var warnings []string
		for _, entry := range preset.Entries {
			// Stale approvers are allowed: presets outlive org changes.
			exists, err := s.directory.UserExists(txCtx, entry.ApproverID)
			if err != nil {
				return fmt.Errorf("directory lookup for %s: %w", entry.ApproverID, err)
			}
			if !exists {
				warnings = append(warnings, fmt.Sprintf("approver %q not found in directory", entry.ApproverID))
			}

			lines = append(lines, &entity.ApprovalLine{
				DocumentID:   documentID,
				ApproverID:   entry.ApproverID,
				Position:     entry.Position,
				ApprovalType: entry.ApprovalType,
				DecisionType: entry.DecisionType,
				Status:       entity.LineStatusWaiting,
			})
		}

		if err := s.lineRepo.ReplaceForDocument(txCtx, documentID, lines); err != nil {
			return fmt.Errorf("replace lines: %w", err)
		}

		result = &ApplyResult{Lines: lines, Warnings: warnings}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Preset applied",
		"preset_id", presetID,
		"document_id", documentID,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// requireOwned loads a preset and verifies ownership
func (s *presetServiceImpl) requireOwned(ctx context.Context, id int64, ownerID string) (*entity.ApprovalLinePreset, error) {
	preset, err := s.presetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if preset == nil {
		return nil, fmt.Errorf("%w: preset %d", domainwf.ErrNotFound, id)
	}
	if preset.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: preset %d belongs to %s", domainwf.ErrNotAuthorized, id, preset.OwnerID)
	}
	return preset, nil
}

// buildEntries validates a preset input and assigns entry positions
func buildEntries(input PresetInput) ([]*entity.PresetEntry, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, domainwf.NewValidationError("name", "name must not be empty")
	}
	if len(input.Entries) == 0 {
		return nil, domainwf.NewValidationError("entries", "preset needs at least one entry")
	}

	entries := make([]*entity.PresetEntry, 0, len(input.Entries))
	for i, in := range input.Entries {
		if strings.TrimSpace(in.ApproverID) == "" {
			return nil, domainwf.NewValidationError("entries", fmt.Sprintf("entry %d: approver_id must not be empty", i))
		}

		approvalType := in.ApprovalType
		if approvalType == "" {
			approvalType = entity.ApprovalTypeApproval
		}
		if !entity.ValidApprovalType(approvalType) {
			return nil, domainwf.NewValidationError("entries", fmt.Sprintf("entry %d: unknown approval_type %q", i, in.ApprovalType))
		}

		decisionType := in.DecisionType
		if decisionType == "" {
			decisionType = entity.DecisionTypeApproval
		}
		if !entity.ValidDecisionType(decisionType) {
			return nil, domainwf.NewValidationError("entries", fmt.Sprintf("entry %d: unknown decision_type %q", i, in.DecisionType))
		}

		entries = append(entries, &entity.PresetEntry{
			ApproverID:   in.ApproverID,
			Position:     i,
			ApprovalType: approvalType,
			DecisionType: decisionType,
		})
	}
	return entries, nil
}

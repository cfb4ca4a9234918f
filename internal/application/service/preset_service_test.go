package service

import (
	"context"
	"errors"
	"testing"

	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

func newTestPresetService(presetRepo *mockPresetRepo, docRepo *mockDocRepo, lineRepo *mockLineRepo, dir *mockDirectory) PresetService {
	return NewPresetService(presetRepo, docRepo, lineRepo, dir, &mockTxManager{}, &mockLogger{})
}

func twoEntryPreset(owner string) *entity.ApprovalLinePreset {
	return &entity.ApprovalLinePreset{
		ID:      1,
		OwnerID: owner,
		Name:    "Standard chain",
		Entries: []*entity.PresetEntry{
			{ApproverID: "alice", Position: 0, ApprovalType: entity.ApprovalTypeApproval, DecisionType: entity.DecisionTypeApproval},
			{ApproverID: "bob", Position: 1, ApprovalType: entity.ApprovalTypeReference, DecisionType: entity.DecisionTypeApproval},
		},
	}
}

func TestPresetService_Create(t *testing.T) {
	t.Run("stores entries in input order", func(t *testing.T) {
		var created *entity.ApprovalLinePreset
		presetRepo := &mockPresetRepo{
			createFunc: func(ctx context.Context, preset *entity.ApprovalLinePreset) error {
				preset.ID = 7
				created = preset
				return nil
			},
		}
		svc := newTestPresetService(presetRepo, &mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})

		preset, err := svc.Create(context.Background(), "owner", PresetInput{
			Name: "Standard chain",
			Entries: []LineInput{
				{ApproverID: "alice"},
				{ApproverID: "bob", ApprovalType: entity.ApprovalTypeReference},
			},
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if preset.ID != 7 || preset.OwnerID != "owner" {
			t.Errorf("unexpected preset: %+v", preset)
		}
		if len(created.Entries) != 2 {
			t.Fatalf("stored %d entries, want 2", len(created.Entries))
		}
		if created.Entries[0].Position != 0 || created.Entries[1].Position != 1 {
			t.Errorf("positions not assigned in input order: %+v", created.Entries)
		}
		if created.Entries[0].DecisionType != entity.DecisionTypeApproval {
			t.Errorf("default DecisionType = %s", created.Entries[0].DecisionType)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		svc := newTestPresetService(&mockPresetRepo{}, &mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		_, err := svc.Create(context.Background(), "owner", PresetInput{Entries: []LineInput{{ApproverID: "a"}}})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects empty entry list", func(t *testing.T) {
		svc := newTestPresetService(&mockPresetRepo{}, &mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		_, err := svc.Create(context.Background(), "owner", PresetInput{Name: "x"})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestPresetService_OwnershipChecks(t *testing.T) {
	presetRepo := &mockPresetRepo{
		getFunc: func(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error) {
			return twoEntryPreset("owner"), nil
		},
	}
	svc := newTestPresetService(presetRepo, &mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})

	if _, err := svc.Get(context.Background(), 1, "intruder"); !errors.Is(err, domainwf.ErrNotAuthorized) {
		t.Errorf("Get: error = %v, want ErrNotAuthorized", err)
	}
	if err := svc.Delete(context.Background(), 1, "intruder"); !errors.Is(err, domainwf.ErrNotAuthorized) {
		t.Errorf("Delete: error = %v, want ErrNotAuthorized", err)
	}
	if _, err := svc.Get(context.Background(), 1, "owner"); err != nil {
		t.Errorf("Get by owner failed: %v", err)
	}
}

func TestPresetService_Get_NotFound(t *testing.T) {
	svc := newTestPresetService(&mockPresetRepo{}, &mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
	_, err := svc.Get(context.Background(), 42, "owner")
	if !errors.Is(err, domainwf.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPresetService_Apply(t *testing.T) {
	presetRepo := &mockPresetRepo{
		getFunc: func(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error) {
			return twoEntryPreset("author"), nil
		},
	}

	t.Run("copies entries onto draft", func(t *testing.T) {
		var replaced []*entity.ApprovalLine
		lineRepo := &mockLineRepo{
			replaceFunc: func(ctx context.Context, documentID int64, lines []*entity.ApprovalLine) error {
				replaced = lines
				return nil
			},
		}
		svc := newTestPresetService(presetRepo, &mockDocRepo{}, lineRepo, &mockDirectory{})

		result, err := svc.Apply(context.Background(), 1, 10, "author")
		if err != nil {
			t.Fatalf("Apply() failed: %v", err)
		}
		if len(result.Warnings) != 0 {
			t.Errorf("unexpected warnings: %v", result.Warnings)
		}
		if len(replaced) != 2 {
			t.Fatalf("replaced %d lines, want 2", len(replaced))
		}
		if replaced[0].ApproverID != "alice" || replaced[0].Status != entity.LineStatusWaiting {
			t.Errorf("unexpected first line: %+v", replaced[0])
		}
		if replaced[1].ApprovalType != entity.ApprovalTypeReference {
			t.Errorf("ApprovalType = %s, want REFERENCE", replaced[1].ApprovalType)
		}
	})

	t.Run("stale approver warns, does not fail", func(t *testing.T) {
		dir := &mockDirectory{
			userExistsFunc: func(ctx context.Context, userID string) (bool, error) {
				return userID != "bob", nil
			},
		}
		svc := newTestPresetService(presetRepo, &mockDocRepo{}, &mockLineRepo{}, dir)

		result, err := svc.Apply(context.Background(), 1, 10, "author")
		if err != nil {
			t.Fatalf("Apply() failed: %v", err)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("warnings = %v, want one for bob", result.Warnings)
		}
		if len(result.Lines) != 2 {
			t.Errorf("stale approver dropped from lines: %+v", result.Lines)
		}
	})

	t.Run("only the document author may apply", func(t *testing.T) {
		otherOwner := &mockPresetRepo{
			getFunc: func(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error) {
				return twoEntryPreset("intruder"), nil
			},
		}
		svc := newTestPresetService(otherOwner, &mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})

		_, err := svc.Apply(context.Background(), 1, 10, "intruder")
		if !errors.Is(err, domainwf.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("circulating document is frozen", func(t *testing.T) {
		docRepo := &mockDocRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
				return &entity.ApprovalDocument{ID: id, AuthorID: "author", Status: entity.DocumentStatusPending}, nil
			},
		}
		svc := newTestPresetService(presetRepo, docRepo, &mockLineRepo{}, &mockDirectory{})

		_, err := svc.Apply(context.Background(), 1, 10, "author")
		if !errors.Is(err, domainwf.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})
}

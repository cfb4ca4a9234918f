package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LineInput is one approver slot supplied by the client when drafting
type LineInput struct {
	ApproverID   string `json:"approver_id"`
	ApprovalType string `json:"approval_type"`
	DecisionType string `json:"decision_type"`
}

// CreateDocumentInput carries a new draft
type CreateDocumentInput struct {
	Title            string      `json:"title"`
	Content          string      `json:"content"`
	TemplateID       string      `json:"template_id"`
	PreservationDays int         `json:"preservation_days"`
	Lines            []LineInput `json:"lines"`
}

// UpdateDocumentInput mutates a draft. Nil fields are left untouched; a
// non-nil Lines replaces the whole approver sequence.
type UpdateDocumentInput struct {
	Title            *string      `json:"title"`
	Content          *string      `json:"content"`
	TemplateID       *string      `json:"template_id"`
	PreservationDays *int         `json:"preservation_days"`
	Lines            *[]LineInput `json:"lines"`
}

// AttachmentInput carries attachment metadata plus optional content. Content
// travels base64-encoded in JSON.
type AttachmentInput struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// DocumentDetail aggregates everything a document view needs
type DocumentDetail struct {
	Document    *entity.ApprovalDocument `json:"document"`
	Lines       []*entity.ApprovalLine   `json:"lines"`
	Actions     []*entity.ApprovalAction `json:"actions"`
	Attachments []*entity.Attachment     `json:"attachments"`
}

// DocumentService manages drafts and read projections. All transition logic
// lives in the workflow engine; this service never touches line statuses of a
// circulating document.
type DocumentService interface {
	Create(ctx context.Context, authorID string, input CreateDocumentInput) (*DocumentDetail, error)
	Update(ctx context.Context, id int64, actorID string, input UpdateDocumentInput) (*DocumentDetail, error)
	Get(ctx context.Context, id int64) (*DocumentDetail, error)
	Delete(ctx context.Context, id int64, actorID string) error

	ListPendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error)
	ListAuthoredBy(ctx context.Context, userID string, limit, offset int) ([]*entity.ApprovalDocument, error)
	ListCompleted(ctx context.Context, filter port.CompletedFilter) ([]*entity.ApprovalDocument, error)

	AddAttachment(ctx context.Context, documentID int64, actorID string, input AttachmentInput) (*entity.Attachment, error)
	GetAttachmentContent(ctx context.Context, documentID, attachmentID int64) (*entity.Attachment, []byte, error)
	RemoveAttachment(ctx context.Context, documentID, attachmentID int64, actorID string) error
}

type documentServiceImpl struct {
	docRepo    port.DocumentRepository
	lineRepo   port.LineRepository
	actionRepo port.ActionRepository
	attRepo    port.AttachmentRepository
	blobs      port.BlobStore
	directory  port.Directory
	txManager  port.TransactionManager
	logger     Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	actionRepo port.ActionRepository,
	attRepo port.AttachmentRepository,
	blobs port.BlobStore,
	directory port.Directory,
	txManager port.TransactionManager,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		docRepo:    docRepo,
		lineRepo:   lineRepo,
		actionRepo: actionRepo,
		attRepo:    attRepo,
		blobs:      blobs,
		directory:  directory,
		txManager:  txManager,
		logger:     logger,
	}
}

// Create validates the input and persists a new draft with its lines
func (s *documentServiceImpl) Create(ctx context.Context, authorID string, input CreateDocumentInput) (*DocumentDetail, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, domainwf.NewValidationError("title", "title must not be empty")
	}
	if input.PreservationDays < 0 {
		return nil, domainwf.NewValidationError("preservation_days", "must not be negative")
	}

	lines, err := s.buildLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	doc := &entity.ApprovalDocument{
		Title:            strings.TrimSpace(input.Title),
		Content:          input.Content,
		TemplateID:       input.TemplateID,
		AuthorID:         authorID,
		PreservationDays: input.PreservationDays,
		Status:           entity.DocumentStatusDraft,
		DraftedAt:        time.Now(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		for _, line := range lines {
			line.DocumentID = doc.ID
			if err := s.lineRepo.Create(txCtx, line); err != nil {
				return fmt.Errorf("create line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create document", "error", err, "author", authorID)
		return nil, err
	}

	s.logger.Info("Document drafted", "id", doc.ID, "author", authorID)
	return &DocumentDetail{Document: doc, Lines: lines}, nil
}

// Update mutates a draft; only the author while the document is still a draft
func (s *documentServiceImpl) Update(ctx context.Context, id int64, actorID string, input UpdateDocumentInput) (*DocumentDetail, error) {
	var detail *DocumentDetail

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.requireDraft(txCtx, id, actorID)
		if err != nil {
			return err
		}

		if input.Title != nil {
			if strings.TrimSpace(*input.Title) == "" {
				return domainwf.NewValidationError("title", "title must not be empty")
			}
			doc.Title = strings.TrimSpace(*input.Title)
		}
		if input.Content != nil {
			doc.Content = *input.Content
		}
		if input.TemplateID != nil {
			doc.TemplateID = *input.TemplateID
		}
		if input.PreservationDays != nil {
			if *input.PreservationDays < 0 {
				return domainwf.NewValidationError("preservation_days", "must not be negative")
			}
			doc.PreservationDays = *input.PreservationDays
		}

		if err := s.docRepo.Update(txCtx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		lines, err := s.lineRepo.GetByDocumentID(txCtx, id)
		if err != nil {
			return err
		}
		if input.Lines != nil {
			replacement, err := s.buildLines(txCtx, *input.Lines)
			if err != nil {
				return err
			}
			if err := s.lineRepo.ReplaceForDocument(txCtx, id, replacement); err != nil {
				return fmt.Errorf("replace lines: %w", err)
			}
			lines = replacement
		}

		detail = &DocumentDetail{Document: doc, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Draft updated", "id", id, "actor", actorID)
	return detail, nil
}

// Get loads the full document view: lines, audit trail and attachments
func (s *documentServiceImpl) Get(ctx context.Context, id int64) (*DocumentDetail, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, id)
	}

	lines, err := s.lineRepo.GetByDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}
	actions, err := s.actionRepo.GetByDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attRepo.GetByDocumentID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &DocumentDetail{
		Document:    doc,
		Lines:       lines,
		Actions:     actions,
		Attachments: attachments,
	}, nil
}

// Delete removes a draft; circulating and completed documents are kept
func (s *documentServiceImpl) Delete(ctx context.Context, id int64, actorID string) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.requireDraft(txCtx, id, actorID); err != nil {
			return err
		}
		if err := s.docRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		s.logger.Info("Draft deleted", "id", id, "actor", actorID)
		return nil
	})
}

// ListPendingFor returns the user's approval inbox
func (s *documentServiceImpl) ListPendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error) {
	return s.docRepo.FindPendingFor(ctx, userID)
}

// ListAuthoredBy returns documents drafted by the user, newest first
func (s *documentServiceImpl) ListAuthoredBy(ctx context.Context, userID string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	return s.docRepo.FindAuthoredBy(ctx, userID, limit, offset)
}

// ListCompleted returns the terminal-document archive
func (s *documentServiceImpl) ListCompleted(ctx context.Context, filter port.CompletedFilter) ([]*entity.ApprovalDocument, error) {
	if filter.Status != "" {
		switch filter.Status {
		case entity.DocumentStatusApproved, entity.DocumentStatusRejected, entity.DocumentStatusCanceled:
		default:
			return nil, domainwf.NewValidationError("status", "must be a terminal status")
		}
	}
	return s.docRepo.FindCompleted(ctx, filter)
}

// AddAttachment stores attachment content and binds its metadata to a draft
func (s *documentServiceImpl) AddAttachment(ctx context.Context, documentID int64, actorID string, input AttachmentInput) (*entity.Attachment, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, domainwf.NewValidationError("file_name", "file name must not be empty")
	}

	att := &entity.Attachment{
		DocumentID:  documentID,
		FileName:    input.FileName,
		FileSize:    int64(len(input.Content)),
		ContentType: input.ContentType,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.requireDraft(txCtx, documentID, actorID); err != nil {
			return err
		}

		if len(input.Content) > 0 {
			att.StorageKey = fmt.Sprintf("documents/%d/%s", documentID, input.FileName)
			if err := s.blobs.Save(txCtx, att.StorageKey, input.Content); err != nil {
				return fmt.Errorf("store attachment content: %w", err)
			}
		}

		return s.attRepo.Create(txCtx, att)
	})
	if err != nil {
		return nil, err
	}

	return att, nil
}

// GetAttachmentContent loads attachment metadata and its stored content
func (s *documentServiceImpl) GetAttachmentContent(ctx context.Context, documentID, attachmentID int64) (*entity.Attachment, []byte, error) {
	att, err := s.attRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	if att == nil || att.DocumentID != documentID {
		return nil, nil, fmt.Errorf("%w: attachment %d", domainwf.ErrNotFound, attachmentID)
	}
	if att.StorageKey == "" {
		return nil, nil, fmt.Errorf("%w: attachment %d has no stored content", domainwf.ErrNotFound, attachmentID)
	}

	content, err := s.blobs.Read(ctx, att.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("read attachment content: %w", err)
	}

	return att, content, nil
}

// RemoveAttachment detaches file metadata from a draft and drops its content
func (s *documentServiceImpl) RemoveAttachment(ctx context.Context, documentID, attachmentID int64, actorID string) error {
	var storageKey string

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.requireDraft(txCtx, documentID, actorID); err != nil {
			return err
		}
		att, err := s.attRepo.GetByID(txCtx, attachmentID)
		if err != nil {
			return err
		}
		if att == nil || att.DocumentID != documentID {
			return fmt.Errorf("%w: attachment %d", domainwf.ErrNotFound, attachmentID)
		}
		storageKey = att.StorageKey
		return s.attRepo.Delete(txCtx, attachmentID)
	})
	if err != nil {
		return err
	}

	// Content removal is best effort once the metadata row is gone
	if storageKey != "" {
		if err := s.blobs.Delete(ctx, storageKey); err != nil {
			s.logger.Error("Failed to delete attachment content",
				"storage_key", storageKey, "error", err)
		}
	}

	return nil
}

// requireDraft loads the document and checks it is the actor's mutable draft
func (s *documentServiceImpl) requireDraft(ctx context.Context, id int64, actorID string) (*entity.ApprovalDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, id)
	}
	if doc.AuthorID != actorID {
		return nil, fmt.Errorf("%w: document %d belongs to %s", domainwf.ErrNotAuthorized, id, doc.AuthorID)
	}
	if doc.Status != entity.DocumentStatusDraft {
		return nil, fmt.Errorf("%w: document %d is %s, structure is frozen", domainwf.ErrInvalidState, id, doc.Status)
	}
	return doc, nil
}

// buildLines validates line inputs against the org directory and assigns
// positions in input order
func (s *documentServiceImpl) buildLines(ctx context.Context, inputs []LineInput) ([]*entity.ApprovalLine, error) {
	lines := make([]*entity.ApprovalLine, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.ApproverID) == "" {
			return nil, domainwf.NewValidationError("lines", fmt.Sprintf("line %d: approver_id must not be empty", i))
		}

		approvalType := in.ApprovalType
		if approvalType == "" {
			approvalType = entity.ApprovalTypeApproval
		}
		if !entity.ValidApprovalType(approvalType) {
			return nil, domainwf.NewValidationError("lines", fmt.Sprintf("line %d: unknown approval_type %q", i, in.ApprovalType))
		}

		decisionType := in.DecisionType
		if decisionType == "" {
			decisionType = entity.DecisionTypeApproval
		}
		if !entity.ValidDecisionType(decisionType) {
			return nil, domainwf.NewValidationError("lines", fmt.Sprintf("line %d: unknown decision_type %q", i, in.DecisionType))
		}

		exists, err := s.directory.UserExists(ctx, in.ApproverID)
		if err != nil {
			return nil, fmt.Errorf("directory lookup for %s: %w", in.ApproverID, err)
		}
		if !exists {
			return nil, domainwf.NewValidationError("lines", fmt.Sprintf("line %d: unknown approver %q", i, in.ApproverID))
		}

		lines = append(lines, &entity.ApprovalLine{
			ApproverID:   in.ApproverID,
			Position:     i,
			ApprovalType: approvalType,
			DecisionType: decisionType,
			Status:       entity.LineStatusWaiting,
		})
	}
	return lines, nil
}

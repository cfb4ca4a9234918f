package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// Mock repositories

type mockDocRepo struct {
	createFunc        func(ctx context.Context, doc *entity.ApprovalDocument) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.ApprovalDocument, error)
	updateFunc        func(ctx context.Context, doc *entity.ApprovalDocument) error
	deleteFunc        func(ctx context.Context, id int64) error
	findCompletedFunc func(ctx context.Context, filter port.CompletedFilter) ([]*entity.ApprovalDocument, error)
}

func (m *mockDocRepo) Create(ctx context.Context, doc *entity.ApprovalDocument) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	doc.ID = 1
	return nil
}

func (m *mockDocRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.ApprovalDocument{ID: id, AuthorID: "author", Status: entity.DocumentStatusDraft}, nil
}

func (m *mockDocRepo) Update(ctx context.Context, doc *entity.ApprovalDocument) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, doc)
	}
	return nil
}

func (m *mockDocRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockDocRepo) UpdateStatusIf(ctx context.Context, id int64, expected, next string, submittedAt, completedAt *time.Time) (int64, error) {
	return 1, nil
}

func (m *mockDocRepo) FindAuthoredBy(ctx context.Context, userID string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	return []*entity.ApprovalDocument{}, nil
}

func (m *mockDocRepo) FindPendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error) {
	return []*entity.ApprovalDocument{}, nil
}

func (m *mockDocRepo) FindCompleted(ctx context.Context, filter port.CompletedFilter) ([]*entity.ApprovalDocument, error) {
	if m.findCompletedFunc != nil {
		return m.findCompletedFunc(ctx, filter)
	}
	return []*entity.ApprovalDocument{}, nil
}

type mockLineRepo struct {
	createFunc           func(ctx context.Context, line *entity.ApprovalLine) error
	getByDocumentIDFunc  func(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error)
	replaceFunc          func(ctx context.Context, documentID int64, lines []*entity.ApprovalLine) error
}

func (m *mockLineRepo) Create(ctx context.Context, line *entity.ApprovalLine) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, line)
	}
	return nil
}

func (m *mockLineRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalLine, error) {
	return &entity.ApprovalLine{ID: id}, nil
}

func (m *mockLineRepo) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error) {
	if m.getByDocumentIDFunc != nil {
		return m.getByDocumentIDFunc(ctx, documentID)
	}
	return []*entity.ApprovalLine{}, nil
}

func (m *mockLineRepo) ReplaceForDocument(ctx context.Context, documentID int64, lines []*entity.ApprovalLine) error {
	if m.replaceFunc != nil {
		return m.replaceFunc(ctx, documentID, lines)
	}
	return nil
}

func (m *mockLineRepo) UpdateStatusIf(ctx context.Context, id int64, expected, next string) (int64, error) {
	return 1, nil
}

func (m *mockLineRepo) RecordDecision(ctx context.Context, id int64, status, comment string, actedAt time.Time) (int64, error) {
	return 1, nil
}

func (m *mockLineRepo) SkipRemaining(ctx context.Context, documentID int64, fromPosition int) error {
	return nil
}

type mockActionRepo struct{}

func (m *mockActionRepo) Create(ctx context.Context, action *entity.ApprovalAction) error {
	return nil
}

func (m *mockActionRepo) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalAction, error) {
	return []*entity.ApprovalAction{}, nil
}

type mockAttachmentRepo struct {
	createFunc func(ctx context.Context, att *entity.Attachment) error
	getFunc    func(ctx context.Context, id int64) (*entity.Attachment, error)
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, att)
	}
	return nil
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id int64) (*entity.Attachment, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.Attachment{ID: id, DocumentID: 1}, nil
}

func (m *mockAttachmentRepo) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.Attachment, error) {
	return []*entity.Attachment{}, nil
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type mockPresetRepo struct {
	createFunc func(ctx context.Context, preset *entity.ApprovalLinePreset) error
	getFunc    func(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error)
}

func (m *mockPresetRepo) Create(ctx context.Context, preset *entity.ApprovalLinePreset) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, preset)
	}
	preset.ID = 1
	return nil
}

func (m *mockPresetRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalLinePreset, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockPresetRepo) GetByOwner(ctx context.Context, ownerID string) ([]*entity.ApprovalLinePreset, error) {
	return []*entity.ApprovalLinePreset{}, nil
}

func (m *mockPresetRepo) Update(ctx context.Context, preset *entity.ApprovalLinePreset) error {
	return nil
}

func (m *mockPresetRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type mockDirectory struct {
	userExistsFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *mockDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	if m.userExistsFunc != nil {
		return m.userExistsFunc(ctx, userID)
	}
	return true, nil
}

func (m *mockDirectory) GetUser(ctx context.Context, userID string) (*port.DirectoryUser, error) {
	return &port.DirectoryUser{UserID: userID, Active: true}, nil
}

type mockBlobStore struct {
	saved   map[string][]byte
	deleted []string
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{saved: make(map[string][]byte)}
}

func (m *mockBlobStore) Save(ctx context.Context, key string, content []byte) error {
	m.saved[key] = content
	return nil
}

func (m *mockBlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	content, ok := m.saved[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return content, nil
}

func (m *mockBlobStore) Exists(ctx context.Context, key string) bool {
	_, ok := m.saved[key]
	return ok
}

func (m *mockBlobStore) Delete(ctx context.Context, key string) error {
	delete(m.saved, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestDocumentService(docRepo *mockDocRepo, lineRepo *mockLineRepo, dir *mockDirectory) DocumentService {
	return NewDocumentService(docRepo, lineRepo, &mockActionRepo{}, &mockAttachmentRepo{}, newMockBlobStore(), dir, &mockTxManager{}, &mockLogger{})
}

// Tests

func TestDocumentService_Create(t *testing.T) {
	t.Run("creates draft with ordered lines", func(t *testing.T) {
		var createdLines []*entity.ApprovalLine
		lineRepo := &mockLineRepo{
			createFunc: func(ctx context.Context, line *entity.ApprovalLine) error {
				createdLines = append(createdLines, line)
				return nil
			},
		}

		svc := newTestDocumentService(&mockDocRepo{}, lineRepo, &mockDirectory{})
		detail, err := svc.Create(context.Background(), "author", CreateDocumentInput{
			Title: "Business trip report",
			Lines: []LineInput{
				{ApproverID: "alice"},
				{ApproverID: "bob", ApprovalType: entity.ApprovalTypeAgreement},
				{ApproverID: "cc-team", ApprovalType: entity.ApprovalTypeReference},
			},
		})
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		if detail.Document.Status != entity.DocumentStatusDraft {
			t.Errorf("Status = %s, want DRAFT", detail.Document.Status)
		}
		if len(createdLines) != 3 {
			t.Fatalf("created %d lines, want 3", len(createdLines))
		}
		for i, line := range createdLines {
			if line.Position != i {
				t.Errorf("line %d has position %d", i, line.Position)
			}
			if line.Status != entity.LineStatusWaiting {
				t.Errorf("line %d status = %s, want WAITING", i, line.Status)
			}
		}
		if createdLines[1].ApprovalType != entity.ApprovalTypeAgreement {
			t.Errorf("ApprovalType = %s, want AGREEMENT", createdLines[1].ApprovalType)
		}
		if createdLines[0].DecisionType != entity.DecisionTypeApproval {
			t.Errorf("default DecisionType = %s, want APPROVAL", createdLines[0].DecisionType)
		}
	})

	t.Run("rejects empty title", func(t *testing.T) {
		svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		_, err := svc.Create(context.Background(), "author", CreateDocumentInput{Title: "   "})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects unknown approver", func(t *testing.T) {
		dir := &mockDirectory{
			userExistsFunc: func(ctx context.Context, userID string) (bool, error) {
				return userID != "ghost", nil
			},
		}
		svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, dir)
		_, err := svc.Create(context.Background(), "author", CreateDocumentInput{
			Title: "Hiring request",
			Lines: []LineInput{{ApproverID: "ghost"}},
		})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("rejects unknown approval type", func(t *testing.T) {
		svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		_, err := svc.Create(context.Background(), "author", CreateDocumentInput{
			Title: "Hiring request",
			Lines: []LineInput{{ApproverID: "alice", ApprovalType: "VETO"}},
		})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}

func TestDocumentService_Update(t *testing.T) {
	t.Run("author edits draft", func(t *testing.T) {
		svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		title := "Revised title"
		detail, err := svc.Update(context.Background(), 1, "author", UpdateDocumentInput{Title: &title})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if detail.Document.Title != "Revised title" {
			t.Errorf("Title = %q", detail.Document.Title)
		}
	})

	t.Run("non-author is rejected", func(t *testing.T) {
		svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		title := "x"
		_, err := svc.Update(context.Background(), 1, "someone-else", UpdateDocumentInput{Title: &title})
		if !errors.Is(err, domainwf.ErrNotAuthorized) {
			t.Errorf("error = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("submitted document is frozen", func(t *testing.T) {
		docRepo := &mockDocRepo{
			getByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
				return &entity.ApprovalDocument{ID: id, AuthorID: "author", Status: entity.DocumentStatusPending}, nil
			},
		}
		svc := newTestDocumentService(docRepo, &mockLineRepo{}, &mockDirectory{})
		title := "x"
		_, err := svc.Update(context.Background(), 1, "author", UpdateDocumentInput{Title: &title})
		if !errors.Is(err, domainwf.ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("replaces lines", func(t *testing.T) {
		var replaced []*entity.ApprovalLine
		lineRepo := &mockLineRepo{
			replaceFunc: func(ctx context.Context, documentID int64, lines []*entity.ApprovalLine) error {
				replaced = lines
				return nil
			},
		}
		svc := newTestDocumentService(&mockDocRepo{}, lineRepo, &mockDirectory{})
		lines := []LineInput{{ApproverID: "carol"}, {ApproverID: "dave"}}
		_, err := svc.Update(context.Background(), 1, "author", UpdateDocumentInput{Lines: &lines})
		if err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		if len(replaced) != 2 || replaced[1].ApproverID != "dave" || replaced[1].Position != 1 {
			t.Errorf("unexpected replacement lines: %+v", replaced)
		}
	})
}

func TestDocumentService_Get_NotFound(t *testing.T) {
	docRepo := &mockDocRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
			return nil, nil
		},
	}
	svc := newTestDocumentService(docRepo, &mockLineRepo{}, &mockDirectory{})
	_, err := svc.Get(context.Background(), 99)
	if !errors.Is(err, domainwf.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDocumentService_ListCompleted_FilterValidation(t *testing.T) {
	svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})

	_, err := svc.ListCompleted(context.Background(), port.CompletedFilter{Status: entity.DocumentStatusDraft})
	if !errors.Is(err, domainwf.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation for non-terminal status", err)
	}

	if _, err := svc.ListCompleted(context.Background(), port.CompletedFilter{Status: entity.DocumentStatusApproved}); err != nil {
		t.Errorf("ListCompleted() failed: %v", err)
	}
}

func TestDocumentService_Attachments(t *testing.T) {
	t.Run("attach to draft stores content", func(t *testing.T) {
		var created *entity.Attachment
		attRepo := &mockAttachmentRepo{
			createFunc: func(ctx context.Context, att *entity.Attachment) error {
				created = att
				return nil
			},
		}
		blobs := newMockBlobStore()
		svc := NewDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockActionRepo{}, attRepo, blobs, &mockDirectory{}, &mockTxManager{}, &mockLogger{})

		att, err := svc.AddAttachment(context.Background(), 1, "author", AttachmentInput{
			FileName: "receipt.pdf",
			Content:  []byte("pdf bytes"),
		})
		if err != nil {
			t.Fatalf("AddAttachment() failed: %v", err)
		}
		if created == nil || created.DocumentID != 1 {
			t.Errorf("attachment not bound to document: %+v", created)
		}
		if att.FileSize != int64(len("pdf bytes")) {
			t.Errorf("FileSize = %d", att.FileSize)
		}
		if att.StorageKey == "" || !blobs.Exists(context.Background(), att.StorageKey) {
			t.Errorf("content not stored under %q", att.StorageKey)
		}
	})

	t.Run("empty file name is rejected", func(t *testing.T) {
		svc := newTestDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockDirectory{})
		_, err := svc.AddAttachment(context.Background(), 1, "author", AttachmentInput{})
		if !errors.Is(err, domainwf.ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("remove deletes content", func(t *testing.T) {
		attRepo := &mockAttachmentRepo{
			getFunc: func(ctx context.Context, id int64) (*entity.Attachment, error) {
				return &entity.Attachment{ID: id, DocumentID: 1, StorageKey: "documents/1/receipt.pdf"}, nil
			},
		}
		blobs := newMockBlobStore()
		blobs.saved["documents/1/receipt.pdf"] = []byte("pdf bytes")
		svc := NewDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockActionRepo{}, attRepo, blobs, &mockDirectory{}, &mockTxManager{}, &mockLogger{})

		if err := svc.RemoveAttachment(context.Background(), 1, 7, "author"); err != nil {
			t.Fatalf("RemoveAttachment() failed: %v", err)
		}
		if blobs.Exists(context.Background(), "documents/1/receipt.pdf") {
			t.Error("content not deleted")
		}
	})

	t.Run("remove rejects attachment of another document", func(t *testing.T) {
		attRepo := &mockAttachmentRepo{
			getFunc: func(ctx context.Context, id int64) (*entity.Attachment, error) {
				return &entity.Attachment{ID: id, DocumentID: 42}, nil
			},
		}
		svc := NewDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockActionRepo{}, attRepo, newMockBlobStore(), &mockDirectory{}, &mockTxManager{}, &mockLogger{})

		err := svc.RemoveAttachment(context.Background(), 1, 7, "author")
		if !errors.Is(err, domainwf.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("download returns stored content", func(t *testing.T) {
		attRepo := &mockAttachmentRepo{
			getFunc: func(ctx context.Context, id int64) (*entity.Attachment, error) {
				return &entity.Attachment{ID: id, DocumentID: 1, FileName: "receipt.pdf", StorageKey: "documents/1/receipt.pdf"}, nil
			},
		}
		blobs := newMockBlobStore()
		blobs.saved["documents/1/receipt.pdf"] = []byte("pdf bytes")
		svc := NewDocumentService(&mockDocRepo{}, &mockLineRepo{}, &mockActionRepo{}, attRepo, blobs, &mockDirectory{}, &mockTxManager{}, &mockLogger{})

		att, content, err := svc.GetAttachmentContent(context.Background(), 1, 7)
		if err != nil {
			t.Fatalf("GetAttachmentContent() failed: %v", err)
		}
		if att.FileName != "receipt.pdf" || string(content) != "pdf bytes" {
			t.Errorf("unexpected result: %+v %q", att, content)
		}
	})
}

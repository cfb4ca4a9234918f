package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/application/service"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// Mock services

type mockDocumentService struct {
	createFunc func(ctx context.Context, authorID string, input service.CreateDocumentInput) (*service.DocumentDetail, error)
	getFunc    func(ctx context.Context, id int64) (*service.DocumentDetail, error)
}

func (m *mockDocumentService) Create(ctx context.Context, authorID string, input service.CreateDocumentInput) (*service.DocumentDetail, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, authorID, input)
	}
	return &service.DocumentDetail{
		Document: &entity.ApprovalDocument{ID: 1, AuthorID: authorID, Title: input.Title, Status: entity.DocumentStatusDraft},
	}, nil
}

func (m *mockDocumentService) Update(ctx context.Context, id int64, actorID string, input service.UpdateDocumentInput) (*service.DocumentDetail, error) {
	return &service.DocumentDetail{Document: &entity.ApprovalDocument{ID: id, AuthorID: actorID}}, nil
}

func (m *mockDocumentService) Get(ctx context.Context, id int64) (*service.DocumentDetail, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &service.DocumentDetail{Document: &entity.ApprovalDocument{ID: id, Status: entity.DocumentStatusDraft}}, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, id int64, actorID string) error {
	return nil
}

func (m *mockDocumentService) ListPendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error) {
	return []*entity.ApprovalDocument{{ID: 5, Status: entity.DocumentStatusPending}}, nil
}

func (m *mockDocumentService) ListAuthoredBy(ctx context.Context, userID string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	return []*entity.ApprovalDocument{{ID: 1, AuthorID: userID}}, nil
}

func (m *mockDocumentService) ListCompleted(ctx context.Context, filter port.CompletedFilter) ([]*entity.ApprovalDocument, error) {
	return []*entity.ApprovalDocument{}, nil
}

func (m *mockDocumentService) AddAttachment(ctx context.Context, documentID int64, actorID string, input service.AttachmentInput) (*entity.Attachment, error) {
	return &entity.Attachment{
		ID:         9,
		DocumentID: documentID,
		FileName:   input.FileName,
		FileSize:   int64(len(input.Content)),
	}, nil
}

func (m *mockDocumentService) GetAttachmentContent(ctx context.Context, documentID, attachmentID int64) (*entity.Attachment, []byte, error) {
	return &entity.Attachment{
		ID:         attachmentID,
		DocumentID: documentID,
		FileName:   "receipt.pdf",
	}, []byte("pdf bytes"), nil
}

func (m *mockDocumentService) RemoveAttachment(ctx context.Context, documentID, attachmentID int64, actorID string) error {
	return nil
}

type mockPresetService struct {
	applyFunc func(ctx context.Context, presetID, documentID int64, actorID string) (*service.ApplyResult, error)
}

func (m *mockPresetService) Create(ctx context.Context, ownerID string, input service.PresetInput) (*entity.ApprovalLinePreset, error) {
	return &entity.ApprovalLinePreset{ID: 1, OwnerID: ownerID, Name: input.Name}, nil
}

func (m *mockPresetService) Get(ctx context.Context, id int64, ownerID string) (*entity.ApprovalLinePreset, error) {
	return &entity.ApprovalLinePreset{ID: id, OwnerID: ownerID}, nil
}

func (m *mockPresetService) List(ctx context.Context, ownerID string) ([]*entity.ApprovalLinePreset, error) {
	return []*entity.ApprovalLinePreset{}, nil
}

func (m *mockPresetService) Update(ctx context.Context, id int64, ownerID string, input service.PresetInput) (*entity.ApprovalLinePreset, error) {
	return &entity.ApprovalLinePreset{ID: id, OwnerID: ownerID, Name: input.Name}, nil
}

func (m *mockPresetService) Delete(ctx context.Context, id int64, ownerID string) error {
	return nil
}

func (m *mockPresetService) Apply(ctx context.Context, presetID, documentID int64, actorID string) (*service.ApplyResult, error) {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, presetID, documentID, actorID)
	}
	return &service.ApplyResult{}, nil
}

type mockExportService struct{}

func (m *mockExportService) ExportCompleted(ctx context.Context, filter port.CompletedFilter) ([]byte, error) {
	return []byte("PK\x03\x04"), nil
}

type mockEngine struct {
	submitFunc func(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error)
	decideFunc func(ctx context.Context, documentID int64, actorID, action, comment string) (*entity.ApprovalDocument, error)
	cancelFunc func(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error)
}

func (m *mockEngine) Submit(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, documentID, actorID)
	}
	return &entity.ApprovalDocument{ID: documentID, Status: entity.DocumentStatusPending}, nil
}

func (m *mockEngine) Decide(ctx context.Context, documentID int64, actorID, action, comment string) (*entity.ApprovalDocument, error) {
	if m.decideFunc != nil {
		return m.decideFunc(ctx, documentID, actorID, action, comment)
	}
	return &entity.ApprovalDocument{ID: documentID, Status: entity.DocumentStatusPending}, nil
}

func (m *mockEngine) Cancel(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, documentID, actorID)
	}
	return &entity.ApprovalDocument{ID: documentID, Status: entity.DocumentStatusCanceled}, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func newTestServer(docs *mockDocumentService, presets *mockPresetService, engine *mockEngine) *Server {
	return NewServer(DefaultServerConfig(), docs, presets, &mockExportService{}, engine, nopLogger{})
}

func doRequest(t *testing.T, srv *Server, method, path, actor string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// Tests

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestCreateDocument(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	body := service.CreateDocumentInput{
		Title: "Quarterly budget",
		Lines: []service.LineInput{{ApproverID: "alice"}},
	}
	w := doRequest(t, srv, "POST", "/api/v1/documents", "author", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestCreateDocument_RequiresActor(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "POST", "/api/v1/documents", "", service.CreateDocumentInput{Title: "x"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateDocument_ValidationError(t *testing.T) {
	docs := &mockDocumentService{
		createFunc: func(ctx context.Context, authorID string, input service.CreateDocumentInput) (*service.DocumentDetail, error) {
			return nil, domainwf.NewValidationError("title", "title must not be empty")
		},
	}
	srv := newTestServer(docs, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "POST", "/api/v1/documents", "author", service.CreateDocumentInput{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Contains(t, resp.Error, "title")
}

func TestGetDocument_NotFound(t *testing.T) {
	docs := &mockDocumentService{
		getFunc: func(ctx context.Context, id int64) (*service.DocumentDetail, error) {
			return nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, id)
		},
	}
	srv := newTestServer(docs, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "GET", "/api/v1/documents/42", "author", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDocument_BadID(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "GET", "/api/v1/documents/abc", "author", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListDocuments_Boxes(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	for _, box := range []string{"pending", "authored", "completed"} {
		w := doRequest(t, srv, "GET", "/api/v1/documents?box="+box, "alice", nil)
		assert.Equal(t, http.StatusOK, w.Code, "box %s", box)
	}

	w := doRequest(t, srv, "GET", "/api/v1/documents?box=junk", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitDocument(t *testing.T) {
	engine := &mockEngine{
		submitFunc: func(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error) {
			assert.Equal(t, int64(3), documentID)
			assert.Equal(t, "author", actorID)
			return &entity.ApprovalDocument{ID: documentID, Status: entity.DocumentStatusPending}, nil
		},
	}
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, engine)

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/submit", "author", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitDocument_InvalidState(t *testing.T) {
	engine := &mockEngine{
		submitFunc: func(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error) {
			return nil, fmt.Errorf("%w: document already circulating", domainwf.ErrInvalidState)
		},
	}
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, engine)

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/submit", "author", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDecideDocument(t *testing.T) {
	engine := &mockEngine{
		decideFunc: func(ctx context.Context, documentID int64, actorID, action, comment string) (*entity.ApprovalDocument, error) {
			assert.Equal(t, "approve", action)
			assert.Equal(t, "looks good", comment)
			return &entity.ApprovalDocument{ID: documentID, Status: entity.DocumentStatusApproved}, nil
		},
	}
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, engine)

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/decide", "alice",
		DecideRequest{Action: "approve", Comment: "looks good"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDecideDocument_WrongActor(t *testing.T) {
	engine := &mockEngine{
		decideFunc: func(ctx context.Context, documentID int64, actorID, action, comment string) (*entity.ApprovalDocument, error) {
			return nil, fmt.Errorf("%w: not the pending approver", domainwf.ErrNotAuthorized)
		},
	}
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, engine)

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/decide", "mallory",
		DecideRequest{Action: "approve"})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDecideDocument_MissingAction(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/decide", "alice", map[string]string{"comment": "x"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelDocument(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/cancel", "author", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddAttachment(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "POST", "/api/v1/documents/3/attachments", "author",
		service.AttachmentInput{FileName: "budget.xlsx", Content: []byte("workbook")})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDownloadAttachment(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "GET", "/api/v1/documents/3/attachments/9", "author", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt.pdf")
}

func TestUpdatePreset(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "PATCH", "/api/v1/line-presets/3", "author",
		service.PresetInput{Name: "Finance chain"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestApplyPreset(t *testing.T) {
	presets := &mockPresetService{
		applyFunc: func(ctx context.Context, presetID, documentID int64, actorID string) (*service.ApplyResult, error) {
			assert.Equal(t, int64(2), presetID)
			assert.Equal(t, int64(7), documentID)
			return &service.ApplyResult{Warnings: []string{`approver "bob" not found in directory`}}, nil
		},
	}
	srv := newTestServer(&mockDocumentService{}, presets, &mockEngine{})

	w := doRequest(t, srv, "POST", "/api/v1/line-presets/2/apply", "author",
		ApplyPresetRequest{DocumentID: 7})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestExportArchive(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "GET", "/api/v1/archive/export?status=APPROVED", "admin", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "approval-archive-")
}

func TestExportArchive_BadTimestamp(t *testing.T) {
	srv := newTestServer(&mockDocumentService{}, &mockPresetService{}, &mockEngine{})

	w := doRequest(t, srv, "GET", "/api/v1/archive/export?from=yesterday", "admin", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

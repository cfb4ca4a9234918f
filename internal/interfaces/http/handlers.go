package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/application/service"
	"github.com/teamnova/groupware-approval/internal/application/workflow"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// actorHeader carries the authenticated user id, injected by the gateway in
// front of this service.
const actorHeader = "X-User-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	documentService service.DocumentService
	presetService   service.PresetService
	exportService   service.ExportService
	engine          workflow.Engine
	logger          Logger
	archiveLimit    int
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	documentService service.DocumentService,
	presetService service.PresetService,
	exportService service.ExportService,
	engine workflow.Engine,
	logger Logger,
) *Handlers {
	return &Handlers{
		documentService: documentService,
		presetService:   presetService,
		exportService:   exportService,
		engine:          engine,
		logger:          logger,
		archiveLimit:    500,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DecideRequest carries an approver's decision
type DecideRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

// actor extracts the authenticated user id from the request. An empty header
// aborts the request with 401.
func (h *Handlers) actor(c *gin.Context) (string, bool) {
	actorID := c.GetHeader(actorHeader)
	if actorID == "" {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing " + actorHeader + " header",
		})
		return "", false
	}
	return actorID, true
}

// pathID parses the :id path parameter
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	idStr := c.Param(name)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("invalid %s: %q", name, idStr),
		})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domainwf.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domainwf.ErrNotAuthorized):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, domainwf.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domainwf.ErrInvalidState), errors.Is(err, domainwf.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	default:
		h.logger.Error("Request failed", "error", err)
	}

	c.JSON(status, Response{Success: false, Error: message})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateDocument handles POST /api/v1/documents
func (h *Handlers) CreateDocument(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var input service.CreateDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	detail, err := h.documentService.Create(c.Request.Context(), actorID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: detail})
}

// ListDocuments handles GET /api/v1/documents?box=pending|authored|completed
func (h *Handlers) ListDocuments(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	box := c.DefaultQuery("box", "authored")
	var (
		docs []*entity.ApprovalDocument
		err  error
	)
	switch box {
	case "pending":
		docs, err = h.documentService.ListPendingFor(c.Request.Context(), actorID)
	case "authored":
		docs, err = h.documentService.ListAuthoredBy(c.Request.Context(), actorID, limit, offset)
	case "completed":
		filter, ferr := completedFilter(c, limit, offset)
		if ferr != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: ferr.Error()})
			return
		}
		docs, err = h.documentService.ListCompleted(c.Request.Context(), filter)
	default:
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   fmt.Sprintf("unknown box %q", box),
		})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: docs})
}

// GetDocument handles GET /api/v1/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.documentService.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// UpdateDocument handles PATCH /api/v1/documents/:id
func (h *Handlers) UpdateDocument(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var input service.UpdateDocumentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	detail, err := h.documentService.Update(c.Request.Context(), id, actorID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: detail})
}

// DeleteDocument handles DELETE /api/v1/documents/:id
func (h *Handlers) DeleteDocument(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// SubmitDocument handles POST /api/v1/documents/:id/submit
func (h *Handlers) SubmitDocument(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.engine.Submit(c.Request.Context(), id, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: doc})
}

// DecideDocument handles POST /api/v1/documents/:id/decide
func (h *Handlers) DecideDocument(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	doc, err := h.engine.Decide(c.Request.Context(), id, actorID, req.Action, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: doc})
}

// CancelDocument handles POST /api/v1/documents/:id/cancel
func (h *Handlers) CancelDocument(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	doc, err := h.engine.Cancel(c.Request.Context(), id, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: doc})
}

// AddAttachment handles POST /api/v1/documents/:id/attachments
func (h *Handlers) AddAttachment(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var input service.AttachmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	att, err := h.documentService.AddAttachment(c.Request.Context(), id, actorID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: att})
}

// DownloadAttachment handles GET /api/v1/documents/:id/attachments/:attachmentID
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := h.pathID(c, "attachmentID")
	if !ok {
		return
	}

	att, content, err := h.documentService.GetAttachmentContent(c.Request.Context(), id, attachmentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, att.FileName))
	c.Data(http.StatusOK, contentType, content)
}

// RemoveAttachment handles DELETE /api/v1/documents/:id/attachments/:attachmentID
func (h *Handlers) RemoveAttachment(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	attachmentID, ok := h.pathID(c, "attachmentID")
	if !ok {
		return
	}

	if err := h.documentService.RemoveAttachment(c.Request.Context(), id, attachmentID, actorID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CreatePreset handles POST /api/v1/line-presets
func (h *Handlers) CreatePreset(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	var input service.PresetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	preset, err := h.presetService.Create(c.Request.Context(), actorID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: preset})
}

// ListPresets handles GET /api/v1/line-presets
func (h *Handlers) ListPresets(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}

	presets, err := h.presetService.List(c.Request.Context(), actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: presets})
}

// GetPreset handles GET /api/v1/line-presets/:id
func (h *Handlers) GetPreset(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	preset, err := h.presetService.Get(c.Request.Context(), id, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: preset})
}

// UpdatePreset handles PUT /api/v1/line-presets/:id
func (h *Handlers) UpdatePreset(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var input service.PresetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	preset, err := h.presetService.Update(c.Request.Context(), id, actorID, input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: preset})
}

// DeletePreset handles DELETE /api/v1/line-presets/:id
func (h *Handlers) DeletePreset(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.presetService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// ApplyPresetRequest names the draft a preset is applied to
type ApplyPresetRequest struct {
	DocumentID int64 `json:"document_id" binding:"required"`
}

// ApplyPreset handles POST /api/v1/line-presets/:id/apply
func (h *Handlers) ApplyPreset(c *gin.Context) {
	actorID, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req ApplyPresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	result, err := h.presetService.Apply(c.Request.Context(), id, req.DocumentID, actorID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ExportArchive handles GET /api/v1/archive/export. The workbook is streamed
// as an xlsx download.
func (h *Handlers) ExportArchive(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = h.archiveLimit
	}
	if offset < 0 {
		offset = 0
	}

	filter, err := completedFilter(c, limit, offset)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	content, err := h.exportService.ExportCompleted(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("approval-archive-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		content)
}

// completedFilter builds an archive filter from query parameters
func completedFilter(c *gin.Context, limit, offset int) (port.CompletedFilter, error) {
	filter := port.CompletedFilter{
		Status:   c.Query("status"),
		AuthorID: c.Query("author_id"),
		Limit:    limit,
		Offset:   offset,
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return filter, fmt.Errorf("invalid from timestamp %q", fromStr)
		}
		filter.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return filter, fmt.Errorf("invalid to timestamp %q", toStr)
		}
		filter.To = &to
	}

	return filter, nil
}

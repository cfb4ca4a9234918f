// Package workflow implements the approval state machine engine: the only
// component with real branching logic. Every transition is a single
// transaction that re-checks document and line status before writing, appends
// exactly one action log entry, and emits a domain event after commit.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teamnova/groupware-approval/internal/application/dispatcher"
	"github.com/teamnova/groupware-approval/internal/application/port"
	"github.com/teamnova/groupware-approval/internal/domain/entity"
	"github.com/teamnova/groupware-approval/internal/domain/event"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Engine drives approval documents through their lifecycle
type Engine interface {
	// Submit moves an authored draft into circulation and activates the
	// first actionable line
	Submit(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error)

	// Decide applies the pending approver's approve or reject decision
	Decide(ctx context.Context, documentID int64, actorID, action, comment string) (*entity.ApprovalDocument, error)

	// Cancel withdraws a pending document; author only
	Cancel(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error)
}

type engineImpl struct {
	docRepo    port.DocumentRepository
	lineRepo   port.LineRepository
	actionRepo port.ActionRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// Option configures the engine
type Option func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting transition events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	actionRepo port.ActionRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...Option,
) Engine {
	e := &engineImpl{
		docRepo:    docRepo,
		lineRepo:   lineRepo,
		actionRepo: actionRepo,
		txManager:  txManager,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit moves a draft to pending and activates the first actionable line
func (e *engineImpl) Submit(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error) {
	var (
		doc    *entity.ApprovalDocument
		events []*event.Event
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, lines, err := e.loadDocument(txCtx, documentID)
		if err != nil {
			return err
		}

		if d.AuthorID != actorID {
			return fmt.Errorf("%w: only the author may submit document %d", domainwf.ErrNotAuthorized, documentID)
		}

		machine, err := BuildDocumentMachine(d, lines)
		if err != nil {
			return err
		}
		if !machine.CanFire(domainwf.TriggerSubmit) {
			return fmt.Errorf("%w: cannot submit document %d from status %s", domainwf.ErrInvalidState, documentID, d.Status)
		}

		first := nextActionableAfter(lines, -1)
		if first == nil {
			return domainwf.NewValidationError("lines", "document has no actionable approval line")
		}

		if err := machine.Fire(txCtx, domainwf.TriggerSubmit); err != nil {
			return err
		}

		now := time.Now()
		if err := e.moveDocument(txCtx, d, string(machine.State()), &now, nil); err != nil {
			return err
		}
		if err := e.moveLine(txCtx, first, entity.LineStatusPending); err != nil {
			return err
		}

		if err := e.appendAction(txCtx, documentID, actorID, entity.ActionSubmit, ""); err != nil {
			return err
		}

		d.SubmittedAt = &now
		doc = d
		events = append(events,
			event.New(event.TypeDocumentSubmitted, documentID, actorID, map[string]interface{}{
				"title": d.Title,
			}),
			event.New(event.TypeLineActivated, documentID, actorID, map[string]interface{}{
				"line_id":  first.ID,
				"approver": first.ApproverID,
			}),
		)
		return nil
	})

	if err != nil {
		return nil, err
	}

	e.logger.Info("Document submitted", "document_id", documentID, "actor", actorID)
	e.emit(ctx, events)
	return doc, nil
}

// Decide applies an approve or reject decision by the pending approver
func (e *engineImpl) Decide(ctx context.Context, documentID int64, actorID, action, comment string) (*entity.ApprovalDocument, error) {
	trigger, err := decisionTrigger(action)
	if err != nil {
		return nil, err
	}

	var (
		doc    *entity.ApprovalDocument
		events []*event.Event
	)

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, lines, err := e.loadDocument(txCtx, documentID)
		if err != nil {
			return err
		}

		machine, err := BuildDocumentMachine(d, lines)
		if err != nil {
			return err
		}
		if !machine.CanFire(trigger) {
			return fmt.Errorf("%w: cannot %s document %d from status %s", domainwf.ErrInvalidState, action, documentID, d.Status)
		}

		pending := pendingLine(lines)
		if pending == nil {
			return fmt.Errorf("%w: document %d has no pending line", domainwf.ErrInvalidState, documentID)
		}
		if pending.ApproverID != actorID {
			return fmt.Errorf("%w: pending line belongs to %s", domainwf.ErrNotAuthorized, pending.ApproverID)
		}
		if trigger == domainwf.TriggerReject && comment == "" {
			return domainwf.NewValidationError("comment", "comment is required when rejecting")
		}

		if err := machine.Fire(txCtx, trigger); err != nil {
			return err
		}

		now := time.Now()
		switch trigger {
		case domainwf.TriggerApprove:
			if err := e.recordDecision(txCtx, pending, entity.LineStatusApproved, comment, now); err != nil {
				return err
			}

			if next := nextActionableAfter(lines, pending.Position); next != nil {
				if err := e.moveLine(txCtx, next, entity.LineStatusPending); err != nil {
					return err
				}
				events = append(events, event.New(event.TypeLineActivated, documentID, actorID, map[string]interface{}{
					"line_id":  next.ID,
					"approver": next.ApproverID,
				}))
			} else {
				// Last actionable line: complete the document. Un-acted
				// reference lines, wherever they sit, become skipped; the
				// status guard protects lines that already acted.
				if err := e.lineRepo.SkipRemaining(txCtx, documentID, -1); err != nil {
					return err
				}
				if err := e.moveDocument(txCtx, d, string(machine.State()), nil, &now); err != nil {
					return err
				}
				d.CompletedAt = &now
				events = append(events, event.New(event.TypeDocumentApproved, documentID, actorID, nil))
			}

		case domainwf.TriggerReject:
			if err := e.recordDecision(txCtx, pending, entity.LineStatusRejected, comment, now); err != nil {
				return err
			}
			if err := e.lineRepo.SkipRemaining(txCtx, documentID, -1); err != nil {
				return err
			}
			if err := e.moveDocument(txCtx, d, string(machine.State()), nil, &now); err != nil {
				return err
			}
			d.CompletedAt = &now
			events = append(events, event.New(event.TypeDocumentRejected, documentID, actorID, map[string]interface{}{
				"comment": comment,
			}))
		}

		if err := e.appendAction(txCtx, documentID, actorID, string(trigger), comment); err != nil {
			return err
		}

		events = append([]*event.Event{
			event.New(event.TypeLineDecided, documentID, actorID, map[string]interface{}{
				"line_id": pending.ID,
				"action":  string(trigger),
			}),
		}, events...)

		doc = d
		return nil
	})

	if err != nil {
		return nil, err
	}

	e.logger.Info("Decision applied",
		"document_id", documentID,
		"actor", actorID,
		"action", string(trigger),
		"status", doc.Status,
	)
	e.emit(ctx, events)
	return doc, nil
}

// Cancel withdraws a pending document; only the author may cancel
func (e *engineImpl) Cancel(ctx context.Context, documentID int64, actorID string) (*entity.ApprovalDocument, error) {
	var (
		doc    *entity.ApprovalDocument
		events []*event.Event
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, lines, err := e.loadDocument(txCtx, documentID)
		if err != nil {
			return err
		}

		if d.AuthorID != actorID {
			return fmt.Errorf("%w: only the author may cancel document %d", domainwf.ErrNotAuthorized, documentID)
		}

		machine, err := BuildDocumentMachine(d, lines)
		if err != nil {
			return err
		}
		if !machine.CanFire(domainwf.TriggerCancel) {
			return fmt.Errorf("%w: cannot cancel document %d from status %s", domainwf.ErrInvalidState, documentID, d.Status)
		}

		if err := machine.Fire(txCtx, domainwf.TriggerCancel); err != nil {
			return err
		}

		now := time.Now()
		if err := e.lineRepo.SkipRemaining(txCtx, documentID, -1); err != nil {
			return err
		}
		if err := e.moveDocument(txCtx, d, string(machine.State()), nil, &now); err != nil {
			return err
		}
		if err := e.appendAction(txCtx, documentID, actorID, entity.ActionCancel, ""); err != nil {
			return err
		}

		d.CompletedAt = &now
		doc = d
		events = append(events, event.New(event.TypeDocumentCanceled, documentID, actorID, nil))
		return nil
	})

	if err != nil {
		return nil, err
	}

	e.logger.Info("Document canceled", "document_id", documentID, "actor", actorID)
	e.emit(ctx, events)
	return doc, nil
}

// loadDocument fetches a document with its lines inside the transaction
func (e *engineImpl) loadDocument(ctx context.Context, documentID int64) (*entity.ApprovalDocument, []*entity.ApprovalLine, error) {
	doc, err := e.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, documentID)
	}

	lines, err := e.lineRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

// moveDocument applies a guarded document status update, treating a missed
// precondition as a concurrent modification
func (e *engineImpl) moveDocument(ctx context.Context, doc *entity.ApprovalDocument, next string, submittedAt, completedAt *time.Time) error {
	n, err := e.docRepo.UpdateStatusIf(ctx, doc.ID, doc.Status, next, submittedAt, completedAt)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: document %d left status %s", domainwf.ErrConflict, doc.ID, doc.Status)
	}
	doc.Status = next
	return nil
}

// moveLine applies a guarded line status update
func (e *engineImpl) moveLine(ctx context.Context, line *entity.ApprovalLine, next string) error {
	n, err := e.lineRepo.UpdateStatusIf(ctx, line.ID, line.Status, next)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: line %d left status %s", domainwf.ErrConflict, line.ID, line.Status)
	}
	line.Status = next
	return nil
}

// recordDecision stores the pending line's terminal decision
func (e *engineImpl) recordDecision(ctx context.Context, line *entity.ApprovalLine, status, comment string, actedAt time.Time) error {
	n, err := e.lineRepo.RecordDecision(ctx, line.ID, status, comment, actedAt)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: line %d is no longer pending", domainwf.ErrConflict, line.ID)
	}
	line.Status = status
	line.Comment = comment
	line.ActedAt = &actedAt
	return nil
}

// appendAction writes one audit trail entry for the transition
func (e *engineImpl) appendAction(ctx context.Context, documentID int64, actorID, action, comment string) error {
	return e.actionRepo.Create(ctx, &entity.ApprovalAction{
		DocumentID: documentID,
		ActorID:    actorID,
		Action:     action,
		Comment:    comment,
	})
}

// emit dispatches events after the transaction has committed
func (e *engineImpl) emit(ctx context.Context, events []*event.Event) {
	if e.dispatcher == nil {
		return
	}
	for _, evt := range events {
		e.dispatcher.DispatchAsync(ctx, evt)
	}
}

// decisionTrigger maps the API action to a workflow trigger
func decisionTrigger(action string) (domainwf.Trigger, error) {
	switch action {
	case "approve", entity.ActionApprove:
		return domainwf.TriggerApprove, nil
	case "reject", entity.ActionReject:
		return domainwf.TriggerReject, nil
	default:
		return "", domainwf.NewValidationError("action", fmt.Sprintf("unknown action %q", action))
	}
}

// IsRetryable reports whether the caller may safely retry the transition
// after refetching. Only optimistic concurrency failures qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, domainwf.ErrConflict)
}

package workflow

import (
	"context"
	"fmt"

	"github.com/teamnova/groupware-approval/internal/domain/entity"
	domainwf "github.com/teamnova/groupware-approval/internal/domain/workflow"
)

// BuildDocumentMachine creates a state machine for a document at its current
// status. The approve trigger carries two guarded transitions: completion when
// no actionable line remains after the pending one, otherwise stay pending.
func BuildDocumentMachine(doc *entity.ApprovalDocument, lines []*entity.ApprovalLine) (domainwf.StateMachine, error) {
	state := domainwf.State(doc.Status)
	if !state.IsValid() {
		return nil, fmt.Errorf("document %d has unknown status %q", doc.ID, doc.Status)
	}

	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StatePending)

	builder.Configure(domainwf.StatePending).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, func(ctx context.Context) bool {
			return isFinalApproval(lines)
		}).
		Permit(domainwf.TriggerApprove, domainwf.StatePending).
		Permit(domainwf.TriggerReject, domainwf.StateRejected).
		Permit(domainwf.TriggerCancel, domainwf.StateCanceled)

	// APPROVED, REJECTED and CANCELED are terminal - no outgoing transitions

	return builder.Build(state), nil
}

// isFinalApproval reports whether approving the currently pending line would
// complete the document
func isFinalApproval(lines []*entity.ApprovalLine) bool {
	pending := pendingLine(lines)
	if pending == nil {
		return false
	}
	return nextActionableAfter(lines, pending.Position) == nil
}

// pendingLine returns the single line with status PENDING, or nil
func pendingLine(lines []*entity.ApprovalLine) *entity.ApprovalLine {
	for _, l := range lines {
		if l.Status == entity.LineStatusPending {
			return l
		}
	}
	return nil
}

// nextActionableAfter returns the first waiting non-reference line positioned
// after pos, or nil when none remains. Reference lines are cc-only and are
// skipped over.
func nextActionableAfter(lines []*entity.ApprovalLine, pos int) *entity.ApprovalLine {
	var next *entity.ApprovalLine
	for _, l := range lines {
		if l.Position <= pos || !l.IsActionable() || l.Status != entity.LineStatusWaiting {
			continue
		}
		if next == nil || l.Position < next.Position {
			next = l
		}
	}
	return next
}

// Package lifecycle governs the legal status transitions of a repair
// record and the side effects of each transition. Transitions are
// operator-driven; nothing here progresses automatically.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/vesselworks/vesseltrace/pkg/store"
)

// PreconditionError reports an illegal transition or an unmet
// transition precondition. It is recoverable: the caller must resolve
// the blocking condition, e.g. supply a retest record.
type PreconditionError struct {
	From   store.RepairStatus
	To     store.RepairStatus
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf(
		"precondition failed for transition %s -> %s: %s",
		e.From, e.To, e.Reason,
	)
}

// Payload carries the optional data a transition may require.
type Payload struct {
	// Reason is required when cancelling.
	Reason string

	// Retest attaches a retest record, exiting retest_required.
	Retest *store.RetestRecord

	// ActualDurationHours records the actual repair duration on
	// completion.
	ActualDurationHours *float64
}

// transitions is the legal successor table. Terminal states have no
// entries.
var transitions = map[store.RepairStatus][]store.RepairStatus{
	store.StatusPlanned: {
		store.StatusInProgress, store.StatusCancelled,
	},
	store.StatusInProgress: {
		store.StatusQualityCheck, store.StatusCancelled,
	},
	store.StatusQualityCheck: {
		store.StatusRetestRequired, store.StatusCompleted,
		store.StatusCancelled,
	},
	store.StatusRetestRequired: {
		store.StatusCompleted, store.StatusCancelled,
	},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to store.RepairStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// Apply validates the transition of r to the target status and applies
// its side effects in place. On failure r is left unchanged and a
// *PreconditionError is returned.
func Apply(
	r *store.RepairRecord,
	to store.RepairStatus,
	p Payload,
	now time.Time,
) error {
	if !to.Valid() {
		return &PreconditionError{
			From: r.Status, To: to,
			Reason: "unknown target status",
		}
	}

	if r.Status.Terminal() {
		return &PreconditionError{
			From: r.Status, To: to,
			Reason: fmt.Sprintf("%s is terminal", r.Status),
		}
	}

	if !CanTransition(r.Status, to) {
		return &PreconditionError{
			From: r.Status, To: to,
			Reason: "transition not permitted",
		}
	}

	switch to {
	case store.StatusCancelled:
		if p.Reason == "" {
			return &PreconditionError{
				From: r.Status, To: to,
				Reason: "cancellation requires a reason",
			}
		}

		r.CancelReason = p.Reason

	case store.StatusRetestRequired:
		if !HasFailedCheck(r) {
			return &PreconditionError{
				From: r.Status, To: to,
				Reason: "no failed or conditional quality check recorded",
			}
		}

	case store.StatusCompleted:
		retest := r.Retest
		if p.Retest != nil {
			retest = p.Retest
		}

		if err := checkCompletable(r, retest); err != nil {
			return err
		}

		if p.Retest != nil {
			r.Retest = p.Retest
		}

		if r.CompletedAt == nil {
			t := now
			r.CompletedAt = &t
		}

		if p.ActualDurationHours != nil {
			r.Info.ActualDurationHours = p.ActualDurationHours
		}
	}

	r.Status = to

	return nil
}

// checkCompletable enforces the completion precondition: either no
// retest is needed because every quality check passed, or a retest
// with final approval is present.
func checkCompletable(
	r *store.RepairRecord, retest *store.RetestRecord,
) error {
	if retest != nil && retest.FinalApproval {
		return nil
	}

	if r.Status == store.StatusRetestRequired {
		return &PreconditionError{
			From: r.Status, To: store.StatusCompleted,
			Reason: "retest with final approval required",
		}
	}

	if HasFailedCheck(r) {
		return &PreconditionError{
			From: r.Status, To: store.StatusCompleted,
			Reason: "quality checks not all passed and no approved retest",
		}
	}

	return nil
}

// HasFailedCheck reports whether any quality check on r has a failed
// or conditional result.
func HasFailedCheck(r *store.RepairRecord) bool {
	for _, qc := range r.QualityChecks {
		if qc.Result == store.ResultFailed ||
			qc.Result == store.ResultConditional {
			return true
		}
	}

	return false
}

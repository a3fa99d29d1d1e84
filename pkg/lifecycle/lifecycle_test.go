package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselworks/vesseltrace/pkg/lifecycle"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func repairIn(status store.RepairStatus) *store.RepairRecord {
	return &store.RepairRecord{
		TestRecordID: 1,
		Status:       status,
	}
}

func TestApply_HappyPathWithoutRetest(t *testing.T) {
	r := repairIn(store.StatusPlanned)
	r.QualityChecks = []store.QualityCheck{
		{CheckType: "visual", Result: store.ResultPassed},
	}

	for _, to := range []store.RepairStatus{
		store.StatusInProgress,
		store.StatusQualityCheck,
		store.StatusCompleted,
	} {
		require.NoError(t, lifecycle.Apply(r, to, lifecycle.Payload{}, now))
		assert.Equal(t, to, r.Status)
	}

	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, now, *r.CompletedAt)
}

func TestApply_CompletedAtSetIffCompleted(t *testing.T) {
	r := repairIn(store.StatusPlanned)

	require.NoError(t, lifecycle.Apply(
		r, store.StatusInProgress, lifecycle.Payload{}, now))
	assert.Nil(t, r.CompletedAt)

	require.NoError(t, lifecycle.Apply(
		r, store.StatusQualityCheck, lifecycle.Payload{}, now))
	assert.Nil(t, r.CompletedAt)

	require.NoError(t, lifecycle.Apply(
		r, store.StatusCompleted, lifecycle.Payload{}, now))
	require.NotNil(t, r.CompletedAt)
}

func TestApply_TerminalStatesRejectTransitions(t *testing.T) {
	var pre *lifecycle.PreconditionError

	completed := repairIn(store.StatusCompleted)
	err := lifecycle.Apply(
		completed, store.StatusInProgress, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)

	cancelled := repairIn(store.StatusCancelled)
	err = lifecycle.Apply(
		cancelled, store.StatusPlanned, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)
}

func TestApply_IllegalJumpRejected(t *testing.T) {
	r := repairIn(store.StatusPlanned)

	var pre *lifecycle.PreconditionError

	err := lifecycle.Apply(r, store.StatusCompleted, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, store.StatusPlanned, r.Status, "record left unchanged")
}

func TestApply_CancelRequiresReason(t *testing.T) {
	r := repairIn(store.StatusInProgress)

	var pre *lifecycle.PreconditionError

	err := lifecycle.Apply(r, store.StatusCancelled, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)

	require.NoError(t, lifecycle.Apply(r, store.StatusCancelled,
		lifecycle.Payload{Reason: "unit scrapped"}, now))
	assert.Equal(t, store.StatusCancelled, r.Status)
	assert.Equal(t, "unit scrapped", r.CancelReason)
}

func TestApply_CancelFromAnyNonTerminalState(t *testing.T) {
	for _, from := range []store.RepairStatus{
		store.StatusPlanned, store.StatusInProgress,
		store.StatusQualityCheck, store.StatusRetestRequired,
	} {
		r := repairIn(from)
		require.NoError(t, lifecycle.Apply(r, store.StatusCancelled,
			lifecycle.Payload{Reason: "cancelled by operator"}, now),
			"from %s", from)
	}
}

func TestApply_RetestRequiredNeedsFailedCheck(t *testing.T) {
	r := repairIn(store.StatusQualityCheck)

	var pre *lifecycle.PreconditionError

	err := lifecycle.Apply(
		r, store.StatusRetestRequired, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)

	r.QualityChecks = []store.QualityCheck{
		{CheckType: "pressure", Result: store.ResultConditional},
	}

	require.NoError(t, lifecycle.Apply(
		r, store.StatusRetestRequired, lifecycle.Payload{}, now))
}

func TestApply_CompletionBlockedByFailedCheck(t *testing.T) {
	r := repairIn(store.StatusQualityCheck)
	r.QualityChecks = []store.QualityCheck{
		{CheckType: "visual", Result: store.ResultPassed},
		{CheckType: "pressure", Result: store.ResultFailed},
	}

	var pre *lifecycle.PreconditionError

	err := lifecycle.Apply(r, store.StatusCompleted, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)
}

func TestApply_RetestExitsRetestRequired(t *testing.T) {
	r := repairIn(store.StatusRetestRequired)
	r.QualityChecks = []store.QualityCheck{
		{CheckType: "pressure", Result: store.ResultFailed},
	}

	var pre *lifecycle.PreconditionError

	// No retest supplied: blocked.
	err := lifecycle.Apply(r, store.StatusCompleted, lifecycle.Payload{}, now)
	require.ErrorAs(t, err, &pre)

	// Retest without final approval: still blocked.
	err = lifecycle.Apply(r, store.StatusCompleted, lifecycle.Payload{
		Retest: &store.RetestRecord{TestID: 9, Result: store.ResultPassed},
	}, now)
	require.ErrorAs(t, err, &pre)

	// Approved retest completes the repair.
	require.NoError(t, lifecycle.Apply(r, store.StatusCompleted,
		lifecycle.Payload{
			Retest: &store.RetestRecord{
				TestID:        9,
				Result:        store.ResultPassed,
				FinalApproval: true,
			},
		}, now))

	assert.Equal(t, store.StatusCompleted, r.Status)
	require.NotNil(t, r.Retest)
	assert.True(t, r.Retest.FinalApproval)
	require.NotNil(t, r.CompletedAt)
}

func TestApply_ActualDurationRecordedOnCompletion(t *testing.T) {
	r := repairIn(store.StatusQualityCheck)
	actual := 6.5

	require.NoError(t, lifecycle.Apply(r, store.StatusCompleted,
		lifecycle.Payload{ActualDurationHours: &actual}, now))

	require.NotNil(t, r.Info.ActualDurationHours)
	assert.Equal(t, 6.5, *r.Info.ActualDurationHours)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, lifecycle.CanTransition(
		store.StatusPlanned, store.StatusInProgress))
	assert.False(t, lifecycle.CanTransition(
		store.StatusPlanned, store.StatusQualityCheck))
	assert.False(t, lifecycle.CanTransition(
		store.StatusCompleted, store.StatusCancelled))
	assert.False(t, lifecycle.CanTransition(
		store.StatusCancelled, store.StatusPlanned))
}

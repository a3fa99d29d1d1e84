// Package engine is the test-to-repair workflow engine. It owns every
// mutation of the record set: test submission, repair generation,
// status transitions, and cascade deletes. Reads (queries, statistics,
// history) go straight to the repositories without locking.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vesselworks/vesseltrace/pkg/cost"
	"github.com/vesselworks/vesseltrace/pkg/derive"
	"github.com/vesselworks/vesseltrace/pkg/lifecycle"
	"github.com/vesselworks/vesseltrace/pkg/query"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

// Engine coordinates the workflow over the injected repositories.
// Mutations are serialized by a single mutex: the record set assumes a
// single active actor.
type Engine struct {
	log     logrus.FieldLogger
	mu      sync.Mutex
	tests   store.TestRepository
	repairs store.RepairRepository
	rates   cost.Rates
	now     func() time.Time
}

// New creates an Engine. Unset rates fall back to the documented
// defaults; the fallback is logged rather than silently applied.
func New(
	log logrus.FieldLogger,
	tests store.TestRepository,
	repairs store.RepairRepository,
	rates cost.Rates,
) *Engine {
	resolved, defaulted := rates.Resolve()
	e := &Engine{
		log:     log.WithField("component", "engine"),
		tests:   tests,
		repairs: repairs,
		rates:   resolved,
		now:     func() time.Time { return time.Now().UTC() },
	}

	if defaulted {
		e.log.WithField("labor_per_hour", resolved.LaborPerHour).
			WithField("qc_per_hour", resolved.QCPerHour).
			Warn("No cost rates configured, using defaults")
	}

	return e
}

// SubmitTest creates a test record, or updates it in place when the
// submission carries an existing ID. Required fields are validated
// together and reported in a single *ValidationError.
func (e *Engine) SubmitTest(
	ctx context.Context, t *store.TestRecord,
) (*store.TestRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateSubmission(t); err != nil {
		return nil, err
	}

	if t.ID == 0 {
		if err := e.tests.CreateTest(ctx, t); err != nil {
			return nil, err
		}

		e.log.WithField("test_id", t.ID).
			WithField("serial", t.Asset.SerialNumber).
			WithField("result", t.Result).
			Info("Test record submitted")

		return t, nil
	}

	existing, err := e.tests.GetTest(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	// The repair linkage and creation time survive re-submission.
	t.RepairRecordID = existing.RepairRecordID
	t.CreatedAt = existing.CreatedAt

	if err := e.tests.SaveTest(ctx, t); err != nil {
		return nil, err
	}

	e.log.WithField("test_id", t.ID).Info("Test record updated")

	return t, nil
}

// validateSubmission checks the required fields and the
// retest-required invariant. All failing fields are reported together.
func validateSubmission(t *store.TestRecord) error {
	var fields []string

	if t.Asset.SerialNumber == "" {
		fields = append(fields, "asset.serial_number")
	}

	if t.Params.TestType == "" {
		fields = append(fields, "params.test_type")
	}

	if t.Personnel.Executor == "" {
		fields = append(fields, "personnel.executor")
	}

	if !t.Result.Valid() {
		fields = append(fields, "result")
	}

	// A passed test never requires a retest.
	if t.Result == store.ResultPassed && t.RetestRequired {
		fields = append(fields, "retest_required")
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	return nil
}

// GenerateRepair derives a repair record from a failed or conditional
// test, prices it, and links it to the test. At most one repair may
// reference a test; a second call returns *DuplicateRepairError.
func (e *Engine) GenerateRepair(
	ctx context.Context, testID uint,
) (*store.RepairRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	if t.RepairRecordID != nil {
		return nil, &DuplicateRepairError{
			TestID:   testID,
			RepairID: *t.RepairRecordID,
		}
	}

	if t.Result == store.ResultPassed {
		return nil, &InvalidInputError{
			Reason: "test record passed, nothing to repair",
		}
	}

	d, err := derive.Derive(t)
	if err != nil {
		if errors.Is(err, derive.ErrInvalidInput) {
			return nil, &InvalidInputError{Reason: err.Error()}
		}

		return nil, err
	}

	breakdown := cost.Compute(d.EstimatedDurationHours, d.RepairType, e.rates)

	plan := d.Plan
	plan.EstimatedCost = breakdown.Total

	r := &store.RepairRecord{
		TestRecordID: t.ID,
		Asset:        t.Asset,
		Info: store.RepairInfo{
			RepairDate:             e.now(),
			EstimatedDurationHours: d.EstimatedDurationHours,
			Priority:               d.Priority,
			RepairType:             d.RepairType,
		},
		Defects:   append([]store.Defect(nil), t.Defects...),
		Plan:      plan,
		Status:    store.StatusPlanned,
		Cost:      breakdown,
		TotalCost: breakdown.Total,
	}

	if err := e.repairs.CreateRepairForTest(ctx, r); err != nil {
		return nil, err
	}

	e.log.WithField("repair_id", r.ID).
		WithField("test_id", t.ID).
		WithField("priority", r.Info.Priority).
		WithField("repair_type", r.Info.RepairType).
		WithField("total_cost", r.TotalCost).
		Info("Repair record generated")

	return r, nil
}

// TransitionRepair moves a repair to a new status, applying the
// transition's side effects. Illegal transitions return a
// *lifecycle.PreconditionError.
func (e *Engine) TransitionRepair(
	ctx context.Context,
	repairID uint,
	to store.RepairStatus,
	p lifecycle.Payload,
) (*store.RepairRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.repairs.GetRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}

	from := r.Status

	if err := lifecycle.Apply(r, to, p, e.now()); err != nil {
		return nil, err
	}

	if err := e.repairs.SaveRepair(ctx, r); err != nil {
		return nil, err
	}

	e.log.WithField("repair_id", r.ID).
		WithField("from", from).
		WithField("to", to).
		Info("Repair status changed")

	return r, nil
}

// AppendRepairStep appends a step to a repair's work log with the next
// sequential number. Steps on terminal repairs are rejected.
func (e *Engine) AppendRepairStep(
	ctx context.Context, repairID uint, step store.RepairStep,
) (*store.RepairRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.mutableRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}

	step.Number = len(r.Steps) + 1
	if step.Status == "" {
		step.Status = store.StepPending
	}

	r.Steps = append(r.Steps, step)

	if err := e.repairs.SaveRepair(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// AddQualityCheck records an inspection on a repair. A failed or
// conditional check on a repair in quality_check sends it to
// retest_required.
func (e *Engine) AddQualityCheck(
	ctx context.Context, repairID uint, qc store.QualityCheck,
) (*store.RepairRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.mutableRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}

	if qc.Date.IsZero() {
		qc.Date = e.now()
	}

	r.QualityChecks = append(r.QualityChecks, qc)

	failed := qc.Result == store.ResultFailed ||
		qc.Result == store.ResultConditional

	if failed && r.Status == store.StatusQualityCheck {
		if err := lifecycle.Apply(
			r, store.StatusRetestRequired, lifecycle.Payload{}, e.now(),
		); err != nil {
			return nil, err
		}

		e.log.WithField("repair_id", r.ID).
			WithField("check_result", qc.Result).
			Info("Quality check failed, retest required")
	}

	if err := e.repairs.SaveRepair(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// AddMaterial appends a material line and folds its cost into the
// repair's total.
func (e *Engine) AddMaterial(
	ctx context.Context, repairID uint, m store.Material,
) (*store.RepairRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.mutableRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}

	r.Materials = append(r.Materials, m)
	r.TotalCost += m.Cost

	if err := e.repairs.SaveRepair(ctx, r); err != nil {
		return nil, err
	}

	return r, nil
}

// mutableRepair fetches a repair and rejects mutation of terminal
// records.
func (e *Engine) mutableRepair(
	ctx context.Context, repairID uint,
) (*store.RepairRecord, error) {
	r, err := e.repairs.GetRepair(ctx, repairID)
	if err != nil {
		return nil, err
	}

	if r.Status.Terminal() {
		return nil, &lifecycle.PreconditionError{
			From:   r.Status,
			To:     r.Status,
			Reason: "no mutation permitted in a terminal state",
		}
	}

	return r, nil
}

// DeleteTest removes a test record and cascades to its linked repair.
func (e *Engine) DeleteTest(ctx context.Context, testID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.tests.DeleteTestCascade(ctx, testID); err != nil {
		return err
	}

	e.log.WithField("test_id", testID).Info("Test record deleted")

	return nil
}

// DeleteRepair removes a repair record and clears the back-reference
// on its test record, leaving the test intact.
func (e *Engine) DeleteRepair(ctx context.Context, repairID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repairs.DeleteRepairRelease(ctx, repairID); err != nil {
		return err
	}

	e.log.WithField("repair_id", repairID).Info("Repair record deleted")

	return nil
}

// GetTest returns a single test record.
func (e *Engine) GetTest(
	ctx context.Context, id uint,
) (*store.TestRecord, error) {
	return e.tests.GetTest(ctx, id)
}

// GetRepair returns a single repair record.
func (e *Engine) GetRepair(
	ctx context.Context, id uint,
) (*store.RepairRecord, error) {
	return e.repairs.GetRepair(ctx, id)
}

// QueryTests returns the test records matching the filter.
func (e *Engine) QueryTests(
	ctx context.Context, f query.Filter,
) ([]store.TestRecord, error) {
	tests, err := e.tests.ListTests(ctx)
	if err != nil {
		return nil, err
	}

	var statusByTest map[uint]store.RepairStatus

	if f.RepairStatus != "" {
		repairs, err := e.repairs.ListRepairs(ctx)
		if err != nil {
			return nil, err
		}

		statusByTest = make(map[uint]store.RepairStatus, len(repairs))
		for _, r := range repairs {
			statusByTest[r.TestRecordID] = r.Status
		}
	}

	return query.FilterTests(tests, statusByTest, f), nil
}

// QueryRepairs returns the repair records matching the filter.
func (e *Engine) QueryRepairs(
	ctx context.Context, f query.Filter,
) ([]store.RepairRecord, error) {
	repairs, err := e.repairs.ListRepairs(ctx)
	if err != nil {
		return nil, err
	}

	return query.FilterRepairs(repairs, f), nil
}

// GetAssetHistory recomputes the derived history for one asset serial
// number.
func (e *Engine) GetAssetHistory(
	ctx context.Context, serial string,
) (*query.TankHistory, error) {
	tests, err := e.tests.ListTestsBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}

	repairs, err := e.repairs.ListRepairsBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}

	h := query.BuildHistory(serial, tests, repairs)

	return &h, nil
}

// FleetStats computes aggregates over the tests matching the filter.
func (e *Engine) FleetStats(
	ctx context.Context, f query.Filter,
) (query.Aggregates, error) {
	tests, err := e.QueryTests(ctx, f)
	if err != nil {
		return query.Aggregates{}, err
	}

	return query.Aggregate(tests, e.now()), nil
}

package store

import (
	"time"
)

// Result is the outcome of a quality test, quality check, or retest.
type Result string

// Test result values.
const (
	ResultPassed      Result = "passed"
	ResultFailed      Result = "failed"
	ResultConditional Result = "conditional"
)

// Valid reports whether r is a known result value.
func (r Result) Valid() bool {
	switch r {
	case ResultPassed, ResultFailed, ResultConditional:
		return true
	}

	return false
}

// Priority classifies how urgently a repair must be performed.
type Priority string

// Repair priority values, ordered from least to most urgent.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// RepairType is the category of corrective work performed.
type RepairType string

// Repair type values.
const (
	RepairWelding     RepairType = "welding"
	RepairPatching    RepairType = "patching"
	RepairReplacement RepairType = "replacement"
	RepairCleaning    RepairType = "cleaning"
	RepairAdjustment  RepairType = "adjustment"
	RepairOther       RepairType = "other"
)

// RepairStatus is the lifecycle state of a repair record.
type RepairStatus string

// Repair lifecycle states.
const (
	StatusPlanned        RepairStatus = "planned"
	StatusInProgress     RepairStatus = "in_progress"
	StatusQualityCheck   RepairStatus = "quality_check"
	StatusRetestRequired RepairStatus = "retest_required"
	StatusCompleted      RepairStatus = "completed"
	StatusCancelled      RepairStatus = "cancelled"
)

// Valid reports whether s is a known repair status.
func (s RepairStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusQualityCheck,
		StatusRetestRequired, StatusCompleted, StatusCancelled:
		return true
	}

	return false
}

// Terminal reports whether no further transition out of s is permitted.
func (s RepairStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StepStatus is the state of a single repair step.
type StepStatus string

// Repair step states.
const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// Asset identifies the physical vessel under test. It is snapshotted
// into every test and repair record so that later corrections to one
// record do not retroactively change another.
type Asset struct {
	SerialNumber    string     `gorm:"index" json:"serial_number"`
	Type            string     `json:"type"`
	Material        string     `json:"material"`
	NominalCapacity float64    `json:"nominal_capacity"`
	ProductionDate  *time.Time `json:"production_date,omitempty"`
	BatchNumber     string     `json:"batch_number"`
}

// Defect is a single nonconformity found during a test. Defects are
// owned by the record that lists them and are copied, not referenced,
// when a repair is generated from a test.
type Defect struct {
	ErrorType    string  `json:"error_type"`
	Location     string  `json:"location"`
	SizeMM       float64 `json:"size_mm"`
	RepairMethod string  `json:"repair_method,omitempty"`
}

// Personnel names the two roles attached to a test execution.
type Personnel struct {
	Executor string `json:"executor"`
	Verifier string `json:"verifier"`
}

// TestContext carries vehicle/installation metadata for a test.
type TestContext struct {
	Vehicle      string `json:"vehicle,omitempty"`
	Installation string `json:"installation,omitempty"`
}

// TestParams holds the measured parameters of a test execution.
type TestParams struct {
	TestType        string    `json:"test_type"`
	TestDate        time.Time `json:"test_date"`
	PressureBar     float64   `json:"pressure_bar"`
	DurationMinutes float64   `json:"duration_minutes"`
	AmbientTempC    float64   `json:"ambient_temp_c"`
	Equipment       string    `json:"equipment,omitempty"`
	Deviation       float64   `json:"deviation"`
}

// TestRecord is one execution of a quality test against an asset.
type TestRecord struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Asset          Asset       `gorm:"embedded;embeddedPrefix:asset_" json:"asset"`
	Personnel      Personnel   `gorm:"embedded" json:"personnel"`
	Context        TestContext `gorm:"embedded" json:"context"`
	Params         TestParams  `gorm:"embedded" json:"params"`
	Defects        []Defect    `gorm:"serializer:json" json:"defects"`
	Result         Result      `gorm:"not null" json:"result"`
	RetestRequired bool        `json:"retest_required"`
	Notes          string      `json:"notes,omitempty"`
	RepairRecordID *uint       `gorm:"index" json:"repair_record_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// RepairPlan is the informational work plan attached to a repair at
// generation time. The engine does not validate its contents further.
type RepairPlan struct {
	Actions           []string `json:"actions"`
	Tools             []string `json:"tools"`
	SafetyPrecautions []string `json:"safety_precautions"`
	EstimatedCost     float64  `json:"estimated_cost"`
}

// RepairStep is one entry in a repair's ordered work log. Step numbers
// are sequential from 1 with no gaps and immutable once assigned.
type RepairStep struct {
	Number      int        `json:"number"`
	Description string     `json:"description"`
	Responsible string     `json:"responsible"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Status      StepStatus `json:"status"`
	Notes       string     `json:"notes,omitempty"`
}

// Material is one material line used during a repair.
type Material struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Cost     float64 `json:"cost"`
}

// QualityCheck records one inspection performed on a repair.
type QualityCheck struct {
	CheckType string    `json:"check_type"`
	Inspector string    `json:"inspector"`
	Result    Result    `json:"result"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes,omitempty"`
}

// RetestRecord links a repair to the follow-up test confirming its
// success.
type RetestRecord struct {
	TestID        uint      `json:"test_id"`
	Date          time.Time `json:"date"`
	Result        Result    `json:"result"`
	FinalApproval bool      `json:"final_approval"`
}

// CostBreakdown itemizes the estimated cost of a repair. Callers must
// use the stored breakdown rather than recomputing it.
type CostBreakdown struct {
	Labor     float64 `json:"labor"`
	QC        float64 `json:"qc"`
	Material  float64 `json:"material"`
	Equipment float64 `json:"equipment"`
	Total     float64 `json:"total"`
}

// RepairInfo holds the planning parameters of a repair.
type RepairInfo struct {
	RepairDate             time.Time  `json:"repair_date"`
	EstimatedDurationHours float64    `json:"estimated_duration_hours"`
	ActualDurationHours    *float64   `json:"actual_duration_hours,omitempty"`
	Priority               Priority   `json:"priority"`
	RepairType             RepairType `json:"repair_type"`
	RootCause              string     `json:"root_cause,omitempty"`
	PreventiveAction       string     `json:"preventive_action,omitempty"`
}

// RepairPersonnel names the people responsible for a repair.
type RepairPersonnel struct {
	Technician string `json:"technician"`
	QCReviewer string `json:"qc_reviewer"`
}

// RepairRecord is one corrective work order generated from a failed or
// conditional test. TestRecordID is set at creation and immutable; at
// most one repair references a given test.
type RepairRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	TestRecordID  uint            `gorm:"uniqueIndex;not null" json:"test_record_id"`
	Asset         Asset           `gorm:"embedded;embeddedPrefix:asset_" json:"asset"`
	Info          RepairInfo      `gorm:"embedded" json:"info"`
	Personnel     RepairPersonnel `gorm:"embedded" json:"personnel"`
	Defects       []Defect        `gorm:"serializer:json" json:"defects"`
	Plan          RepairPlan      `gorm:"serializer:json" json:"plan"`
	Steps         []RepairStep    `gorm:"serializer:json" json:"steps"`
	Materials     []Material      `gorm:"serializer:json" json:"materials"`
	QualityChecks []QualityCheck  `gorm:"serializer:json" json:"quality_checks"`
	Retest        *RetestRecord   `gorm:"serializer:json" json:"retest,omitempty"`
	Status        RepairStatus    `gorm:"not null;index" json:"status"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	Cost          CostBreakdown   `gorm:"embedded;embeddedPrefix:cost_" json:"cost"`
	TotalCost     float64         `json:"total_cost"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

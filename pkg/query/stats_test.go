package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselworks/vesseltrace/pkg/query"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

func TestAggregate_EmptySet(t *testing.T) {
	agg := query.Aggregate(nil, time.Now())

	assert.Zero(t, agg.Count)
	assert.Zero(t, agg.SuccessRate, "0, not NaN")
	assert.Zero(t, agg.MeanDeviation)
	assert.Empty(t, agg.MostFrequentDefect)
}

func TestAggregate_SuccessRateAndDeviation(t *testing.T) {
	now := date(2025, time.May, 15)

	tests := []store.TestRecord{
		{Result: store.ResultPassed, Params: store.TestParams{
			Deviation: 0.1, TestDate: date(2025, time.May, 1)}},
		{Result: store.ResultPassed, Params: store.TestParams{
			Deviation: 0.2, TestDate: date(2025, time.May, 2)}},
		{Result: store.ResultFailed, Params: store.TestParams{
			Deviation: 0.4, TestDate: date(2025, time.April, 1)}},
		{Result: store.ResultConditional, Params: store.TestParams{
			Deviation: 0.3, TestDate: date(2025, time.April, 2)}},
	}

	agg := query.Aggregate(tests, now)

	assert.Equal(t, 4, agg.Count)
	assert.InDelta(t, 0.5, agg.SuccessRate, 1e-9)
	assert.InDelta(t, 0.25, agg.MeanDeviation, 1e-9)
	assert.Equal(t, 2, agg.CountThisMonth)
}

func TestAggregate_MeanDeviationRoundedTo3Places(t *testing.T) {
	tests := []store.TestRecord{
		{Result: store.ResultPassed, Params: store.TestParams{Deviation: 0.1}},
		{Result: store.ResultPassed, Params: store.TestParams{Deviation: 0.2}},
		{Result: store.ResultPassed, Params: store.TestParams{Deviation: 0.2}},
	}

	agg := query.Aggregate(tests, time.Now())

	// 0.5 / 3 = 0.1666... -> 0.167
	assert.Equal(t, 0.167, agg.MeanDeviation)
}

func TestAggregate_MostFrequentDefectTieBreak(t *testing.T) {
	tests := []store.TestRecord{
		{Result: store.ResultFailed, Defects: []store.Defect{
			{ErrorType: "crack"}, {ErrorType: "corrosion"},
		}},
		{Result: store.ResultFailed, Defects: []store.Defect{
			{ErrorType: "corrosion"}, {ErrorType: "crack"},
		}},
	}

	agg := query.Aggregate(tests, time.Now())

	// Both types occur twice; first-encountered wins.
	assert.Equal(t, "crack", agg.MostFrequentDefect)
}

func TestAggregate_MostFrequentDefectByCount(t *testing.T) {
	tests := []store.TestRecord{
		{Result: store.ResultFailed, Defects: []store.Defect{
			{ErrorType: "crack"},
		}},
		{Result: store.ResultFailed, Defects: []store.Defect{
			{ErrorType: "corrosion"}, {ErrorType: "corrosion"},
		}},
	}

	agg := query.Aggregate(tests, time.Now())
	assert.Equal(t, "corrosion", agg.MostFrequentDefect)
}

func TestBuildHistory(t *testing.T) {
	actual := 7.0

	tests := []store.TestRecord{
		{ID: 1, Result: store.ResultPassed, Params: store.TestParams{
			TestDate: date(2025, time.March, 1)}},
		{ID: 2, Result: store.ResultFailed, Params: store.TestParams{
			TestDate: date(2025, time.April, 1)}},
	}
	repairs := []store.RepairRecord{
		{
			ID:        1,
			TotalCost: 2580,
			Info: store.RepairInfo{
				RepairDate:             date(2025, time.April, 2),
				EstimatedDurationHours: 8,
				ActualDurationHours:    &actual,
			},
		},
		{
			ID:        2,
			TotalCost: 1000,
			Info: store.RepairInfo{
				RepairDate:             date(2025, time.March, 5),
				EstimatedDurationHours: 4,
			},
		},
	}

	h := query.BuildHistory("VT-1", tests, repairs)

	assert.Equal(t, "VT-1", h.SerialNumber)
	assert.Equal(t, 2, h.TotalTests)
	assert.Equal(t, 2, h.TotalRepairs)
	assert.InDelta(t, 0.5, h.SuccessRate, 1e-9)
	assert.InDelta(t, 3580, h.TotalRepairCost, 1e-9)

	// Actual duration is preferred over the estimate: (7 + 4) / 2.
	assert.InDelta(t, 5.5, h.MeanRepairDurationHours, 1e-9)

	require.NotNil(t, h.LastTestDate)
	assert.Equal(t, date(2025, time.April, 1), *h.LastTestDate)
	require.NotNil(t, h.LastRepairDate)
	assert.Equal(t, date(2025, time.April, 2), *h.LastRepairDate)
}

func TestBuildHistory_Empty(t *testing.T) {
	h := query.BuildHistory("VT-404", nil, nil)

	assert.Zero(t, h.TotalTests)
	assert.Zero(t, h.SuccessRate)
	assert.Nil(t, h.LastTestDate)
	assert.Nil(t, h.LastRepairDate)
}

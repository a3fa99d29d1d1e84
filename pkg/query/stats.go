package query

import (
	"math"
	"time"

	"github.com/vesselworks/vesseltrace/pkg/store"
)

// Aggregates are the fleet-wide statistics over a filtered test set.
type Aggregates struct {
	Count              int     `json:"count"`
	SuccessRate        float64 `json:"success_rate"`
	MeanDeviation      float64 `json:"mean_deviation"`
	MostFrequentDefect string  `json:"most_frequent_defect,omitempty"`
	CountThisMonth     int     `json:"count_this_month"`
}

// Aggregate computes statistics over a test set. now anchors the
// "current calendar month" count.
func Aggregate(tests []store.TestRecord, now time.Time) Aggregates {
	agg := Aggregates{Count: len(tests)}
	if len(tests) == 0 {
		return agg
	}

	var (
		passed       int
		deviationSum float64
	)

	// Tie-break on the most frequent defect type goes to the type
	// encountered first in insertion order.
	defectCounts := make(map[string]int)
	defectOrder := make([]string, 0, 8)

	for _, t := range tests {
		if t.Result == store.ResultPassed {
			passed++
		}

		deviationSum += t.Params.Deviation

		if t.Params.TestDate.Year() == now.Year() &&
			t.Params.TestDate.Month() == now.Month() {
			agg.CountThisMonth++
		}

		for _, d := range t.Defects {
			if _, seen := defectCounts[d.ErrorType]; !seen {
				defectOrder = append(defectOrder, d.ErrorType)
			}

			defectCounts[d.ErrorType]++
		}
	}

	agg.SuccessRate = float64(passed) / float64(len(tests))
	agg.MeanDeviation = round3(deviationSum / float64(len(tests)))

	best := -1
	for _, errType := range defectOrder {
		if defectCounts[errType] > best {
			best = defectCounts[errType]
			agg.MostFrequentDefect = errType
		}
	}

	return agg
}

// TankHistory is the derived per-asset view over its tests and
// repairs. It is recomputed on demand and never persisted.
type TankHistory struct {
	SerialNumber            string               `json:"serial_number"`
	Tests                   []store.TestRecord   `json:"tests"`
	Repairs                 []store.RepairRecord `json:"repairs"`
	TotalTests              int                  `json:"total_tests"`
	TotalRepairs            int                  `json:"total_repairs"`
	SuccessRate             float64              `json:"success_rate"`
	MeanRepairDurationHours float64              `json:"mean_repair_duration_hours"`
	TotalRepairCost         float64              `json:"total_repair_cost"`
	LastTestDate            *time.Time           `json:"last_test_date,omitempty"`
	LastRepairDate          *time.Time           `json:"last_repair_date,omitempty"`
}

// BuildHistory assembles the derived history for one asset serial
// number from its canonical record sets. Repair durations use the
// actual duration when recorded and fall back to the estimate.
func BuildHistory(
	serial string,
	tests []store.TestRecord,
	repairs []store.RepairRecord,
) TankHistory {
	h := TankHistory{
		SerialNumber: serial,
		Tests:        tests,
		Repairs:      repairs,
		TotalTests:   len(tests),
		TotalRepairs: len(repairs),
	}

	var passed int

	for i := range tests {
		if tests[i].Result == store.ResultPassed {
			passed++
		}

		d := tests[i].Params.TestDate
		if h.LastTestDate == nil || d.After(*h.LastTestDate) {
			t := d
			h.LastTestDate = &t
		}
	}

	if len(tests) > 0 {
		h.SuccessRate = float64(passed) / float64(len(tests))
	}

	var durationSum float64

	for i := range repairs {
		r := &repairs[i]

		dur := r.Info.EstimatedDurationHours
		if r.Info.ActualDurationHours != nil {
			dur = *r.Info.ActualDurationHours
		}

		durationSum += dur
		h.TotalRepairCost += r.TotalCost

		d := r.Info.RepairDate
		if h.LastRepairDate == nil || d.After(*h.LastRepairDate) {
			t := d
			h.LastRepairDate = &t
		}
	}

	if len(repairs) > 0 {
		h.MeanRepairDurationHours = round3(durationSum / float64(len(repairs)))
	}

	return h
}

// round3 rounds to 3 decimal places.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Package query answers multi-predicate filter queries over the record
// set and computes per-asset and fleet-wide aggregates. Everything in
// this package is pure and operates on snapshots handed in by the
// caller.
package query

import (
	"strings"
	"time"

	"github.com/vesselworks/vesseltrace/pkg/store"
)

// RepairStatusNone is the synthetic repair-status filter value meaning
// "no linked repair".
const RepairStatusNone = "none"

// PeriodMode selects how the date-range predicate is interpreted. The
// three modes are mutually exclusive.
type PeriodMode string

// Period modes.
const (
	PeriodMonth   PeriodMode = "month"
	PeriodQuarter PeriodMode = "quarter"
	PeriodRange   PeriodMode = "range"
)

// Period is the date-range predicate of a filter.
type Period struct {
	Mode    PeriodMode
	Year    int
	Month   time.Month // month mode
	Quarter int        // quarter mode, 1-4
	From    time.Time  // range mode, inclusive
	To      time.Time  // range mode, inclusive
}

// contains reports whether t falls inside the period.
func (p *Period) contains(t time.Time) bool {
	switch p.Mode {
	case PeriodMonth:
		return t.Year() == p.Year && t.Month() == p.Month
	case PeriodQuarter:
		if t.Year() != p.Year {
			return false
		}

		return (int(t.Month())-1)/3+1 == p.Quarter
	case PeriodRange:
		// Inclusive on both ends.
		return !t.Before(p.From) && !t.After(p.To)
	}

	// An unknown mode matches nothing rather than silently disabling
	// the date predicate.
	return false
}

// Filter holds the independently optional predicates of a record
// query. Predicates are combined with logical AND; the first failing
// predicate excludes the record.
type Filter struct {
	SerialContains string
	AssetType      string
	TestType       string
	Result         store.Result
	RepairStatus   string // a store.RepairStatus value or RepairStatusNone
	Period         *Period
}

// FilterTests returns the tests matching every set predicate.
// repairStatusByTest maps a test ID to the status of its linked repair
// and is consulted only when the repair-status predicate is set.
func FilterTests(
	tests []store.TestRecord,
	repairStatusByTest map[uint]store.RepairStatus,
	f Filter,
) []store.TestRecord {
	out := make([]store.TestRecord, 0, len(tests))

	for _, t := range tests {
		if !matchesTest(&t, repairStatusByTest, f) {
			continue
		}

		out = append(out, t)
	}

	return out
}

func matchesTest(
	t *store.TestRecord,
	repairStatusByTest map[uint]store.RepairStatus,
	f Filter,
) bool {
	if f.SerialContains != "" &&
		!strings.Contains(t.Asset.SerialNumber, f.SerialContains) {
		return false
	}

	if f.AssetType != "" && t.Asset.Type != f.AssetType {
		return false
	}

	if f.TestType != "" && t.Params.TestType != f.TestType {
		return false
	}

	if f.Result != "" && t.Result != f.Result {
		return false
	}

	if f.RepairStatus != "" {
		status, linked := repairStatusByTest[t.ID]

		if f.RepairStatus == RepairStatusNone {
			if linked {
				return false
			}
		} else if !linked || string(status) != f.RepairStatus {
			return false
		}
	}

	if f.Period != nil && !f.Period.contains(t.Params.TestDate) {
		return false
	}

	return true
}

// FilterRepairs returns the repairs matching every set predicate. The
// test-type and result predicates do not apply to repairs; the
// repair-status predicate matches the repair's own status and the
// period predicate its repair date.
func FilterRepairs(
	repairs []store.RepairRecord, f Filter,
) []store.RepairRecord {
	out := make([]store.RepairRecord, 0, len(repairs))

	for _, r := range repairs {
		if f.SerialContains != "" &&
			!strings.Contains(r.Asset.SerialNumber, f.SerialContains) {
			continue
		}

		if f.AssetType != "" && r.Asset.Type != f.AssetType {
			continue
		}

		if f.RepairStatus != "" && f.RepairStatus != RepairStatusNone &&
			string(r.Status) != f.RepairStatus {
			continue
		}

		if f.Period != nil && !f.Period.contains(r.Info.RepairDate) {
			continue
		}

		out = append(out, r)
	}

	return out
}

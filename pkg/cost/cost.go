// Package cost computes the estimated cost breakdown of a repair from
// its duration, repair type, and externally supplied hourly rates.
package cost

import (
	"math"

	"github.com/vesselworks/vesseltrace/pkg/store"
)

const (
	// DefaultLaborRatePerHour applies when no labor rate is configured.
	DefaultLaborRatePerHour = 150

	// DefaultQCRatePerHour applies when no QC rate is configured.
	DefaultQCRatePerHour = 100

	// qcDurationShare is the fraction of the repair duration assumed to
	// be spent on quality control, regardless of repair type or the
	// number of quality checks actually performed.
	qcDurationShare = 0.3

	// materialShare and equipmentShare are fixed fractions of labor cost.
	materialShare  = 0.2
	equipmentShare = 0.1
)

// Rates are the hourly rates used for cost computation, in currency
// units per hour.
type Rates struct {
	LaborPerHour float64
	QCPerHour    float64
}

// Resolve fills in documented defaults for unset rates. It reports
// whether any default was applied so the caller can flag the fallback
// instead of silently treating it as authoritative.
func (r Rates) Resolve() (Rates, bool) {
	defaulted := false

	if r.LaborPerHour == 0 {
		r.LaborPerHour = DefaultLaborRatePerHour
		defaulted = true
	}

	if r.QCPerHour == 0 {
		r.QCPerHour = DefaultQCRatePerHour
		defaulted = true
	}

	return r, defaulted
}

// typeMultipliers scale labor cost by repair type.
var typeMultipliers = map[store.RepairType]float64{
	store.RepairWelding:     1.5,
	store.RepairPatching:    1.2,
	store.RepairReplacement: 2.0,
	store.RepairCleaning:    0.8,
	store.RepairAdjustment:  0.6,
	store.RepairOther:       1.0,
}

// Multiplier returns the labor cost multiplier for a repair type.
// Unknown types use the "other" multiplier.
func Multiplier(rt store.RepairType) float64 {
	if m, ok := typeMultipliers[rt]; ok {
		return m
	}

	return typeMultipliers[store.RepairOther]
}

// Compute derives the itemized cost breakdown for a repair. All
// components are rounded to whole currency units once at the end, not
// at each step, so rounding error does not compound. The returned
// total is the exact sum of the rounded components.
func Compute(
	durationHours float64,
	rt store.RepairType,
	rates Rates,
) store.CostBreakdown {
	labor := durationHours * rates.LaborPerHour * Multiplier(rt)
	qc := durationHours * qcDurationShare * rates.QCPerHour
	material := labor * materialShare
	equipment := labor * equipmentShare

	b := store.CostBreakdown{
		Labor:     math.Round(labor),
		QC:        math.Round(qc),
		Material:  math.Round(material),
		Equipment: math.Round(equipment),
	}

	b.Total = b.Labor + b.QC + b.Material + b.Equipment

	return b
}

package cost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesselworks/vesseltrace/pkg/cost"
	"github.com/vesselworks/vesseltrace/pkg/store"
)

var defaultRates = cost.Rates{LaborPerHour: 150, QCPerHour: 100}

func TestCompute_WorkedExample(t *testing.T) {
	// Critical welding repair, 8 hours, default rates.
	b := cost.Compute(8, store.RepairWelding, defaultRates)

	assert.InDelta(t, 1800, b.Labor, 0.001)   // 8 * 150 * 1.5
	assert.InDelta(t, 240, b.QC, 0.001)       // 8 * 0.3 * 100
	assert.InDelta(t, 360, b.Material, 0.001) // labor * 0.2
	assert.InDelta(t, 180, b.Equipment, 0.001)
	assert.InDelta(t, 2580, b.Total, 0.001)
}

func TestCompute_TotalIsExactSumOfComponents(t *testing.T) {
	types := []store.RepairType{
		store.RepairWelding, store.RepairPatching, store.RepairReplacement,
		store.RepairCleaning, store.RepairAdjustment, store.RepairOther,
	}
	durations := []float64{0, 0.5, 1, 3.7, 8, 40}

	for _, rt := range types {
		for _, dur := range durations {
			b := cost.Compute(dur, rt, defaultRates)
			sum := b.Labor + b.QC + b.Material + b.Equipment
			assert.Equal(t, sum, b.Total,
				"type %s duration %v", rt, dur)
		}
	}
}

func TestCompute_MonotonicInDuration(t *testing.T) {
	for _, rt := range []store.RepairType{
		store.RepairWelding, store.RepairCleaning, store.RepairOther,
	} {
		prev := -1.0
		for dur := 0.0; dur <= 24; dur += 0.25 {
			b := cost.Compute(dur, rt, defaultRates)
			require.GreaterOrEqual(t, b.Total, prev,
				"type %s duration %v", rt, dur)
			prev = b.Total
		}
	}
}

func TestCompute_RoundsOnceAtTheEnd(t *testing.T) {
	// 1.1h other repair at odd rates produces fractional raw costs.
	rates := cost.Rates{LaborPerHour: 133, QCPerHour: 77}
	b := cost.Compute(1.1, store.RepairOther, rates)

	// labor = 146.3 -> 146, qc = 25.41 -> 25,
	// material = 29.26 -> 29, equipment = 14.63 -> 15
	assert.Equal(t, 146.0, b.Labor)
	assert.Equal(t, 25.0, b.QC)
	assert.Equal(t, 29.0, b.Material)
	assert.Equal(t, 15.0, b.Equipment)
	assert.Equal(t, 215.0, b.Total)
}

func TestMultiplier(t *testing.T) {
	assert.Equal(t, 1.5, cost.Multiplier(store.RepairWelding))
	assert.Equal(t, 1.2, cost.Multiplier(store.RepairPatching))
	assert.Equal(t, 2.0, cost.Multiplier(store.RepairReplacement))
	assert.Equal(t, 0.8, cost.Multiplier(store.RepairCleaning))
	assert.Equal(t, 0.6, cost.Multiplier(store.RepairAdjustment))
	assert.Equal(t, 1.0, cost.Multiplier(store.RepairOther))
	assert.Equal(t, 1.0, cost.Multiplier(store.RepairType("unknown")))
}

func TestRates_Resolve(t *testing.T) {
	resolved, defaulted := cost.Rates{}.Resolve()
	assert.True(t, defaulted)
	assert.Equal(t, float64(cost.DefaultLaborRatePerHour), resolved.LaborPerHour)
	assert.Equal(t, float64(cost.DefaultQCRatePerHour), resolved.QCPerHour)

	resolved, defaulted = cost.Rates{LaborPerHour: 200, QCPerHour: 120}.Resolve()
	assert.False(t, defaulted)
	assert.Equal(t, 200.0, resolved.LaborPerHour)

	// Partial configuration still counts as defaulted.
	_, defaulted = cost.Rates{LaborPerHour: 200}.Resolve()
	assert.True(t, defaulted)
}

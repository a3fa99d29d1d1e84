// Package derive turns a failed or conditional test record into a
// prioritized repair plan. All functions are pure; nothing here touches
// storage.
package derive

import (
	"errors"
	"strings"

	"github.com/vesselworks/vesseltrace/pkg/store"
)

// ErrInvalidInput is returned when derivation is attempted on a test
// record with no asset serial number or no result.
var ErrInvalidInput = errors.New("test record has no asset or no result")

// Derivation is the repair plan derived from a failed test.
type Derivation struct {
	Priority               store.Priority
	EstimatedDurationHours float64
	RepairType             store.RepairType
	Plan                   store.RepairPlan
}

// keywordRule maps a substring of a defect error type to a repair type.
// Rules are matched in order; the first hit wins, so "weld crack"
// resolves to welding, not patching.
type keywordRule struct {
	keywords   []string
	repairType store.RepairType
}

var keywordRules = []keywordRule{
	{[]string{"weld"}, store.RepairWelding},
	{[]string{"crack", "hole"}, store.RepairPatching},
	{[]string{"corrosion"}, store.RepairCleaning},
	{[]string{"deformation"}, store.RepairAdjustment},
}

// Derive computes the repair priority, estimated duration, repair type
// and default plan for a test record whose result is failed or
// conditional.
func Derive(t *store.TestRecord) (*Derivation, error) {
	if t == nil || t.Asset.SerialNumber == "" || t.Result == "" {
		return nil, ErrInvalidInput
	}

	rt := inferRepairType(t.Defects)
	priority := inferPriority(t.Defects)

	return &Derivation{
		Priority:               priority,
		EstimatedDurationHours: estimateDuration(priority),
		RepairType:             rt,
		Plan:                   defaultPlan(rt),
	}, nil
}

// inferRepairType matches the first listed defect's error type against
// the keyword table. No match, or no defects, falls back to welding.
func inferRepairType(defects []store.Defect) store.RepairType {
	if len(defects) == 0 {
		return store.RepairWelding
	}

	errType := strings.ToLower(defects[0].ErrorType)

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(errType, kw) {
				return rule.repairType
			}
		}
	}

	return store.RepairWelding
}

// inferPriority derives priority from the maximum defect size in
// millimeters across all listed defects.
func inferPriority(defects []store.Defect) store.Priority {
	var maxSize float64
	for _, d := range defects {
		if d.SizeMM > maxSize {
			maxSize = d.SizeMM
		}
	}

	switch {
	case maxSize >= 10:
		return store.PriorityCritical
	case maxSize >= 5:
		return store.PriorityHigh
	case maxSize >= 2:
		return store.PriorityMedium
	default:
		return store.PriorityLow
	}
}

// estimateDuration is a fixed lookup from priority to estimated repair
// hours, not a continuous function of defect size.
func estimateDuration(p store.Priority) float64 {
	switch p {
	case store.PriorityCritical:
		return 8
	case store.PriorityHigh:
		return 6
	default:
		return 4
	}
}

// planTemplate is the fixed default plan for a repair type. The plan is
// informational; the engine does not validate it further.
type planTemplate struct {
	actions []string
	tools   []string
	safety  []string
}

var planTemplates = map[store.RepairType]planTemplate{
	store.RepairWelding: {
		actions: []string{
			"Grind out the defective seam",
			"Re-weld the prepared joint",
			"Grind the weld flush and inspect visually",
		},
		tools: []string{"welding unit", "angle grinder", "weld gauge"},
		safety: []string{
			"Vent and gas-free the vessel before hot work",
			"Hot work permit required",
		},
	},
	store.RepairPatching: {
		actions: []string{
			"Mark and cut out the damaged section",
			"Fit and fasten the patch plate",
			"Seal the patch edges",
		},
		tools: []string{"cutting torch", "patch plate", "sealant gun"},
		safety: []string{
			"Depressurize the vessel completely",
			"Support the shell before cutting",
		},
	},
	store.RepairReplacement: {
		actions: []string{
			"Dismount the affected component",
			"Install and torque the replacement part",
			"Verify fit against the nominal drawing",
		},
		tools: []string{"torque wrench", "lifting gear"},
		safety: []string{
			"Secure the load path before dismounting",
			"Two-person lift for components over 25 kg",
		},
	},
	store.RepairCleaning: {
		actions: []string{
			"Remove surface corrosion mechanically",
			"Apply corrosion protection coating",
		},
		tools: []string{"wire brush", "blasting kit", "coating sprayer"},
		safety: []string{
			"Respiratory protection during blasting",
		},
	},
	store.RepairAdjustment: {
		actions: []string{
			"Measure the deformation against the nominal profile",
			"Press or heat-straighten the affected area",
			"Re-measure and record the residual deviation",
		},
		tools: []string{"hydraulic press", "dial gauge"},
		safety: []string{
			"Keep clear of the press working area",
		},
	},
	store.RepairOther: {
		actions: []string{
			"Assess the defect and define the repair procedure",
		},
		tools: []string{"standard toolkit"},
		safety: []string{
			"Follow the general workshop safety instructions",
		},
	},
}

// defaultPlan returns the fixed plan template for a repair type. The
// estimated cost is filled in later by the cost engine.
func defaultPlan(rt store.RepairType) store.RepairPlan {
	tpl, ok := planTemplates[rt]
	if !ok {
		tpl = planTemplates[store.RepairOther]
	}

	return store.RepairPlan{
		Actions:           append([]string(nil), tpl.actions...),
		Tools:             append([]string(nil), tpl.tools...),
		SafetyPrecautions: append([]string(nil), tpl.safety...),
	}
}

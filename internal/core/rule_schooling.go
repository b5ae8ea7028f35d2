package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewSchoolingRule returns the tank-context rule checking minimum group sizes
// against the stocking list.
func NewSchoolingRule() domain.StockingRule {
	return schoolingRule{}
}

type schoolingRule struct{}

func (schoolingRule) Name() string { return "schooling" }

func (r schoolingRule) EvaluateStocked(a, b domain.Species, stocking map[string]int) domain.Delta {
	out := domain.Pass(r.Name())
	for _, s := range []domain.Species{a, b} {
		short, need := schoolingShortfall(s, stocking)
		if !short {
			continue
		}
		out.Level = domain.LevelConditional
		out.Reasons = append(out.Reasons, fmt.Sprintf("%s needs a group of at least %d", s.Name, need))
		out.Conditions = append(out.Conditions, fmt.Sprintf("keep at least %d %s together", need, s.Name))
	}
	if !out.Downgrades() && (!a.SchoolingMin.Known || !b.SchoolingMin.Known) {
		return domain.Inapplicable(r.Name())
	}
	return out
}

// schoolingShortfall reports whether the stocked quantity of s is below its
// minimum group size, and that minimum.
func schoolingShortfall(s domain.Species, stocking map[string]int) (bool, int) {
	if !s.SchoolingMin.Known || s.SchoolingMin.Value <= 1 {
		return false, 0
	}
	return stocking[s.Name] < s.SchoolingMin.Value, s.SchoolingMin.Value
}

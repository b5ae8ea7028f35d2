package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewTemperatureRule compares temperature ranges. Disjoint ranges are incompatible.
func NewTemperatureRule(th Thresholds) domain.PairRule {
	return parameterRangeRule{
		name:       "temperature",
		label:      "temperature",
		unit:       " °C",
		disjoint:   domain.LevelIncompatible,
		minOverlap: th.MinRangeOverlap,
		pick:       func(s domain.Species) domain.Range { return s.Temperature },
	}
}

// NewPHRule compares pH ranges. Disjoint ranges are incompatible.
func NewPHRule(th Thresholds) domain.PairRule {
	return parameterRangeRule{
		name:       "ph",
		label:      "pH",
		disjoint:   domain.LevelIncompatible,
		minOverlap: th.MinRangeOverlap,
		pick:       func(s domain.Species) domain.Range { return s.PH },
	}
}

// NewHardnessRule compares hardness ranges. Hardness can be buffered, so even
// disjoint ranges only make the pair conditional.
func NewHardnessRule(th Thresholds) domain.PairRule {
	return parameterRangeRule{
		name:       "hardness",
		label:      "hardness",
		unit:       " dGH",
		disjoint:   domain.LevelConditional,
		minOverlap: th.MinRangeOverlap,
		pick:       func(s domain.Species) domain.Range { return s.Hardness },
	}
}

type parameterRangeRule struct {
	name       string
	label      string
	unit       string
	disjoint   domain.Level
	minOverlap float64
	pick       func(domain.Species) domain.Range
}

func (r parameterRangeRule) Name() string { return r.name }

func (r parameterRangeRule) Evaluate(a, b domain.Species) domain.Delta {
	ra, rb := r.pick(a), r.pick(b)
	if !ra.Known || !rb.Known {
		return domain.Inapplicable(r.name)
	}
	shared, ok := ra.Intersect(rb)
	narrow := min(ra.Width(), rb.Width())
	// Ranges that only touch at an endpoint leave no margin at all.
	if !ok || (narrow > 0 && shared.Width() == 0) {
		d := domain.Delta{
			Rule:       r.name,
			Applicable: true,
			Level:      r.disjoint,
			Reasons:    []string{fmt.Sprintf("%s and %s have no shared %s range", a.Name, b.Name, r.label)},
		}
		if r.disjoint == domain.LevelConditional {
			d.Conditions = []string{fmt.Sprintf("adjust %s to a value both species tolerate and monitor closely", r.label)}
		}
		return d
	}
	overlap := 1.0
	if narrow > 0 {
		overlap = shared.Width() / narrow
	}
	if overlap < r.minOverlap {
		return domain.Delta{
			Rule:       r.name,
			Applicable: true,
			Level:      domain.LevelConditional,
			Reasons:    []string{fmt.Sprintf("%s and %s share only a narrow %s range", a.Name, b.Name, r.label)},
			Conditions: []string{fmt.Sprintf("keep %s between %s and %s%s",
				r.label, formatNumber(shared.Min), formatNumber(shared.Max), r.unit)},
		}
	}
	return domain.Pass(r.name)
}

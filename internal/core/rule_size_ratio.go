package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewSizeRatioRule returns the predation and bullying rule based on adult size.
// Reasons name the larger species but never the computed ratio.
func NewSizeRatioRule(th Thresholds) domain.PairRule {
	return sizeRatioRule{large: th.LargeSizeRatio, moderate: th.ModerateSizeRatio}
}

type sizeRatioRule struct {
	large    float64
	moderate float64
}

func (sizeRatioRule) Name() string { return "size_ratio" }

func (r sizeRatioRule) Evaluate(a, b domain.Species) domain.Delta {
	if !a.MaxSizeCM.Known || !b.MaxSizeCM.Known {
		return domain.Inapplicable(r.Name())
	}
	big, small := a, b
	if b.MaxSizeCM.Value > a.MaxSizeCM.Value {
		big, small = b, a
	}
	ratio := big.MaxSizeCM.Value / small.MaxSizeCM.Value
	switch {
	case ratio >= r.large:
		return domain.Delta{
			Rule:       r.Name(),
			Applicable: true,
			Level:      domain.LevelIncompatible,
			Reasons:    []string{fmt.Sprintf("%s is significantly larger and may injure or eat %s", big.Name, small.Name)},
		}
	case ratio >= r.moderate:
		return domain.Delta{
			Rule:       r.Name(),
			Applicable: true,
			Level:      domain.LevelConditional,
			Reasons:    []string{fmt.Sprintf("%s is noticeably larger and may intimidate %s", big.Name, small.Name)},
			Conditions: []string{fmt.Sprintf("provide hiding places sized for %s", small.Name)},
		}
	default:
		return domain.Pass(r.Name())
	}
}

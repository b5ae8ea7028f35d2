package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewWaterTypeRule returns the rule that separates freshwater and marine species.
func NewWaterTypeRule() domain.PairRule {
	return waterTypeRule{}
}

type waterTypeRule struct{}

func (waterTypeRule) Name() string { return "water_type" }

func (r waterTypeRule) Evaluate(a, b domain.Species) domain.Delta {
	if !a.WaterType.Known() || !b.WaterType.Known() {
		return domain.Inapplicable(r.Name())
	}
	if a.WaterType == b.WaterType {
		return domain.Pass(r.Name())
	}
	if a.WaterType == domain.WaterBrackish || b.WaterType == domain.WaterBrackish {
		return domain.Delta{
			Rule:       r.Name(),
			Applicable: true,
			Level:      domain.LevelConditional,
			Reasons: []string{fmt.Sprintf("%s lives in %s and %s in %s water",
				a.Name, waterLabel(a.WaterType), b.Name, waterLabel(b.WaterType))},
			Conditions: []string{"acclimate both species to a stable low-salinity brackish setup"},
		}
	}
	return domain.Delta{
		Rule:       r.Name(),
		Applicable: true,
		Level:      domain.LevelIncompatible,
		Reasons: []string{fmt.Sprintf("%s needs %s water while %s needs %s water",
			a.Name, waterLabel(a.WaterType), b.Name, waterLabel(b.WaterType))},
	}
}

func waterLabel(w domain.WaterType) string {
	switch w {
	case domain.WaterFresh:
		return "fresh"
	case domain.WaterSalt:
		return "salt"
	case domain.WaterBrackish:
		return "brackish"
	default:
		return "unknown"
	}
}

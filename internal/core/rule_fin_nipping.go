package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewFinNippingRule returns the rule pairing known fin-nippers against
// species with exposed fins, checked in both directions.
func NewFinNippingRule() domain.PairRule {
	return finNippingRule{}
}

type finNippingRule struct{}

func (finNippingRule) Name() string { return "fin_nipping" }

// Evaluate downgrades when either direction does. A pass needs both
// directions decided; otherwise the unknown side could still be a nipper.
func (r finNippingRule) Evaluate(a, b domain.Species) domain.Delta {
	out := domain.Pass(r.Name())
	decided, downgraded := true, false
	for _, d := range []domain.Delta{r.direction(a, b), r.direction(b, a)} {
		if !d.Applicable {
			decided = false
			continue
		}
		if d.Downgrades() {
			downgraded = true
		}
		out.Level = out.Level.Worse(d.Level)
		out.Reasons = append(out.Reasons, d.Reasons...)
		out.Conditions = append(out.Conditions, d.Conditions...)
	}
	if !decided && !downgraded {
		return domain.Inapplicable(r.Name())
	}
	return out
}

func (r finNippingRule) direction(nipper, target domain.Species) domain.Delta {
	if !nipper.FinNipper.Known() || !target.FinVulnerability.Known() {
		return domain.Inapplicable(r.Name())
	}
	if !nipper.FinNipper.True() {
		return domain.Pass(r.Name())
	}
	switch target.FinVulnerability {
	case domain.FinsVulnerable:
		return domain.Delta{
			Rule:       r.Name(),
			Applicable: true,
			Level:      domain.LevelIncompatible,
			Reasons:    []string{fmt.Sprintf("fin-nipping risk: %s nips fins and %s has long, vulnerable fins", nipper.Name, target.Name)},
		}
	case domain.FinsModerate:
		return domain.Delta{
			Rule:       r.Name(),
			Applicable: true,
			Level:      domain.LevelConditional,
			Reasons:    []string{fmt.Sprintf("fin-nipping risk: %s may nip the fins of %s", nipper.Name, target.Name)},
			Conditions: []string{fmt.Sprintf("keep %s in a full group to spread its nipping", nipper.Name)},
		}
	default:
		return domain.Pass(r.Name())
	}
}

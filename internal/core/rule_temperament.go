package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewTemperamentRule returns the rule weighing temperaments against each other.
// Body size decides whether an aggressive fish can actually hurt a peaceful one.
func NewTemperamentRule(th Thresholds) domain.PairRule {
	return temperamentRule{moderateRatio: th.ModerateSizeRatio}
}

type temperamentRule struct {
	moderateRatio float64
}

func (temperamentRule) Name() string { return "temperament" }

func temperamentRank(t domain.Temperament) int {
	switch t {
	case domain.TemperamentPeaceful:
		return 0
	case domain.TemperamentSemiAggressive:
		return 1
	case domain.TemperamentAggressive:
		return 2
	default:
		return -1
	}
}

func (r temperamentRule) Evaluate(a, b domain.Species) domain.Delta {
	ra, rb := temperamentRank(a.Temperament), temperamentRank(b.Temperament)
	if ra < 0 || rb < 0 {
		return domain.Inapplicable(r.Name())
	}
	// bully is the more aggressive side; ties keep argument order.
	bully, other := a, b
	if rb > ra {
		bully, other = b, a
		ra, rb = rb, ra
	}
	conditional := func(reason, condition string) domain.Delta {
		return domain.Delta{
			Rule:       r.Name(),
			Applicable: true,
			Level:      domain.LevelConditional,
			Reasons:    []string{reason},
			Conditions: []string{condition},
		}
	}
	switch {
	case ra == 2 && rb == 2:
		return conditional(
			fmt.Sprintf("%s and %s are both aggressive and may fight", a.Name, b.Name),
			"provide a large tank with separate territories and broken sight lines")
	case ra == 2 && rb == 0:
		if bully.MaxSizeCM.Known && other.MaxSizeCM.Known &&
			bully.MaxSizeCM.Value >= r.moderateRatio*other.MaxSizeCM.Value {
			return domain.Delta{
				Rule:       r.Name(),
				Applicable: true,
				Level:      domain.LevelIncompatible,
				Reasons:    []string{fmt.Sprintf("%s is aggressive and large enough to attack peaceful %s", bully.Name, other.Name)},
			}
		}
		return conditional(
			fmt.Sprintf("%s is aggressive and may harass peaceful %s", bully.Name, other.Name),
			fmt.Sprintf("add dense cover for %s and watch for harassment", other.Name))
	case ra == 2 && rb == 1:
		return conditional(
			fmt.Sprintf("%s may bully %s", bully.Name, other.Name),
			"watch for chasing and fin damage")
	case ra == 1 && rb == 0:
		if bully.MaxSizeCM.Known && other.MaxSizeCM.Known && bully.MaxSizeCM.Value <= other.MaxSizeCM.Value {
			return domain.Pass(r.Name())
		}
		return conditional(
			fmt.Sprintf("%s can be pushy toward peaceful %s", bully.Name, other.Name),
			fmt.Sprintf("give %s its own territory away from %s", bully.Name, other.Name))
	default:
		return domain.Pass(r.Name())
	}
}

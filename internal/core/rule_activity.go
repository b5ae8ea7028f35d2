package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewActivityRule returns the rule pairing very active swimmers against slow ones.
func NewActivityRule() domain.PairRule {
	return activityRule{}
}

type activityRule struct{}

func (activityRule) Name() string { return "activity" }

func (r activityRule) Evaluate(a, b domain.Species) domain.Delta {
	if !a.Activity.Known() || !b.Activity.Known() {
		return domain.Inapplicable(r.Name())
	}
	fast, slow := a, b
	if b.Activity == domain.ActivityHigh {
		fast, slow = b, a
	}
	if fast.Activity != domain.ActivityHigh || slow.Activity != domain.ActivityLow {
		return domain.Pass(r.Name())
	}
	return domain.Delta{
		Rule:       r.Name(),
		Applicable: true,
		Level:      domain.LevelConditional,
		Reasons:    []string{fmt.Sprintf("very active %s may stress slow-moving %s", fast.Name, slow.Name)},
		Conditions: []string{fmt.Sprintf("offer calm, planted areas where %s can rest", slow.Name)},
	}
}

// NewDietRule returns the rule flagging carnivore and herbivore pairings.
func NewDietRule() domain.PairRule {
	return dietRule{}
}

type dietRule struct{}

func (dietRule) Name() string { return "diet" }

func (r dietRule) Evaluate(a, b domain.Species) domain.Delta {
	if !a.Diet.Known() || !b.Diet.Known() {
		return domain.Inapplicable(r.Name())
	}
	carn, herb := a, b
	if b.Diet == domain.DietCarnivore {
		carn, herb = b, a
	}
	if carn.Diet != domain.DietCarnivore || herb.Diet != domain.DietHerbivore {
		return domain.Pass(r.Name())
	}
	return domain.Delta{
		Rule:       r.Name(),
		Applicable: true,
		Level:      domain.LevelConditional,
		Reasons:    []string{fmt.Sprintf("%s is a carnivore while %s is a herbivore", carn.Name, herb.Name)},
		Conditions: []string{"feed each species its own diet and target-feed if needed"},
	}
}

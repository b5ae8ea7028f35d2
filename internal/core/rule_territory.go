package core

import (
	"fmt"

	"aquasync/pkg/domain"
)

// NewTerritoryRule returns the rule flagging territorial species that share
// a zone of the water column.
func NewTerritoryRule() domain.PairRule {
	return territoryRule{}
}

type territoryRule struct{}

func (territoryRule) Name() string { return "territory" }

func (r territoryRule) Evaluate(a, b domain.Species) domain.Delta {
	if !a.Zone.Known() || !b.Zone.Known() {
		return domain.Inapplicable(r.Name())
	}
	if !a.Zone.Shares(b.Zone) {
		return domain.Pass(r.Name())
	}
	ta, tb := a.Territorial(), b.Territorial()
	if !ta.True() && !tb.True() {
		// Two known non-territorial species pass; an unknown side decides nothing.
		if ta.Known() && tb.Known() {
			return domain.Pass(r.Name())
		}
		return domain.Inapplicable(r.Name())
	}
	holder, other := a, b
	if !ta.True() {
		holder, other = b, a
	}
	zone := sharedZoneLabel(a.Zone, b.Zone)
	return domain.Delta{
		Rule:       r.Name(),
		Applicable: true,
		Level:      domain.LevelConditional,
		Reasons:    []string{fmt.Sprintf("%s is territorial and shares the %s with %s", holder.Name, zone, other.Name)},
		Conditions: []string{fmt.Sprintf("break up the %s with rocks, plants or caves", zone)},
	}
}

func sharedZoneLabel(a, b domain.TankZone) string {
	z := a
	if z == domain.ZoneAll {
		z = b
	}
	if z == domain.ZoneAll {
		return "whole water column"
	}
	return string(z) + " zone"
}

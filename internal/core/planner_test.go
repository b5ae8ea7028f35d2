package core

import (
	"errors"
	"strings"
	"testing"

	"aquasync/pkg/domain"
)

func newTestPlanner() *Planner {
	return NewPlanner(DefaultPlannerConfig(), NewDefaultEngine(DefaultThresholds()))
}

func TestGeometryByShape(t *testing.T) {
	p := newTestPlanner()
	cases := []struct {
		name   string
		tank   domain.Tank
		volume float64
		area   float64
	}{
		{"rectangle cm", domain.Tank{Shape: domain.ShapeRectangle, Length: 60, Width: 30, Height: 40, Unit: domain.UnitCM}, 72, 1800},
		{"rectangle inches", domain.Tank{Shape: "Rectangle", Length: 24, Width: 12, Height: 16, Unit: "in"}, 75.51, 1858.06},
		{"cylinder", domain.Tank{Shape: domain.ShapeCylinder, Length: 30, Height: 40, Unit: domain.UnitCM}, 28.27, 706.86},
		{"bowl", domain.Tank{Shape: domain.ShapeBowl, Length: 20, Unit: domain.UnitCM}, 2.51, 157.08},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := p.Geometry(tc.tank)
			if err != nil {
				t.Fatalf("geometry: %v", err)
			}
			if roundTo(g.VolumeLiters, 2) != tc.volume || roundTo(g.UsableAreaCM2, 2) != tc.area {
				t.Fatalf("expected %v L / %v cm2, got %v / %v", tc.volume, tc.area, g.VolumeLiters, g.UsableAreaCM2)
			}
		})
	}
}

func TestValidateTankRejectsBadInput(t *testing.T) {
	p := newTestPlanner()
	cases := map[string]domain.Tank{
		"unknown shape":    {Shape: "hexagon", Length: 10, Width: 10, Height: 10, Unit: domain.UnitCM},
		"zero length":      {Shape: domain.ShapeRectangle, Length: 0, Width: 10, Height: 10, Unit: domain.UnitCM},
		"flat rectangle":   {Shape: domain.ShapeRectangle, Length: 10, Width: 0, Height: 10, Unit: domain.UnitCM},
		"cylinder no body": {Shape: domain.ShapeCylinder, Length: 10, Unit: domain.UnitCM},
		"bad unit":         {Shape: domain.ShapeBowl, Length: 10, Unit: "FT"},
		"zero quantity":    {Shape: domain.ShapeBowl, Length: 10, Unit: domain.UnitCM, Stocking: map[string]int{"Betta": 0}},
		"negative feed":    {Shape: domain.ShapeBowl, Length: 10, Unit: domain.UnitCM, Feeds: map[string]float64{"flakes": -1}},
	}
	for name, tank := range cases {
		t.Run(name, func(t *testing.T) {
			err := p.ValidateTank(tank)
			if !errors.Is(err, ErrInvalidTank) {
				t.Fatalf("expected ErrInvalidTank, got %v", err)
			}
			if Classify(err) != ClassConfiguration {
				t.Fatalf("invalid tanks classify as configuration errors")
			}
		})
	}
	if err := p.ValidateTank(domain.Tank{Shape: domain.ShapeBowl, Length: 20}); err != nil {
		t.Fatalf("unit should default to CM: %v", err)
	}
}

func TestRecommendTakesTighterCap(t *testing.T) {
	p := newTestPlanner()
	g, err := p.Geometry(domain.Tank{Shape: domain.ShapeRectangle, Length: 60, Width: 30, Height: 40, Unit: domain.UnitCM})
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	territorial := domain.Species{Name: "Dwarf Cichlid", TerritorialSpaceCM: domain.MeasureOf(30)}
	if rec := p.Recommend(territorial, g); !rec.Known || rec.Max != 60 || rec.LimitedBy != "territory" {
		t.Fatalf("expected 60 limited by territory, got %+v", rec)
	}
	territorial.MaxSizeCM = domain.MeasureOf(5)
	if rec := p.Recommend(territorial, g); rec.Max != 14 || rec.LimitedBy != "bioload" {
		t.Fatalf("expected 14 limited by bioload, got %+v", rec)
	}
	if rec := p.Recommend(domain.Species{Name: "Mystery"}, g); rec.Known || rec.Max != 0 {
		t.Fatalf("expected unknown recommendation, got %+v", rec)
	}
}

func TestPlanWarnings(t *testing.T) {
	p := newTestPlanner()
	species := []domain.Species{speciesByName(t, "Betta"), speciesByName(t, "Tiger Barb")}
	tank := domain.Tank{
		Name:     "Living room",
		Shape:    domain.ShapeRectangle,
		Length:   60,
		Width:    30,
		Height:   40,
		Unit:     domain.UnitCM,
		Stocking: map[string]int{"Betta": 3, "Tiger Barb": 3, "Ghost Shrimp": 2},
	}
	plan, err := p.Plan(tank, species, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.VolumeLiters != 72 || plan.UsableAreaCM2 != 1800 || plan.Tank != "Living room" {
		t.Fatalf("unexpected plan header %+v", plan)
	}
	betta := plan.Recommendations["Betta"]
	if betta.Max != 2 || betta.Stocked != 3 || betta.LimitedBy != "territory" {
		t.Fatalf("unexpected betta recommendation %+v", betta)
	}
	expect := map[string][]string{
		"Betta":        {"stocked 3 exceeds the recommended maximum of 2", "incompatible with Tiger Barb"},
		"Tiger Barb":   {"requires a group of at least 6 (stocked 3)", "needs at least 80 L", "incompatible with Betta"},
		"Ghost Shrimp": {"species not found in catalog"},
	}
	for key, fragments := range expect {
		for _, fragment := range fragments {
			if !strings.Contains(plan.Warnings[key], fragment) {
				t.Fatalf("warning for %s missing %q: %q", key, fragment, plan.Warnings[key])
			}
		}
	}
	if _, ok := plan.Warnings[TankWarningKey]; ok {
		t.Fatalf("unexpected tank-wide warning %q", plan.Warnings[TankWarningKey])
	}
	if _, ok := plan.Recommendations["Ghost Shrimp"]; ok {
		t.Fatalf("unknown species must not get a recommendation")
	}
}

func TestPlanEvaluatesMissingPairsWithoutRepeatingShortfalls(t *testing.T) {
	p := newTestPlanner()
	neon := speciesByName(t, "Neon Tetra")
	cardinal := speciesByName(t, "Cardinal Tetra")
	tank := domain.Tank{Shape: domain.ShapeRectangle, Length: 100, Width: 40, Height: 50, Unit: domain.UnitCM,
		Stocking: map[string]int{neon.Name: 3, cardinal.Name: 10}}
	plan, err := p.Plan(tank, []domain.Species{neon, cardinal}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	got := plan.Warnings[neon.Name]
	if strings.Count(got, "at least 6") != 1 {
		t.Fatalf("expected a single schooling warning, got %q", got)
	}
	if strings.Contains(got, "conditional with") || strings.Contains(plan.Warnings[cardinal.Name], "conditional with") {
		t.Fatalf("compatible pair must not produce pair warnings: %v", plan.Warnings)
	}
}

func TestPlanUsesStoredVerdicts(t *testing.T) {
	p := newTestPlanner()
	neon := speciesByName(t, "Neon Tetra")
	cardinal := speciesByName(t, "Cardinal Tetra")
	stored := domain.Verdict{
		Pair:       domain.NewPairKey(neon.Name, cardinal.Name),
		Level:      domain.LevelConditional,
		Conditions: []string{"feed in two places"},
	}
	tank := domain.Tank{Shape: domain.ShapeRectangle, Length: 100, Width: 40, Height: 50, Unit: domain.UnitCM,
		Stocking: map[string]int{neon.Name: 8, cardinal.Name: 8}}
	plan, err := p.Plan(tank, []domain.Species{neon, cardinal}, []domain.Verdict{stored})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if got := plan.Warnings[neon.Name]; got != "conditional with Cardinal Tetra (feed in two places)" {
		t.Fatalf("unexpected warning %q", got)
	}
}

func TestPlanBowlFitAndBioload(t *testing.T) {
	p := newTestPlanner()
	barb := speciesByName(t, "Tiger Barb")
	plan, err := p.Plan(domain.Tank{Shape: domain.ShapeBowl, Length: 20, Unit: domain.UnitCM,
		Stocking: map[string]int{barb.Name: 6}}, []domain.Species{barb}, nil)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	for _, fragment := range []string{"too active for a bowl", "grows too large for a bowl"} {
		if !strings.Contains(plan.Warnings[barb.Name], fragment) {
			t.Fatalf("expected %q in %q", fragment, plan.Warnings[barb.Name])
		}
	}
	if !strings.Contains(plan.Warnings[TankWarningKey], "exceeds the bioload guideline") {
		t.Fatalf("expected tank bioload warning, got %q", plan.Warnings[TankWarningKey])
	}
}

func TestPlanRejectsInvalidTank(t *testing.T) {
	_, err := newTestPlanner().Plan(domain.Tank{Shape: domain.ShapeRectangle, Length: 10, Unit: domain.UnitCM}, nil, nil)
	if !errors.Is(err, ErrInvalidTank) {
		t.Fatalf("expected ErrInvalidTank, got %v", err)
	}
}

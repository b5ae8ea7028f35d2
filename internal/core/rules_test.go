package core

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"aquasync/pkg/domain"
)

var digitPattern = regexp.MustCompile(`\d`)

func TestEvaluateIsSymmetric(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	species := catalogSpecies(t)
	for i := range species {
		for j := range species {
			if i == j {
				continue
			}
			ab := engine.Evaluate(species[i], species[j])
			ba := engine.Evaluate(species[j], species[i])
			if !reflect.DeepEqual(ab, ba) {
				t.Fatalf("asymmetric verdict for %s/%s:\n%+v\n%+v", species[i].Name, species[j].Name, ab, ba)
			}
			if !ab.Pair.Canonical() {
				t.Fatalf("expected canonical pair, got %v", ab.Pair)
			}
		}
	}
}

func TestEvaluateBounds(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	species := catalogSpecies(t)
	for i := range species {
		for j := i + 1; j < len(species); j++ {
			v := engine.Evaluate(species[i], species[j])
			if v.Score < 0 || v.Score > 1 || v.Confidence < 0 || v.Confidence > 1 {
				t.Fatalf("score/confidence out of bounds: %+v", v)
			}
			if !v.Level.Valid() {
				t.Fatalf("invalid level %q", v.Level)
			}
			if v.Level != domain.LevelConditional && len(v.Conditions) != 0 {
				t.Fatalf("conditions on a %s verdict: %+v", v.Level, v)
			}
			if v.Level != domain.LevelCompatible && len(v.Reasons) == 0 {
				t.Fatalf("%s verdict without reasons: %+v", v.Level, v)
			}
			if v.Method != MethodRules {
				t.Fatalf("unexpected method %q", v.Method)
			}
		}
	}
}

func TestEvaluateCompatibleTetras(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	v := engine.Evaluate(speciesByName(t, "Neon Tetra"), speciesByName(t, "Cardinal Tetra"))
	if v.Level != domain.LevelCompatible {
		t.Fatalf("expected compatible, got %s (%v)", v.Level, v.Reasons)
	}
	if v.Score != 1 || v.Confidence != 1 {
		t.Fatalf("expected full score and confidence, got %v/%v", v.Score, v.Confidence)
	}
	if len(v.Reasons) != 0 || len(v.Conditions) != 0 {
		t.Fatalf("expected no reasons or conditions, got %+v", v)
	}
	if v.Pair != (domain.PairKey{A: "Cardinal Tetra", B: "Neon Tetra"}) {
		t.Fatalf("unexpected pair %v", v.Pair)
	}
}

func TestEvaluateFinNipperAgainstLongFins(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	v := engine.Evaluate(speciesByName(t, "Betta"), speciesByName(t, "Tiger Barb"))
	if v.Level != domain.LevelIncompatible {
		t.Fatalf("expected incompatible, got %s", v.Level)
	}
	found := false
	for _, r := range v.Reasons {
		if strings.Contains(r, "fin-nipping") && strings.Contains(r, "Tiger Barb") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fin-nipping reason, got %v", v.Reasons)
	}
	if len(v.Conditions) != 0 {
		t.Fatalf("incompatible verdict must not carry conditions: %v", v.Conditions)
	}
}

func TestSizeRatioReasonsCarryNoNumbers(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	big := domain.Species{Name: "Giant Gourami", MaxSizeCM: domain.MeasureOf(30)}
	small := domain.Species{Name: "Ember Tetra", MaxSizeCM: domain.MeasureOf(5)}
	v := engine.Evaluate(big, small)
	if v.Level != domain.LevelIncompatible {
		t.Fatalf("expected 6:1 ratio to be incompatible, got %s", v.Level)
	}
	if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "Giant Gourami is significantly larger") {
		t.Fatalf("unexpected reasons %v", v.Reasons)
	}
	for _, r := range v.Reasons {
		if digitPattern.MatchString(r) {
			t.Fatalf("reason exposes a number: %q", r)
		}
	}
	if want := 1.0 / 10.0; v.Confidence != want {
		t.Fatalf("expected confidence %v with one applicable rule, got %v", want, v.Confidence)
	}

	moderate := engine.Evaluate(domain.Species{Name: "A", MaxSizeCM: domain.MeasureOf(9)}, domain.Species{Name: "B", MaxSizeCM: domain.MeasureOf(3)})
	if moderate.Level != domain.LevelConditional || len(moderate.Conditions) == 0 {
		t.Fatalf("expected conditional 3:1 verdict with conditions, got %+v", moderate)
	}
}

func TestEvaluateUnknownSpeciesIsCompatibleWithZeroConfidence(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	v := engine.Evaluate(domain.Species{Name: "Mystery A"}, domain.Species{Name: "Mystery B"})
	if v.Level != domain.LevelCompatible || v.Confidence != 0 || v.Score != 1 {
		t.Fatalf("expected compatible verdict with zero confidence, got %+v", v)
	}
	if v.Reasons == nil || v.Conditions == nil {
		t.Fatalf("expected empty, non-nil reason and condition lists")
	}
}

func TestMoreKnownAttributesRaiseConfidence(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	a := domain.Species{Name: "A"}
	b := domain.Species{Name: "B"}
	prev := engine.Evaluate(a, b).Confidence
	steps := []func(){
		func() { a.WaterType, b.WaterType = domain.WaterFresh, domain.WaterFresh },
		func() { a.Temperature, b.Temperature = domain.NewRange(22, 26), domain.NewRange(22, 26) },
		func() { a.Temperament, b.Temperament = domain.TemperamentPeaceful, domain.TemperamentPeaceful },
		func() { a.Diet, b.Diet = domain.DietOmnivore, domain.DietOmnivore },
	}
	for i, step := range steps {
		step()
		next := engine.Evaluate(a, b).Confidence
		if next <= prev {
			t.Fatalf("step %d: confidence did not increase (%v -> %v)", i, prev, next)
		}
		prev = next
	}
}

func TestWaterTypeRule(t *testing.T) {
	rule := NewWaterTypeRule()
	fresh := domain.Species{Name: "F", WaterType: domain.WaterFresh}
	salt := domain.Species{Name: "S", WaterType: domain.WaterSalt}
	brackish := domain.Species{Name: "B", WaterType: domain.WaterBrackish}
	if d := rule.Evaluate(fresh, salt); d.Level != domain.LevelIncompatible {
		t.Fatalf("fresh vs salt: expected incompatible, got %+v", d)
	}
	if d := rule.Evaluate(fresh, brackish); d.Level != domain.LevelConditional || len(d.Conditions) == 0 {
		t.Fatalf("fresh vs brackish: expected conditional with conditions, got %+v", d)
	}
	if d := rule.Evaluate(fresh, domain.Species{Name: "U", WaterType: domain.WaterUnknown}); d.Applicable {
		t.Fatalf("unknown water type should be inapplicable")
	}
}

func TestParameterRangeRules(t *testing.T) {
	th := DefaultThresholds()
	withTemp := func(name string, lo, hi float64) domain.Species {
		return domain.Species{Name: name, Temperature: domain.NewRange(lo, hi)}
	}
	temp := NewTemperatureRule(th)
	cases := []struct {
		name string
		a, b domain.Species
		want domain.Level
	}{
		{"disjoint", withTemp("A", 18, 22), withTemp("B", 25, 30), domain.LevelIncompatible},
		{"touching", withTemp("A", 20, 24), withTemp("B", 24, 28), domain.LevelIncompatible},
		{"narrow", withTemp("A", 20, 27), withTemp("B", 26, 32), domain.LevelConditional},
		{"wide", withTemp("A", 22, 28), withTemp("B", 24, 28), domain.LevelCompatible},
		{"point inside", withTemp("A", 25, 25), withTemp("B", 22, 28), domain.LevelCompatible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := temp.Evaluate(tc.a, tc.b)
			if !d.Applicable || d.Level != tc.want {
				t.Fatalf("expected %s, got %+v", tc.want, d)
			}
		})
	}
	d := temp.Evaluate(withTemp("A", 20, 27), withTemp("B", 26, 32))
	if len(d.Conditions) != 1 || d.Conditions[0] != "keep temperature between 26 and 27 °C" {
		t.Fatalf("unexpected narrow-overlap condition %v", d.Conditions)
	}

	hardness := NewHardnessRule(th)
	ha := domain.Species{Name: "Soft", Hardness: domain.NewRange(1, 4)}
	hb := domain.Species{Name: "Hard", Hardness: domain.NewRange(15, 30)}
	if d := hardness.Evaluate(ha, hb); d.Level != domain.LevelConditional || len(d.Conditions) == 0 {
		t.Fatalf("disjoint hardness should be conditional, got %+v", d)
	}
	if d := NewPHRule(th).Evaluate(domain.Species{Name: "A"}, domain.Species{Name: "B", PH: domain.NewRange(6, 7)}); d.Applicable {
		t.Fatalf("unknown pH should be inapplicable")
	}
}

func TestTemperamentRule(t *testing.T) {
	rule := NewTemperamentRule(DefaultThresholds())
	sp := func(name string, temp domain.Temperament, size float64) domain.Species {
		return domain.Species{Name: name, Temperament: temp, MaxSizeCM: domain.MeasureOf(size)}
	}
	cases := []struct {
		name string
		a, b domain.Species
		want domain.Level
	}{
		{"large aggressor", sp("Oscar", domain.TemperamentAggressive, 35), sp("Neon", domain.TemperamentPeaceful, 3.5), domain.LevelIncompatible},
		{"small aggressor", sp("Puffer", domain.TemperamentAggressive, 4), sp("Guppy", domain.TemperamentPeaceful, 5), domain.LevelConditional},
		{"two aggressors", sp("A", domain.TemperamentAggressive, 10), sp("B", domain.TemperamentAggressive, 10), domain.LevelConditional},
		{"aggressive vs semi", sp("A", domain.TemperamentAggressive, 10), sp("B", domain.TemperamentSemiAggressive, 10), domain.LevelConditional},
		{"larger semi vs peaceful", sp("Barb", domain.TemperamentSemiAggressive, 7), sp("Neon", domain.TemperamentPeaceful, 3.5), domain.LevelConditional},
		{"smaller semi vs peaceful", sp("Barb", domain.TemperamentSemiAggressive, 5), sp("Gourami", domain.TemperamentPeaceful, 12), domain.LevelCompatible},
		{"peaceful pair", sp("A", domain.TemperamentPeaceful, 3), sp("B", domain.TemperamentPeaceful, 4), domain.LevelCompatible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d := rule.Evaluate(tc.a, tc.b); d.Level != tc.want {
				t.Fatalf("expected %s, got %+v", tc.want, d)
			}
			if d := rule.Evaluate(tc.b, tc.a); d.Level != tc.want {
				t.Fatalf("reversed: expected %s, got %+v", tc.want, d)
			}
		})
	}
}

func TestTerritoryRule(t *testing.T) {
	rule := NewTerritoryRule()
	cichlid := domain.Species{Name: "Cichlid", Zone: domain.ZoneBottom, TerritorialSpaceCM: domain.MeasureOf(400)}
	pleco := domain.Species{Name: "Pleco", Zone: domain.ZoneBottom, Social: domain.SocialSolitary}
	hatchet := domain.Species{Name: "Hatchetfish", Zone: domain.ZoneTop, Social: domain.SocialSchooling}
	if d := rule.Evaluate(cichlid, pleco); d.Level != domain.LevelConditional || !strings.Contains(d.Reasons[0], "bottom zone") {
		t.Fatalf("expected conditional bottom-zone conflict, got %+v", d)
	}
	if d := rule.Evaluate(cichlid, hatchet); d.Level != domain.LevelCompatible {
		t.Fatalf("different zones should pass, got %+v", d)
	}
	if d := rule.Evaluate(cichlid, domain.Species{Name: "X"}); d.Applicable {
		t.Fatalf("unknown zone should be inapplicable")
	}
}

func TestRulesNeedBothSidesToPass(t *testing.T) {
	schooler := domain.Species{Name: "Rasbora", Zone: domain.ZoneBottom, Social: domain.SocialSchooling,
		FinNipper: domain.FlagFalse, FinVulnerability: domain.FinsModerate, SchoolingMin: domain.CountOf(8)}
	unknown := domain.Species{Name: "Mystery", Zone: domain.ZoneBottom, Social: domain.SocialUnknown,
		FinVulnerability: domain.FinsVulnerable}
	territorial := domain.Species{Name: "Cichlid", Zone: domain.ZoneBottom, Social: domain.SocialTerritorial}
	nipper := domain.Species{Name: "Barb", FinNipper: domain.FlagTrue, FinVulnerability: domain.FinsHardy}
	calm := domain.Species{Name: "Gourami", FinNipper: domain.FlagFalse, FinVulnerability: domain.FinsHardy}

	cases := []struct {
		name       string
		eval       func() domain.Delta
		applicable bool
		want       domain.Level
	}{
		{"territory unknown partner", func() domain.Delta { return NewTerritoryRule().Evaluate(schooler, unknown) }, false, ""},
		{"territory known holder", func() domain.Delta { return NewTerritoryRule().Evaluate(territorial, unknown) }, true, domain.LevelConditional},
		{"territory both known", func() domain.Delta { return NewTerritoryRule().Evaluate(schooler, territorial) }, true, domain.LevelConditional},
		{"fin nipping unknown nipper", func() domain.Delta { return NewFinNippingRule().Evaluate(schooler, unknown) }, false, ""},
		{"fin nipping known nipper", func() domain.Delta { return NewFinNippingRule().Evaluate(nipper, unknown) }, true, domain.LevelIncompatible},
		{"fin nipping both known", func() domain.Delta { return NewFinNippingRule().Evaluate(nipper, calm) }, true, domain.LevelCompatible},
		{"schooling unknown partner met", func() domain.Delta {
			return NewSchoolingRule().EvaluateStocked(schooler, unknown, map[string]int{"Rasbora": 10})
		}, false, ""},
		{"schooling unknown partner short", func() domain.Delta {
			return NewSchoolingRule().EvaluateStocked(schooler, unknown, map[string]int{"Rasbora": 3})
		}, true, domain.LevelConditional},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.eval()
			if d.Applicable != tc.applicable {
				t.Fatalf("applicable=%v want %v (%+v)", d.Applicable, tc.applicable, d)
			}
			if tc.applicable && d.Level != tc.want {
				t.Fatalf("level=%s want %s (%+v)", d.Level, tc.want, d)
			}
		})
	}
}

func TestUnknownAttributesDoNotRaiseConfidence(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	known := domain.Species{Name: "A", Zone: domain.ZoneMid, Social: domain.SocialSchooling, FinNipper: domain.FlagFalse, FinVulnerability: domain.FinsModerate}
	partial := domain.Species{Name: "B", Zone: domain.ZoneMid, FinVulnerability: domain.FinsModerate}
	if v := engine.Evaluate(known, partial); v.Confidence != 0 {
		t.Fatalf("rules with an unknown side must be inapplicable, got confidence %v", v.Confidence)
	}
}

func TestActivityAndDietRules(t *testing.T) {
	fast := domain.Species{Name: "Danio", Activity: domain.ActivityHigh, Diet: domain.DietCarnivore}
	slow := domain.Species{Name: "Betta", Activity: domain.ActivityLow, Diet: domain.DietHerbivore}
	if d := NewActivityRule().Evaluate(slow, fast); d.Level != domain.LevelConditional {
		t.Fatalf("expected activity conflict, got %+v", d)
	}
	if d := NewDietRule().Evaluate(slow, fast); d.Level != domain.LevelConditional {
		t.Fatalf("expected diet conflict, got %+v", d)
	}
	fast.Diet = domain.DietOmnivore
	if d := NewDietRule().Evaluate(slow, fast); d.Level != domain.LevelCompatible {
		t.Fatalf("omnivore should pass, got %+v", d)
	}
}

func TestEvaluateInTankAppliesSchooling(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	neon := speciesByName(t, "Neon Tetra")
	cardinal := speciesByName(t, "Cardinal Tetra")

	short := engine.EvaluateInTank(neon, cardinal, map[string]int{"Neon Tetra": 3, "Cardinal Tetra": 8})
	if short.Level != domain.LevelConditional {
		t.Fatalf("expected conditional for a short school, got %s", short.Level)
	}
	if !reflect.DeepEqual(short.Conditions, []string{"keep at least 6 Neon Tetra together"}) {
		t.Fatalf("unexpected conditions %v", short.Conditions)
	}
	full := engine.EvaluateInTank(neon, cardinal, map[string]int{"Neon Tetra": 6, "Cardinal Tetra": 8})
	if full.Level != domain.LevelCompatible {
		t.Fatalf("expected compatible for full schools, got %s (%v)", full.Level, full.Reasons)
	}
	if plain := engine.Evaluate(neon, cardinal); plain.Level != domain.LevelCompatible {
		t.Fatalf("matrix evaluation must ignore stocking, got %s", plain.Level)
	}
}

// vetoRule marks every pair incompatible.
type vetoRule struct{}

func (vetoRule) Name() string { return "veto" }

func (vetoRule) Evaluate(a, b domain.Species) domain.Delta {
	return domain.Delta{Rule: "veto", Applicable: true, Level: domain.LevelIncompatible, Reasons: []string{"vetoed"}}
}

func TestAddingARuleNeverImprovesALevel(t *testing.T) {
	base := NewDefaultEngine(DefaultThresholds())
	vetoed := NewDefaultEngine(DefaultThresholds())
	vetoed.Register(vetoRule{})
	species := catalogSpecies(t)
	for i := range species {
		for j := i + 1; j < len(species); j++ {
			before := base.Evaluate(species[i], species[j])
			after := vetoed.Evaluate(species[i], species[j])
			if after.Level != domain.LevelIncompatible {
				t.Fatalf("%v: expected incompatible after veto, got %s", after.Pair, after.Level)
			}
			if after.Level.Rank() < before.Level.Rank() {
				t.Fatalf("%v: level improved from %s to %s", after.Pair, before.Level, after.Level)
			}
			if len(after.Conditions) != 0 {
				t.Fatalf("%v: incompatible verdict kept conditions %v", after.Pair, after.Conditions)
			}
		}
	}
}

func TestEngineSignatureTracksThresholds(t *testing.T) {
	a := NewDefaultEngine(DefaultThresholds())
	b := NewDefaultEngine(Thresholds{LargeSizeRatio: 5, ModerateSizeRatio: 2, MinRangeOverlap: 0.5})
	if a.Signature() == b.Signature() {
		t.Fatalf("expected signatures to differ")
	}
	if NewDefaultEngine(Thresholds{}).Signature() != a.Signature() {
		t.Fatalf("zero thresholds should fall back to defaults")
	}
	want := []string{"water_type", "temperature", "ph", "hardness", "temperament", "size_ratio", "fin_nipping", "territory", "activity", "diet"}
	if !reflect.DeepEqual(a.RuleNames(), want) {
		t.Fatalf("unexpected rule order %v", a.RuleNames())
	}
}

func TestFingerprintChangesWithAttributes(t *testing.T) {
	engine := NewDefaultEngine(DefaultThresholds())
	neon := speciesByName(t, "Neon Tetra")
	barb := speciesByName(t, "Tiger Barb")
	before := engine.Fingerprint(neon, barb)
	if before != engine.Fingerprint(barb, neon) {
		t.Fatalf("fingerprint must not depend on argument order")
	}
	barb.MaxSizeCM = domain.MeasureOf(8)
	if engine.Fingerprint(neon, barb) == before {
		t.Fatalf("expected fingerprint to change with attributes")
	}
}

func TestAssessmentCombineIsAssociative(t *testing.T) {
	deltas := []domain.Delta{
		domain.Pass("a"),
		{Rule: "b", Applicable: true, Level: domain.LevelConditional, Reasons: []string{"r1"}, Conditions: []string{"c1"}},
		domain.Inapplicable("c"),
		{Rule: "d", Applicable: true, Level: domain.LevelIncompatible, Reasons: []string{"r2"}},
	}
	parts := make([]domain.Assessment, len(deltas))
	for i, d := range deltas {
		parts[i].Add(d)
	}
	left := parts[0].Combine(parts[1]).Combine(parts[2].Combine(parts[3]))
	right := parts[0].Combine(parts[1].Combine(parts[2])).Combine(parts[3])
	if !reflect.DeepEqual(left, right) {
		t.Fatalf("combine not associative:\n%+v\n%+v", left, right)
	}
	var folded domain.Assessment
	for _, d := range deltas {
		folded.Add(d)
	}
	if !reflect.DeepEqual(folded.Verdict(domain.NewPairKey("x", "y"), MethodRules), left.Verdict(domain.NewPairKey("x", "y"), MethodRules)) {
		t.Fatalf("folded and combined verdicts differ")
	}
	v := left.Verdict(domain.NewPairKey("x", "y"), MethodRules)
	if v.Level != domain.LevelIncompatible || v.Score != 0.5 || v.Confidence != 0.75 {
		t.Fatalf("unexpected verdict %+v", v)
	}
}

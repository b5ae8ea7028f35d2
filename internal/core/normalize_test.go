package core

import (
	"reflect"
	"slices"
	"testing"

	"aquasync/pkg/domain"
)

func TestNormalizeSynonyms(t *testing.T) {
	cases := []struct {
		name string
		rec  domain.SpeciesRecord
		want func(domain.Species) bool
	}{
		{"freshwater", domain.SpeciesRecord{WaterType: "Freshwater"}, func(s domain.Species) bool { return s.WaterType == domain.WaterFresh }},
		{"marine", domain.SpeciesRecord{WaterType: " MARINE "}, func(s domain.Species) bool { return s.WaterType == domain.WaterSalt }},
		{"semi aggressive", domain.SpeciesRecord{Temperament: "Semi Aggressive"}, func(s domain.Species) bool {
			return s.Temperament == domain.TemperamentSemiAggressive
		}},
		{"semi_aggressive", domain.SpeciesRecord{Temperament: "semi_aggressive"}, func(s domain.Species) bool {
			return s.Temperament == domain.TemperamentSemiAggressive
		}},
		{"surface zone", domain.SpeciesRecord{TankZone: "Surface"}, func(s domain.Species) bool { return s.Zone == domain.ZoneTop }},
		{"long finned", domain.SpeciesRecord{FinVulnerability: "long-finned"}, func(s domain.Species) bool {
			return s.FinVulnerability == domain.FinsVulnerable
		}},
		{"expert care", domain.SpeciesRecord{CareLevel: "Expert"}, func(s domain.Species) bool { return s.CareLevel == domain.CareAdvanced }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.rec); !tc.want(got) {
				t.Fatalf("unexpected normalization: %+v", got)
			}
		})
	}
}

func TestNormalizeRanges(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.Range
	}{
		{"24-28°C", domain.NewRange(24, 28)},
		{"24 - 28 °C", domain.NewRange(24, 28)},
		{"6.5 to 7.5", domain.NewRange(6.5, 7.5)},
		{"28-24", domain.NewRange(24, 28)},
		{"26", domain.NewRange(26, 26)},
		{"72-82°F", domain.NewRange(22.2, 27.8)},
		{"75-80F", domain.NewRange(23.9, 26.7)},
	}
	for _, tc := range cases {
		got := Normalize(domain.SpeciesRecord{Name: "x", TemperatureRange: tc.raw}).Temperature
		if got != tc.want {
			t.Fatalf("temperature %q: expected %+v, got %+v", tc.raw, tc.want, got)
		}
	}
}

func TestNormalizeRejectsImplausibleValues(t *testing.T) {
	s := Normalize(domain.SpeciesRecord{
		Name:             "Oddity",
		TemperatureRange: "75-80",
		PHRange:          "6-15",
		HardnessRange:    "n/a",
		MaxSizeCM:        fptr(-3),
		FeedingsPerDay:   iptr(0),
	})
	if s.Temperature.Known || s.PH.Known || s.Hardness.Known {
		t.Fatalf("expected implausible ranges to be unknown, got %+v %+v %+v", s.Temperature, s.PH, s.Hardness)
	}
	if s.MaxSizeCM.Known || s.FeedingsPerDay.Known {
		t.Fatalf("expected non-positive scalars to be unknown")
	}
	for _, field := range []string{"temperature_range", "ph_range", "hardness_range", "max_size_cm", "feedings_per_day"} {
		if !slices.Contains(s.Unknown, field) {
			t.Fatalf("expected %s in unknown list %v", field, s.Unknown)
		}
	}
}

func TestNormalizeCompleteRecordHasNoUnknowns(t *testing.T) {
	s := Normalize(neonTetraRecord())
	if len(s.Unknown) != 0 {
		t.Fatalf("expected every attribute to normalize, unknown: %v", s.Unknown)
	}
	if s.TerritorialSpaceCM.Known {
		t.Fatalf("territorial space should stay unknown when absent")
	}
	if s.Territorial() != domain.FlagFalse {
		t.Fatalf("schooling species should not be territorial, got %v", s.Territorial())
	}
}

func TestNormalizeFeedsDedupesAndSorts(t *testing.T) {
	s := Normalize(domain.SpeciesRecord{Name: "x", AcceptedFeeds: []string{"Flakes", " flakes ", "Frozen  Bloodworms", ""}})
	want := []string{"flakes", "frozen bloodworms"}
	if !reflect.DeepEqual(s.AcceptedFeeds, want) {
		t.Fatalf("expected %v, got %v", want, s.AcceptedFeeds)
	}
	if !s.Accepts("FROZEN bloodworms") {
		t.Fatalf("expected feed match to ignore case and spacing")
	}
}

func TestNormalizeCatalogDropsBlankAndDuplicateNames(t *testing.T) {
	records := []domain.SpeciesRecord{
		{Name: "Neon Tetra", WaterType: "fresh"},
		{Name: "  "},
		{Name: "neon tetra", WaterType: "salt"},
		{Name: "Betta"},
	}
	species, dropped := NormalizeCatalog(records)
	if len(species) != 2 {
		t.Fatalf("expected 2 species, got %d", len(species))
	}
	if species[0].WaterType != domain.WaterFresh {
		t.Fatalf("expected first duplicate to win, got %v", species[0].WaterType)
	}
	if !reflect.DeepEqual(dropped, []string{"", "neon tetra"}) {
		t.Fatalf("unexpected dropped list %v", dropped)
	}
}

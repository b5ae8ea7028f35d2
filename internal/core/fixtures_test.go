package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"aquasync/pkg/domain"
)

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func bptr(v bool) *bool { return &v }

func neonTetraRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:               "Neon Tetra",
		WaterType:          "Freshwater",
		TemperatureRange:   "20-26°C",
		PHRange:            "5.0-7.0",
		HardnessRange:      "1-10 dGH",
		Temperament:        "Peaceful",
		SocialBehavior:     "schooling",
		TankZone:           "mid",
		MaxSizeCM:          fptr(3.5),
		ActivityLevel:      "moderate",
		FinVulnerability:   "moderate",
		FinNipper:          bptr(false),
		SchoolingMinNumber: iptr(6),
		Diet:               "omnivore",
		CareLevel:          "beginner",
		MinimumTankLiters:  fptr(40),
		AcceptedFeeds:      []string{"Flakes", "Micro Pellets"},
		PortionGrams:       fptr(0.05),
		FeedingsPerDay:     iptr(2),
	}
}

func cardinalTetraRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:               "Cardinal Tetra",
		WaterType:          "fresh",
		TemperatureRange:   "23-29",
		PHRange:            "4.6-6.2",
		HardnessRange:      "1-4",
		Temperament:        "peaceful",
		SocialBehavior:     "schooling",
		TankZone:           "middle",
		MaxSizeCM:          fptr(5),
		ActivityLevel:      "moderate",
		FinVulnerability:   "moderate",
		FinNipper:          bptr(false),
		SchoolingMinNumber: iptr(6),
		Diet:               "omnivore",
		CareLevel:          "intermediate",
		MinimumTankLiters:  fptr(60),
		AcceptedFeeds:      []string{"flakes"},
		PortionGrams:       fptr(0.05),
		FeedingsPerDay:     iptr(2),
	}
}

func tigerBarbRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:               "Tiger Barb",
		WaterType:          "freshwater",
		TemperatureRange:   "20-26",
		PHRange:            "6.0-8.0",
		HardnessRange:      "4-12",
		Temperament:        "semi-aggressive",
		SocialBehavior:     "shoaling",
		TankZone:           "mid",
		MaxSizeCM:          fptr(7),
		ActivityLevel:      "high",
		FinVulnerability:   "hardy",
		FinNipper:          bptr(true),
		SchoolingMinNumber: iptr(6),
		Diet:               "omnivore",
		CareLevel:          "beginner",
		MinimumTankLiters:  fptr(80),
		AcceptedFeeds:      []string{"flakes", "bloodworms"},
		PortionGrams:       fptr(0.1),
		FeedingsPerDay:     iptr(2),
	}
}

func bettaRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:               "Betta",
		WaterType:          "fresh",
		TemperatureRange:   "24-30",
		PHRange:            "6.0-8.0",
		HardnessRange:      "5-20",
		Temperament:        "semi-aggressive",
		SocialBehavior:     "solitary",
		TankZone:           "top",
		MaxSizeCM:          fptr(7),
		ActivityLevel:      "low",
		FinVulnerability:   "long-finned",
		FinNipper:          bptr(false),
		TerritorialSpaceCM: fptr(900),
		Diet:               "carnivore",
		CareLevel:          "beginner",
		MinimumTankLiters:  fptr(20),
		AcceptedFeeds:      []string{"pellets", "bloodworms"},
		PortionGrams:       fptr(0.1),
		FeedingsPerDay:     iptr(2),
	}
}

func oscarRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:              "Oscar",
		WaterType:         "fresh",
		TemperatureRange:  "22-28",
		PHRange:           "6.0-8.0",
		HardnessRange:     "5-20",
		Temperament:       "aggressive",
		SocialBehavior:    "solitary",
		TankZone:          "all",
		MaxSizeCM:         fptr(35),
		ActivityLevel:     "moderate",
		FinVulnerability:  "hardy",
		FinNipper:         bptr(false),
		Diet:              "carnivore",
		CareLevel:         "intermediate",
		MinimumTankLiters: fptr(300),
		AcceptedFeeds:     []string{"pellets"},
		PortionGrams:      fptr(2),
		FeedingsPerDay:    iptr(1),
	}
}

func clownfishRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:             "Clownfish",
		WaterType:        "marine",
		TemperatureRange: "24-27",
		PHRange:          "8.0-8.4",
		Temperament:      "semi-aggressive",
		SocialBehavior:   "pairs",
		TankZone:         "mid",
		MaxSizeCM:        fptr(11),
		ActivityLevel:    "moderate",
		FinVulnerability: "moderate",
		FinNipper:        bptr(false),
		Diet:             "omnivore",
		CareLevel:        "beginner",
	}
}

func mollyRecord() domain.SpeciesRecord {
	return domain.SpeciesRecord{
		Name:             "Molly",
		WaterType:        "brackish",
		TemperatureRange: "24-28",
		PHRange:          "7.5-8.5",
		HardnessRange:    "15-30",
		Temperament:      "peaceful",
		SocialBehavior:   "community",
		TankZone:         "top",
		MaxSizeCM:        fptr(10),
		ActivityLevel:    "moderate",
		FinVulnerability: "moderate",
		FinNipper:        bptr(false),
		Diet:             "herbivore",
		CareLevel:        "beginner",
	}
}

func catalogRecords() []domain.SpeciesRecord {
	return []domain.SpeciesRecord{
		neonTetraRecord(),
		cardinalTetraRecord(),
		tigerBarbRecord(),
		bettaRecord(),
		oscarRecord(),
		clownfishRecord(),
		mollyRecord(),
	}
}

func catalogSpecies(t *testing.T) []domain.Species {
	t.Helper()
	species, dropped := NormalizeCatalog(catalogRecords())
	if len(dropped) != 0 {
		t.Fatalf("unexpected dropped records: %v", dropped)
	}
	return species
}

func speciesByName(t *testing.T, name string) domain.Species {
	t.Helper()
	for _, s := range catalogSpecies(t) {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("fixture %s not found", name)
	return domain.Species{}
}

// staticCatalog serves records from memory.
type staticCatalog struct {
	records []domain.SpeciesRecord
	err     error
}

func (c *staticCatalog) ListSpecies(context.Context) ([]domain.SpeciesRecord, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]domain.SpeciesRecord{}, c.records...), nil
}

func (c *staticCatalog) GetSpecies(_ context.Context, name string) (domain.SpeciesRecord, bool, error) {
	if c.err != nil {
		return domain.SpeciesRecord{}, false, c.err
	}
	for _, rec := range c.records {
		if strings.EqualFold(rec.Name, name) {
			return rec, true, nil
		}
	}
	return domain.SpeciesRecord{}, false, nil
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

package core

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"aquasync/pkg/domain"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Plausibility bounds for parsed water parameters. Values outside them are
// treated as data-entry errors.
const (
	maxTemperatureC = 45.0
	maxPH           = 14.0
	maxHardnessDGH  = 60.0
)

var waterTypes = map[string]domain.WaterType{
	"fresh":      domain.WaterFresh,
	"freshwater": domain.WaterFresh,
	"fw":         domain.WaterFresh,
	"salt":       domain.WaterSalt,
	"saltwater":  domain.WaterSalt,
	"marine":     domain.WaterSalt,
	"reef":       domain.WaterSalt,
	"sw":         domain.WaterSalt,
	"brackish":   domain.WaterBrackish,
	"bw":         domain.WaterBrackish,
}

var temperaments = map[string]domain.Temperament{
	"peaceful":        domain.TemperamentPeaceful,
	"community":       domain.TemperamentPeaceful,
	"docile":          domain.TemperamentPeaceful,
	"semi-aggressive": domain.TemperamentSemiAggressive,
	"semi aggressive": domain.TemperamentSemiAggressive,
	"semiaggressive":  domain.TemperamentSemiAggressive,
	"semi":            domain.TemperamentSemiAggressive,
	"aggressive":      domain.TemperamentAggressive,
	"predatory":       domain.TemperamentAggressive,
}

var socialBehaviors = map[string]domain.SocialBehavior{
	"schooling":   domain.SocialSchooling,
	"school":      domain.SocialSchooling,
	"shoaling":    domain.SocialShoaling,
	"shoal":       domain.SocialShoaling,
	"solitary":    domain.SocialSolitary,
	"single":      domain.SocialSolitary,
	"pairs":       domain.SocialPairs,
	"pair":        domain.SocialPairs,
	"territorial": domain.SocialTerritorial,
	"community":   domain.SocialCommunity,
}

var tankZones = map[string]domain.TankZone{
	"top":        domain.ZoneTop,
	"surface":    domain.ZoneTop,
	"upper":      domain.ZoneTop,
	"mid":        domain.ZoneMid,
	"middle":     domain.ZoneMid,
	"midwater":   domain.ZoneMid,
	"bottom":     domain.ZoneBottom,
	"lower":      domain.ZoneBottom,
	"substrate":  domain.ZoneBottom,
	"all":        domain.ZoneAll,
	"any":        domain.ZoneAll,
	"all levels": domain.ZoneAll,
}

var activityLevels = map[string]domain.ActivityLevel{
	"low":         domain.ActivityLow,
	"slow":        domain.ActivityLow,
	"sedentary":   domain.ActivityLow,
	"moderate":    domain.ActivityModerate,
	"medium":      domain.ActivityModerate,
	"high":        domain.ActivityHigh,
	"active":      domain.ActivityHigh,
	"very active": domain.ActivityHigh,
}

var finClasses = map[string]domain.FinVulnerability{
	"hardy":        domain.FinsHardy,
	"short":        domain.FinsHardy,
	"short-finned": domain.FinsHardy,
	"low":          domain.FinsHardy,
	"moderate":     domain.FinsModerate,
	"medium":       domain.FinsModerate,
	"vulnerable":   domain.FinsVulnerable,
	"long":         domain.FinsVulnerable,
	"long-finned":  domain.FinsVulnerable,
	"high":         domain.FinsVulnerable,
}

var diets = map[string]domain.Diet{
	"carnivore":   domain.DietCarnivore,
	"carnivorous": domain.DietCarnivore,
	"predator":    domain.DietCarnivore,
	"herbivore":   domain.DietHerbivore,
	"herbivorous": domain.DietHerbivore,
	"omnivore":    domain.DietOmnivore,
	"omnivorous":  domain.DietOmnivore,
}

var careLevels = map[string]domain.CareLevel{
	"beginner":     domain.CareBeginner,
	"easy":         domain.CareBeginner,
	"intermediate": domain.CareIntermediate,
	"moderate":     domain.CareIntermediate,
	"advanced":     domain.CareAdvanced,
	"expert":       domain.CareAdvanced,
	"difficult":    domain.CareAdvanced,
}

// Normalize converts a raw catalog record into its comparable form. It never
// fails: anything missing or unparsable is marked unknown and listed in
// Species.Unknown.
func Normalize(rec domain.SpeciesRecord) domain.Species {
	n := normalizer{}
	s := domain.Species{
		Name:             strings.TrimSpace(rec.Name),
		WaterType:        lookup(&n, "water_type", rec.WaterType, waterTypes, domain.WaterUnknown),
		Temperature:      n.temperature(rec.TemperatureRange),
		PH:               n.bounded("ph_range", rec.PHRange, maxPH),
		Hardness:         n.bounded("hardness_range", rec.HardnessRange, maxHardnessDGH),
		Temperament:      lookup(&n, "temperament", rec.Temperament, temperaments, domain.TemperamentUnknown),
		Social:           lookup(&n, "social_behavior", rec.SocialBehavior, socialBehaviors, domain.SocialUnknown),
		Zone:             lookup(&n, "tank_zone", rec.TankZone, tankZones, domain.ZoneUnknown),
		MaxSizeCM:        n.measure("max_size_cm", rec.MaxSizeCM),
		Activity:         lookup(&n, "activity_level", rec.ActivityLevel, activityLevels, domain.ActivityUnknown),
		FinVulnerability: lookup(&n, "fin_vulnerability", rec.FinVulnerability, finClasses, domain.FinsUnknown),
		FinNipper:        n.flag("fin_nipper", rec.FinNipper),
		SchoolingMin:     n.count("schooling_min_number", rec.SchoolingMinNumber),
		SpecialDiet:      strings.TrimSpace(rec.SpecialDiet),
		Diet:             lookup(&n, "diet", rec.Diet, diets, domain.DietUnknown),
		CareLevel:        lookup(&n, "care_level", rec.CareLevel, careLevels, domain.CareUnknown),
		MinTankLiters:    n.measure("minimum_tank_liters", rec.MinimumTankLiters),
		AcceptedFeeds:    normalizeFeeds(rec.AcceptedFeeds),
		PortionGrams:     n.measure("portion_grams", rec.PortionGrams),
		FeedingsPerDay:   n.count("feedings_per_day", rec.FeedingsPerDay),
	}
	// Territorial space is optional for non-territorial species, so its
	// absence is not a data-quality gap.
	if rec.TerritorialSpaceCM != nil {
		s.TerritorialSpaceCM = n.measure("territorial_space_cm", rec.TerritorialSpaceCM)
	}
	s.Unknown = n.unknown
	return s
}

// NormalizeCatalog normalizes every record. Records without a name are
// dropped, and for names that collide case-insensitively the first record
// wins. Dropped entries are reported by name (empty names as "").
func NormalizeCatalog(records []domain.SpeciesRecord) ([]domain.Species, []string) {
	seen := make(map[string]struct{}, len(records))
	out := make([]domain.Species, 0, len(records))
	var dropped []string
	for _, rec := range records {
		s := Normalize(rec)
		if s.Name == "" {
			dropped = append(dropped, "")
			continue
		}
		key := strings.ToLower(s.Name)
		if _, dup := seen[key]; dup {
			dropped = append(dropped, s.Name)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out, dropped
}

type normalizer struct {
	unknown []string
}

func (n *normalizer) miss(field string) {
	n.unknown = append(n.unknown, field)
}

func lookup[T ~string](n *normalizer, field, raw string, table map[string]T, unknown T) T {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), " "))
	if v, ok := table[key]; ok {
		return v
	}
	if v, ok := table[strings.ReplaceAll(key, " ", "-")]; ok {
		return v
	}
	n.miss(field)
	return unknown
}

func (n *normalizer) temperature(raw string) domain.Range {
	r, ok := parseRange(raw)
	if ok && isFahrenheit(raw) {
		r = domain.NewRange(fahrenheitToCelsius(r.Min), fahrenheitToCelsius(r.Max))
	}
	if !ok || r.Max > maxTemperatureC {
		n.miss("temperature_range")
		return domain.Range{}
	}
	return r
}

func (n *normalizer) bounded(field, raw string, upper float64) domain.Range {
	r, ok := parseRange(raw)
	if !ok || r.Max > upper {
		n.miss(field)
		return domain.Range{}
	}
	return r
}

func (n *normalizer) measure(field string, v *float64) domain.Measure {
	if v == nil {
		n.miss(field)
		return domain.Measure{}
	}
	m := domain.MeasureOf(*v)
	if !m.Known {
		n.miss(field)
	}
	return m
}

func (n *normalizer) count(field string, v *int) domain.Count {
	if v == nil {
		n.miss(field)
		return domain.Count{}
	}
	c := domain.CountOf(*v)
	if !c.Known {
		n.miss(field)
	}
	return c
}

func (n *normalizer) flag(field string, v *bool) domain.Flag {
	if v == nil {
		n.miss(field)
		return domain.FlagUnknown
	}
	return domain.FlagOf(*v)
}

// parseRange reads the first one or two numbers out of free-form range text
// such as "24-28°C", "6.5 to 7.5" or "7".
func parseRange(raw string) (domain.Range, bool) {
	matches := numberPattern.FindAllString(raw, 2)
	if len(matches) == 0 {
		return domain.Range{}, false
	}
	lo, err := strconv.ParseFloat(matches[0], 64)
	if err != nil {
		return domain.Range{}, false
	}
	hi := lo
	if len(matches) == 2 {
		if hi, err = strconv.ParseFloat(matches[1], 64); err != nil {
			return domain.Range{}, false
		}
	}
	return domain.NewRange(lo, hi), true
}

func isFahrenheit(raw string) bool {
	t := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Contains(t, "°F") || strings.HasSuffix(t, "F")
}

func fahrenheitToCelsius(f float64) float64 {
	return roundTo((f-32)*5/9, 1)
}

func normalizeFeeds(feeds []string) []string {
	if len(feeds) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(feeds))
	out := make([]string, 0, len(feeds))
	for _, f := range feeds {
		name := domain.NormalizeFeedName(f)
		if name == "" {
			continue
		}
		if _, ok := set[name]; ok {
			continue
		}
		set[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

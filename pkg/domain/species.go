// Package domain defines the species, verdict, tankmate and tank records plus
// the rule and persistence contracts shared by the aquasync engine.
package domain

import "strings"

// WaterType is the water chemistry family a species lives in.
type WaterType string

// Supported water types. WaterUnknown marks a missing or invalid value.
const (
	WaterUnknown  WaterType = "unknown"
	WaterFresh    WaterType = "fresh"
	WaterSalt     WaterType = "salt"
	WaterBrackish WaterType = "brackish"
)

// Known reports whether the water type carries a value. The zero value is unknown.
func (w WaterType) Known() bool { return w != "" && w != WaterUnknown }

// Temperament describes how a species treats its tankmates.
type Temperament string

// Canonical temperaments.
const (
	TemperamentUnknown        Temperament = "unknown"
	TemperamentPeaceful       Temperament = "peaceful"
	TemperamentSemiAggressive Temperament = "semi-aggressive"
	TemperamentAggressive     Temperament = "aggressive"
)

// SocialBehavior captures how a species groups.
type SocialBehavior string

// Canonical social behaviors.
const (
	SocialUnknown     SocialBehavior = "unknown"
	SocialSchooling   SocialBehavior = "schooling"
	SocialShoaling    SocialBehavior = "shoaling"
	SocialSolitary    SocialBehavior = "solitary"
	SocialPairs       SocialBehavior = "pairs"
	SocialTerritorial SocialBehavior = "territorial"
	SocialCommunity   SocialBehavior = "community"
)

// Known reports whether the social behavior carries a value.
func (b SocialBehavior) Known() bool { return b != "" && b != SocialUnknown }

// TankZone is the part of the water column a species occupies.
type TankZone string

// Canonical tank zones.
const (
	ZoneUnknown TankZone = "unknown"
	ZoneTop     TankZone = "top"
	ZoneMid     TankZone = "mid"
	ZoneBottom  TankZone = "bottom"
	ZoneAll     TankZone = "all"
)

// Known reports whether the zone carries a value.
func (z TankZone) Known() bool { return z != "" && z != ZoneUnknown }

// Shares reports whether two zones overlap. Unknown zones never overlap.
func (z TankZone) Shares(other TankZone) bool {
	if !z.Known() || !other.Known() {
		return false
	}
	return z == other || z == ZoneAll || other == ZoneAll
}

// ActivityLevel describes swimming activity.
type ActivityLevel string

// Canonical activity levels.
const (
	ActivityUnknown  ActivityLevel = "unknown"
	ActivityLow      ActivityLevel = "low"
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
)

// Known reports whether the activity level carries a value.
func (a ActivityLevel) Known() bool { return a != "" && a != ActivityUnknown }

// FinVulnerability describes how exposed a species' fins are to nipping.
type FinVulnerability string

// Canonical fin vulnerability classes.
const (
	FinsUnknown    FinVulnerability = "unknown"
	FinsHardy      FinVulnerability = "hardy"
	FinsModerate   FinVulnerability = "moderate"
	FinsVulnerable FinVulnerability = "vulnerable"
)

// Known reports whether the fin vulnerability carries a value.
func (f FinVulnerability) Known() bool { return f != "" && f != FinsUnknown }

// Diet is the broad feeding category of a species.
type Diet string

// Canonical diets.
const (
	DietUnknown   Diet = "unknown"
	DietCarnivore Diet = "carnivore"
	DietHerbivore Diet = "herbivore"
	DietOmnivore  Diet = "omnivore"
)

// Known reports whether the diet carries a value.
func (d Diet) Known() bool { return d != "" && d != DietUnknown }

// CareLevel describes keeping difficulty.
type CareLevel string

// Canonical care levels.
const (
	CareUnknown      CareLevel = "unknown"
	CareBeginner     CareLevel = "beginner"
	CareIntermediate CareLevel = "intermediate"
	CareAdvanced     CareLevel = "advanced"
)

// Flag is a tri-state boolean that keeps "unknown" apart from false.
type Flag uint8

// Flag values.
const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a known boolean into a Flag.
func FlagOf(v bool) Flag {
	if v {
		return FlagTrue
	}
	return FlagFalse
}

// Known reports whether the flag carries a value.
func (f Flag) Known() bool { return f != FlagUnknown }

// True reports whether the flag is known to be set.
func (f Flag) True() bool { return f == FlagTrue }

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalText encodes the flag as true/false/unknown.
func (f Flag) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText decodes true/false/unknown.
func (f *Flag) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "true":
		*f = FlagTrue
	case "false":
		*f = FlagFalse
	default:
		*f = FlagUnknown
	}
	return nil
}

// Range is a closed numeric interval. A zero Range is unknown.
type Range struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Known bool    `json:"known"`
}

// NewRange returns a known closed interval with ordered bounds.
func NewRange(lo, hi float64) Range {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Range{Min: lo, Max: hi, Known: true}
}

// Width returns Max-Min, or zero when unknown.
func (r Range) Width() float64 {
	if !r.Known {
		return 0
	}
	return r.Max - r.Min
}

// Intersect returns the shared interval and whether the ranges touch at all.
func (r Range) Intersect(o Range) (Range, bool) {
	if !r.Known || !o.Known {
		return Range{}, false
	}
	lo := max(r.Min, o.Min)
	hi := min(r.Max, o.Max)
	if lo > hi {
		return Range{}, false
	}
	return Range{Min: lo, Max: hi, Known: true}, true
}

// Measure is a positive quantity that may be unknown.
type Measure struct {
	Value float64 `json:"value"`
	Known bool    `json:"known"`
}

// MeasureOf returns a known measure when v is positive.
func MeasureOf(v float64) Measure {
	if v <= 0 {
		return Measure{}
	}
	return Measure{Value: v, Known: true}
}

// Count is a positive integer that may be unknown.
type Count struct {
	Value int  `json:"value"`
	Known bool `json:"known"`
}

// CountOf returns a known count when v is positive.
func CountOf(v int) Count {
	if v <= 0 {
		return Count{}
	}
	return Count{Value: v, Known: true}
}

// SpeciesRecord is the raw attribute record delivered by the external catalog.
// Text fields are free-form; optional scalars are nil when the catalog has no value.
type SpeciesRecord struct {
	ID                 string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string   `json:"name" yaml:"name"`
	WaterType          string   `json:"water_type,omitempty" yaml:"water_type,omitempty"`
	TemperatureRange   string   `json:"temperature_range,omitempty" yaml:"temperature_range,omitempty"`
	PHRange            string   `json:"ph_range,omitempty" yaml:"ph_range,omitempty"`
	HardnessRange      string   `json:"hardness_range,omitempty" yaml:"hardness_range,omitempty"`
	Temperament        string   `json:"temperament,omitempty" yaml:"temperament,omitempty"`
	SocialBehavior     string   `json:"social_behavior,omitempty" yaml:"social_behavior,omitempty"`
	TankZone           string   `json:"tank_zone,omitempty" yaml:"tank_zone,omitempty"`
	MaxSizeCM          *float64 `json:"max_size_cm,omitempty" yaml:"max_size_cm,omitempty"`
	ActivityLevel      string   `json:"activity_level,omitempty" yaml:"activity_level,omitempty"`
	FinVulnerability   string   `json:"fin_vulnerability,omitempty" yaml:"fin_vulnerability,omitempty"`
	FinNipper          *bool    `json:"fin_nipper,omitempty" yaml:"fin_nipper,omitempty"`
	SchoolingMinNumber *int     `json:"schooling_min_number,omitempty" yaml:"schooling_min_number,omitempty"`
	TerritorialSpaceCM *float64 `json:"territorial_space_cm,omitempty" yaml:"territorial_space_cm,omitempty"`
	SpecialDiet        string   `json:"special_diet,omitempty" yaml:"special_diet,omitempty"`
	Diet               string   `json:"diet,omitempty" yaml:"diet,omitempty"`
	CareLevel          string   `json:"care_level,omitempty" yaml:"care_level,omitempty"`
	MinimumTankLiters  *float64 `json:"minimum_tank_liters,omitempty" yaml:"minimum_tank_liters,omitempty"`
	AcceptedFeeds      []string `json:"accepted_feeds,omitempty" yaml:"accepted_feeds,omitempty"`
	PortionGrams       *float64 `json:"portion_grams,omitempty" yaml:"portion_grams,omitempty"`
	FeedingsPerDay     *int     `json:"feedings_per_day,omitempty" yaml:"feedings_per_day,omitempty"`
}

// Species is the normalized, comparable form of a SpeciesRecord.
type Species struct {
	Name               string           `json:"name"`
	WaterType          WaterType        `json:"water_type"`
	Temperature        Range            `json:"temperature"`
	PH                 Range            `json:"ph"`
	Hardness           Range            `json:"hardness"`
	Temperament        Temperament      `json:"temperament"`
	Social             SocialBehavior   `json:"social_behavior"`
	Zone               TankZone         `json:"tank_zone"`
	MaxSizeCM          Measure          `json:"max_size_cm"`
	Activity           ActivityLevel    `json:"activity_level"`
	FinVulnerability   FinVulnerability `json:"fin_vulnerability"`
	FinNipper          Flag             `json:"fin_nipper"`
	SchoolingMin       Count            `json:"schooling_min_number"`
	TerritorialSpaceCM Measure          `json:"territorial_space_cm"`
	SpecialDiet        string           `json:"special_diet,omitempty"`
	Diet               Diet             `json:"diet"`
	CareLevel          CareLevel        `json:"care_level"`
	MinTankLiters      Measure          `json:"minimum_tank_liters"`
	AcceptedFeeds      []string         `json:"accepted_feeds,omitempty"`
	PortionGrams       Measure          `json:"portion_grams"`
	FeedingsPerDay     Count            `json:"feedings_per_day"`
	// Unknown lists the attribute names that could not be normalized.
	Unknown []string `json:"unknown,omitempty"`
}

// Territorial reports whether the species defends territory. A known
// territorial space or a territorial social behavior sets it; a known
// non-territorial social behavior clears it.
func (s Species) Territorial() Flag {
	if s.TerritorialSpaceCM.Known || s.Social == SocialTerritorial {
		return FlagTrue
	}
	if s.Social.Known() {
		return FlagFalse
	}
	return FlagUnknown
}

// Accepts reports whether the species eats the named feed.
func (s Species) Accepts(feed string) bool {
	feed = NormalizeFeedName(feed)
	for _, f := range s.AcceptedFeeds {
		if f == feed {
			return true
		}
	}
	return false
}

// NormalizeFeedName folds a feed name to its comparable form.
func NormalizeFeedName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

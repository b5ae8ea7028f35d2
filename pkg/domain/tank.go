package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape is the tank body geometry.
type Shape string

// Supported tank shapes.
const (
	ShapeRectangle Shape = "rectangle"
	ShapeBowl      Shape = "bowl"
	ShapeCylinder  Shape = "cylinder"
)

// Unit is the length unit of the tank dimensions.
type Unit string

// Supported length units.
const (
	UnitCM Unit = "CM"
	UnitIN Unit = "IN"
)

// Tank is the caller-owned tank description used by the capacity planner.
// For cylinders and bowls Length is the diameter and Width is ignored.
type Tank struct {
	Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
	Shape    Shape              `json:"shape" yaml:"shape" validate:"required,oneof=rectangle bowl cylinder"`
	Length   float64            `json:"length" yaml:"length" validate:"gt=0"`
	Width    float64            `json:"width" yaml:"width" validate:"gte=0"`
	Height   float64            `json:"height" yaml:"height" validate:"gte=0"`
	Unit     Unit               `json:"unit" yaml:"unit" validate:"required,oneof=CM IN"`
	Stocking map[string]int     `json:"stocking" yaml:"stocking" validate:"dive,keys,required,endkeys,gt=0"`
	Feeds    map[string]float64 `json:"feeds,omitempty" yaml:"feeds,omitempty" validate:"dive,keys,required,endkeys,gte=0"`
}

// RecommendedQuantity is the planner's stocking ceiling for one species.
type RecommendedQuantity struct {
	Species   string `json:"species"`
	Max       int    `json:"max"`
	Known     bool   `json:"known"`
	LimitedBy string `json:"limited_by,omitempty"`
	Stocked   int    `json:"stocked"`
}

// FeedEstimate is the derived state of one feed in the inventory.
type FeedEstimate struct {
	Feed             string  `json:"feed"`
	AvailableGrams   float64 `json:"available_grams"`
	DailyConsumption float64 `json:"daily_consumption"`
	DaysRemaining    float64 `json:"days_remaining"`
	Unused           bool    `json:"unused"`
	IsLowStock       bool    `json:"is_low_stock"`
	IsCritical       bool    `json:"is_critical"`
}

// Plan is the capacity planner output for a tank.
type Plan struct {
	Tank            string                         `json:"tank,omitempty"`
	VolumeLiters    float64                        `json:"volume_liters"`
	UsableAreaCM2   float64                        `json:"usable_area_cm2"`
	Recommendations map[string]RecommendedQuantity `json:"recommendations"`
	Warnings        map[string]string              `json:"warnings"`
	Feeds           map[string]FeedEstimate        `json:"feeds"`
}

// ParseStocking reads name:count entries into a stocking map. Repeated names
// are summed.
func ParseStocking(values []string) (map[string]int, error) {
	out := make(map[string]int, len(values))
	for _, raw := range values {
		name, count, found := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("stock %q: expected name:count", raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("stock %q: count must be a positive integer", raw)
		}
		out[name] += n
	}
	return out, nil
}

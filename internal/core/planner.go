package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"aquasync/pkg/domain"
)

const inchToCM = 2.54

// TankWarningKey collects warnings that concern the tank as a whole.
const TankWarningKey = "tank"

// Planner defaults.
const (
	DefaultBioloadCMPerLiter = 1.0
	DefaultBowlFillFraction  = 0.6
	DefaultBowlFloorFraction = 0.5
	DefaultNarrowCylinderCM  = 45.0
	DefaultSwimLengthFactor  = 4.0
	DefaultBowlMaxFishCM     = 5.0
	DefaultLowStockDays      = 7.0
	DefaultCriticalDays      = 3.0
)

// PlannerConfig holds the capacity planner constants.
type PlannerConfig struct {
	// BioloadCMPerLiter is the adult fish length the water volume supports.
	BioloadCMPerLiter float64 `json:"bioload_cm_per_liter" yaml:"bioload_cm_per_liter" validate:"gt=0"`
	// BowlFillFraction is the share of a sphere a bowl holds when filled.
	BowlFillFraction float64 `json:"bowl_fill_fraction" yaml:"bowl_fill_fraction" validate:"gt=0,lte=1"`
	// BowlFloorFraction is the share of the bowl's cross-section usable as floor.
	BowlFloorFraction float64 `json:"bowl_floor_fraction" yaml:"bowl_floor_fraction" validate:"gt=0,lte=1"`
	// NarrowCylinderCM is the diameter below which a cylinder restricts
	// horizontal swimming.
	NarrowCylinderCM float64 `json:"narrow_cylinder_cm" yaml:"narrow_cylinder_cm" validate:"gte=0"`
	// SwimLengthFactor is the minimum tank length as a multiple of adult size.
	SwimLengthFactor float64 `json:"swim_length_factor" yaml:"swim_length_factor" validate:"gte=0"`
	// BowlMaxFishCM is the largest adult size considered reasonable in a bowl.
	BowlMaxFishCM float64 `json:"bowl_max_fish_cm" yaml:"bowl_max_fish_cm" validate:"gte=0"`
	LowStockDays  float64 `json:"low_stock_days" yaml:"low_stock_days" validate:"gte=0"`
	CriticalDays  float64 `json:"critical_days" yaml:"critical_days" validate:"gte=0,ltefield=LowStockDays"`
}

// DefaultPlannerConfig returns the stock planner constants.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		BioloadCMPerLiter: DefaultBioloadCMPerLiter,
		BowlFillFraction:  DefaultBowlFillFraction,
		BowlFloorFraction: DefaultBowlFloorFraction,
		NarrowCylinderCM:  DefaultNarrowCylinderCM,
		SwimLengthFactor:  DefaultSwimLengthFactor,
		BowlMaxFishCM:     DefaultBowlMaxFishCM,
		LowStockDays:      DefaultLowStockDays,
		CriticalDays:      DefaultCriticalDays,
	}
}

// Geometry is the derived size of a tank in metric units.
type Geometry struct {
	LengthCM      float64
	WidthCM       float64
	HeightCM      float64
	VolumeLiters  float64
	UsableAreaCM2 float64
}

// Planner turns a tank description and its stocking list into a Plan.
type Planner struct {
	cfg      PlannerConfig
	engine   *Engine
	validate *validator.Validate
}

// NewPlanner constructs a planner. The engine evaluates stocked pairs that
// have no stored verdict.
func NewPlanner(cfg PlannerConfig, engine *Engine) *Planner {
	return &Planner{
		cfg:      cfg,
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Config returns the planner constants.
func (p *Planner) Config() PlannerConfig { return p.cfg }

// ValidateTank checks tank fields and shape-specific dimensions. Failures wrap
// ErrInvalidTank.
func (p *Planner) ValidateTank(t domain.Tank) error {
	t = normalizeTank(t)
	if err := p.validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidTank, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidTank, err)
	}
	switch t.Shape {
	case domain.ShapeRectangle:
		if t.Width <= 0 || t.Height <= 0 {
			return fmt.Errorf("%w: rectangle needs positive width and height", ErrInvalidTank)
		}
	case domain.ShapeCylinder:
		if t.Height <= 0 {
			return fmt.Errorf("%w: cylinder needs a positive height", ErrInvalidTank)
		}
	}
	return nil
}

// Geometry validates the tank and derives its volume and usable floor area.
func (p *Planner) Geometry(t domain.Tank) (Geometry, error) {
	if err := p.ValidateTank(t); err != nil {
		return Geometry{}, err
	}
	t = normalizeTank(t)
	scale := 1.0
	if t.Unit == domain.UnitIN {
		scale = inchToCM
	}
	g := Geometry{LengthCM: t.Length * scale, WidthCM: t.Width * scale, HeightCM: t.Height * scale}
	radius := g.LengthCM / 2
	var cm3 float64
	switch t.Shape {
	case domain.ShapeRectangle:
		cm3 = g.LengthCM * g.WidthCM * g.HeightCM
		g.UsableAreaCM2 = g.LengthCM * g.WidthCM
	case domain.ShapeCylinder:
		g.WidthCM = g.LengthCM
		cm3 = math.Pi * radius * radius * g.HeightCM
		g.UsableAreaCM2 = math.Pi * radius * radius
	case domain.ShapeBowl:
		g.WidthCM, g.HeightCM = g.LengthCM, g.LengthCM
		cm3 = 4.0 / 3.0 * math.Pi * radius * radius * radius * p.cfg.BowlFillFraction
		g.UsableAreaCM2 = math.Pi * radius * radius * p.cfg.BowlFloorFraction
	}
	g.VolumeLiters = cm3 / 1000
	if g.VolumeLiters <= 0 {
		return Geometry{}, fmt.Errorf("%w: volume must be positive", ErrInvalidTank)
	}
	return g, nil
}

// Recommend computes the stocking ceiling for one species in the tank. The
// ceiling is the tighter of the territory and bioload caps; with neither
// known it is unknown.
func (p *Planner) Recommend(s domain.Species, g Geometry) domain.RecommendedQuantity {
	rec := domain.RecommendedQuantity{Species: s.Name}
	if s.TerritorialSpaceCM.Known {
		rec.Max = int(math.Floor(g.UsableAreaCM2 / s.TerritorialSpaceCM.Value))
		rec.Known = true
		rec.LimitedBy = "territory"
	}
	if s.MaxSizeCM.Known {
		byBioload := int(math.Floor(g.VolumeLiters * p.cfg.BioloadCMPerLiter / s.MaxSizeCM.Value))
		if !rec.Known || byBioload < rec.Max {
			rec.Max = byBioload
			rec.LimitedBy = "bioload"
		}
		rec.Known = true
	}
	return rec
}

// Plan evaluates the tank against its stocking list. verdicts may hold stored
// matrix verdicts; pairs without one are evaluated on the fly. Warnings are
// keyed by species name, with tank-wide warnings under TankWarningKey.
func (p *Planner) Plan(t domain.Tank, species []domain.Species, verdicts []domain.Verdict) (domain.Plan, error) {
	g, err := p.Geometry(t)
	if err != nil {
		return domain.Plan{}, err
	}
	t = normalizeTank(t)
	byName := make(map[string]domain.Species, len(species))
	for _, s := range species {
		byName[s.Name] = s
	}
	byPair := make(map[domain.PairKey]domain.Verdict, len(verdicts))
	for _, v := range verdicts {
		byPair[v.Pair] = v
	}

	plan := domain.Plan{
		Tank:            t.Name,
		VolumeLiters:    roundTo(g.VolumeLiters, 2),
		UsableAreaCM2:   roundTo(g.UsableAreaCM2, 2),
		Recommendations: map[string]domain.RecommendedQuantity{},
		Warnings:        map[string]string{},
	}
	warnings := map[string][]string{}
	warn := func(key, msg string) { warnings[key] = append(warnings[key], msg) }

	names := make([]string, 0, len(t.Stocking))
	for name := range t.Stocking {
		names = append(names, name)
	}
	sort.Strings(names)

	var stocked []domain.Species
	var totalCM float64
	for _, name := range names {
		qty := t.Stocking[name]
		s, ok := byName[name]
		if !ok {
			warn(name, "species not found in catalog")
			continue
		}
		stocked = append(stocked, s)
		rec := p.Recommend(s, g)
		rec.Stocked = qty
		plan.Recommendations[name] = rec
		if rec.Known && qty > rec.Max {
			warn(name, fmt.Sprintf("stocked %d exceeds the recommended maximum of %d", qty, rec.Max))
		}
		if short, need := schoolingShortfall(s, t.Stocking); short {
			warn(name, fmt.Sprintf("requires a group of at least %d (stocked %d)", need, qty))
		}
		for _, msg := range p.fitWarnings(s, t.Shape, g) {
			warn(name, msg)
		}
		if s.MaxSizeCM.Known {
			totalCM += s.MaxSizeCM.Value * float64(qty)
		}
	}

	for i := 0; i < len(stocked); i++ {
		for j := i + 1; j < len(stocked); j++ {
			a, b := stocked[i], stocked[j]
			v, ok := byPair[domain.NewPairKey(a.Name, b.Name)]
			// Pair-only rules keep this in line with stored verdicts; group
			// size shortfalls are reported by the schooling warning above.
			if !ok {
				v = p.engine.Evaluate(a, b)
			}
			switch v.Level {
			case domain.LevelIncompatible:
				detail := ""
				if len(v.Reasons) > 0 {
					detail = ": " + v.Reasons[0]
				}
				warn(a.Name, fmt.Sprintf("incompatible with %s%s", b.Name, detail))
				warn(b.Name, fmt.Sprintf("incompatible with %s%s", a.Name, detail))
			case domain.LevelConditional:
				detail := ""
				if len(v.Conditions) > 0 {
					detail = " (" + strings.Join(v.Conditions, ", ") + ")"
				}
				warn(a.Name, fmt.Sprintf("conditional with %s%s", b.Name, detail))
				warn(b.Name, fmt.Sprintf("conditional with %s%s", a.Name, detail))
			}
		}
	}

	if capacity := g.VolumeLiters * p.cfg.BioloadCMPerLiter; totalCM > capacity {
		warn(TankWarningKey, fmt.Sprintf("total stocked length of %s cm exceeds the bioload guideline of %s cm",
			formatNumber(roundTo(totalCM, 1)), formatNumber(roundTo(capacity, 1))))
	}

	for key, msgs := range warnings {
		plan.Warnings[key] = strings.Join(msgs, "; ")
	}
	plan.Feeds = EstimateFeeds(t.Feeds, t.Stocking, byName, p.cfg)
	return plan, nil
}

// fitWarnings reports how well the tank body suits the species.
func (p *Planner) fitWarnings(s domain.Species, shape domain.Shape, g Geometry) []string {
	var out []string
	if s.MinTankLiters.Known && g.VolumeLiters < s.MinTankLiters.Value {
		out = append(out, fmt.Sprintf("needs at least %s L; this tank holds %s L",
			formatNumber(s.MinTankLiters.Value), formatNumber(roundTo(g.VolumeLiters, 1))))
	}
	switch shape {
	case domain.ShapeBowl:
		if s.Activity == domain.ActivityHigh {
			out = append(out, "too active for a bowl")
		}
		if s.Zone == domain.ZoneBottom {
			out = append(out, "bottom dweller has little usable floor in a bowl")
		}
		if s.MaxSizeCM.Known && p.cfg.BowlMaxFishCM > 0 && s.MaxSizeCM.Value > p.cfg.BowlMaxFishCM {
			out = append(out, "grows too large for a bowl")
		}
	case domain.ShapeCylinder:
		if s.Activity == domain.ActivityHigh && g.LengthCM < p.cfg.NarrowCylinderCM {
			out = append(out, "needs more horizontal swimming space than a narrow cylinder offers")
		}
	}
	if shape != domain.ShapeBowl && s.MaxSizeCM.Known && p.cfg.SwimLengthFactor > 0 &&
		g.LengthCM < p.cfg.SwimLengthFactor*s.MaxSizeCM.Value {
		out = append(out, fmt.Sprintf("tank is too short for a fish reaching %s cm", formatNumber(s.MaxSizeCM.Value)))
	}
	return out
}

// normalizeTank folds shape and unit spellings to their canonical form.
func normalizeTank(t domain.Tank) domain.Tank {
	t.Shape = domain.Shape(strings.ToLower(strings.TrimSpace(string(t.Shape))))
	t.Unit = domain.Unit(strings.ToUpper(strings.TrimSpace(string(t.Unit))))
	if t.Unit == "" {
		t.Unit = domain.UnitCM
	}
	return t
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

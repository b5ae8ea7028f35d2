package core

import (
	"sort"

	"aquasync/pkg/domain"
)

// Special requirement tags attached to tankmate profiles.
const (
	TagMinimumGroup  = "requires minimum group size"
	TagFinNipperRisk = "at risk from fin-nippers"
	TagFinNipper     = "fin-nipper"
	TagTerritorial   = "needs own territory"
	TagBrackish      = "requires brackish water"
	TagSpecialDiet   = "special diet"
	TagAdvancedCare  = "advanced care"
)

// SpecialRequirements derives the requirement tags for a species.
func SpecialRequirements(s domain.Species) []string {
	tags := []string{}
	if s.SchoolingMin.Known && s.SchoolingMin.Value > 1 {
		tags = append(tags, TagMinimumGroup)
	}
	if s.FinVulnerability == domain.FinsVulnerable {
		tags = append(tags, TagFinNipperRisk)
	}
	if s.FinNipper.True() {
		tags = append(tags, TagFinNipper)
	}
	if s.Territorial().True() {
		tags = append(tags, TagTerritorial)
	}
	if s.WaterType == domain.WaterBrackish {
		tags = append(tags, TagBrackish)
	}
	if s.SpecialDiet != "" {
		tags = append(tags, TagSpecialDiet)
	}
	if s.CareLevel == domain.CareAdvanced {
		tags = append(tags, TagAdvancedCare)
	}
	return tags
}

type profileBuilder struct {
	species  domain.Species
	verdicts map[string]domain.Verdict
}

// BuildProfiles aggregates verdicts into one profile per species. Every
// species in the catalog gets a profile even without verdicts; species that
// only appear in verdicts get a profile with unknown care level. Each verdict
// places the other species in exactly one bucket; when a pair appears twice
// the later verdict wins.
func BuildProfiles(species []domain.Species, verdicts []domain.Verdict) []domain.TankmateProfile {
	builders := make(map[string]*profileBuilder, len(species))
	get := func(name string) *profileBuilder {
		pb, ok := builders[name]
		if !ok {
			pb = &profileBuilder{
				species:  domain.Species{Name: name, CareLevel: domain.CareUnknown},
				verdicts: map[string]domain.Verdict{},
			}
			builders[name] = pb
		}
		return pb
	}
	for _, s := range species {
		if s.Name == "" {
			continue
		}
		get(s.Name).species = s
	}
	for _, v := range verdicts {
		if !v.Pair.Canonical() {
			continue
		}
		get(v.Pair.A).verdicts[v.Pair.B] = v
		get(v.Pair.B).verdicts[v.Pair.A] = v
	}

	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.TankmateProfile, 0, len(names))
	for _, name := range names {
		out = append(out, builders[name].build())
	}
	return out
}

// BuildProfile aggregates the verdicts involving s into its profile.
// Verdicts not involving s are ignored.
func BuildProfile(s domain.Species, verdicts []domain.Verdict) domain.TankmateProfile {
	pb := &profileBuilder{species: s, verdicts: map[string]domain.Verdict{}}
	for _, v := range verdicts {
		if !v.Pair.Canonical() || !v.Pair.Involves(s.Name) {
			continue
		}
		pb.verdicts[v.Pair.Other(s.Name)] = v
	}
	return pb.build()
}

func (pb *profileBuilder) build() domain.TankmateProfile {
	care := pb.species.CareLevel
	if care == "" {
		care = domain.CareUnknown
	}
	p := domain.TankmateProfile{
		Name:                pb.species.Name,
		FullyCompatible:     []string{},
		Conditional:         []domain.ConditionalMate{},
		Incompatible:        []string{},
		SpecialRequirements: SpecialRequirements(pb.species),
		CareLevel:           care,
	}
	others := make([]string, 0, len(pb.verdicts))
	for other := range pb.verdicts {
		others = append(others, other)
	}
	sort.Strings(others)
	var confidence float64
	for _, other := range others {
		v := pb.verdicts[other]
		confidence += v.Confidence
		switch v.Level {
		case domain.LevelIncompatible:
			p.Incompatible = append(p.Incompatible, other)
		case domain.LevelConditional:
			p.Conditional = append(p.Conditional, domain.ConditionalMate{
				Name:       other,
				Conditions: append([]string{}, v.Conditions...),
			})
		default:
			p.FullyCompatible = append(p.FullyCompatible, other)
		}
	}
	if len(others) > 0 {
		p.Confidence = confidence / float64(len(others))
	}
	return p
}

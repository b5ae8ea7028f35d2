package domain

// ConditionalMate is a tankmate that is acceptable only under conditions.
type ConditionalMate struct {
	Name       string   `json:"name"`
	Conditions []string `json:"conditions"`
}

// TankmateProfile partitions every species evaluated against Name into
// three disjoint buckets.
type TankmateProfile struct {
	Name                string            `json:"name"`
	FullyCompatible     []string          `json:"fully_compatible"`
	Conditional         []ConditionalMate `json:"conditional"`
	Incompatible        []string          `json:"incompatible"`
	SpecialRequirements []string          `json:"special_requirements"`
	CareLevel           CareLevel         `json:"care_level"`
	Confidence          float64           `json:"confidence"`
}

// Mates returns every species name across the three buckets.
func (p TankmateProfile) Mates() []string {
	out := make([]string, 0, len(p.FullyCompatible)+len(p.Conditional)+len(p.Incompatible))
	out = append(out, p.FullyCompatible...)
	for _, c := range p.Conditional {
		out = append(out, c.Name)
	}
	return append(out, p.Incompatible...)
}

package domain

// Delta is the outcome of a single compatibility rule for one pair.
type Delta struct {
	Rule       string
	Applicable bool
	Level      Level
	Reasons    []string
	Conditions []string
}

// Inapplicable returns the delta for a rule whose inputs are unknown.
func Inapplicable(rule string) Delta {
	return Delta{Rule: rule}
}

// Pass returns an applicable delta that leaves the level at compatible.
func Pass(rule string) Delta {
	return Delta{Rule: rule, Applicable: true, Level: LevelCompatible}
}

// Downgrades reports whether the delta proposes a level worse than compatible.
func (d Delta) Downgrades() bool {
	return d.Applicable && d.Level.Rank() > LevelCompatible.Rank()
}

// PairRule is an independent compatibility check between two normalized species.
// Implementations must be pure: no I/O, no shared mutable state.
type PairRule interface {
	Name() string
	Evaluate(a, b Species) Delta
}

// StockingRule is a compatibility check that needs the tank's stocking list.
type StockingRule interface {
	Name() string
	EvaluateStocked(a, b Species, stocking map[string]int) Delta
}

// Assessment accumulates rule deltas. The zero value is the identity element
// and Combine is associative, so assessments may be built in any grouping.
type Assessment struct {
	Level      Level
	Reasons    []string
	Conditions []string
	Total      int
	Applicable int
	Downgrades int
}

// Add folds one rule delta into the assessment.
func (a *Assessment) Add(d Delta) {
	a.Total++
	if !d.Applicable {
		return
	}
	a.Applicable++
	if d.Downgrades() {
		a.Downgrades++
	}
	a.Level = a.Level.Worse(d.Level)
	a.Reasons = appendUnique(a.Reasons, d.Reasons...)
	a.Conditions = appendUnique(a.Conditions, d.Conditions...)
}

// Combine merges two assessments, keeping a's reasons and conditions first.
func (a Assessment) Combine(b Assessment) Assessment {
	out := Assessment{
		Level:      a.Level.Worse(b.Level),
		Total:      a.Total + b.Total,
		Applicable: a.Applicable + b.Applicable,
		Downgrades: a.Downgrades + b.Downgrades,
	}
	out.Reasons = appendUnique(appendUnique(nil, a.Reasons...), b.Reasons...)
	out.Conditions = appendUnique(appendUnique(nil, a.Conditions...), b.Conditions...)
	return out
}

// Verdict finalizes the assessment for the given pair.
func (a Assessment) Verdict(pair PairKey, method string) Verdict {
	level := a.Level
	if level == "" {
		level = LevelCompatible
	}
	v := Verdict{
		Pair:       pair,
		Level:      level,
		Reasons:    append([]string{}, a.Reasons...),
		Conditions: []string{},
		Score:      1,
		Method:     method,
	}
	if level == LevelConditional {
		v.Conditions = append(v.Conditions, a.Conditions...)
	}
	if a.Total > 0 {
		v.Score = float64(a.Total-a.Downgrades) / float64(a.Total)
		v.Confidence = float64(a.Applicable) / float64(a.Total)
	}
	return v
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		if item == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, item)
		}
	}
	return dst
}

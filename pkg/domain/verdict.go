package domain

import "fmt"

// Level is the compatibility outcome for a species pair.
type Level string

// Compatibility levels ordered from best to worst.
const (
	LevelCompatible   Level = "compatible"
	LevelConditional  Level = "conditional"
	LevelIncompatible Level = "incompatible"
)

// Rank orders levels so that a larger rank is a worse outcome.
func (l Level) Rank() int {
	switch l {
	case LevelConditional:
		return 1
	case LevelIncompatible:
		return 2
	default:
		return 0
	}
}

// Worse returns the worse of two levels.
func (l Level) Worse(other Level) Level {
	if other.Rank() > l.Rank() {
		return other
	}
	if l == "" {
		return other
	}
	return l
}

// Valid reports whether l is one of the three canonical levels.
func (l Level) Valid() bool {
	switch l {
	case LevelCompatible, LevelConditional, LevelIncompatible:
		return true
	}
	return false
}

// PairKey identifies an unordered species pair. A canonical key has A < B.
type PairKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewPairKey returns the canonical key for two species names.
func NewPairKey(x, y string) PairKey {
	if y < x {
		x, y = y, x
	}
	return PairKey{A: x, B: y}
}

// Canonical reports whether the key is ordered and not a self pair.
func (k PairKey) Canonical() bool { return k.A < k.B }

// Involves reports whether name is one side of the pair.
func (k PairKey) Involves(name string) bool { return k.A == name || k.B == name }

// Other returns the opposite side of the pair from name.
func (k PairKey) Other(name string) string {
	if k.A == name {
		return k.B
	}
	return k.A
}

func (k PairKey) String() string { return fmt.Sprintf("%s|%s", k.A, k.B) }

// Verdict is the compatibility result for one canonical species pair.
type Verdict struct {
	Pair        PairKey  `json:"pair"`
	Level       Level    `json:"level"`
	Reasons     []string `json:"reasons"`
	Conditions  []string `json:"conditions"`
	Score       float64  `json:"compatibility_score"`
	Confidence  float64  `json:"confidence"`
	Method      string   `json:"evaluation_method"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// Clone returns a deep copy of the verdict.
func (v Verdict) Clone() Verdict {
	cp := v
	cp.Reasons = append([]string{}, v.Reasons...)
	cp.Conditions = append([]string{}, v.Conditions...)
	return cp
}

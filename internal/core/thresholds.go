package core

import (
	"fmt"
	"strconv"
)

// Default rule thresholds. The size cutoffs keep the historical behavior
// while the reason text no longer carries the computed ratio.
const (
	DefaultLargeSizeRatio    = 4.0
	DefaultModerateSizeRatio = 2.0
	DefaultMinRangeOverlap   = 0.5
)

// Thresholds parameterizes the pairwise rules.
type Thresholds struct {
	// LargeSizeRatio is the larger/smaller max-size ratio at or above which a
	// pair is incompatible.
	LargeSizeRatio float64 `json:"large_size_ratio" yaml:"large_size_ratio" validate:"gt=1"`
	// ModerateSizeRatio is the ratio at or above which a pair is conditional.
	ModerateSizeRatio float64 `json:"moderate_size_ratio" yaml:"moderate_size_ratio" validate:"gt=1,ltefield=LargeSizeRatio"`
	// MinRangeOverlap is the shared fraction of the narrower water parameter
	// range below which a pair is conditional.
	MinRangeOverlap float64 `json:"min_range_overlap" yaml:"min_range_overlap" validate:"gt=0,lte=1"`
}

// DefaultThresholds returns the stock rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LargeSizeRatio:    DefaultLargeSizeRatio,
		ModerateSizeRatio: DefaultModerateSizeRatio,
		MinRangeOverlap:   DefaultMinRangeOverlap,
	}
}

// withDefaults fills zero fields with defaults.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.LargeSizeRatio <= 0 {
		t.LargeSizeRatio = d.LargeSizeRatio
	}
	if t.ModerateSizeRatio <= 0 {
		t.ModerateSizeRatio = d.ModerateSizeRatio
	}
	if t.MinRangeOverlap <= 0 {
		t.MinRangeOverlap = d.MinRangeOverlap
	}
	return t
}

func (t Thresholds) signature() string {
	return fmt.Sprintf("large=%s;moderate=%s;overlap=%s",
		formatNumber(t.LargeSizeRatio), formatNumber(t.ModerateSizeRatio), formatNumber(t.MinRangeOverlap))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

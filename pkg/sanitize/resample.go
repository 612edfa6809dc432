package sanitize

import (
	"math"

	"github.com/samber/lo"
)

// Resample keeps every element whose index is a multiple of step.
// The result has ceil(len(items)/step) elements; a step < 1 is treated as 1.
func Resample[T any](items []T, step int) []T {
	if step < 1 {
		step = 1
	}
	return lo.Filter(items, func(_ T, i int) bool { return i%step == 0 })
}

// Downsample picks target elements evenly spread over items, always keeping
// the first and the last one. Shorter inputs are returned unchanged.
func Downsample[T any](items []T, target int) []T {
	if target < 1 || len(items) <= target {
		return items
	}
	if target == 1 {
		return items[:1]
	}
	last := len(items) - 1
	return lo.Times(target, func(i int) T {
		return items[i*last/(target-1)]
	})
}

// ScrubNonFinite replaces NaN and +/-Inf anywhere in doc with 0.
// Maps and slices are modified in place.
func ScrubNonFinite(doc any) any {
	switch t := doc.(type) {
	case map[string]any:
		for k, v := range t {
			t[k] = ScrubNonFinite(v)
		}
	case []any:
		for i, v := range t {
			t[i] = ScrubNonFinite(v)
		}
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0.0
		}
	}
	return doc
}

package workflow

import "math"

// DefaultThreshold is the minimum match score that lets document generation run.
const DefaultThreshold = 60.0

// Passes reports whether score clears threshold. A missing or unparseable
// score (NaN or infinite) never passes.
func Passes(score, threshold float64) bool {
	if math.IsNaN(score) || math.IsInf(score, 0) || math.IsNaN(threshold) {
		return false
	}
	return score >= threshold
}

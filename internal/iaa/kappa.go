package iaa

import "math"

// CohenKappa computes Cohen's kappa for two aligned label sequences.
// Returns NaN when expected agreement equals 1 (both raters constant on
// the same label), where the statistic is undefined.
func CohenKappa(a, b []int) float64 {
	n := len(a)
	if n == 0 || len(b) != n {
		return math.NaN()
	}

	agree := 0
	marginalsA := make(map[int]float64)
	marginalsB := make(map[int]float64)
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			agree++
		}
		marginalsA[a[i]]++
		marginalsB[b[i]]++
	}

	observed := float64(agree) / float64(n)
	expected := 0.0
	for label, countA := range marginalsA {
		expected += (countA / float64(n)) * (marginalsB[label] / float64(n))
	}

	if expected == 1 {
		return math.NaN()
	}
	return (observed - expected) / (1 - expected)
}

// Interpret maps a kappa value onto the conventional quality bands used
// in annotation reports.
func Interpret(kappa float64) string {
	switch {
	case math.IsNaN(kappa):
		return "undefined"
	case kappa >= 0.75:
		return "excellent"
	case kappa >= 0.60:
		return "good"
	case kappa >= 0.40:
		return "moderate"
	default:
		return "poor"
	}
}

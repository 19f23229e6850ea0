package iaa

import (
	"math"
	"testing"
)

func TestCohenKappaPerfectAgreement(t *testing.T) {
	a := []int{0, 1, 0, 1, 1}
	b := []int{0, 1, 0, 1, 1}

	kappa := CohenKappa(a, b)
	if math.Abs(kappa-1.0) > 1e-9 {
		t.Errorf("expected kappa 1.0 for identical sequences, got %f", kappa)
	}
}

func TestCohenKappaKnownValue(t *testing.T) {
	// Observed agreement 0.75, expected agreement 0.5, kappa 0.5.
	a := []int{0, 0, 1, 1}
	b := []int{0, 1, 1, 1}

	kappa := CohenKappa(a, b)
	if math.Abs(kappa-0.5) > 1e-9 {
		t.Errorf("expected kappa 0.5, got %f", kappa)
	}
}

func TestCohenKappaCompleteDisagreement(t *testing.T) {
	a := []int{0, 1, 0, 1}
	b := []int{1, 0, 1, 0}

	kappa := CohenKappa(a, b)
	if math.Abs(kappa-(-1.0)) > 1e-9 {
		t.Errorf("expected kappa -1.0 for inverted sequences, got %f", kappa)
	}
}

func TestCohenKappaDegenerate(t *testing.T) {
	// Both raters constant on the same label: expected agreement is 1
	// and kappa is undefined.
	a := []int{1, 1, 1}
	b := []int{1, 1, 1}

	kappa := CohenKappa(a, b)
	if !math.IsNaN(kappa) {
		t.Errorf("expected NaN for degenerate pair, got %f", kappa)
	}
}

func TestCohenKappaConstantVersusMixed(t *testing.T) {
	// One rater constant, the other mixed: kappa is defined and zero
	// (observed agreement equals chance).
	a := []int{0, 0, 0, 0}
	b := []int{0, 1, 0, 1}

	kappa := CohenKappa(a, b)
	if math.Abs(kappa) > 1e-9 {
		t.Errorf("expected kappa 0.0, got %f", kappa)
	}
}

func TestCohenKappaEmptyInput(t *testing.T) {
	if kappa := CohenKappa(nil, nil); !math.IsNaN(kappa) {
		t.Errorf("expected NaN for empty input, got %f", kappa)
	}
	if kappa := CohenKappa([]int{0, 1}, []int{0}); !math.IsNaN(kappa) {
		t.Errorf("expected NaN for mismatched lengths, got %f", kappa)
	}
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		kappa float64
		want  string
	}{
		{0.90, "excellent"},
		{0.75, "excellent"},
		{0.70, "good"},
		{0.60, "good"},
		{0.50, "moderate"},
		{0.40, "moderate"},
		{0.39, "poor"},
		{0.0, "poor"},
		{-0.2, "poor"},
		{math.NaN(), "undefined"},
	}
	for _, tt := range tests {
		if got := Interpret(tt.kappa); got != tt.want {
			t.Errorf("Interpret(%f) = %q, want %q", tt.kappa, got, tt.want)
		}
	}
}

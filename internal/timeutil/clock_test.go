package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, want between %v and %v", got, before, after)
	}
}

func TestMockClockNow(t *testing.T) {
	start := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	// Time stands still until moved.
	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("second Now() = %v, want %v", got, start)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Advance(48 * time.Hour)
	want := start.Add(48 * time.Hour)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}

	clock.Advance(30 * time.Minute)
	want = want.Add(30 * time.Minute)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("Now() after second Advance = %v, want %v", got, want)
	}
}

func TestMockClockSet(t *testing.T) {
	clock := NewMockClock(time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC))

	want := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	clock.Set(want)
	if got := clock.Now(); !got.Equal(want) {
		t.Errorf("Now() after Set = %v, want %v", got, want)
	}
}

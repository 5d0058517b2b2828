package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2026-09-07 is a Monday.
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, min int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestIsWorkingDay(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"monday", monday, true},
		{"friday", monday.AddDate(0, 0, 4), true},
		{"saturday", monday.AddDate(0, 0, 5), false},
		{"sunday", monday.AddDate(0, 0, 6), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.IsWorkingDay(tt.date))
		})
	}
}

func TestIsWithinWorkingHours(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"fully inside", at(monday, 10, 0), at(monday, 10, 30), true},
		{"starts at opening", at(monday, 8, 0), at(monday, 9, 0), true},
		{"ends exactly at closing", at(monday, 17, 30), at(monday, 18, 0), true},
		{"starts before opening", at(monday, 7, 30), at(monday, 8, 30), false},
		{"runs past closing", at(monday, 17, 30), at(monday, 18, 30), false},
		{"entirely outside", at(monday, 19, 0), at(monday, 19, 30), false},
		{"wraps past midnight", at(monday, 23, 0), at(monday, 24, 30), false},
		{"ends exactly at midnight", at(monday, 23, 30), at(monday, 24, 0), false},
		{"wraps into next morning", at(monday, 23, 0), at(monday, 24+9, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.IsWithinWorkingHours(tt.start, tt.end))
		})
	}
}

func TestIsAlignedToGranularity(t *testing.T) {
	rules := DefaultRules()

	assert.True(t, rules.IsAlignedToGranularity(at(monday, 9, 0)))
	assert.True(t, rules.IsAlignedToGranularity(at(monday, 9, 30)))
	assert.False(t, rules.IsAlignedToGranularity(at(monday, 9, 15)))
	assert.False(t, rules.IsAlignedToGranularity(at(monday, 9, 0).Add(10*time.Second)))
}

func TestDurationAllowed(t *testing.T) {
	rules := DefaultRules()

	assert.False(t, rules.DurationAllowed(15*time.Minute))
	assert.True(t, rules.DurationAllowed(30*time.Minute))
	assert.True(t, rules.DurationAllowed(2*time.Hour))
	assert.False(t, rules.DurationAllowed(3*time.Hour))
}

func TestSatisfiesLeadTime(t *testing.T) {
	rules := DefaultRules()
	now := at(monday, 9, 0)

	// 1 hour out fails the 2 hour lead time, 2 hours exactly passes.
	assert.False(t, rules.SatisfiesLeadTime(now, at(monday, 10, 0)))
	assert.True(t, rules.SatisfiesLeadTime(now, at(monday, 11, 0)))
	assert.True(t, rules.SatisfiesLeadTime(now, at(monday, 14, 0)))
}

func TestWithinHorizon(t *testing.T) {
	rules := DefaultRules()
	now := at(monday, 9, 0)

	assert.True(t, rules.WithinHorizon(now, at(monday, 10, 0)))
	assert.True(t, rules.WithinHorizon(now, at(monday.AddDate(0, 0, 90), 10, 0)))
	assert.False(t, rules.WithinHorizon(now, at(monday.AddDate(0, 0, 91), 10, 0)))
}

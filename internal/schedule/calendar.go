package schedule

import "time"

// Rules is the clinic-wide calendar rule set. It is built once from config
// and injected wherever needed; there is no package-level instance.
type Rules struct {
	WorkingDays    map[time.Weekday]bool
	DayStartMinute int // minutes from midnight, inclusive
	DayEndMinute   int // minutes from midnight, exclusive for starts
	Granularity    time.Duration
	MinLeadTime    time.Duration
	HorizonDays    int
	MinDuration    time.Duration
	MaxDuration    time.Duration
}

// DefaultRules returns the canonical clinic rule set: Mon-Fri 08:00-18:00,
// 30 minute slots, 2 hour lead time, 90 day horizon, 30-120 minute visits.
func DefaultRules() Rules {
	return Rules{
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		DayStartMinute: 8 * 60,
		DayEndMinute:   18 * 60,
		Granularity:    30 * time.Minute,
		MinLeadTime:    2 * time.Hour,
		HorizonDays:    90,
		MinDuration:    30 * time.Minute,
		MaxDuration:    2 * time.Hour,
	}
}

func minuteOfDay(t time.Time) int {
	u := t.UTC()
	return u.Hour()*60 + u.Minute()
}

func (r Rules) IsWorkingDay(date time.Time) bool {
	return r.WorkingDays[date.UTC().Weekday()]
}

// IsWithinWorkingHours reports whether the [start, end) interval lies inside
// the working-hour window. End landing exactly on closing time is allowed; an
// interval crossing midnight never qualifies, no matter where its end minute
// falls.
func (r Rules) IsWithinWorkingHours(start, end time.Time) bool {
	if !DayOf(start).Equal(DayOf(end)) {
		return false
	}
	s := minuteOfDay(start)
	e := minuteOfDay(end)
	return s < e && s >= r.DayStartMinute && e <= r.DayEndMinute
}

// IsAlignedToGranularity reports whether t sits on a slot boundary.
func (r Rules) IsAlignedToGranularity(t time.Time) bool {
	u := t.UTC()
	if u.Second() != 0 || u.Nanosecond() != 0 {
		return false
	}
	g := int(r.Granularity / time.Minute)
	if g <= 0 {
		return false
	}
	return minuteOfDay(u)%g == 0
}

// DurationAllowed reports whether end-start falls within the permitted bounds.
func (r Rules) DurationAllowed(d time.Duration) bool {
	return d >= r.MinDuration && d <= r.MaxDuration
}

func (r Rules) SatisfiesLeadTime(now, proposedStart time.Time) bool {
	return !proposedStart.Before(now.Add(r.MinLeadTime))
}

// WithinHorizon reports whether the proposed start is no further out than the
// booking horizon, measured in whole calendar days.
func (r Rules) WithinHorizon(now, proposedStart time.Time) bool {
	limit := DayOf(now).AddDate(0, 0, r.HorizonDays)
	return proposedStart.Before(limit.AddDate(0, 0, 1))
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SlotGenerator computes the bookable start times for a doctor on a date.
// Output is a finite, ascending snapshot; callers re-request for fresh data.
type SlotGenerator struct {
	rules        Rules
	schedules    ScheduleRepository
	appointments AppointmentRepository
	contracts    *ContractChecker
	now          func() time.Time
}

func NewSlotGenerator(rules Rules, schedules ScheduleRepository, appointments AppointmentRepository, contracts *ContractChecker, now func() time.Time) *SlotGenerator {
	if now == nil {
		now = time.Now
	}
	return &SlotGenerator{
		rules:        rules,
		schedules:    schedules,
		appointments: appointments,
		contracts:    contracts,
		now:          now,
	}
}

type window struct {
	start int // minute of day
	end   int
}

// mergeWindows collapses overlapping or touching minute windows into a
// minimal sorted set.
func mergeWindows(defs []SlotDefinition) []window {
	windows := make([]window, 0, len(defs))
	for _, def := range defs {
		if def.EndMinute <= def.StartMinute {
			continue
		}
		windows = append(windows, window{start: def.StartMinute, end: def.EndMinute})
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].start < windows[j].start })

	merged := windows[:0]
	for _, w := range windows {
		if len(merged) > 0 && w.start <= merged[len(merged)-1].end {
			if w.end > merged[len(merged)-1].end {
				merged[len(merged)-1].end = w.end
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// Generate returns the ascending candidate start times for the doctor on the
// given day where an appointment of the requested duration fits every rule
// and collides with nothing already booked. duration <= 0 falls back to the
// configured granularity.
func (g *SlotGenerator) Generate(ctx context.Context, doctorID uuid.UUID, date time.Time, duration time.Duration) ([]time.Time, error) {
	if duration <= 0 {
		duration = g.rules.Granularity
	}

	day := DayOf(date)
	if !g.rules.IsWorkingDay(day) {
		return nil, nil
	}
	if err := g.contracts.Valid(ctx, doctorID, day); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, nil
		}
		return nil, err
	}

	defs, err := g.schedules.FindActiveSlotDefinitions(ctx, doctorID, day.Weekday())
	if err != nil {
		return nil, fmt.Errorf("load slot definitions: %w", err)
	}
	windows := clipWindows(mergeWindows(defs), g.rules.DayStartMinute, g.rules.DayEndMinute)
	if len(windows) == 0 {
		return nil, nil
	}

	existing, err := g.appointments.FindActiveByDoctorAndDate(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("load active appointments: %w", err)
	}

	now := g.now()
	stepMin := int(g.rules.Granularity / time.Minute)
	durMin := int(duration / time.Minute)

	var starts []time.Time
	for _, w := range windows {
		for m := alignUp(w.start, stepMin); m+durMin <= w.end; m += stepMin {
			start := day.Add(time.Duration(m) * time.Minute)
			end := start.Add(duration)

			if !g.rules.SatisfiesLeadTime(now, start) {
				continue
			}
			if !g.rules.WithinHorizon(now, start) {
				continue
			}

			conflicted := false
			for _, appt := range existing {
				if Overlaps(start, end, appt.Start, appt.End) {
					conflicted = true
					break
				}
			}
			if conflicted {
				continue
			}

			starts = append(starts, start)
		}
	}

	return starts, nil
}

// clipWindows bounds each window to the working-hour range so every emitted
// slot also survives the business-hours validation.
func clipWindows(windows []window, lo, hi int) []window {
	clipped := windows[:0]
	for _, w := range windows {
		if w.start < lo {
			w.start = lo
		}
		if w.end > hi {
			w.end = hi
		}
		if w.start < w.end {
			clipped = append(clipped, w)
		}
	}
	return clipped
}

// windowsContain reports whether the [s, e) minute interval fits entirely
// inside one of the (merged, non-overlapping) windows.
func windowsContain(windows []window, s, e int) bool {
	for _, w := range windows {
		if w.start <= s && e <= w.end {
			return true
		}
	}
	return false
}

// alignUp rounds m up to the next multiple of step.
func alignUp(m, step int) int {
	if step <= 0 {
		return m
	}
	if rem := m % step; rem != 0 {
		return m + step - rem
	}
	return m
}

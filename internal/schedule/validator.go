package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Draft is a proposed appointment that has not been persisted yet.
type Draft struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Start     time.Time
	End       time.Time

	// ExcludeID skips one existing appointment during conflict detection,
	// used when rescheduling in place.
	ExcludeID *uuid.UUID
}

// Validator runs every business rule against a draft, fail-fast and in a
// fixed order, so callers always receive the first failing reason. It never
// mutates anything.
//
// The conflict check (the last step) is only race-free when the caller holds
// the (doctor, date) schedule lock.
type Validator struct {
	rules     Rules
	schedules ScheduleRepository
	conflicts *ConflictDetector
	contracts *ContractChecker
	now       func() time.Time
}

func NewValidator(rules Rules, schedules ScheduleRepository, conflicts *ConflictDetector, contracts *ContractChecker, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{
		rules:     rules,
		schedules: schedules,
		conflicts: conflicts,
		contracts: contracts,
		now:       now,
	}
}

// Validate returns nil when the draft may be booked, a *ValidationError with
// the first failing reason code otherwise, or a plain error on repository
// failure.
func (v *Validator) Validate(ctx context.Context, draft Draft) error {
	if !draft.End.After(draft.Start) {
		return validationErr(ReasonInvalidDuration, "end %s must be after start %s", draft.End.Format(time.RFC3339), draft.Start.Format(time.RFC3339))
	}

	if !v.rules.IsWorkingDay(draft.Start) {
		return validationErr(ReasonNotAWorkingDay, "%s is not a working day", DayOf(draft.Start).Format("2006-01-02"))
	}
	if !v.rules.IsWithinWorkingHours(draft.Start, draft.End) {
		return validationErr(ReasonOutsideBusinessHours, "interval %s-%s lies outside working hours", draft.Start.UTC().Format("15:04"), draft.End.UTC().Format("15:04"))
	}

	// The interval must also fit entirely inside one of the doctor's own
	// recurring windows; clinic-wide working hours alone are not enough.
	defs, err := v.schedules.FindActiveSlotDefinitions(ctx, draft.DoctorID, draft.Start.UTC().Weekday())
	if err != nil {
		return fmt.Errorf("load slot definitions: %w", err)
	}
	if !windowsContain(mergeWindows(defs), minuteOfDay(draft.Start), minuteOfDay(draft.End)) {
		return validationErr(ReasonOutsideBusinessHours, "interval %s-%s falls outside the doctor's scheduled windows", draft.Start.UTC().Format("15:04"), draft.End.UTC().Format("15:04"))
	}

	if !v.rules.IsAlignedToGranularity(draft.Start) {
		return validationErr(ReasonInvalidSlotAlignment, "start %s is not aligned to %s slots", draft.Start.UTC().Format("15:04:05"), v.rules.Granularity)
	}
	if !v.rules.DurationAllowed(draft.End.Sub(draft.Start)) {
		return validationErr(ReasonInvalidDuration, "duration %s outside allowed range [%s, %s]", draft.End.Sub(draft.Start), v.rules.MinDuration, v.rules.MaxDuration)
	}

	now := v.now()
	if !v.rules.SatisfiesLeadTime(now, draft.Start) {
		return validationErr(ReasonInsufficientLeadTime, "start %s is less than %s from now", draft.Start.Format(time.RFC3339), v.rules.MinLeadTime)
	}
	if !v.rules.WithinHorizon(now, draft.Start) {
		return validationErr(ReasonBookingTooFarAhead, "start %s is beyond the %d day booking horizon", draft.Start.Format(time.RFC3339), v.rules.HorizonDays)
	}

	if err := v.contracts.Valid(ctx, draft.DoctorID, draft.Start); err != nil {
		return err
	}

	conflicted, err := v.conflicts.HasConflict(ctx, draft.DoctorID, draft.Start, draft.End, draft.ExcludeID)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if conflicted {
		return validationErr(ReasonSlotAlreadyBooked, "slot %s-%s is already booked", draft.Start.UTC().Format("15:04"), draft.End.UTC().Format("15:04"))
	}

	return nil
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service is the appointment scheduling engine. It owns no state beyond its
// collaborators: all reads and the single write per mutation go through the
// injected repositories, and the conflict-check-then-insert section runs
// under the per-(doctor, date) lock.
type Service struct {
	appointments AppointmentRepository
	schedules    ScheduleRepository
	locker       Locker
	cache        AvailabilityCache
	rules        Rules
	generator    *SlotGenerator
	validator    *Validator
	now          func() time.Time
}

// ServiceOption tweaks optional service collaborators.
type ServiceOption func(*Service)

// WithAvailabilityCache memoizes slot lists and invalidates them on writes.
func WithAvailabilityCache(cache AvailabilityCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithClock substitutes the wall clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(appointments AppointmentRepository, schedules ScheduleRepository, locker Locker, rules Rules, opts ...ServiceOption) *Service {
	s := &Service{
		appointments: appointments,
		schedules:    schedules,
		locker:       locker,
		rules:        rules,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	conflicts := NewConflictDetector(appointments)
	contracts := NewContractChecker(schedules)
	s.generator = NewSlotGenerator(rules, schedules, appointments, contracts, s.now)
	s.validator = NewValidator(rules, schedules, conflicts, contracts, s.now)

	return s
}

// GetAvailableSlots returns the bookable start times for the doctor on the
// given date. duration <= 0 uses the configured granularity. The list is a
// snapshot: a successful booking by anyone else invalidates it.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time, duration time.Duration) ([]time.Time, error) {
	doctor, err := s.schedules.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if !doctor.Active {
		return nil, ErrDoctorNotFound
	}

	if duration <= 0 {
		duration = s.rules.Granularity
	}
	day := DayOf(date)

	if s.cache != nil {
		if starts, ok := s.cache.Get(ctx, doctorID, day, duration); ok {
			return starts, nil
		}
	}

	starts, err := s.generator.Generate(ctx, doctorID, day, duration)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, doctorID, day, duration, starts)
	}
	return starts, nil
}

// CreateAppointment validates the proposed interval and books it. The
// conflict check and the insert run atomically under the schedule lock, so at
// most one of two concurrent attempts on overlapping intervals succeeds; the
// loser gets SLOT_ALREADY_BOOKED (or ErrScheduleBusy if the lock itself is
// contended and the locker does not wait).
func (s *Service) CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, start time.Time, duration time.Duration) (*Appointment, []Event, error) {
	doctor, err := s.schedules.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load doctor: %w", err)
	}
	if !doctor.Active {
		return nil, nil, ErrDoctorNotFound
	}
	if _, err := s.schedules.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load patient: %w", err)
	}

	if duration <= 0 {
		duration = s.rules.Granularity
	}
	start = start.UTC()
	end := start.Add(duration)
	day := DayOf(start)

	var (
		created *Appointment
		events  []Event
	)

	err = s.locker.WithScheduleLock(ctx, doctorID, day, func(lockCtx context.Context) error {
		draft := Draft{
			DoctorID:  doctorID,
			PatientID: patientID,
			Start:     start,
			End:       end,
		}
		if err := s.validator.Validate(lockCtx, draft); err != nil {
			return err
		}

		now := s.now()
		appt := &Appointment{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			PatientID: patientID,
			Start:     start,
			End:       end,
			Status:    StatusScheduled,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.appointments.Insert(lockCtx, appt); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt
		events = append(events, Event{
			Type:          EventAppointmentCreated,
			AppointmentID: appt.ID,
			OccurredAt:    now,
			Payload: map[string]any{
				"doctor_id":  doctorID.String(),
				"patient_id": patientID.String(),
				"start":      start,
				"end":        end,
			},
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidate(ctx, doctorID, day)
	return created, events, nil
}

// TransitionAppointment applies one state-machine move. The actor must carry
// the capability for the target status. NoShow additionally requires that the
// appointment's start has passed.
func (s *Service) TransitionAppointment(ctx context.Context, id uuid.UUID, target Status, actor Actor) (*Appointment, []Event, error) {
	needed, ok := capabilityFor(target)
	if !ok {
		return nil, nil, &TransitionError{Code: ReasonInvalidStateTransition, To: target}
	}
	if !actor.Can(needed) {
		return nil, nil, &TransitionError{Code: ReasonActorNotPermitted, To: target}
	}
	if target == StatusRescheduled {
		// Rescheduling needs a replacement interval; it has its own entry point.
		return nil, nil, &TransitionError{Code: ReasonInvalidStateTransition, To: target}
	}

	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load appointment: %w", err)
	}

	if err := CheckTransition(appt.Status, target); err != nil {
		return nil, nil, err
	}
	if target == StatusNoShow && s.now().Before(appt.Start) {
		return nil, nil, &TransitionError{Code: ReasonInvalidStateTransition, From: appt.Status, To: target}
	}

	updated, err := s.appointments.UpdateStatus(ctx, id, appt.Status, target)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race: the row moved on under us. Re-read so the caller
			// sees an accurate reason.
			fresh, ferr := s.appointments.FindByID(ctx, id)
			if ferr == nil {
				if terr := CheckTransition(fresh.Status, target); terr != nil {
					return nil, nil, terr
				}
			}
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("update status: %w", err)
	}

	now := s.now()
	events := []Event{statusChangeEvent(updated, appt.Status, target, actor, now)}
	if target == StatusCancelled {
		events = append(events, Event{
			Type:          EventAppointmentCancelled,
			AppointmentID: updated.ID,
			OccurredAt:    now,
			Payload:       map[string]any{"actor": actor.ID},
		})
	}

	// Freeing or closing a slot changes the doctor's availability for that day.
	s.invalidate(ctx, updated.DoctorID, updated.Day())

	return updated, events, nil
}

// RescheduleAppointment closes the current record and books a replacement
// interval as a fresh appointment linked to the original. The replacement
// passes full validation; the original's own interval does not block it.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, newStart time.Time, duration time.Duration, actor Actor) (*Appointment, []Event, error) {
	if !actor.Can(CapReschedule) {
		return nil, nil, &TransitionError{Code: ReasonActorNotPermitted, To: StatusRescheduled}
	}

	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load appointment: %w", err)
	}
	if err := CheckTransition(appt.Status, StatusRescheduled); err != nil {
		return nil, nil, err
	}

	if duration <= 0 {
		duration = appt.End.Sub(appt.Start)
	}
	newStart = newStart.UTC()
	newEnd := newStart.Add(duration)
	newDay := DayOf(newStart)

	var (
		replacement *Appointment
		events      []Event
	)

	err = s.locker.WithScheduleLock(ctx, appt.DoctorID, newDay, func(lockCtx context.Context) error {
		draft := Draft{
			DoctorID:  appt.DoctorID,
			PatientID: appt.PatientID,
			Start:     newStart,
			End:       newEnd,
			ExcludeID: &appt.ID,
		}
		if err := s.validator.Validate(lockCtx, draft); err != nil {
			return err
		}

		now := s.now()
		next := &Appointment{
			ID:              uuid.New(),
			DoctorID:        appt.DoctorID,
			PatientID:       appt.PatientID,
			Start:           newStart,
			End:             newEnd,
			Status:          StatusScheduled,
			RescheduledFrom: &appt.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		closed, err := s.appointments.Reschedule(lockCtx, appt.ID, appt.Status, next)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				// The original moved status while we were validating.
				return &TransitionError{Code: ReasonInvalidStateTransition, From: appt.Status, To: StatusRescheduled}
			}
			return fmt.Errorf("reschedule: %w", err)
		}

		replacement = next
		events = append(events,
			statusChangeEvent(closed, appt.Status, StatusRescheduled, actor, now),
			Event{
				Type:          EventAppointmentRescheduled,
				AppointmentID: next.ID,
				OccurredAt:    now,
				Payload: map[string]any{
					"original_id": appt.ID.String(),
					"start":       newStart,
					"end":         newEnd,
					"actor":       actor.ID,
				},
			},
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.invalidate(ctx, appt.DoctorID, appt.Day())
	if !newDay.Equal(appt.Day()) {
		s.invalidate(ctx, appt.DoctorID, newDay)
	}

	return replacement, events, nil
}

// GetAppointment fetches one appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListDoctorDay returns the doctor's active appointments for a day, ascending.
func (s *Service) ListDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	appts, err := s.appointments.FindActiveByDoctorAndDate(ctx, doctorID, DayOf(date))
	if err != nil {
		return nil, fmt.Errorf("list doctor day: %w", err)
	}
	return appts, nil
}

func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, doctorID, day)
	}
}

func statusChangeEvent(appt *Appointment, from, to Status, actor Actor, at time.Time) Event {
	return Event{
		Type:          EventAppointmentStatusChanged,
		AppointmentID: appt.ID,
		OccurredAt:    at,
		Payload: map[string]any{
			"from":  string(from),
			"to":    string(to),
			"actor": actor.ID,
		},
	}
}

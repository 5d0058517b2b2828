package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrNoActiveContract    = errors.New("no active contract")

	// ErrScheduleBusy means another booking attempt currently holds the
	// (doctor, date) lock. Callers retry with a fresh slot list.
	ErrScheduleBusy = errors.New("schedule is being modified, please retry")
)

// AppointmentRepository contains the appointment DB interactions the engine needs.
type AppointmentRepository interface {
	// FindActiveByDoctorAndDate returns non-cancelled, non-deleted
	// appointments for the doctor whose start falls on the given day,
	// ordered by start time. Used for conflict checks.
	FindActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error)

	Insert(ctx context.Context, appt *Appointment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus moves an appointment from one status to another as a
	// compare-and-set; it returns ErrAppointmentNotFound when no row matched
	// the expected current status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Reschedule atomically closes the original record (status moves from
	// the expected current status to rescheduled, linked to the replacement)
	// and inserts the replacement row. Returns the closed original, or
	// ErrAppointmentNotFound when the compare-and-set on the original missed.
	// Nothing is written when either half fails.
	Reschedule(ctx context.Context, originalID uuid.UUID, from Status, replacement *Appointment) (*Appointment, error)
}

// ScheduleRepository exposes the read-only directory data the engine
// validates against: doctors, patients, contracts and recurring availability.
type ScheduleRepository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// FindActiveSlotDefinitions returns the doctor's active recurring
	// windows for a weekday, ordered by start minute.
	FindActiveSlotDefinitions(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]SlotDefinition, error)

	// FindActiveContract returns an active contract covering the date, or
	// ErrNoActiveContract.
	FindActiveContract(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Contract, error)
}

// Locker serializes the conflict-check-then-insert critical section per
// (doctor, date). An implementation may block until the lock frees or give up
// with ErrScheduleBusy.
type Locker interface {
	WithScheduleLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error
}

// AvailabilityCache memoizes generated slot lists per (doctor, day, duration).
// Implementations must treat it as a best-effort layer: a miss or cache error
// simply forces recomputation.
type AvailabilityCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, day time.Time, duration time.Duration) ([]time.Time, bool)
	Set(ctx context.Context, doctorID uuid.UUID, day time.Time, duration time.Duration, starts []time.Time)
	// Invalidate drops every cached list for the (doctor, day) key,
	// regardless of duration.
	Invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time)
}

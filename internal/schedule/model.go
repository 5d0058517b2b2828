package schedule

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
)

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contract marks a doctor as engaged (and thus bookable) for a date range.
// A nil EndDate means the engagement is open-ended.
type Contract struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartDate time.Time
	EndDate   *time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotDefinition is a recurring weekly availability window for a doctor.
// Start and end are minutes from midnight on the given weekday.
type SlotDefinition struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Appointment struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	PatientID       uuid.UUID
	Start           time.Time
	End             time.Time
	Status          Status
	RescheduledFrom *uuid.UUID
	RescheduledTo   *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Day returns the appointment's calendar day at midnight UTC.
func (a *Appointment) Day() time.Time {
	return DayOf(a.Start)
}

// DayOf truncates a timestamp to midnight UTC.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
)

// Event is a domain event describing a single mutation. The engine returns
// events alongside mutation results; it never writes them anywhere itself.
// Callers forward events to their audit/notification sinks.
type Event struct {
	Type          string
	AppointmentID uuid.UUID
	OccurredAt    time.Time
	Payload       map[string]any
}

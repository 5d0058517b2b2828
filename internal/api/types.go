package api

import (
	"time"

	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	PatientID       string `json:"patient_id"`
	Start           string `json:"start"`            // RFC 3339
	DurationMinutes int    `json:"duration_minutes"` // 0 means default granularity
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type RescheduleRequest struct {
	Start           string `json:"start"`            // RFC 3339
	DurationMinutes int    `json:"duration_minutes"` // 0 keeps the original duration
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Status          string     `json:"status"`
	RescheduledFrom *uuid.UUID `json:"rescheduled_from,omitempty"`
	RescheduledTo   *uuid.UUID `json:"rescheduled_to,omitempty"`
}

type SlotsResponse struct {
	DoctorID uuid.UUID   `json:"doctor_id"`
	Date     string      `json:"date"`
	Slots    []time.Time `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/clinicore/scheduling/internal/schedule"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func appointmentResponse(appt *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              appt.ID,
		DoctorID:        appt.DoctorID,
		PatientID:       appt.PatientID,
		Start:           appt.Start,
		End:             appt.End,
		Status:          string(appt.Status),
		RescheduledFrom: appt.RescheduledFrom,
		RescheduledTo:   appt.RescheduledTo,
	}
}

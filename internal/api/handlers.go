package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling/internal/audit"
	"github.com/clinicore/scheduling/internal/schedule"
)

func getSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		var duration time.Duration
		if raw := r.URL.Query().Get("duration"); raw != "" {
			duration, err = time.ParseDuration(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a Go duration, e.g. 30m")
				return
			}
		}

		slots, err := svc.GetAvailableSlots(r.Context(), doctorID, date, duration)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		if slots == nil {
			slots = []time.Time{}
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			DoctorID: doctorID,
			Date:     schedule.DayOf(date).Format("2006-01-02"),
			Slots:    slots,
		})
	}
}

func listDoctorDayHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		appts, err := svc.ListDoctorDay(r.Context(), doctorID, date)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, appointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc *schedule.Service, sink audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		duration := time.Duration(req.DurationMinutes) * time.Minute

		appt, events, err := svc.CreateAppointment(r.Context(), doctorID, patientID, start, duration)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		sink.Record(r.Context(), events...)

		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func transitionAppointmentHandler(svc *schedule.Service, sink audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req TransitionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, events, err := svc.TransitionAppointment(r.Context(), id, schedule.Status(req.Status), actorFromRequest(r))
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		sink.Record(r.Context(), events...)

		writeJSON(w, http.StatusOK, appointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc *schedule.Service, sink audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		duration := time.Duration(req.DurationMinutes) * time.Minute

		appt, events, err := svc.RescheduleAppointment(r.Context(), id, start, duration, actorFromRequest(r))
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		sink.Record(r.Context(), events...)

		writeJSON(w, http.StatusCreated, appointmentResponse(appt))
	}
}

// handleScheduleError translates engine errors into HTTP. Validation and
// transition rejections carry their closed reason codes; anything else is an
// infrastructure failure and stays a 500 so clients can tell "pick another
// time" apart from "system unavailable".
func handleScheduleError(w http.ResponseWriter, err error) {
	var verr *schedule.ValidationError
	var terr *schedule.TransitionError

	switch {
	case errors.Is(err, schedule.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is being modified, please retry shortly")
	case errors.As(err, &verr):
		status := http.StatusUnprocessableEntity
		if verr.Code == schedule.ReasonSlotAlreadyBooked {
			status = http.StatusConflict
		}
		writeError(w, status, string(verr.Code), verr.Message)
	case errors.As(err, &terr):
		status := http.StatusConflict
		if terr.Code == schedule.ReasonActorNotPermitted {
			status = http.StatusForbidden
		}
		writeError(w, status, string(terr.Code), terr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

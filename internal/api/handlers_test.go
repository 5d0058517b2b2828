package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling/internal/schedule"
)

var testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

type apiFixture struct {
	handler   http.Handler
	doctorID  uuid.UUID
	patientID uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := schedule.NewMemoryRepository()
	doctorID := uuid.New()
	patientID := uuid.New()

	repo.AddDoctor(schedule.Doctor{ID: doctorID, Name: "Dr. Osei", Active: true})
	repo.AddPatient(schedule.Patient{ID: patientID, Name: "Sam Hale"})
	repo.AddContract(schedule.Contract{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartDate: testMonday.AddDate(-1, 0, 0),
		Active:    true,
	})
	for wd := time.Monday; wd <= time.Friday; wd++ {
		repo.AddSlotDefinition(schedule.SlotDefinition{
			ID:          uuid.New(),
			DoctorID:    doctorID,
			Weekday:     wd,
			StartMinute: 480,
			EndMinute:   1080,
			Active:      true,
		})
	}

	svc := schedule.NewService(
		repo, repo,
		schedule.NewKeyedMutexLocker(),
		schedule.DefaultRules(),
		schedule.WithClock(func() time.Time { return testMonday.Add(9 * time.Hour) }),
	)

	return &apiFixture{
		handler:   NewRouter(RouterConfig{Service: svc, Version: "test"}),
		doctorID:  doctorID,
		patientID: patientID,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) book(t *testing.T, start time.Time) AppointmentResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/appointments", CreateAppointmentRequest{
		DoctorID:        f.doctorID.String(),
		PatientID:       f.patientID.String(),
		Start:           start.Format(time.RFC3339),
		DurationMinutes: 30,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Actor-ID": "admin-1", "X-Actor-Role": "admin"}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLivenessEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestGetSlots(t *testing.T) {
	f := newAPIFixture(t)
	day := testMonday.AddDate(0, 0, 2)

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=%s", f.doctorID, day.Format("2006-01-02")), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.doctorID, resp.DoctorID)
	assert.Len(t, resp.Slots, 20)
	assert.True(t, resp.Slots[0].Equal(day.Add(8*time.Hour)))
}

func TestGetSlotsBadRequests(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/doctors/not-a-uuid/slots?date=2026-09-09", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=nope", f.doctorID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_date", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=2026-09-09", uuid.New()), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAppointment(t *testing.T) {
	f := newAPIFixture(t)
	day := testMonday.AddDate(0, 0, 2)

	resp := f.book(t, day.Add(10*time.Hour))
	assert.Equal(t, "scheduled", resp.Status)
	assert.True(t, resp.Start.Equal(day.Add(10*time.Hour)))
	assert.True(t, resp.End.Equal(day.Add(10*time.Hour+30*time.Minute)))

	// The booked appointment is retrievable.
	rec := f.do(t, http.MethodGet, "/appointments/"+resp.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// And the doctor's day listing includes it.
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/appointments?date=%s", f.doctorID, day.Format("2006-01-02")), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing, 1)
	assert.Equal(t, resp.ID, listing[0].ID)
}

func TestCreateAppointmentErrorMapping(t *testing.T) {
	f := newAPIFixture(t)
	day := testMonday.AddDate(0, 0, 2)
	f.book(t, day.Add(10*time.Hour))

	cases := []struct {
		name     string
		req      CreateAppointmentRequest
		wantCode int
		wantErr  string
	}{
		{
			name: "unknown doctor",
			req: CreateAppointmentRequest{
				DoctorID:  uuid.NewString(),
				PatientID: f.patientID.String(),
				Start:     day.Add(11 * time.Hour).Format(time.RFC3339),
			},
			wantCode: http.StatusNotFound,
			wantErr:  "doctor_not_found",
		},
		{
			name: "weekend",
			req: CreateAppointmentRequest{
				DoctorID:  f.doctorID.String(),
				PatientID: f.patientID.String(),
				Start:     testMonday.AddDate(0, 0, 5).Add(10 * time.Hour).Format(time.RFC3339),
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "NOT_A_WORKING_DAY",
		},
		{
			name: "slot taken",
			req: CreateAppointmentRequest{
				DoctorID:  f.doctorID.String(),
				PatientID: f.patientID.String(),
				Start:     day.Add(10 * time.Hour).Format(time.RFC3339),
			},
			wantCode: http.StatusConflict,
			wantErr:  "SLOT_ALREADY_BOOKED",
		},
		{
			name: "misaligned start",
			req: CreateAppointmentRequest{
				DoctorID:  f.doctorID.String(),
				PatientID: f.patientID.String(),
				Start:     day.Add(10*time.Hour + 45*time.Minute).Format(time.RFC3339),
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "INVALID_SLOT_ALIGNMENT",
		},
		{
			name: "bad start format",
			req: CreateAppointmentRequest{
				DoctorID:  f.doctorID.String(),
				PatientID: f.patientID.String(),
				Start:     "tomorrow-ish",
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "invalid_start",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/appointments", tc.req, nil)
			assert.Equal(t, tc.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantErr, decodeError(t, rec).Error)
		})
	}
}

func TestTransitionEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	day := testMonday.AddDate(0, 0, 2)
	appt := f.book(t, day.Add(10*time.Hour))

	t.Run("no actor headers", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/transition",
			TransitionRequest{Status: "confirmed"}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "ACTOR_NOT_PERMITTED", decodeError(t, rec).Error)
	})

	t.Run("receptionist cannot start", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/transition",
			TransitionRequest{Status: "in_progress"},
			map[string]string{"X-Actor-ID": "desk-1", "X-Actor-Role": "receptionist"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("confirm then illegal skip", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/transition",
			TransitionRequest{Status: "confirmed"}, adminHeaders())
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/transition",
			TransitionRequest{Status: "completed"}, adminHeaders())
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "INVALID_STATE_TRANSITION", decodeError(t, rec).Error)
	})

	t.Run("cancel then terminal", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/transition",
			TransitionRequest{Status: "cancelled"}, adminHeaders())
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/transition",
			TransitionRequest{Status: "confirmed"}, adminHeaders())
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_TERMINAL", decodeError(t, rec).Error)
	})

	t.Run("unknown appointment", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/appointments/"+uuid.NewString()+"/transition",
			TransitionRequest{Status: "confirmed"}, adminHeaders())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRescheduleEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	day := testMonday.AddDate(0, 0, 2)
	appt := f.book(t, day.Add(10*time.Hour))

	rec := f.do(t, http.MethodPost, "/appointments/"+appt.ID.String()+"/reschedule",
		RescheduleRequest{Start: day.Add(14 * time.Hour).Format(time.RFC3339)}, adminHeaders())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var replacement AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replacement))
	assert.True(t, replacement.Start.Equal(day.Add(14*time.Hour)))
	require.NotNil(t, replacement.RescheduledFrom)
	assert.Equal(t, appt.ID, *replacement.RescheduledFrom)

	// The original record now points at the replacement.
	rec = f.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var original AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &original))
	assert.Equal(t, "rescheduled", original.Status)
	require.NotNil(t, original.RescheduledTo)
	assert.Equal(t, replacement.ID, *original.RescheduledTo)
}

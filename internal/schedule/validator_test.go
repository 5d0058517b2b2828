package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(repo *MemoryRepository, now time.Time) *Validator {
	return NewValidator(DefaultRules(), repo, NewConflictDetector(repo), NewContractChecker(repo), fixedClock(now))
}

func assertReason(t *testing.T, err error, want ReasonCode) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, want, verr.Code)
}

func TestValidateAcceptsGoodDraft(t *testing.T) {
	repo, doctorID, patientID := newScheduleFixture(t)
	v := newValidator(repo, at(monday, 9, 0))

	day := monday.AddDate(0, 0, 2)
	err := v.Validate(context.Background(), Draft{
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(day, 10, 0),
		End:       at(day, 10, 30),
	})
	assert.NoError(t, err)
}

func TestValidateReasonCodes(t *testing.T) {
	repo, doctorID, patientID := newScheduleFixture(t)

	day := monday.AddDate(0, 0, 2)
	require.NoError(t, repo.Insert(context.Background(), &Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(day, 10, 0),
		End:       at(day, 10, 30),
		Status:    StatusScheduled,
	}))

	now := at(monday, 9, 0)
	v := newValidator(repo, now)

	tests := []struct {
		name       string
		start, end time.Time
		want       ReasonCode
	}{
		{"saturday", at(monday.AddDate(0, 0, 5), 10, 0), at(monday.AddDate(0, 0, 5), 10, 30), ReasonNotAWorkingDay},
		{"before opening", at(day, 7, 0), at(day, 7, 30), ReasonOutsideBusinessHours},
		{"past closing", at(day, 17, 30), at(day, 18, 30), ReasonOutsideBusinessHours},
		{"misaligned start", at(day, 10, 45), at(day, 11, 15), ReasonInvalidSlotAlignment},
		{"too short", at(day, 11, 0), at(day, 11, 15), ReasonInvalidDuration},
		{"too long", at(day, 11, 0), at(day, 13, 30), ReasonInvalidDuration},
		{"end before start", at(day, 11, 0), at(day, 10, 0), ReasonInvalidDuration},
		{"one hour of lead", at(monday, 10, 0), at(monday, 10, 30), ReasonInsufficientLeadTime},
		{"past horizon", at(monday.AddDate(0, 0, 98), 10, 0), at(monday.AddDate(0, 0, 98), 10, 30), ReasonBookingTooFarAhead},
		{"booked slot", at(day, 10, 0), at(day, 10, 30), ReasonSlotAlreadyBooked},
		{"overlapping booked slot", at(day, 9, 30), at(day, 10, 30), ReasonSlotAlreadyBooked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), Draft{
				DoctorID:  doctorID,
				PatientID: patientID,
				Start:     tt.start,
				End:       tt.end,
			})
			assertReason(t, err, tt.want)
		})
	}
}

func TestValidateContractEndsDayBefore(t *testing.T) {
	repo := NewMemoryRepository()
	doctorID := uuid.New()
	patientID := uuid.New()

	day := monday.AddDate(0, 0, 2)
	end := day.AddDate(0, 0, -1)
	repo.AddDoctor(Doctor{ID: doctorID, Name: "Dr. Short", Active: true})
	repo.AddPatient(Patient{ID: patientID, Name: "Pat"})
	repo.AddContract(Contract{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartDate: monday.AddDate(-1, 0, 0),
		EndDate:   &end,
		Active:    true,
	})
	repo.AddSlotDefinition(SlotDefinition{
		ID: uuid.New(), DoctorID: doctorID, Weekday: day.Weekday(),
		StartMinute: 8 * 60, EndMinute: 18 * 60, Active: true,
	})

	v := newValidator(repo, at(monday, 9, 0))
	err := v.Validate(context.Background(), Draft{
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(day, 10, 0),
		End:       at(day, 10, 30),
	})
	assertReason(t, err, ReasonNoActiveContract)
}

// The interval must sit inside one of the doctor's own recurring windows,
// not just inside clinic-wide working hours.
func TestValidateRequiresDoctorWindow(t *testing.T) {
	repo := NewMemoryRepository()
	doctorID := uuid.New()
	patientID := uuid.New()

	day := monday.AddDate(0, 0, 2)
	repo.AddDoctor(Doctor{ID: doctorID, Name: "Dr. Late", Active: true})
	repo.AddPatient(Patient{ID: patientID, Name: "Lee"})
	repo.AddContract(Contract{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartDate: monday.AddDate(-1, 0, 0),
		Active:    true,
	})
	// Afternoons only.
	repo.AddSlotDefinition(SlotDefinition{
		ID: uuid.New(), DoctorID: doctorID, Weekday: day.Weekday(),
		StartMinute: 14 * 60, EndMinute: 18 * 60, Active: true,
	})

	v := newValidator(repo, at(monday, 9, 0))
	validate := func(start, end time.Time) error {
		return v.Validate(context.Background(), Draft{
			DoctorID:  doctorID,
			PatientID: patientID,
			Start:     start,
			End:       end,
		})
	}

	t.Run("morning rejected", func(t *testing.T) {
		assertReason(t, validate(at(day, 10, 0), at(day, 10, 30)), ReasonOutsideBusinessHours)
	})

	t.Run("straddling the window edge rejected", func(t *testing.T) {
		assertReason(t, validate(at(day, 13, 30), at(day, 14, 30)), ReasonOutsideBusinessHours)
	})

	t.Run("inside the window accepted", func(t *testing.T) {
		assert.NoError(t, validate(at(day, 14, 0), at(day, 14, 30)))
	})
}

// An interval spanning the gap between two disjoint windows fits neither.
func TestValidateRejectsIntervalAcrossWindowGap(t *testing.T) {
	repo := NewMemoryRepository()
	doctorID := uuid.New()
	patientID := uuid.New()

	day := monday.AddDate(0, 0, 2)
	repo.AddDoctor(Doctor{ID: doctorID, Name: "Dr. Split", Active: true})
	repo.AddPatient(Patient{ID: patientID, Name: "Noa"})
	repo.AddContract(Contract{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartDate: monday.AddDate(-1, 0, 0),
		Active:    true,
	})
	repo.AddSlotDefinition(SlotDefinition{
		ID: uuid.New(), DoctorID: doctorID, Weekday: day.Weekday(),
		StartMinute: 8 * 60, EndMinute: 12 * 60, Active: true,
	})
	repo.AddSlotDefinition(SlotDefinition{
		ID: uuid.New(), DoctorID: doctorID, Weekday: day.Weekday(),
		StartMinute: 13 * 60, EndMinute: 18 * 60, Active: true,
	})

	v := newValidator(repo, at(monday, 9, 0))
	err := v.Validate(context.Background(), Draft{
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(day, 11, 30),
		End:       at(day, 13, 30),
	})
	assertReason(t, err, ReasonOutsideBusinessHours)
}

// Checks run in a fixed order, so a draft failing several rules reports the
// earliest one.
func TestValidateFailFastOrder(t *testing.T) {
	repo, doctorID, patientID := newScheduleFixture(t)
	v := newValidator(repo, at(monday, 9, 0))

	// Saturday AND outside business hours AND misaligned: weekday wins.
	sat := monday.AddDate(0, 0, 5)
	err := v.Validate(context.Background(), Draft{
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(sat, 6, 10),
		End:       at(sat, 6, 40),
	})
	assertReason(t, err, ReasonNotAWorkingDay)
}

func TestValidateExcludesGivenAppointment(t *testing.T) {
	repo, doctorID, patientID := newScheduleFixture(t)

	day := monday.AddDate(0, 0, 2)
	existing := Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(day, 10, 0),
		End:       at(day, 10, 30),
		Status:    StatusConfirmed,
	}
	require.NoError(t, repo.Insert(context.Background(), &existing))

	v := newValidator(repo, at(monday, 9, 0))
	err := v.Validate(context.Background(), Draft{
		DoctorID:  doctorID,
		PatientID: patientID,
		Start:     at(day, 10, 0),
		End:       at(day, 11, 0),
		ExcludeID: &existing.ID,
	})
	assert.NoError(t, err)
}

package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ConflictDetector answers whether a proposed interval collides with an
// existing active appointment for the doctor. Cancelled, no-show-closed and
// soft-deleted records never count. The answer is only trustworthy inside the
// per-(doctor, date) critical section; the Service is responsible for holding
// the lock around check-then-insert.
type ConflictDetector struct {
	appointments AppointmentRepository
}

func NewConflictDetector(appointments AppointmentRepository) *ConflictDetector {
	return &ConflictDetector{appointments: appointments}
}

// HasConflict reports whether [start, end) overlaps any active appointment of
// the doctor on that day. excludeID, when non-nil, skips one appointment so a
// reschedule can test its replacement interval against everything but itself.
func (d *ConflictDetector) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	existing, err := d.appointments.FindActiveByDoctorAndDate(ctx, doctorID, DayOf(start))
	if err != nil {
		return false, fmt.Errorf("load active appointments: %w", err)
	}

	for _, appt := range existing {
		if excludeID != nil && appt.ID == *excludeID {
			continue
		}
		if Overlaps(start, end, appt.Start, appt.End) {
			return true, nil
		}
	}
	return false, nil
}

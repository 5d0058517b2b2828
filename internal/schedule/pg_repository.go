package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// too, which is how the repository is tested without a database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgRepository implements AppointmentRepository and ScheduleRepository on
// Postgres.
type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

// activeStatuses are the statuses that occupy a doctor's time.
const activeStatusList = `'scheduled', 'confirmed', 'in_progress'`

const appointmentColumns = `id, doctor_id, patient_id, start_at, end_at, status, rescheduled_from, rescheduled_to, created_at, updated_at, deleted_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.Start,
		&a.End,
		&a.Status,
		&a.RescheduledFrom,
		&a.RescheduledTo,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialty,
		&d.Active,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

// AppointmentRepository

func (r *PgRepository) FindActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error) {
	day = DayOf(day)
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		  AND status IN (`+activeStatusList+`)
		  AND deleted_at IS NULL
		ORDER BY start_at
	`, doctorID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Insert(ctx context.Context, appt *Appointment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL)
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.Start, appt.End, appt.Status,
		appt.RescheduledFrom, appt.RescheduledTo, appt.CreatedAt, appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

// UpdateStatus is a compare-and-set on status. Cancelling also soft-deletes
// the row so it disappears from conflict checks but stays for audit history.
func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now(),
		    deleted_at = CASE WHEN $2 = 'cancelled' THEN now() ELSE deleted_at END
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) Reschedule(ctx context.Context, originalID uuid.UUID, from Status, replacement *Appointment) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	closed, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'rescheduled',
		    rescheduled_to = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, originalID, replacement.ID, from))
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL)
	`, replacement.ID, replacement.DoctorID, replacement.PatientID, replacement.Start,
		replacement.End, replacement.Status, replacement.RescheduledFrom,
		replacement.RescheduledTo, replacement.CreatedAt, replacement.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert replacement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule tx: %w", err)
	}

	return closed, nil
}

// ScheduleRepository

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, active, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) FindActiveSlotDefinitions(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]SlotDefinition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_id, weekday, start_minute, end_minute, active, created_at, updated_at
		FROM schedule_slot_definitions
		WHERE doctor_id = $1
		  AND weekday = $2
		  AND active
		ORDER BY start_minute
	`, doctorID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SlotDefinition
	for rows.Next() {
		var def SlotDefinition
		var wd int
		err := rows.Scan(
			&def.ID,
			&def.DoctorID,
			&wd,
			&def.StartMinute,
			&def.EndMinute,
			&def.Active,
			&def.CreatedAt,
			&def.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		def.Weekday = time.Weekday(wd)
		result = append(result, def)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) FindActiveContract(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Contract, error) {
	var c Contract

	err := r.db.QueryRow(ctx, `
		SELECT id, doctor_id, start_date, end_date, active, created_at, updated_at
		FROM contracts
		WHERE doctor_id = $1
		  AND active
		  AND start_date <= $2
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY start_date DESC
		LIMIT 1
	`, doctorID, DayOf(date)).Scan(
		&c.ID,
		&c.DoctorID,
		&c.StartDate,
		&c.EndDate,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveContract
		}
		return nil, err
	}

	return &c, nil
}

package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory implementation of both
// repository interfaces, for tests and local development. It mirrors the
// Postgres semantics: compare-and-set status updates, soft delete on cancel,
// atomic reschedule.
type MemoryRepository struct {
	mu           sync.RWMutex
	doctors      map[uuid.UUID]Doctor
	patients     map[uuid.UUID]Patient
	contracts    []Contract
	slotDefs     []SlotDefinition
	appointments map[uuid.UUID]Appointment
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:      make(map[uuid.UUID]Doctor),
		patients:     make(map[uuid.UUID]Patient),
		appointments: make(map[uuid.UUID]Appointment),
		now:          time.Now,
	}
}

// Fixture helpers

func (r *MemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
}

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) AddContract(c Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts = append(r.contracts, c)
}

func (r *MemoryRepository) AddSlotDefinition(def SlotDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slotDefs = append(r.slotDefs, def)
}

// ScheduleRepository

func (r *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) FindActiveSlotDefinitions(_ context.Context, doctorID uuid.UUID, weekday time.Weekday) ([]SlotDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []SlotDefinition
	for _, def := range r.slotDefs {
		if def.DoctorID == doctorID && def.Weekday == weekday && def.Active {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].StartMinute < defs[j].StartMinute })
	return defs, nil
}

func (r *MemoryRepository) FindActiveContract(_ context.Context, doctorID uuid.UUID, date time.Time) (*Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := DayOf(date)
	for _, c := range r.contracts {
		if c.DoctorID != doctorID || !c.Active {
			continue
		}
		if DayOf(c.StartDate).After(day) {
			continue
		}
		if c.EndDate != nil && DayOf(*c.EndDate).Before(day) {
			continue
		}
		contract := c
		return &contract, nil
	}
	return nil, ErrNoActiveContract
}

// AppointmentRepository

func isActive(a Appointment) bool {
	if a.DeletedAt != nil {
		return false
	}
	switch a.Status {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

func (r *MemoryRepository) FindActiveByDoctorAndDate(_ context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day = DayOf(day)
	var result []Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID && a.Day().Equal(day) && isActive(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (r *MemoryRepository) Insert(_ context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.appointments[appt.ID] = *appt
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	now := r.now()
	a.Status = to
	a.UpdatedAt = now
	if to == StatusCancelled {
		a.DeletedAt = &now
	}
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) Reschedule(_ context.Context, originalID uuid.UUID, from Status, replacement *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[originalID]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = StatusRescheduled
	a.RescheduledTo = &replacement.ID
	a.UpdatedAt = r.now()
	r.appointments[originalID] = a
	r.appointments[replacement.ID] = *replacement
	return &a, nil
}

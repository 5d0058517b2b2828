// Package audit persists the domain events the scheduling engine returns
// from its mutations. The engine itself never writes here; handlers and
// workers forward events explicitly.
package audit

import (
	"context"
	"encoding/json"
	"log"

	"github.com/clinicore/scheduling/internal/schedule"
)

// Sink consumes domain events. Implementations must tolerate being called
// after the mutation has already committed: failing to record an event never
// rolls back a booking.
type Sink interface {
	Record(ctx context.Context, events ...schedule.Event)
}

// PgSink appends events to the event_logs table.
type PgSink struct {
	db schedule.DB
}

func NewPgSink(db schedule.DB) *PgSink {
	return &PgSink{db: db}
}

func (s *PgSink) Record(ctx context.Context, events ...schedule.Event) {
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			log.Printf("audit: marshal payload for %s: %v", ev.Type, err)
			payload = nil
		}

		_, err = s.db.Exec(ctx, `
			INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
			VALUES ($1, $2, $3, $4)
		`, ev.Type, ev.AppointmentID, payload, ev.OccurredAt)
		if err != nil {
			log.Printf("audit: insert event %s for appointment %s: %v", ev.Type, ev.AppointmentID, err)
		}
	}
}

// NopSink drops events; used where auditing is not wired.
type NopSink struct{}

func (NopSink) Record(context.Context, ...schedule.Event) {}

package api

import (
	"net/http"

	"github.com/clinicore/scheduling/internal/schedule"
)

// Role to capability mapping. Roles are a transport concern; the engine only
// ever sees the resolved capability set.
var roleCapabilities = map[string][]schedule.Capability{
	"receptionist": {
		schedule.CapConfirm,
		schedule.CapCancel,
		schedule.CapReschedule,
	},
	"clinician": {
		schedule.CapConfirm,
		schedule.CapStart,
		schedule.CapComplete,
		schedule.CapMarkNoShow,
	},
	"admin": {
		schedule.CapConfirm,
		schedule.CapStart,
		schedule.CapComplete,
		schedule.CapCancel,
		schedule.CapMarkNoShow,
		schedule.CapReschedule,
	},
}

// actorFromRequest resolves the caller's capability set from the actor
// headers. An unknown or missing role yields an actor with no capabilities;
// the engine rejects the request with ACTOR_NOT_PERMITTED.
func actorFromRequest(r *http.Request) schedule.Actor {
	actor := schedule.Actor{
		ID:           r.Header.Get("X-Actor-ID"),
		Capabilities: make(map[schedule.Capability]bool),
	}
	for _, c := range roleCapabilities[r.Header.Get("X-Actor-Role")] {
		actor.Capabilities[c] = true
	}
	return actor
}

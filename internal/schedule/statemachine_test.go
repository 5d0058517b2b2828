package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusScheduled, StatusConfirmed},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusRescheduled},
		{StatusConfirmed, StatusInProgress},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
		{StatusConfirmed, StatusRescheduled},
		{StatusInProgress, StatusCompleted},
	}
	for _, tt := range legal {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.NoError(t, CheckTransition(tt.from, tt.to))
		})
	}

	t.Run("scheduled straight to completed is illegal", func(t *testing.T) {
		err := CheckTransition(StatusScheduled, StatusCompleted)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonInvalidStateTransition, terr.Code)
	})

	t.Run("scheduled cannot go in progress", func(t *testing.T) {
		err := CheckTransition(StatusScheduled, StatusInProgress)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, ReasonInvalidStateTransition, terr.Code)
	})

	t.Run("terminal states reject everything", func(t *testing.T) {
		for _, from := range []Status{StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled} {
			for _, to := range []Status{StatusScheduled, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled} {
				err := CheckTransition(from, to)
				var terr *TransitionError
				require.ErrorAs(t, err, &terr, "from=%s to=%s", from, to)
				assert.Equal(t, ReasonAlreadyTerminal, terr.Code, "from=%s to=%s", from, to)
			}
		}
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(StatusScheduled))
	assert.False(t, IsTerminal(StatusConfirmed))
	assert.False(t, IsTerminal(StatusInProgress))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusNoShow))
	assert.True(t, IsTerminal(StatusRescheduled))
}

func TestActorCapabilities(t *testing.T) {
	actor := Actor{
		ID:           "reception-1",
		Capabilities: map[Capability]bool{CapConfirm: true, CapCancel: true},
	}

	assert.True(t, actor.Can(CapConfirm))
	assert.True(t, actor.Can(CapCancel))
	assert.False(t, actor.Can(CapComplete))
	assert.False(t, Actor{}.Can(CapConfirm))
}

package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name  string
		from  Status
		to    Status
		actor Actor
		ok    bool
	}{
		{"person cancels requested", StatusRequested, StatusCancelled, ActorPerson, true},
		{"person cancels scheduled", StatusScheduled, StatusCancelled, ActorPerson, true},
		{"person cancels done", StatusDone, StatusCancelled, ActorPerson, false},
		{"person cancels missed", StatusMissed, StatusCancelled, ActorPerson, false},
		{"person cancels cancelled", StatusCancelled, StatusCancelled, ActorPerson, false},
		{"person confirms own appointment", StatusRequested, StatusScheduled, ActorPerson, false},
		{"person completes own appointment", StatusRequested, StatusDone, ActorPerson, false},

		{"location confirms requested", StatusRequested, StatusScheduled, ActorLocation, true},
		{"location re-confirms scheduled", StatusScheduled, StatusScheduled, ActorLocation, true},
		{"location marks requested missed", StatusRequested, StatusMissed, ActorLocation, true},
		{"location marks scheduled missed", StatusScheduled, StatusMissed, ActorLocation, true},
		{"location reopens cancelled", StatusCancelled, StatusScheduled, ActorLocation, false},
		{"location reverts to requested", StatusScheduled, StatusRequested, ActorLocation, false},
		{"location marks done missed", StatusDone, StatusMissed, ActorLocation, false},
		{"location cancels", StatusRequested, StatusCancelled, ActorLocation, false},

		{"checkin completes requested", StatusRequested, StatusDone, ActorCheckIn, true},
		{"checkin completes scheduled", StatusScheduled, StatusDone, ActorCheckIn, true},
		{"checkin completes missed", StatusMissed, StatusDone, ActorCheckIn, true},
		{"checkin completes cancelled", StatusCancelled, StatusDone, ActorCheckIn, true},
		{"checkin repeats done", StatusDone, StatusDone, ActorCheckIn, true},
		{"checkin cancels", StatusScheduled, StatusCancelled, ActorCheckIn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to, tt.actor)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusRequested.Terminal())
	assert.False(t, StatusScheduled.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusMissed.Terminal())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("scheduled")
	assert.True(t, ok)
	assert.Equal(t, StatusScheduled, s)

	_, ok = ParseStatus("confirmed")
	assert.False(t, ok)

	_, ok = ParseStatus("")
	assert.False(t, ok)
}

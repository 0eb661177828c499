package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCanTransition covers every edge of the status state machine
func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"received to validated", EventStatusReceived, EventStatusValidated, true},
		{"received to failed", EventStatusReceived, EventStatusFailed, true},
		{"received to duplicate", EventStatusReceived, EventStatusDuplicate, true},
		{"received to queued skips validation", EventStatusReceived, EventStatusQueued, false},
		{"received to processed skips everything", EventStatusReceived, EventStatusProcessed, false},
		{"validated to queued", EventStatusValidated, EventStatusQueued, true},
		{"validated to failed", EventStatusValidated, EventStatusFailed, true},
		{"validated to duplicate", EventStatusValidated, EventStatusDuplicate, true},
		{"validated back to received", EventStatusValidated, EventStatusReceived, false},
		{"queued to processed", EventStatusQueued, EventStatusProcessed, true},
		{"queued to failed", EventStatusQueued, EventStatusFailed, true},
		{"queued to duplicate too late", EventStatusQueued, EventStatusDuplicate, false},
		{"processed is terminal", EventStatusProcessed, EventStatusFailed, false},
		{"failed is terminal", EventStatusFailed, EventStatusReceived, false},
		{"duplicate is terminal", EventStatusDuplicate, EventStatusValidated, false},
		{"self transition not allowed", EventStatusQueued, EventStatusQueued, false},
		{"unknown from", "bogus", EventStatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(EventStatusReceived))
	assert.False(t, IsTerminalStatus(EventStatusValidated))
	assert.False(t, IsTerminalStatus(EventStatusQueued))
	assert.True(t, IsTerminalStatus(EventStatusProcessed))
	assert.True(t, IsTerminalStatus(EventStatusFailed))
	assert.True(t, IsTerminalStatus(EventStatusDuplicate))
}

func TestKnownStatus(t *testing.T) {
	for _, s := range []string{
		EventStatusReceived, EventStatusValidated, EventStatusQueued,
		EventStatusProcessed, EventStatusFailed, EventStatusDuplicate,
	} {
		assert.True(t, KnownStatus(s), s)
	}
	assert.False(t, KnownStatus(""))
	assert.False(t, KnownStatus("pending"))
}

package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
)

func TestPowerLevelsEventContent_Defaults(t *testing.T) {
	pl := &event.PowerLevelsEventContent{}
	assert.Equal(t, 0, pl.GetUserLevel("@nobody:example.com"))
	assert.Equal(t, 0, pl.Invite())
	assert.Equal(t, 50, pl.Kick())
	assert.Equal(t, 50, pl.Ban())
	assert.Equal(t, 50, pl.Redact())
	assert.Equal(t, 50, pl.StateDefault())
	assert.Equal(t, 50, pl.GetEventLevel(event.StateTopic))
	assert.Equal(t, 0, pl.GetEventLevel(event.EventMessage))
}

func TestPowerLevelsEventContent_NilReceiverIsSafe(t *testing.T) {
	var pl *event.PowerLevelsEventContent
	assert.Equal(t, 0, pl.GetUserLevel("@nobody:example.com"))
	assert.Equal(t, 0, pl.GetEventLevel(event.EventMessage))
}

func TestPowerLevelsEventContent_ExplicitOverrides(t *testing.T) {
	pl := &event.PowerLevelsEventContent{
		Users:        map[id.UserID]int{"@alice:example.com": 100},
		UsersDefault: 10,
		Events:       map[string]int{"m.room.name": 60},
	}
	assert.Equal(t, 100, pl.GetUserLevel("@alice:example.com"))
	assert.Equal(t, 10, pl.GetUserLevel("@bob:example.com"))
	assert.Equal(t, 60, pl.GetEventLevel(event.StateRoomName))
}

func TestPowerLevelsEventContent_Clone(t *testing.T) {
	original := &event.PowerLevelsEventContent{
		Users: map[id.UserID]int{"@alice:example.com": 100},
	}
	cloned := original.Clone()
	cloned.Users["@bob:example.com"] = 50
	assert.NotContains(t, original.Users, id.UserID("@bob:example.com"))
}

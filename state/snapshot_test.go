package state_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/state"
)

func contentOf(t *testing.T, raw string) *event.Content {
	t.Helper()
	c := &event.Content{Raw: json.RawMessage(raw)}
	return c
}

func TestSnapshot_GetOnEmpty(t *testing.T) {
	_, ok := state.Empty.Get(state.Key{Type: event.StateTopic})
	assert.False(t, ok)
}

func TestSnapshot_SetAndGet(t *testing.T) {
	k := state.Key{Type: event.StateTopic}
	v := contentOf(t, `{"topic":"hello"}`)

	s := state.Empty.Set(k, v)
	got, ok := s.Get(k)
	require.True(t, ok)
	assert.Same(t, v, got)

	// The original snapshot must be unaffected (persistence).
	_, ok = state.Empty.Get(k)
	assert.False(t, ok)
}

func TestSnapshot_Delete(t *testing.T) {
	k := state.Key{Type: event.StateTopic}
	s := state.Empty.Set(k, contentOf(t, `{"topic":"hello"}`))
	s2 := s.Delete(k)

	_, ok := s2.Get(k)
	assert.False(t, ok)
	// s is unaffected by deleting from s2.
	_, ok = s.Get(k)
	assert.True(t, ok)
}

func TestSnapshot_LaterSetsWin(t *testing.T) {
	k := state.Key{Type: event.StateTopic}
	s := state.Empty.Set(k, contentOf(t, `{"topic":"first"}`))
	s = s.Set(k, contentOf(t, `{"topic":"second"}`))

	got, ok := s.Get(k)
	require.True(t, ok)
	assert.JSONEq(t, `{"topic":"second"}`, string(got.Raw))
}

func TestSnapshot_FlattensPastThreshold(t *testing.T) {
	s := state.Empty
	// Push well past flattenThreshold (32) worth of distinct keys.
	for i := 0; i < 40; i++ {
		k := state.Key{Type: event.StateMember, StateKey: string(rune('a' + i))}
		s = s.Set(k, contentOf(t, `{"membership":"join"}`))
	}
	// All keys must still resolve correctly after an internal flatten.
	for i := 0; i < 40; i++ {
		k := state.Key{Type: event.StateMember, StateKey: string(rune('a' + i))}
		_, ok := s.Get(k)
		assert.True(t, ok, "key %d should still be present after flatten", i)
	}
	assert.Len(t, s.Keys(), 40)
}

func TestSnapshot_KeysExcludesDeleted(t *testing.T) {
	k1 := state.Key{Type: event.StateTopic}
	k2 := state.Key{Type: event.StateRoomName}
	s := state.Empty.Set(k1, contentOf(t, `{}`)).Set(k2, contentOf(t, `{}`))
	s = s.Delete(k1)

	keys := s.Keys()
	assert.Contains(t, keys, k2)
	assert.NotContains(t, keys, k1)
}

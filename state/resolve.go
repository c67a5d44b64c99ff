package state

import (
	"github.com/example/matrixsync/event"
)

// EventWithState pairs an event with the state snapshot that was current
// immediately after it was applied, in either direction (when rewinding,
// that snapshot is the one reached before the event is unwound, i.e. as it
// appeared to a client watching the room live). Timeline re-exports this as
// timeline.EventWithState.
type EventWithState struct {
	Event *event.Event
	State Snapshot
}

// Resolve applies a run of events to prior in order, producing one
// EventWithState per event and the Snapshot after the last one.
//
// When rewind is false (the normal forward-sync direction), each state
// event's own Content is applied and the event's paired snapshot is the
// state *after* applying it — matching what a client watching the room
// live would have seen at that point.
//
// When rewind is true (backfilling older history), each state event is
// applied by *unwinding* it: the walk proceeds from newest to oldest, the
// paired snapshot is still the state *after* the event (the snapshot reached
// before unwinding it), and the event is then unwound by restoring
// Unsigned.PrevContent. The returned Snapshot is the state before the oldest
// event. A nil PrevContent means the key had no
// prior value (e.g. the event that first created it, such as m.room.create)
// and is unwound by deleting the key, not by failing: ErrInvalidOperation is
// reserved for genuinely stripped events, which never reach Resolve since it
// only accepts *event.Event.
func Resolve(events []*event.Event, prior Snapshot, rewind bool) ([]EventWithState, Snapshot, error) {
	out := make([]EventWithState, len(events))
	cur := prior
	if !rewind {
		for i, evt := range events {
			if evt.IsState() {
				cur = cur.Set(Key{Type: evt.Type, StateKey: evt.GetStateKey()}, &evt.Content)
			}
			out[i] = EventWithState{Event: evt, State: cur}
		}
		return out, cur, nil
	}

	for i := len(events) - 1; i >= 0; i-- {
		evt := events[i]
		out[i] = EventWithState{Event: evt, State: cur}
		if !evt.IsState() {
			continue
		}
		key := Key{Type: evt.Type, StateKey: evt.GetStateKey()}
		if evt.Unsigned.PrevContent == nil {
			cur = cur.Delete(key)
			continue
		}
		cur = cur.Set(key, evt.Unsigned.PrevContent)
	}
	return out, cur, nil
}

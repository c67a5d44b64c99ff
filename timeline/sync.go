package timeline

import (
	"context"

	"github.com/example/matrixsync/state"
)

// Sync appends a room's per-batch timeline from a /sync response onto the
// tail of t. st is the state snapshot immediately before apiTimeline's
// events; the returned Snapshot is the state immediately after them.
//
// A gap exists whenever prevBatch (this batch's pagination token) differs
// from originalBatch (the next_batch the previous sync left off at) — that
// mismatch, not the server's Limited flag, is what tells the client history
// was skipped over. When it is, a Hole is inserted before the new events,
// spanning forward from originalBatch to prevBatch: paginating forward
// (From originalBatch, To prevBatch) is what closes the gap. On the very
// first sync for a room (originalBatch == ""), the hole is suppressed
// unconditionally: there is no earlier position for it to connect to.
func (t *Timeline) Sync(ctx context.Context, apiTimeline RoomTimeline, st state.Snapshot, prevBatch, originalBatch string) (state.Snapshot, error) {
	resolved, next, err := state.Resolve(apiTimeline.Events, st, false)
	if err != nil {
		return st, err
	}

	if originalBatch != "" && prevBatch != originalBatch {
		to := prevBatch
		holeNode := newHoleNode(Hole{From: originalBatch, To: &to})
		t.append(holeNode)
	}

	for _, ews := range resolved {
		ews := ews
		n := newEventNode(t, ews)
		if displaced := t.dedup.Register(n); displaced != nil {
			t.unlink(displaced)
		}
		t.append(n)
	}
	return next, nil
}

func (t *Timeline) append(n *node) {
	if t.tail == nil {
		t.head = n
		t.tail = n
		return
	}
	n.prev = t.tail
	t.tail.next = n
	t.tail = n
}

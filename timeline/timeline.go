// Package timeline maintains a room's message history as a doubly-linked
// list of events interleaved with holes (gaps the client hasn't fetched
// yet), backfilling those holes on demand and deduplicating events that
// show up more than once (e.g. an event seen first via /sync and later
// again via /messages).
package timeline

import (
	"context"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
	"github.com/example/matrixsync/state"
)

// EventWithState re-exports state.EventWithState under the name used by the
// rest of this package's public surface; the type itself has to live in
// package state to avoid a state<->timeline import cycle.
type EventWithState = state.EventWithState

// Hole marks a gap in the timeline between two pagination tokens. From is
// the token at the gap's older edge, which a forward fill paginates from;
// To is the token at its newer edge, which a backward fill paginates from.
// A nil To means the gap is open-ended on its newer side.
type Hole struct {
	From string
	To   *string
}

// point is a single slot in the timeline: exactly one of event or hole is
// set, enforced by the package-private constructors below.
type point struct {
	event *EventWithState
	hole  *Hole
}

// node is one element of the doubly-linked timeline list.
type node struct {
	prev, next *node
	p          point

	// owner is the Timeline this node belongs to. Needed by Index.Handle,
	// which resolves an event id to a Handle without the caller telling it
	// which room's Timeline to attach the Handle to.
	owner *Timeline

	// detached is set by Index.Register when this node's event id is
	// evicted from the index in favor of a newer node for the same id.
	// Handle.resolve uses it to know to re-look-up rather than trust
	// the cached *node.
	detached bool
}

func newEventNode(owner *Timeline, ews EventWithState) *node {
	return &node{owner: owner, p: point{event: &ews}}
}

func newHoleNode(h Hole) *node {
	return &node{p: point{hole: &h}}
}

// RoomTimeline is the subset of a sync response's per-room timeline this
// package needs: the new events, whether the server truncated it (limited),
// and the pagination token to backfill from if so.
type RoomTimeline struct {
	Events    []*event.Event
	Limited   bool
	PrevBatch string
}

// Filler fetches a page of history in either direction. It's implemented by
// the API client (Client.Messages), kept as a narrow interface here so this
// package doesn't depend on the client package.
type Filler interface {
	FillForward(ctx context.Context, roomID id.RoomID, from, to string) (*FillResult, error)
	FillBackward(ctx context.Context, roomID id.RoomID, from, to string) (*FillResult, error)
}

// FillResult is the piece of a /messages response this package needs to
// splice into the timeline. State is the response's lazily-loaded state
// chunk (populated when the fill started from a hole that abuts the start
// of the client's known history); it's resolved onto the seed snapshot
// before Events, so the spliced-in events carry accurate state even when
// the timeline had no earlier position to inherit state from.
type FillResult struct {
	Events []*event.Event
	State  []*event.Event
	Start  string
	End    string
}

// Gate lets a Timeline take the same sync/fill exclusion its owning Client
// enforces between a live Sync and any room's hole-fill, without this
// package depending on the client package. A nil Gate (as used in tests)
// means no exclusion is taken.
type Gate interface {
	EnterFill(roomID id.RoomID)
	ExitFill(roomID id.RoomID)
}

// Timeline is a room's message history: a doubly-linked list of events and
// holes, with an id-keyed dedup Index shared with the owning client.
type Timeline struct {
	RoomID id.RoomID
	filler Filler
	dedup  *Index
	gate   Gate

	head, tail *node
}

// NewTimeline creates an empty Timeline for roomID. dedup must be the same
// Index the owning client uses for every other room's timeline, since event
// ids are unique per homeserver, not per room. gate may be nil.
func NewTimeline(roomID id.RoomID, filler Filler, dedup *Index, gate Gate) *Timeline {
	return &Timeline{RoomID: roomID, filler: filler, dedup: dedup, gate: gate}
}

// Handle is a stable, weak reference to a position in the timeline. It
// survives the node it originally pointed to being evicted by the dedup
// index, by falling back to a fresh index lookup keyed by event id.
type Handle struct {
	t       *Timeline
	n       *node
	eventID id.EventID
}

// EventID returns the id of the event this handle refers to, or the empty
// string if the handle refers to a hole rather than an event.
func (h *Handle) EventID() id.EventID {
	return h.eventID
}

// Event returns the event and state this handle points to, or false if the
// handle currently refers to an unfilled hole.
func (h *Handle) Event() (*EventWithState, bool) {
	n, err := h.resolve()
	if err != nil || n.p.event == nil {
		return nil, false
	}
	return n.p.event, true
}

// resolve returns the up-to-date node for this handle, re-looking it up by
// event id in the shared Index if the cached node was displaced.
func (h *Handle) resolve() (*node, error) {
	if !h.n.detached {
		return h.n, nil
	}
	n, ok := h.t.dedup.get(h.eventID)
	if !ok {
		return nil, ErrInternal
	}
	h.n = n
	return n, nil
}

func (t *Timeline) handleFor(n *node) *Handle {
	var evtID id.EventID
	if n.p.event != nil {
		evtID = n.p.event.Event.ID
	}
	return &Handle{t: t, n: n, eventID: evtID}
}

// First returns a handle to the oldest non-hole position in the timeline,
// skipping over any leading hole. Returns ErrInternal if the timeline holds
// nothing but holes.
func (t *Timeline) First() (*Handle, error) {
	if t.head == nil {
		return nil, ErrInvalidOperation{Reason: "timeline is empty"}
	}
	n := t.head
	for n != nil && n.p.hole != nil {
		n = n.next
	}
	if n == nil {
		return nil, ErrInternal
	}
	return t.handleFor(n), nil
}

// Last returns a handle to the newest non-hole position in the timeline,
// skipping over any trailing hole. Returns ErrInternal if the timeline holds
// nothing but holes.
func (t *Timeline) Last() (*Handle, error) {
	if t.tail == nil {
		return nil, ErrInvalidOperation{Reason: "timeline is empty"}
	}
	n := t.tail
	for n != nil && n.p.hole != nil {
		n = n.prev
	}
	if n == nil {
		return nil, ErrInternal
	}
	return t.handleFor(n), nil
}

// NextSync returns the adjacent, already-fetched position without
// triggering a backfill. The bool is false if h is already at the tail.
func (h *Handle) NextSync() (*Handle, bool) {
	n, err := h.resolve()
	if err != nil || n.next == nil {
		return nil, false
	}
	return h.t.handleFor(n.next), true
}

// PreviousSync is NextSync's mirror toward the head of the timeline.
func (h *Handle) PreviousSync() (*Handle, bool) {
	n, err := h.resolve()
	if err != nil || n.prev == nil {
		return nil, false
	}
	return h.t.handleFor(n.prev), true
}

// Next returns the next position, backfilling from the homeserver first if
// the immediate next slot is an unfilled hole.
func (h *Handle) Next(ctx context.Context) (*Handle, error) {
	n, err := h.resolve()
	if err != nil {
		return nil, err
	}
	if n.next == nil {
		return nil, ErrInvalidOperation{Reason: "no next position: timeline ends here"}
	}
	if n.next.p.hole != nil {
		if err := h.t.fillForward(ctx, n.next); err != nil {
			return nil, err
		}
		n, err = h.resolve()
		if err != nil {
			return nil, err
		}
	}
	return h.t.handleFor(n.next), nil
}

// Previous is Next's mirror toward the head of the timeline.
func (h *Handle) Previous(ctx context.Context) (*Handle, error) {
	n, err := h.resolve()
	if err != nil {
		return nil, err
	}
	if n.prev == nil {
		return nil, ErrInvalidOperation{Reason: "no previous position: timeline starts here"}
	}
	if n.prev.p.hole != nil {
		if err := h.t.fillBackward(ctx, n.prev); err != nil {
			return nil, err
		}
		n, err = h.resolve()
		if err != nil {
			return nil, err
		}
	}
	return h.t.handleFor(n.prev), nil
}

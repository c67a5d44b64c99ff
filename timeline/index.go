package timeline

import (
	"sync"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
)

// Index is a global (cross-room) map from event id to the timeline node
// holding it. Event ids are unique per homeserver, so one Index is shared
// by every room's Timeline on a Client.
//
// Index locks with the same mutex the owning Client uses for its sync/fill
// gates (see sync.go), rather than its own: registering a node and
// advancing the sync/fill state machine both need to be atomic with
// respect to each other, and giving them separate locks would just invite
// a lock-ordering bug. Locker defaults to a private mutex if the caller
// doesn't have a shared one to hand it (e.g. in tests).
type Index struct {
	Locker sync.Locker

	byID map[id.EventID]*node
}

// NewIndex creates an Index. Pass nil for locker to have the Index manage
// its own private mutex.
func NewIndex(locker sync.Locker) *Index {
	if locker == nil {
		locker = &sync.Mutex{}
	}
	return &Index{Locker: locker, byID: make(map[id.EventID]*node)}
}

// Register records n under its event id, evicting and detaching whatever
// node previously held that id. The displaced node (if any) is returned so
// the caller can splice it out of its timeline.
func (idx *Index) Register(n *node) (displaced *node) {
	if n.p.event == nil {
		return nil
	}
	evtID := n.p.event.Event.ID
	idx.Locker.Lock()
	defer idx.Locker.Unlock()
	if old, ok := idx.byID[evtID]; ok && old != n {
		old.detached = true
		displaced = old
	}
	idx.byID[evtID] = n
	return displaced
}

func (idx *Index) get(evtID id.EventID) (*node, bool) {
	idx.Locker.Lock()
	defer idx.Locker.Unlock()
	n, ok := idx.byID[evtID]
	return n, ok
}

// Handle looks up a Handle for evtID anywhere in the client's rooms,
// realizing the "EventsById" lookup surface: any event id ever seen resolves
// to a Handle into whichever room's Timeline actually holds it, not just the
// caller's own.
func (idx *Index) Handle(evtID id.EventID) (*Handle, bool) {
	n, ok := idx.get(evtID)
	if !ok || n.owner == nil {
		return nil, false
	}
	return n.owner.handleFor(n), true
}

// ApplyRedaction rewrites the node registered under redacts to reflect the
// given redaction event, preserving the node's identity (existing Handles
// keep working) rather than replacing it. Returns ErrInternal if redacts
// isn't present in the index.
func (idx *Index) ApplyRedaction(redacts id.EventID, redaction *event.Event) error {
	n, ok := idx.get(redacts)
	if !ok || n.p.event == nil {
		return ErrInternal
	}
	n.p.event.Event.ApplyRedaction(redaction)
	return nil
}

// Package state resolves a room's current state from the sequence of state
// events seen so far, and keeps that state as an immutable, cheaply-copied
// snapshot so multiple timeline positions can each hold their own view of
// "what did state look like here" without racing writers.
package state

import (
	"golang.org/x/exp/maps"

	"github.com/example/matrixsync/event"
)

// Key identifies a piece of room state: an event type plus the state key
// distinguishing multiple state events of that type (e.g. one m.room.member
// per user). It's comparable, so it can be used as a map key directly.
type Key struct {
	Type     event.Type
	StateKey string
}

// flattenThreshold bounds how many diff layers a Snapshot may stack before
// Set opportunistically flattens the chain into a single map. Kept small
// since typical rooms only change a handful of state keys per sync batch.
const flattenThreshold = 32

// Snapshot is a persistent (immutable) view of room state. Set and Delete
// never mutate the receiver; they return a new Snapshot that shares
// structure with the old one. This makes it safe to hand a Snapshot to a
// timeline position and keep resolving further events without that
// position's view changing under it.
type Snapshot struct {
	base  map[Key]*event.Content // nil until flattened
	depth int

	parent *Snapshot
	key    Key
	value  *event.Content // nil means "deleted at this layer"
	isSet  bool           // false for the zero Snapshot (no key/value layer)
}

// Empty is the state of a room with no state events applied.
var Empty = Snapshot{}

// Get looks up the content most recently set for k, walking the diff chain
// back to the nearest flattened base (or the beginning) if necessary. The
// base to consult is whichever node the walk stops at, not the receiver's
// own: only the node a flatten produced carries a non-nil base, and later
// Sets layered on top of it never copy that base onto themselves.
func (s Snapshot) Get(k Key) (*event.Content, bool) {
	for cur := &s; cur != nil; cur = cur.parent {
		if cur.isSet {
			if cur.key == k {
				return cur.value, cur.value != nil
			}
			continue
		}
		if cur.base != nil {
			v, ok := cur.base[k]
			return v, ok && v != nil
		}
		return nil, false
	}
	return nil, false
}

// Set returns a new Snapshot with k mapped to v. A nil v is equivalent to
// Delete. When the diff chain since the last flatten grows past
// flattenThreshold, Set eagerly flattens it into a fresh base map so later
// Gets stay O(1) instead of walking an ever-longer chain.
func (s Snapshot) Set(k Key, v *event.Content) Snapshot {
	next := Snapshot{
		parent: &s,
		key:    k,
		value:  v,
		isSet:  true,
		depth:  s.depth + 1,
	}
	if next.depth >= flattenThreshold {
		return next.flatten()
	}
	return next
}

// Delete returns a new Snapshot with k unset.
func (s Snapshot) Delete(k Key) Snapshot {
	return s.Set(k, nil)
}

// flatten collapses the diff chain rooted at s into a single base map,
// returning a fresh zero-depth Snapshot backed by it.
func (s Snapshot) flatten() Snapshot {
	// Walk from the oldest unflattened layer to the newest so later Sets
	// correctly overwrite earlier ones; collect first, then apply in
	// reverse on top of the base map the walk stops at.
	var layers []*Snapshot
	cur := &s
	for ; cur != nil && cur.isSet; cur = cur.parent {
		layers = append(layers, cur)
	}
	merged := map[Key]*event.Content{}
	if cur != nil && cur.base != nil {
		merged = maps.Clone(cur.base)
	}
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		if l.value == nil {
			delete(merged, l.key)
		} else {
			merged[l.key] = l.value
		}
	}
	return Snapshot{base: merged}
}

// Keys returns every Key with a live (non-deleted) value in the snapshot.
// Used by callers that need to enumerate current state, e.g. building an
// invite's stripped state.
func (s Snapshot) Keys() []Key {
	seen := map[Key]bool{}
	var out []Key
	cur := &s
	for ; cur != nil && cur.isSet; cur = cur.parent {
		if seen[cur.key] {
			continue
		}
		seen[cur.key] = true
		if cur.value != nil {
			out = append(out, cur.key)
		}
	}
	if cur != nil && cur.base != nil {
		for k, v := range cur.base {
			if !seen[k] && v != nil {
				out = append(out, k)
			}
		}
	}
	return out
}

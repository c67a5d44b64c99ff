package timeline

import (
	"context"

	"github.com/example/matrixsync/state"
)

// fillForward resolves the hole at n by paginating forward (toward newer
// history) from n's hole token, splicing the fetched events into the
// timeline in place of the hole. If the fetched page doesn't reach the
// hole's To token, a new, narrower hole replaces the old one.
func (t *Timeline) fillForward(ctx context.Context, n *node) error {
	h := n.p.hole
	if h == nil {
		return ErrInvalidOperation{Reason: "fillForward called on a non-hole node"}
	}
	to := ""
	if h.To != nil {
		to = *h.To
	}
	if t.gate != nil {
		t.gate.EnterFill(t.RoomID)
		defer t.gate.ExitFill(t.RoomID)
	}
	result, err := t.filler.FillForward(ctx, t.RoomID, h.From, to)
	if err != nil {
		return err
	}
	seed := state.Empty
	if n.prev != nil && n.prev.p.event != nil {
		seed = n.prev.p.event.State
	}
	if len(result.State) > 0 {
		if _, seed, err = state.Resolve(result.State, seed, false); err != nil {
			return err
		}
	}
	resolved, _, err := state.Resolve(result.Events, seed, false)
	if err != nil {
		return err
	}

	newNodes := make([]*node, len(resolved))
	for i, ews := range resolved {
		ews := ews
		nn := newEventNode(t, ews)
		if displaced := t.dedup.Register(nn); displaced != nil {
			t.unlink(displaced)
		}
		newNodes[i] = nn
	}

	var tailHole *node
	if h.To == nil || result.End != *h.To {
		tailHole = newHoleNode(Hole{From: result.End, To: h.To})
	}
	t.spliceReplace(n, newNodes, tailHole)
	return nil
}

// fillBackward is fillForward's mirror toward older history. Fetched events
// are unwound (state.Resolve with rewind=true) against the snapshot known
// at the newer edge of the hole, since /messages going backward returns
// prev_content rather than a state chunk positioned at the hole's old end.
func (t *Timeline) fillBackward(ctx context.Context, n *node) error {
	h := n.p.hole
	if h == nil {
		return ErrInvalidOperation{Reason: "fillBackward called on a non-hole node"}
	}
	from := ""
	if h.To != nil {
		from = *h.To
	}
	if t.gate != nil {
		t.gate.EnterFill(t.RoomID)
		defer t.gate.ExitFill(t.RoomID)
	}
	result, err := t.filler.FillBackward(ctx, t.RoomID, from, h.From)
	if err != nil {
		return err
	}
	seed := state.Empty
	if n.next != nil && n.next.p.event != nil {
		seed = n.next.p.event.State
	}
	if len(result.State) > 0 {
		if _, seed, err = state.Resolve(result.State, seed, false); err != nil {
			return err
		}
	}
	resolved, _, err := state.Resolve(result.Events, seed, true)
	if err != nil {
		return err
	}

	newNodes := make([]*node, len(resolved))
	for i, ews := range resolved {
		ews := ews
		nn := newEventNode(t, ews)
		if displaced := t.dedup.Register(nn); displaced != nil {
			t.unlink(displaced)
		}
		newNodes[i] = nn
	}

	var headHole *node
	if result.End != h.From {
		end := result.End
		headHole = newHoleNode(Hole{From: h.From, To: &end})
	}
	t.spliceReplaceBackward(n, newNodes, headHole)
	return nil
}

// spliceReplace replaces hole n with newNodes (ordered old-to-new) followed
// by an optional narrower hole, splicing into the doubly-linked list.
func (t *Timeline) spliceReplace(n *node, newNodes []*node, remainingHole *node) {
	chain := append(append([]*node{}, newNodes...), nonNil(remainingHole)...)
	t.spliceChain(n, chain)
}

// spliceReplaceBackward is spliceReplace but for a hole filled toward the
// head: the remaining (older) hole goes first, then the new events.
func (t *Timeline) spliceReplaceBackward(n *node, newNodes []*node, remainingHole *node) {
	chain := append(nonNil(remainingHole), newNodes...)
	t.spliceChain(n, chain)
}

func nonNil(n *node) []*node {
	if n == nil {
		return nil
	}
	return []*node{n}
}

func (t *Timeline) spliceChain(old *node, chain []*node) {
	for i := 0; i < len(chain)-1; i++ {
		chain[i].next = chain[i+1]
		chain[i+1].prev = chain[i]
	}
	if len(chain) == 0 {
		t.unlink(old)
		return
	}
	head, tail := chain[0], chain[len(chain)-1]
	head.prev = old.prev
	tail.next = old.next
	if old.prev != nil {
		old.prev.next = head
	} else {
		t.head = head
	}
	if old.next != nil {
		old.next.prev = tail
	} else {
		t.tail = tail
	}
}

func (t *Timeline) unlink(n *node) {
	if n.owner != nil {
		t = n.owner
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else if t.head == n {
		t.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if t.tail == n {
		t.tail = n.prev
	}
}

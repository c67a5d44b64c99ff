package timeline

import (
	"context"
	"iter"
)

// EnumerateForward yields every handle from (exclusive) from's position to
// the end of the timeline, transparently backfilling holes as it goes. If
// from is nil, enumeration starts at the head. Iteration stops early, with
// no further yields, once the yield function returns false or the range
// hits an error (which is itself yielded once, then the sequence ends).
func (t *Timeline) EnumerateForward(ctx context.Context, from *Handle) iter.Seq2[*Handle, error] {
	return func(yield func(*Handle, error) bool) {
		cur := from
		if cur == nil {
			h, err := t.First()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(h, nil) {
				return
			}
			cur = h
		}
		for {
			n, err := cur.resolve()
			if err != nil {
				yield(nil, err)
				return
			}
			if n.next == nil {
				return
			}
			next, err := cur.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(next, nil) {
				return
			}
			cur = next
		}
	}
}

// EnumerateBackward is EnumerateForward's mirror toward the head.
func (t *Timeline) EnumerateBackward(ctx context.Context, from *Handle) iter.Seq2[*Handle, error] {
	return func(yield func(*Handle, error) bool) {
		cur := from
		if cur == nil {
			h, err := t.Last()
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(h, nil) {
				return
			}
			cur = h
		}
		for {
			n, err := cur.resolve()
			if err != nil {
				yield(nil, err)
				return
			}
			if n.prev == nil {
				return
			}
			prev, err := cur.Previous(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(prev, nil) {
				return
			}
			cur = prev
		}
	}
}

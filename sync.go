package mautrix

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/maps"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
	"github.com/example/matrixsync/state"
	"github.com/example/matrixsync/timeline"
)

// EnterFill blocks until no sync is in progress, then marks roomID as
// filling. Two different rooms may fill concurrently; the exclusion is only
// between filling (any room) and syncing (which touches every room). It
// implements timeline.Gate, letting a Timeline take this exclusion around
// its own hole-fill network request and splice without depending on the
// client package.
func (cli *Client) EnterFill(roomID id.RoomID) {
	cli.gatesMu.Lock()
	defer cli.gatesMu.Unlock()
	for cli.syncing {
		cli.gatesCond.Wait()
	}
	cli.filling[roomID] = true
}

// ExitFill is EnterFill's counterpart.
func (cli *Client) ExitFill(roomID id.RoomID) {
	cli.gatesMu.Lock()
	delete(cli.filling, roomID)
	cli.gatesMu.Unlock()
	cli.gatesCond.Broadcast()
}

// Sync performs one long-polling /sync request and applies its result to
// the client's in-memory room state, timelines, and presence map. Callers
// that want continuous syncing should call this in a loop.
//
// A Sync in progress excludes any room's hole-fill, and vice versa: both
// walk and mutate the same Timeline/Index structures, and Go maps aren't
// safe for concurrent read+write. If a second call arrives while one is
// already in flight, it doesn't issue its own /sync request; it waits for
// the in-flight one to finish and returns, since that sync's result already
// reflects everything the second caller would have gotten.
func (cli *Client) Sync(ctx context.Context, timeout time.Duration) error {
	cli.gatesMu.Lock()
	if cli.syncing {
		waitCh := cli.syncDone
		cli.gatesMu.Unlock()
		select {
		case <-waitCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for len(cli.filling) > 0 {
		cli.gatesCond.Wait()
	}
	cli.syncing = true
	since := cli.nextBatch
	waitCh := make(chan struct{})
	cli.syncDone = waitCh
	cli.gatesMu.Unlock()

	err := cli.syncAndApply(ctx, timeout, since)

	cli.gatesMu.Lock()
	cli.syncing = false
	cli.syncDone = nil
	cli.gatesMu.Unlock()
	cli.gatesCond.Broadcast()
	close(waitCh)

	return err
}

// syncAndApply makes the /sync request (retrying through a soft logout via
// withRetry) and, on success, applies the response to the client's
// in-memory state. It runs entirely inside the gate Sync takes above: since
// is the pagination token captured under that same lock, not read fresh
// from cli.nextBatch, so a concurrent reader can never observe it change
// mid-request.
func (cli *Client) syncAndApply(ctx context.Context, timeout time.Duration, since string) error {
	req := ReqSync{
		Timeout: int(timeout / time.Millisecond),
		Since:   since,
	}
	resp, err := withRetry(ctx, cli, func() (*RespSync, error) {
		return cli.syncOnce(ctx, req)
	})
	if err != nil {
		return err
	}

	for roomID, joined := range resp.Rooms.Join {
		cli.applyJoinedRoom(ctx, roomID, joined, since)
	}
	for roomID, left := range resp.Rooms.Leave {
		cli.applyLeftRoom(ctx, roomID, left, since)
	}
	for roomID, invite := range resp.Rooms.Invite {
		cli.invites[roomID] = &InvitedRoomState{RoomID: roomID, State: invite.State.Events}
	}
	for roomID, knock := range resp.Rooms.Knock {
		cli.knocks[roomID] = &KnockedRoomState{RoomID: roomID, State: knock.State.Events}
	}
	for _, evt := range resp.Presence.Events {
		if p := evt.Content.AsPresence(); p != nil {
			cli.presence[evt.Sender] = p.Presence
		}
	}

	cli.nextBatch = resp.NextBatch
	return nil
}

func (cli *Client) applyJoinedRoom(ctx context.Context, roomID id.RoomID, joined SyncJoinedRoom, originalBatch string) {
	room, ok := cli.rooms[roomID]
	if !ok {
		room = &JoinedRoomState{
			RoomID:   roomID,
			State:    state.Empty,
			Timeline: timeline.NewTimeline(roomID, &clientFiller{cli: cli}, cli.dedup, cli),
		}
		cli.rooms[roomID] = room
	}

	for _, evt := range joined.State.Events {
		if evt.IsState() {
			room.State = room.State.Set(state.Key{Type: evt.Type, StateKey: evt.GetStateKey()}, &evt.Content)
		}
	}

	// Redactions in the timeline batch are applied in place to whatever
	// event the index already holds for their target; the redaction events
	// themselves are not appended to the timeline.
	var timelineEvents []*event.Event
	for _, evt := range joined.Timeline.Events {
		if evt.Type == event.EventRedaction && evt.Redacts != "" {
			_ = cli.dedup.ApplyRedaction(evt.Redacts, evt)
			continue
		}
		timelineEvents = append(timelineEvents, evt)
	}

	next, err := room.Timeline.Sync(ctx, timeline.RoomTimeline{
		Events:    timelineEvents,
		Limited:   joined.Timeline.Limited,
		PrevBatch: joined.Timeline.PrevBatch,
	}, room.State, joined.Timeline.PrevBatch, originalBatch)
	if err == nil {
		room.State = next
	}

	room.Ephemeral = joined.Ephemeral.Events
	room.AccountData = joined.AccountData.Events
	room.UnreadNotifications = joined.UnreadNotifications
	room.Summary = joined.Summary

	for threadID, counts := range joined.UnreadThreadNotifications {
		cli.threadNotifications[threadID] = counts
	}
}

func (cli *Client) applyLeftRoom(ctx context.Context, roomID id.RoomID, left SyncLeftRoom, originalBatch string) {
	room, ok := cli.leftRooms[roomID]
	if !ok {
		if prior, wasJoined := cli.rooms[roomID]; wasJoined {
			room = &LeftRoomState{RoomID: roomID, State: prior.State, Timeline: prior.Timeline}
		} else {
			room = &LeftRoomState{
				RoomID:   roomID,
				State:    state.Empty,
				Timeline: timeline.NewTimeline(roomID, &clientFiller{cli: cli}, cli.dedup, cli),
			}
		}
		cli.leftRooms[roomID] = room
	}
	delete(cli.rooms, roomID)

	for _, evt := range left.State.Events {
		if evt.IsState() {
			room.State = room.State.Set(state.Key{Type: evt.Type, StateKey: evt.GetStateKey()}, &evt.Content)
		}
	}

	next, err := room.Timeline.Sync(ctx, timeline.RoomTimeline{
		Events:    left.Timeline.Events,
		Limited:   left.Timeline.Limited,
		PrevBatch: left.Timeline.PrevBatch,
	}, room.State, left.Timeline.PrevBatch, originalBatch)
	if err == nil {
		room.State = next
	}
}

// asHTTPError is a small errors.As wrapper kept local since HTTPError is a
// value type (not a pointer) throughout this package.
func asHTTPError(err error, target *HTTPError) bool {
	return errors.As(err, target)
}

// KnockState returns the stripped state a knock response included for
// roomID, or nil if there's no pending knock on that room.
func (cli *Client) KnockState(roomID id.RoomID) []*event.StrippedState {
	if k, ok := cli.knocks[roomID]; ok {
		return k.State
	}
	return nil
}

// InvitedState returns the stripped state an invite response included for
// roomID, or nil if there's no pending invite for that room.
func (cli *Client) InvitedState(roomID id.RoomID) []*event.StrippedState {
	if inv, ok := cli.invites[roomID]; ok {
		return inv.State
	}
	return nil
}

// JoinedRoom returns the client's live view of roomID, if it's currently
// joined.
func (cli *Client) JoinedRoom(roomID id.RoomID) (*JoinedRoomState, bool) {
	r, ok := cli.rooms[roomID]
	return r, ok
}

// LeftRoom returns the client's frozen view of roomID, if it has one on
// record (i.e. a sync has reported roomID under the left rooms, whether or
// not this client saw it joined first).
func (cli *Client) LeftRoom(roomID id.RoomID) (*LeftRoomState, bool) {
	r, ok := cli.leftRooms[roomID]
	return r, ok
}

// Presence returns the last known presence for userID, if any presence
// event mentioning them has been seen.
func (cli *Client) Presence(userID id.UserID) (event.Presence, bool) {
	p, ok := cli.presence[userID]
	return p, ok
}

// NextBatch returns the pagination token that the next Sync call will
// resume from.
func (cli *Client) NextBatch() string {
	return cli.nextBatch
}

// ThreadNotifications returns a snapshot of the aggregated per-thread
// unread counts accumulated across every sync so far.
func (cli *Client) ThreadNotifications() map[id.EventID]UnreadNotificationCounts {
	return maps.Clone(cli.threadNotifications)
}

// EventByID resolves eventID to a Handle into whichever room's Timeline
// holds it, regardless of which room the caller is otherwise looking at.
func (cli *Client) EventByID(eventID id.EventID) (*timeline.Handle, bool) {
	return cli.dedup.Handle(eventID)
}

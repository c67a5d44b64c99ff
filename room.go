package mautrix

import (
	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
	"github.com/example/matrixsync/state"
	"github.com/example/matrixsync/timeline"
)

// JoinedRoomState is the client's live view of a room it's currently
// joined to: the resolved current state, a gap-aware Timeline of its
// history, and the ephemeral data (typing, receipts) from the most recent
// sync batch.
type JoinedRoomState struct {
	RoomID    id.RoomID
	State     state.Snapshot
	Timeline  *timeline.Timeline
	Ephemeral []*event.Event

	// AccountData is the room-scoped account data (e.g. m.fully_read) from
	// the most recent sync batch, overwritten wholesale each sync per the
	// spec's account_data semantics (it's a snapshot, not a diff).
	AccountData []*event.Event

	// UnreadNotifications is this room's own unread counts as of the most
	// recent sync batch.
	UnreadNotifications UnreadNotificationCounts

	// Summary is the most recent lazy-loading room summary hint, if any.
	Summary RoomSummary
}

// LeftRoomState is a room the user has left or been removed from. Its
// timeline is frozen at the point of departure.
type LeftRoomState struct {
	RoomID   id.RoomID
	State    state.Snapshot
	Timeline *timeline.Timeline
}

// InvitedRoomState is a pending invite. Matrix only gives clients a
// stripped subset of state for invites (no event ids or timestamps), so
// there is no Timeline here, only the StrippedState the server included.
type InvitedRoomState struct {
	RoomID id.RoomID
	State  []*event.StrippedState
}

// KnockedRoomState mirrors InvitedRoomState for rooms the user has asked
// to join via a knock and is waiting on a decision for.
type KnockedRoomState struct {
	RoomID id.RoomID
	State  []*event.StrippedState
}

package mautrix

import (
	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
)

// RespLogin is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3login
type RespLogin struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresInMs  int64       `json:"expires_in_ms,omitempty"`
	DeviceID     id.DeviceID `json:"device_id"`
	UserID       id.UserID   `json:"user_id"`
}

// RespRefresh is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3refresh
type RespRefresh struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresInMs  int64  `json:"expires_in_ms,omitempty"`
}

// RespLogout is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3logout
type RespLogout struct{}

// RespCreateRoom is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3createroom
type RespCreateRoom struct {
	RoomID id.RoomID `json:"room_id"`
}

// RespJoinRoom is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3joinroomidoralias
type RespJoinRoom struct {
	RoomID id.RoomID `json:"room_id"`
}

// RespLeaveRoom is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3roomsroomidleave
type RespLeaveRoom struct{}

// RespInviteUser is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3roomsroomidinvite
type RespInviteUser struct{}

// RespJoinedRooms is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3joined_rooms
type RespJoinedRooms struct {
	JoinedRooms []id.RoomID `json:"joined_rooms"`
}

// RespSendEvent is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#put_matrixclientv3roomsroomidsendeventtypetxnid
type RespSendEvent struct {
	EventID id.EventID `json:"event_id"`
}

// RespMessages is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3roomsroomidmessages
type RespMessages struct {
	Start string         `json:"start"`
	Chunk []*event.Event `json:"chunk"`
	State []*event.Event `json:"state"`
	End   string         `json:"end,omitempty"`
}

// RespSync is the JSON response for https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3sync
type RespSync struct {
	NextBatch string `json:"next_batch"`

	Rooms struct {
		Leave  map[id.RoomID]SyncLeftRoom    `json:"leave"`
		Join   map[id.RoomID]SyncJoinedRoom  `json:"join"`
		Invite map[id.RoomID]SyncInvitedRoom `json:"invite"`
		Knock  map[id.RoomID]SyncKnockedRoom `json:"knock"`
	} `json:"rooms"`

	Presence struct {
		Events []*event.Event `json:"events"`
	} `json:"presence"`
}

type SyncLeftRoom struct {
	State struct {
		Events []*event.Event `json:"events"`
	} `json:"state"`
	Timeline struct {
		Events    []*event.Event `json:"events"`
		Limited   bool           `json:"limited"`
		PrevBatch string         `json:"prev_batch"`
	} `json:"timeline"`
}

type SyncJoinedRoom struct {
	State struct {
		Events []*event.Event `json:"events"`
	} `json:"state"`
	Timeline struct {
		Events    []*event.Event `json:"events"`
		Limited   bool           `json:"limited"`
		PrevBatch string         `json:"prev_batch"`
	} `json:"timeline"`
	Ephemeral struct {
		Events []*event.Event `json:"events"`
	} `json:"ephemeral"`
	AccountData struct {
		Events []*event.Event `json:"events"`
	} `json:"account_data"`

	// UnreadNotifications is this room's own unread counts, as opposed to
	// UnreadThreadNotifications below, which is keyed per thread root.
	UnreadNotifications UnreadNotificationCounts `json:"unread_notifications,omitempty"`

	// Summary is present when the server elides full member state via
	// lazy-loading; it gives just enough to render a room list entry.
	Summary RoomSummary `json:"summary,omitempty"`

	// UnreadThreadNotifications maps thread root event id to its unread
	// counts. Merged into the client's aggregate map key-by-key on every
	// sync, new values overwriting old ones for the same thread.
	UnreadThreadNotifications map[id.EventID]UnreadNotificationCounts `json:"unread_thread_notifications,omitempty"`
}

// UnreadNotificationCounts is the per-thread (or per-room) unread count
// shape used by both the room-level and thread-level notification fields.
type UnreadNotificationCounts struct {
	NotificationCount int `json:"notification_count,omitempty"`
	HighlightCount    int `json:"highlight_count,omitempty"`
}

// RoomSummary is the sync response's summary object, used to render a room
// list entry without needing to paginate the full member list.
type RoomSummary struct {
	Heroes             []id.UserID `json:"m.heroes,omitempty"`
	JoinedMemberCount  *int        `json:"m.joined_member_count,omitempty"`
	InvitedMemberCount *int        `json:"m.invited_member_count,omitempty"`
}

type SyncInvitedRoom struct {
	State struct {
		Events []*event.StrippedState `json:"events"`
	} `json:"invite_state"`
}

// SyncKnockedRoom is the sync payload for a room the user has knocked on
// and not yet been let into or rejected from.
type SyncKnockedRoom struct {
	State struct {
		Events []*event.StrippedState `json:"events"`
	} `json:"knock_state"`
}

package mautrix

import (
	"strconv"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
)

// ReqLogin is the request content for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3login
type ReqLogin struct {
	Type       string          `json:"type"`
	Identifier UserIdentifier  `json:"identifier,omitempty"`
	Password   string          `json:"password,omitempty"`
	Token      string          `json:"token,omitempty"`
	DeviceID   id.DeviceID     `json:"device_id,omitempty"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
	RefreshToken bool          `json:"refresh_token,omitempty"`
}

type UserIdentifier struct {
	Type string    `json:"type"`
	User id.UserID `json:"user,omitempty"`
}

const IdentifierTypeUser = "m.id.user"
const LoginTypePassword = "m.login.password"
const LoginTypeToken = "m.login.token"

func NewUserIdentifier(userID id.UserID) UserIdentifier {
	return UserIdentifier{Type: IdentifierTypeUser, User: userID}
}

// ReqRefresh is the request content for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3refresh
type ReqRefresh struct {
	RefreshToken string `json:"refresh_token"`
}

// ReqCreateRoom is the request content for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3createroom
type ReqCreateRoom struct {
	Visibility    string                `json:"visibility,omitempty"`
	RoomAliasName string                `json:"room_alias_name,omitempty"`
	Name          string                `json:"name,omitempty"`
	Topic         string                `json:"topic,omitempty"`
	Invite        []id.UserID           `json:"invite,omitempty"`
	Preset        string                `json:"preset,omitempty"`
	IsDirect      bool                  `json:"is_direct,omitempty"`
	InitialState  []*event.Event        `json:"initial_state,omitempty"`
	RoomVersion   event.RoomVersion     `json:"room_version,omitempty"`
	CreationContent map[string]any      `json:"creation_content,omitempty"`
}

// ReqSendEvent carries the optional per-call parameters accepted by SendMessageEvent.
type ReqSendEvent struct {
	TransactionID string
	Timestamp     int64
}

// ReqRedact is the request content for https://spec.matrix.org/v1.11/client-server-api/#put_matrixclientv3roomsroomidredacteventidtxnid
type ReqRedact struct {
	Reason string `json:"reason,omitempty"`
	TxnID  string `json:"-"`
}

// ReqInviteUser is the request content for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3roomsroomidinvite
type ReqInviteUser struct {
	Reason string    `json:"reason,omitempty"`
	UserID id.UserID `json:"user_id"`
}

// ReqLeave is the request content for https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3roomsroomidleave
type ReqLeave struct {
	Reason string `json:"reason,omitempty"`
}

// Direction selects which way /messages paginates.
type Direction string

const (
	DirectionForward  Direction = "f"
	DirectionBackward Direction = "b"
)

// ReqSync is the query parameters for https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3sync
type ReqSync struct {
	Timeout     int
	Since       string
	FullState   bool
	SetPresence event.Presence
}

func (req *ReqSync) BuildQuery() map[string]string {
	query := map[string]string{
		"timeout": strconv.Itoa(req.Timeout),
	}
	if req.Since != "" {
		query["since"] = req.Since
	}
	if req.SetPresence != "" {
		query["set_presence"] = string(req.SetPresence)
	}
	if req.FullState {
		query["full_state"] = "true"
	} else {
		query["full_state"] = "false"
	}
	return query
}

// ReqMessages is the query parameters for https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3roomsroomidmessages
type ReqMessages struct {
	From      string
	To        string
	Dir       Direction
	Limit     int
}

// Copyright (c) 2020 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package event

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/example/matrixsync/id"
)

// Event represents a single Matrix event as received from the client-server
// API, either from /sync or from a timeline endpoint like /messages.
type Event struct {
	StateKey  *string    `json:"state_key,omitempty"`
	Sender    id.UserID  `json:"sender,omitempty"`
	Type      Type       `json:"type"`
	Timestamp int64      `json:"origin_server_ts,omitempty"`
	ID        id.EventID `json:"event_id,omitempty"`
	RoomID    id.RoomID  `json:"room_id,omitempty"`
	Content   Content    `json:"content"`
	Redacts   id.EventID `json:"redacts,omitempty"`
	Unsigned  Unsigned   `json:"unsigned,omitempty"`
}

func (evt *Event) GetStateKey() string {
	if evt.StateKey != nil {
		return *evt.StateKey
	}
	return ""
}

func (evt *Event) IsState() bool {
	return evt.StateKey != nil
}

// UnmarshalJSON implements property polymorphism: the discriminator (type)
// lives on the event itself, one level up from the content object it
// governs, so the content can only be parsed once the whole event has been
// decoded far enough to know its type.
func (evt *Event) UnmarshalJSON(data []byte) error {
	type rawEvent Event
	if err := json.Unmarshal(data, (*rawEvent)(evt)); err != nil {
		return err
	}
	if !gjson.GetBytes(data, "type").Exists() {
		return &DecodeError{Path: "type", Reason: "missing required field"}
	}
	if err := evt.Content.ParseRaw(evt.Type); err != nil {
		return err
	}
	if evt.Unsigned.PrevContent != nil {
		_ = evt.Unsigned.PrevContent.ParseRaw(evt.Type)
	}
	return nil
}

// IsRedacted reports whether this event has been redacted, either because
// the server already sent it with empty content and a redacted_because, or
// because ApplyRedaction rewrote it locally.
func (evt *Event) IsRedacted() bool {
	return evt.Unsigned.RedactedBecause != nil && evt.Content.IsEmpty()
}

// ApplyRedaction rewrites the event in place to reflect a m.room.redaction
// targeting it, preserving the event's identity (ID, type, sender, room,
// state key) while clearing all of its content, prev_content and relations.
func (evt *Event) ApplyRedaction(redactedBy *Event) {
	evt.Content = Content{}
	evt.Unsigned.RedactedBecause = redactedBy
	evt.Unsigned.PrevContent = nil
	evt.Unsigned.Relations = Relations{}
}

type StrippedState struct {
	Content  Content `json:"content"`
	Type     Type    `json:"type"`
	StateKey string  `json:"state_key"`
}

type Unsigned struct {
	PrevContent     *Content        `json:"prev_content,omitempty"`
	PrevSender      id.UserID       `json:"prev_sender,omitempty"`
	ReplacesState   id.EventID      `json:"replaces_state,omitempty"`
	Age             int64           `json:"age,omitempty"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	Relations       Relations       `json:"m.relations,omitempty"`
	RedactedBecause *Event          `json:"redacted_because,omitempty"`
	InviteRoomState []StrippedState `json:"invite_room_state,omitempty"`
}

// RelType is the type of an m.relates_to relation.
type RelType string

const (
	RelAnnotation RelType = "m.annotation"
	RelReplace    RelType = "m.replace"
)

// RelatesTo represents the m.relates_to field used by message relations.
type RelatesTo struct {
	EventID id.EventID `json:"event_id,omitempty"`
	Type    RelType    `json:"rel_type,omitempty"`
}

// Relations is a minimal placeholder for the aggregated m.relations bundle
// found in unsigned data. It has no fields: the bundle the homeserver sends
// is discarded on decode and marshals back as an empty object.
type Relations struct{}

func (content *Content) IsEmpty() bool {
	if len(content.Raw) == 0 {
		return true
	}
	trimmed := gjson.ParseBytes(content.Raw)
	return trimmed.IsObject() && len(trimmed.Map()) == 0
}

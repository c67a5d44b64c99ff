// Copyright (c) 2020 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package event

import (
	"encoding/json"
	"strings"
)

type EventTypeClass int

const (
	MessageEventType EventTypeClass = iota
	StateEventType
	EphemeralEventType
	UnknownEventType
)

type Type struct {
	Type  string
	Class EventTypeClass
}

func NewEventType(name string) Type {
	evtType := Type{Type: name}
	evtType.Class = evtType.GuessClass()
	return evtType
}

func (et *Type) IsState() bool {
	return et.Class == StateEventType
}

func (et *Type) IsEphemeral() bool {
	return et.Class == EphemeralEventType
}

func (et *Type) IsCustom() bool {
	return !strings.HasPrefix(et.Type, "m.")
}

func (et *Type) GuessClass() EventTypeClass {
	switch et.Type {
	case StateAliases.Type, StateCanonicalAlias.Type, StateCreate.Type, StateJoinRules.Type, StateMember.Type,
		StatePowerLevels.Type, StateRoomName.Type, StateRoomAvatar.Type, StateTopic.Type, StatePinnedEvents.Type,
		StateTombstone.Type:
		return StateEventType
	case EphemeralEventReceipt.Type, EphemeralEventTyping.Type, EphemeralEventPresence.Type:
		return EphemeralEventType
	case EventRedaction.Type, EventMessage.Type:
		return MessageEventType
	default:
		return UnknownEventType
	}
}

func (et *Type) UnmarshalJSON(data []byte) error {
	err := json.Unmarshal(data, &et.Type)
	if err != nil {
		return err
	}
	et.Class = et.GuessClass()
	return nil
}

func (et *Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(&et.Type)
}

func (et *Type) String() string {
	return et.Type
}

func (et Type) Repr() string {
	return et.Type
}

// RoomType is the value of the type field in an m.room.create event.
// https://spec.matrix.org/v1.11/client-server-api/#types
type RoomType string

const RoomTypeSpace RoomType = "m.space"

// State events. Not all of these have a registered ContentParser; the ones
// that don't still decode to UnknownEventContent but are classified
// correctly by GuessClass, which matters for power level defaults.
var (
	StateAliases        = Type{"m.room.aliases", StateEventType}
	StateCanonicalAlias = Type{"m.room.canonical_alias", StateEventType}
	StateCreate         = Type{"m.room.create", StateEventType}
	StateJoinRules      = Type{"m.room.join_rules", StateEventType}
	StateMember         = Type{"m.room.member", StateEventType}
	StatePowerLevels    = Type{"m.room.power_levels", StateEventType}
	StateRoomName       = Type{"m.room.name", StateEventType}
	StateTopic          = Type{"m.room.topic", StateEventType}
	StateRoomAvatar     = Type{"m.room.avatar", StateEventType}
	StatePinnedEvents   = Type{"m.room.pinned_events", StateEventType}
	StateTombstone      = Type{"m.room.tombstone", StateEventType}
)

// Message events
var (
	EventRedaction = Type{"m.room.redaction", MessageEventType}
	EventMessage   = Type{"m.room.message", MessageEventType}
)

// Ephemeral events
var (
	EphemeralEventReceipt  = Type{"m.receipt", EphemeralEventType}
	EphemeralEventTyping   = Type{"m.typing", EphemeralEventType}
	EphemeralEventPresence = Type{"m.presence", EphemeralEventType}
)

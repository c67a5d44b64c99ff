// Copyright (c) 2020 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package event

import (
	"encoding/json"
	"fmt"
)

// DecodeError describes why a piece of event content could not be decoded
// into its typed representation. Path identifies the JSON field involved,
// using gjson dotted-path syntax.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to decode %q: %s", e.Path, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ContentParser turns the raw content object of an event of a known type
// into its typed representation. Parsers are expected to tolerate unknown
// fields and, where the content itself is a discriminated union (e.g.
// m.room.message's msgtype), to peek the discriminator regardless of its
// position in the object rather than relying on field order.
type ContentParser func(raw json.RawMessage) (any, error)

// ContentParsers is the registry ParseRaw consults to turn a content blob
// into a typed value. Event types with no registered parser decode to
// UnknownEventContent instead of failing.
var ContentParsers = map[Type]ContentParser{
	StateMember:      parseMemberContent,
	StatePowerLevels: parsePowerLevelsContent,
	StateCreate:      parseCreateContent,

	EventMessage:   parseMessageContent,
	EventRedaction: parseRedactionContent,

	EphemeralEventPresence: parsePresenceContent,
}

// Content stores the content of a Matrix event. Raw holds the bytes exactly
// as received; Parsed holds the typed value produced by ParseRaw, or nil if
// ParseRaw has not been called yet.
type Content struct {
	Raw    json.RawMessage
	Parsed any
}

func (content *Content) UnmarshalJSON(data []byte) error {
	content.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (content *Content) MarshalJSON() ([]byte, error) {
	if content.Parsed != nil {
		return json.Marshal(content.Parsed)
	}
	if content.Raw == nil {
		return []byte("{}"), nil
	}
	return content.Raw, nil
}

// ParseRaw decodes Raw into Parsed using the parser registered for evtType.
// Event types without a registered parser decode into UnknownEventContent
// rather than producing an error: an unrecognized event is still a usable
// event, just one whose content can't be interpreted further.
func (content *Content) ParseRaw(evtType Type) error {
	if len(content.Raw) == 0 {
		content.Parsed = nil
		return nil
	}
	parser, ok := ContentParsers[evtType]
	if !ok {
		content.Parsed = &UnknownEventContent{Raw: content.Raw}
		return nil
	}
	parsed, err := parser(content.Raw)
	if err != nil {
		return err
	}
	content.Parsed = parsed
	return nil
}

// UnknownEventContent is the fallback representation for event types that
// have no registered ContentParser. Message sub-types this module does not
// know are decoded as UnknownMessageEventContent instead.
type UnknownEventContent struct {
	Raw json.RawMessage `json:"-"`
}

func (content *Content) AsMember() *MemberEventContent {
	casted, ok := content.Parsed.(*MemberEventContent)
	if !ok {
		return &MemberEventContent{}
	}
	return casted
}

func (content *Content) AsPowerLevels() *PowerLevelsEventContent {
	casted, ok := content.Parsed.(*PowerLevelsEventContent)
	if !ok {
		return &PowerLevelsEventContent{}
	}
	return casted
}

func (content *Content) AsCreate() *CreateEventContent {
	casted, ok := content.Parsed.(*CreateEventContent)
	if !ok {
		return &CreateEventContent{}
	}
	return casted
}

func (content *Content) AsMessage() MessageEventContent {
	casted, ok := content.Parsed.(MessageEventContent)
	if !ok {
		return nil
	}
	return casted
}

func (content *Content) AsPresence() *PresenceEventContent {
	casted, ok := content.Parsed.(*PresenceEventContent)
	if !ok {
		return nil
	}
	return casted
}

func (content *Content) AsRedaction() *RedactionEventContent {
	casted, ok := content.Parsed.(*RedactionEventContent)
	if !ok {
		return &RedactionEventContent{}
	}
	return casted
}

func parseMemberContent(raw json.RawMessage) (any, error) {
	var content MemberEventContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, &DecodeError{Path: "content", Reason: "not a valid m.room.member content", Err: err}
	}
	return &content, nil
}

func parsePowerLevelsContent(raw json.RawMessage) (any, error) {
	var content PowerLevelsEventContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, &DecodeError{Path: "content", Reason: "not a valid m.room.power_levels content", Err: err}
	}
	return &content, nil
}

func parseCreateContent(raw json.RawMessage) (any, error) {
	var content CreateEventContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, &DecodeError{Path: "content", Reason: "not a valid m.room.create content", Err: err}
	}
	return &content, nil
}

func parseRedactionContent(raw json.RawMessage) (any, error) {
	var content RedactionEventContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, &DecodeError{Path: "content", Reason: "not a valid m.room.redaction content", Err: err}
	}
	return &content, nil
}

func parsePresenceContent(raw json.RawMessage) (any, error) {
	var content PresenceEventContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, &DecodeError{Path: "content", Reason: "not a valid m.presence content", Err: err}
	}
	return &content, nil
}

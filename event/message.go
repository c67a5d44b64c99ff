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

// MessageType is the sub-type of an m.room.message event, carried in the
// msgtype field of the content object.
// https://spec.matrix.org/v1.11/client-server-api/#mroommessage-msgtypes
type MessageType string

const (
	MsgText  MessageType = "m.text"
	MsgImage MessageType = "m.image"
)

// Format specifies the format of the formatted_body in m.room.message events.
type Format string

const (
	FormatHTML Format = "org.matrix.custom.html"
)

// MessageEventContent is the common interface implemented by every
// m.room.message sub-type this module decodes. The concrete type behind it
// is chosen by peeking the msgtype field of the content object, regardless
// of where that field appears among its siblings.
type MessageEventContent interface {
	GetMsgType() MessageType
	GetBody() string
}

// TextMessageEventContent is the content of an m.room.message event whose
// msgtype is m.text.
type TextMessageEventContent struct {
	Body          string `json:"body"`
	Format        Format `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`

	RelatesTo *RelatesTo `json:"m.relates_to,omitempty"`
}

func (c *TextMessageEventContent) GetMsgType() MessageType { return MsgText }
func (c *TextMessageEventContent) GetBody() string         { return c.Body }

// ImageMessageEventContent is the content of an m.room.message event whose
// msgtype is m.image.
type ImageMessageEventContent struct {
	Body string               `json:"body"`
	URL  id.ContentURIString `json:"url,omitempty"`
	Info *FileInfo            `json:"info,omitempty"`

	RelatesTo *RelatesTo `json:"m.relates_to,omitempty"`
}

func (c *ImageMessageEventContent) GetMsgType() MessageType { return MsgImage }
func (c *ImageMessageEventContent) GetBody() string         { return c.Body }

// UnknownMessageEventContent represents an m.room.message event whose
// msgtype this module has no dedicated type for. Body is decoded on a
// best-effort basis; Raw preserves the full content for callers that need
// fields this module doesn't model.
type UnknownMessageEventContent struct {
	MsgType MessageType     `json:"msgtype"`
	Body    string          `json:"body,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

func (c *UnknownMessageEventContent) GetMsgType() MessageType { return c.MsgType }
func (c *UnknownMessageEventContent) GetBody() string         { return c.Body }

type FileInfo struct {
	MimeType      string    `json:"mimetype,omitempty"`
	ThumbnailInfo *FileInfo `json:"thumbnail_info,omitempty"`
	Width         int       `json:"w,omitempty"`
	Height        int       `json:"h,omitempty"`
	Size          int       `json:"size,omitempty"`
}

// RedactionEventContent represents the content of an m.room.redaction event.
//
// The redacted event ID is still at the top level of the event rather than
// here, but is expected to move into content in a future room version.
// https://spec.matrix.org/v1.11/client-server-api/#mroomredaction
type RedactionEventContent struct {
	Reason string `json:"reason,omitempty"`
}

// parseMessageContent implements inline polymorphism: msgtype is a sibling
// field of body/url/info inside the same content object, and its position
// among those siblings is not guaranteed, so it's located with gjson rather
// than by decoding fields in order.
func parseMessageContent(raw json.RawMessage) (any, error) {
	msgType := gjson.GetBytes(raw, "msgtype")
	if !msgType.Exists() {
		return nil, &DecodeError{Path: "content.msgtype", Reason: "missing required field"}
	}
	switch MessageType(msgType.Str) {
	case MsgText:
		var content TextMessageEventContent
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, &DecodeError{Path: "content", Reason: "not a valid m.text message", Err: err}
		}
		return &content, nil
	case MsgImage:
		var content ImageMessageEventContent
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, &DecodeError{Path: "content", Reason: "not a valid m.image message", Err: err}
		}
		return &content, nil
	default:
		var content UnknownMessageEventContent
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, &DecodeError{Path: "content", Reason: "not a valid message content", Err: err}
		}
		content.Raw = raw
		return &content, nil
	}
}

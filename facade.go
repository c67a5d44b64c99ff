package mautrix

import (
	"context"
	"fmt"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
)

// SendEvent sends content as eventType into roomID and returns the new
// event's id. It's a thin convenience wrapper over SendMessageEvent for
// callers that don't need per-call transaction id or ts control.
func (cli *Client) SendEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, content any) (id.EventID, error) {
	resp, err := cli.SendMessageEvent(ctx, roomID, eventType, content)
	if err != nil {
		return "", err
	}
	return resp.EventID, nil
}

// SendMessage sends an m.room.message event built from content.
func (cli *Client) SendMessage(ctx context.Context, roomID id.RoomID, content event.MessageEventContent) (id.EventID, error) {
	return cli.SendEvent(ctx, roomID, event.EventMessage, content)
}

// Redact redacts eventID in roomID, optionally recording reason.
func (cli *Client) Redact(ctx context.Context, roomID id.RoomID, eventID id.EventID, reason string) error {
	_, err := cli.RedactEvent(ctx, roomID, eventID, &ReqRedact{Reason: reason})
	return err
}

// CreateRoomOptions is the convenience-level equivalent of ReqCreateRoom,
// with the create-event predecessor fields split out so callers can't set
// one half of the pair without the other.
type CreateRoomOptions struct {
	Name   string
	Topic  string
	Invite []id.UserID
	Preset string

	PredecessorRoomID  id.RoomID
	PredecessorEventID id.EventID
}

// toRequest converts CreateRoomOptions into the wire-level ReqCreateRoom,
// enforcing that predecessor room/event ids are both set or both empty:
// the m.room.create predecessor field is meaningless with only one half.
func (opts CreateRoomOptions) toRequest() (*ReqCreateRoom, error) {
	hasRoom := opts.PredecessorRoomID != ""
	hasEvent := opts.PredecessorEventID != ""
	if hasRoom != hasEvent {
		return nil, ErrInvalidOperation{Reason: "predecessor room id and event id must be set together or not at all"}
	}
	req := &ReqCreateRoom{
		Name:   opts.Name,
		Topic:  opts.Topic,
		Invite: opts.Invite,
		Preset: opts.Preset,
	}
	if hasRoom {
		req.CreationContent = map[string]any{
			"predecessor": map[string]any{
				"room_id":  opts.PredecessorRoomID,
				"event_id": opts.PredecessorEventID,
			},
		}
	}
	return req, nil
}

// CreateRoomWithOptions creates a room from the higher-level CreateRoomOptions and
// returns its id.
func (cli *Client) CreateRoomWithOptions(ctx context.Context, opts CreateRoomOptions) (id.RoomID, error) {
	req, err := opts.toRequest()
	if err != nil {
		return "", err
	}
	resp, err := cli.CreateRoom(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.RoomID, nil
}

// JoinRoomWithReason joins roomIDOrAlias, trying each server in via in turn
// as the routing hint if the direct join fails to find the room. It takes no
// reason parameter and sends no reason with the join request.
func (cli *Client) JoinRoomWithReason(ctx context.Context, roomIDOrAlias string, via []string) (id.RoomID, error) {
	var lastErr error
	if len(via) == 0 {
		via = []string{""}
	}
	for _, server := range via {
		resp, err := cli.JoinRoom(ctx, roomIDOrAlias, server)
		if err == nil {
			return resp.RoomID, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("failed to join %s: %w", roomIDOrAlias, lastErr)
}

// LeaveRoomWithReason leaves roomID, recording reason if given.
func (cli *Client) LeaveRoomWithReason(ctx context.Context, roomID id.RoomID, reason string) error {
	_, err := cli.LeaveRoom(ctx, roomID, &ReqLeave{Reason: reason})
	return err
}

// InviteUserWithReason invites userID to roomID, recording reason if given.
func (cli *Client) InviteUserWithReason(ctx context.Context, roomID id.RoomID, userID id.UserID, reason string) error {
	_, err := cli.InviteUser(ctx, roomID, &ReqInviteUser{UserID: userID, Reason: reason})
	return err
}

package mautrix

import (
	"context"

	"github.com/example/matrixsync/id"
	"github.com/example/matrixsync/timeline"
)

// clientFiller adapts Client.Messages to timeline.Filler, so the timeline
// package can backfill holes without depending on the client package.
type clientFiller struct {
	cli *Client
}

var _ timeline.Filler = (*clientFiller)(nil)

func (f *clientFiller) FillForward(ctx context.Context, roomID id.RoomID, from, to string) (*timeline.FillResult, error) {
	return f.fill(ctx, roomID, from, to, DirectionForward)
}

func (f *clientFiller) FillBackward(ctx context.Context, roomID id.RoomID, from, to string) (*timeline.FillResult, error) {
	return f.fill(ctx, roomID, from, to, DirectionBackward)
}

func (f *clientFiller) fill(ctx context.Context, roomID id.RoomID, from, to string, dir Direction) (*timeline.FillResult, error) {
	resp, err := f.cli.Messages(ctx, roomID, ReqMessages{From: from, To: to, Dir: dir})
	if err != nil {
		return nil, err
	}
	end := resp.End
	if end == "" {
		end = to
	}
	return &timeline.FillResult{Events: resp.Chunk, State: resp.State, Start: resp.Start, End: end}, nil
}

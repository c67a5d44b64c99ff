package timeline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
	"github.com/example/matrixsync/state"
	"github.com/example/matrixsync/timeline"
)

// fakeFiller answers FillForward/FillBackward from a canned page of events,
// letting tests drive hole-filling deterministically without a real client.
type fakeFiller struct {
	forward, backward *timeline.FillResult
	forwardErr        error
	backwardErr       error
	calls             int
}

func (f *fakeFiller) FillForward(_ context.Context, _ id.RoomID, _, _ string) (*timeline.FillResult, error) {
	f.calls++
	return f.forward, f.forwardErr
}

func (f *fakeFiller) FillBackward(_ context.Context, _ id.RoomID, _, _ string) (*timeline.FillResult, error) {
	f.calls++
	return f.backward, f.backwardErr
}

func makeMessage(t *testing.T, evtID id.EventID) *event.Event {
	t.Helper()
	return &event.Event{
		ID:      evtID,
		Type:    event.EventMessage,
		Content: event.Content{Raw: json.RawMessage(`{"msgtype":"m.text","body":"hi"}`)},
	}
}

func TestTimeline_SyncAppendsEvents(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tl := timeline.NewTimeline("!room:example.com", &fakeFiller{}, idx, nil)

	rt := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$a"), makeMessage(t, "$b")}}
	_, err := tl.Sync(context.Background(), rt, state.Empty, "orig", "orig")
	require.NoError(t, err)

	first, err := tl.First()
	require.NoError(t, err)
	assert.Equal(t, id.EventID("$a"), first.EventID())

	last, err := tl.Last()
	require.NoError(t, err)
	assert.Equal(t, id.EventID("$b"), last.EventID())
}

func TestTimeline_SyncInsertsHoleForGap(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tl := timeline.NewTimeline("!room:example.com", &fakeFiller{}, idx, nil)

	seedRT := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$seed")}}
	_, err := tl.Sync(context.Background(), seedRT, state.Empty, "", "")
	require.NoError(t, err)

	// A gap exists whenever this batch's prev_batch ("prev2") doesn't match
	// the client's previous next_batch ("orig"), regardless of Limited.
	rt := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$a")}, PrevBatch: "prev2"}
	_, err = tl.Sync(context.Background(), rt, state.Empty, "prev2", "orig")
	require.NoError(t, err)

	seed, err := tl.First()
	require.NoError(t, err)
	_, ok := seed.Event()
	require.True(t, ok, "First must skip past a hole to the nearest event")

	next, ok := seed.NextSync()
	require.True(t, ok)
	_, isEvent := next.Event()
	assert.False(t, isEvent, "the prev_batch/original_batch mismatch must show up as a hole")
}

func TestTimeline_First_ReturnsErrInternalWhenOnlyHoles(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tl := timeline.NewTimeline("!room:example.com", &fakeFiller{}, idx, nil)

	rt := timeline.RoomTimeline{Events: nil, PrevBatch: "prev2"}
	_, err := tl.Sync(context.Background(), rt, state.Empty, "prev2", "orig")
	require.NoError(t, err)

	_, err = tl.First()
	require.ErrorIs(t, err, timeline.ErrInternal)

	_, err = tl.Last()
	require.ErrorIs(t, err, timeline.ErrInternal)
}

func TestTimeline_SyncSuppressesHoleOnFirstSync(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tl := timeline.NewTimeline("!room:example.com", &fakeFiller{}, idx, nil)

	rt := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$a")}, Limited: true, PrevBatch: "prev"}
	_, err := tl.Sync(context.Background(), rt, state.Empty, "prev", "")
	require.NoError(t, err)

	first, err := tl.First()
	require.NoError(t, err)
	_, ok := first.Event()
	assert.True(t, ok, "first sync must never insert a hole even when limited")
}

// seedThenGap seeds tl with one hole-free event via a first sync, then a
// second sync that opens a gap (prevBatch "prev2" against the client's
// previous next_batch "orig") right after it, returning a Handle to the
// seed event the gap's hole immediately follows.
func seedThenGap(t *testing.T, tl *timeline.Timeline) *timeline.Handle {
	t.Helper()
	seedRT := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$seed")}}
	_, err := tl.Sync(context.Background(), seedRT, state.Empty, "", "")
	require.NoError(t, err)

	rt := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$a")}, PrevBatch: "prev2"}
	_, err = tl.Sync(context.Background(), rt, state.Empty, "prev2", "orig")
	require.NoError(t, err)

	seed, err := tl.First()
	require.NoError(t, err)
	return seed
}

func TestTimeline_NextTriggersFillForward(t *testing.T) {
	idx := timeline.NewIndex(nil)
	filler := &fakeFiller{
		forward: &timeline.FillResult{Events: []*event.Event{makeMessage(t, "$new")}, Start: "orig", End: "prev2"},
	}
	tl := timeline.NewTimeline("!room:example.com", filler, idx, nil)
	seed := seedThenGap(t, tl)

	filled, err := seed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id.EventID("$new"), filled.EventID())
	assert.Equal(t, 1, filler.calls)
}

func TestTimeline_NextLeavesNarrowerHoleWhenPageDoesNotReachTarget(t *testing.T) {
	idx := timeline.NewIndex(nil)
	filler := &fakeFiller{
		forward: &timeline.FillResult{Events: []*event.Event{makeMessage(t, "$new")}, Start: "orig", End: "middle"},
	}
	tl := timeline.NewTimeline("!room:example.com", filler, idx, nil)
	seed := seedThenGap(t, tl)

	filled, err := seed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id.EventID("$new"), filled.EventID())

	// One more step forward should hit the remaining (narrower) hole, not the original event.
	next, ok := filled.NextSync()
	require.True(t, ok)
	_, isEvent := next.Event()
	assert.False(t, isEvent)
}

func TestTimeline_FillForwardResolvesStateChunkOntoSeed(t *testing.T) {
	idx := timeline.NewIndex(nil)
	topicKey := ""
	stateEvt := &event.Event{
		ID:       "$topic",
		Type:     event.StateTopic,
		StateKey: &topicKey,
		Content:  event.Content{Raw: json.RawMessage(`{"topic":"new topic"}`)},
	}
	filler := &fakeFiller{
		forward: &timeline.FillResult{
			State:  []*event.Event{stateEvt},
			Events: []*event.Event{makeMessage(t, "$new")},
			Start:  "orig",
			End:    "prev2",
		},
	}
	tl := timeline.NewTimeline("!room:example.com", filler, idx, nil)
	seed := seedThenGap(t, tl)

	filled, err := seed.Next(context.Background())
	require.NoError(t, err)

	ev, ok := filled.Event()
	require.True(t, ok)
	content, ok := ev.State.Get(state.Key{Type: event.StateTopic, StateKey: ""})
	require.True(t, ok, "state chunk from the fill result must be resolved onto the spliced-in event's state")
	assert.JSONEq(t, `{"topic":"new topic"}`, string(content.Raw))
}

func TestIndex_HandleSurvivesEviction(t *testing.T) {
	idx := timeline.NewIndex(nil)
	filler := &fakeFiller{
		forward: &timeline.FillResult{Events: []*event.Event{makeMessage(t, "$dup")}, Start: "prev", End: "orig"},
	}
	tlA := timeline.NewTimeline("!a:example.com", filler, idx, nil)
	tlB := timeline.NewTimeline("!b:example.com", filler, idx, nil)

	rtA := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$dup")}}
	_, err := tlA.Sync(context.Background(), rtA, state.Empty, "", "")
	require.NoError(t, err)

	handleA, err := tlA.First()
	require.NoError(t, err)

	// The same event id shows up again via a different timeline (e.g. re-seen via /messages).
	rtB := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$dup")}}
	_, err = tlB.Sync(context.Background(), rtB, state.Empty, "", "")
	require.NoError(t, err)

	// handleA's underlying node was displaced; resolving it must self-heal via the shared index.
	ev, ok := handleA.Event()
	require.True(t, ok)
	assert.Equal(t, id.EventID("$dup"), ev.Event.ID)
}

func TestIndex_ApplyRedactionRewritesInPlace(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tl := timeline.NewTimeline("!room:example.com", &fakeFiller{}, idx, nil)

	rt := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$victim")}}
	_, err := tl.Sync(context.Background(), rt, state.Empty, "", "")
	require.NoError(t, err)

	redaction := &event.Event{ID: "$redaction", Type: event.EventRedaction, Redacts: "$victim"}
	require.NoError(t, idx.ApplyRedaction("$victim", redaction))

	h, err := tl.First()
	require.NoError(t, err)
	ev, ok := h.Event()
	require.True(t, ok)
	assert.True(t, ev.Event.IsRedacted())
}

func TestIndex_HandleResolvesAcrossRooms(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tlA := timeline.NewTimeline("!a:example.com", &fakeFiller{}, idx, nil)
	tlB := timeline.NewTimeline("!b:example.com", &fakeFiller{}, idx, nil)

	_, err := tlA.Sync(context.Background(), timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$a")}}, state.Empty, "", "")
	require.NoError(t, err)
	_, err = tlB.Sync(context.Background(), timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$b")}}, state.Empty, "", "")
	require.NoError(t, err)

	h, ok := idx.Handle("$b")
	require.True(t, ok)
	ev, ok := h.Event()
	require.True(t, ok)
	assert.Equal(t, id.EventID("$b"), ev.Event.ID)

	// Navigating from a Handle resolved via the global index must use $b's
	// own room (tlB), not whichever room happened to look it up.
	_, err = h.Next(context.Background())
	require.Error(t, err, "tlB only has one event; there is no next position")
}

func TestEnumerateForward_YieldsAllPositions(t *testing.T) {
	idx := timeline.NewIndex(nil)
	tl := timeline.NewTimeline("!room:example.com", &fakeFiller{}, idx, nil)

	rt := timeline.RoomTimeline{Events: []*event.Event{makeMessage(t, "$a"), makeMessage(t, "$b"), makeMessage(t, "$c")}}
	_, err := tl.Sync(context.Background(), rt, state.Empty, "", "")
	require.NoError(t, err)

	var ids []id.EventID
	for h, err := range tl.EnumerateForward(context.Background(), nil) {
		require.NoError(t, err)
		if h == nil {
			break
		}
		ids = append(ids, h.EventID())
		if len(ids) == 3 {
			break
		}
	}
	assert.Equal(t, []id.EventID{"$a", "$b", "$c"}, ids)
}

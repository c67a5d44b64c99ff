package mautrix_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mautrix "github.com/example/matrixsync"
	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
)

func newSyncingClient(t *testing.T, handler http.HandlerFunc) *mautrix.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	cli, err := mautrix.NewClientFromLoginData(mautrix.LoginData{HomeserverURL: ts.URL, AccessToken: "tok"}, nil)
	require.NoError(t, err)
	return cli
}

const firstSyncBody = `{
	"next_batch": "batch1",
	"rooms": {
		"join": {
			"!room:example.com": {
				"state": {"events": [
					{"type":"m.room.create","state_key":"","sender":"@alice:example.com","content":{"creator":"@alice:example.com"}},
					{"type":"m.room.member","state_key":"@alice:example.com","sender":"@alice:example.com","content":{"membership":"join"}}
				]},
				"timeline": {
					"events": [
						{"event_id":"$1","type":"m.room.message","sender":"@alice:example.com","content":{"msgtype":"m.text","body":"hi"}}
					],
					"limited": false,
					"prev_batch": "prev1"
				},
				"ephemeral": {"events": []},
				"account_data": {"events": [
					{"type":"m.fully_read","content":{"event_id":"$1"}}
				]},
				"unread_notifications": {"notification_count": 2, "highlight_count": 1},
				"summary": {"m.heroes": ["@alice:example.com"], "m.joined_member_count": 1},
				"unread_thread_notifications": {}
			}
		},
		"leave": {},
		"invite": {
			"!invited:example.com": {
				"invite_state": {"events": [
					{"type":"m.room.member","state_key":"@me:example.com","sender":"@bob:example.com","content":{"membership":"invite"}}
				]}
			}
		},
		"knock": {}
	},
	"presence": {"events": [
		{"type":"m.presence","sender":"@alice:example.com","content":{"presence":"online"}}
	]}
}`

func TestClient_Sync_AppliesJoinedRoomsInvitesAndPresence(t *testing.T) {
	cli := newSyncingClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/_matrix/client/v3/sync")
		_, _ = w.Write([]byte(firstSyncBody))
	})

	err := cli.Sync(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, "batch1", cli.NextBatch())

	room, ok := cli.JoinedRoom("!room:example.com")
	require.True(t, ok)
	first, err := room.Timeline.First()
	require.NoError(t, err)
	assert.Equal(t, id.EventID("$1"), first.EventID())

	inviteState := cli.InvitedState("!invited:example.com")
	require.Len(t, inviteState, 1)
	assert.Equal(t, event.StateMember.Type, inviteState[0].Type.Type)

	presence, ok := cli.Presence("@alice:example.com")
	require.True(t, ok)
	assert.Equal(t, event.Presence("online"), presence)

	handle, ok := cli.EventByID("$1")
	require.True(t, ok)
	assert.Equal(t, id.EventID("$1"), handle.EventID())

	require.Len(t, room.AccountData, 1)
	assert.Equal(t, "m.fully_read", room.AccountData[0].Type.Type)
	assert.Equal(t, 2, room.UnreadNotifications.NotificationCount)
	assert.Equal(t, 1, room.UnreadNotifications.HighlightCount)
	require.Len(t, room.Summary.Heroes, 1)
	assert.Equal(t, id.UserID("@alice:example.com"), room.Summary.Heroes[0])
	require.NotNil(t, room.Summary.JoinedMemberCount)
	assert.Equal(t, 1, *room.Summary.JoinedMemberCount)
}

func TestClient_Sync_MovesRoomFromJoinedToLeft(t *testing.T) {
	call := 0
	cli := newSyncingClient(t, func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 1 {
			_, _ = w.Write([]byte(firstSyncBody))
			return
		}
		_, _ = w.Write([]byte(`{
			"next_batch": "batch2",
			"rooms": {
				"join": {}, "invite": {}, "knock": {},
				"leave": {
					"!room:example.com": {
						"state": {"events": []},
						"timeline": {"events": [], "limited": false, "prev_batch": "batch1"}
					}
				}
			},
			"presence": {"events": []}
		}`))
	})

	require.NoError(t, cli.Sync(context.Background(), time.Millisecond))
	require.NoError(t, cli.Sync(context.Background(), time.Millisecond))

	_, stillJoined := cli.JoinedRoom("!room:example.com")
	assert.False(t, stillJoined)

	left, ok := cli.LeftRoom("!room:example.com")
	require.True(t, ok)
	// The left room must inherit the timeline built up while it was joined.
	first, err := left.Timeline.First()
	require.NoError(t, err)
	assert.Equal(t, id.EventID("$1"), first.EventID())
}

func TestClient_Sync_RetriesAfterSoftLogout(t *testing.T) {
	syncCalls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_matrix/client/v3/refresh" {
			_, _ = w.Write([]byte(`{"access_token":"newtok"}`))
			return
		}
		syncCalls++
		if syncCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errcode":"M_UNKNOWN_TOKEN","error":"expired","soft_logout":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"next_batch":"batch1","rooms":{"join":{},"leave":{},"invite":{},"knock":{}},"presence":{"events":[]}}`))
	}))
	t.Cleanup(ts.Close)

	cli, err := mautrix.NewClientFromLoginData(mautrix.LoginData{
		HomeserverURL: ts.URL,
		AccessToken:   "tok",
		RefreshToken:  "refresh-tok",
	}, nil)
	require.NoError(t, err)

	err = cli.Sync(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "batch1", cli.NextBatch())
	assert.Equal(t, 2, syncCalls)
}

func TestClient_Sync_ConcurrentCallsCollapseToOneRequest(t *testing.T) {
	var syncCalls int32
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	cli := newSyncingClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&syncCalls, 1)
		entered <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"next_batch":"batch1","rooms":{"join":{},"leave":{},"invite":{},"knock":{}},"presence":{"events":[]}}`))
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = cli.Sync(context.Background(), time.Millisecond)
		}(i)
	}

	// Wait for the first request to actually reach the server before
	// letting the second goroutine's Sync call proceed past the gate, so
	// the two calls are guaranteed to overlap in time.
	<-entered
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), atomic.LoadInt32(&syncCalls), "two overlapping Sync calls must issue only one /sync request")
	assert.Equal(t, "batch1", cli.NextBatch())
}

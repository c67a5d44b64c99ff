// Package mautrix implements the parts of the Matrix Client-Server API
// needed to keep a stateful view of a user's rooms in sync with a
// homeserver: logging in, long-polling /sync, resolving room state, and
// maintaining a gap-aware timeline per room.
//
// Specification: https://spec.matrix.org/v1.11/client-server-api/
package mautrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mau.fi/util/retryafter"

	"github.com/example/matrixsync/event"
	"github.com/example/matrixsync/id"
	"github.com/example/matrixsync/timeline"
)

// Client is a Matrix client bound to a single homeserver and (once logged
// in) a single user/device pair. A Client owns the gates described in
// sync.go; two goroutines sharing a Client will have their /sync calls and
// hole-fills serialized by those gates rather than racing the homeserver.
type Client struct {
	HomeserverURL *url.URL
	Session       Session
	Client        *http.Client
	UserAgent     string

	Log zerolog.Logger

	// DefaultHTTPRetries is how many times a request is retried after a
	// transport failure or a 502-504 gateway error before giving up.
	DefaultHTTPRetries int
	// IgnoreRateLimit disables automatic sleeping on 429 responses.
	IgnoreRateLimit bool

	nextBatch string

	// gatesMu/gatesCond implement the two-gate concurrency model described
	// in sync.go: a sync in progress excludes a concurrent hole-fill and
	// vice versa, signaled rather than polled.
	gatesMu   sync.Mutex
	gatesCond *sync.Cond
	syncing   bool
	// syncDone is closed when the in-flight Sync finishes, letting a
	// concurrent caller that found syncing already true wait for it instead
	// of issuing its own /sync request.
	syncDone chan struct{}
	filling  map[id.RoomID]bool

	rooms     map[id.RoomID]*JoinedRoomState
	leftRooms map[id.RoomID]*LeftRoomState
	invites   map[id.RoomID]*InvitedRoomState
	knocks    map[id.RoomID]*KnockedRoomState
	presence  map[id.UserID]event.Presence

	threadNotifications map[id.EventID]UnreadNotificationCounts

	dedup *timeline.Index
}

// NewClient constructs a Client for the given homeserver URL. The returned
// client has no credentials; call Login, or use NewClientFromLoginData to
// restore a previous session.
func NewClient(homeserverURL string, httpClient *http.Client) (*Client, error) {
	hsURL, err := parseAndNormalizeBaseURL(homeserverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse homeserver URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 180 * time.Second}
	}
	cli := &Client{
		HomeserverURL:      hsURL,
		Client:             httpClient,
		UserAgent:          DefaultUserAgent,
		Log:                zerolog.Nop(),
		DefaultHTTPRetries: 4,
		filling:             make(map[id.RoomID]bool),
		rooms:               make(map[id.RoomID]*JoinedRoomState),
		leftRooms:           make(map[id.RoomID]*LeftRoomState),
		invites:             make(map[id.RoomID]*InvitedRoomState),
		knocks:              make(map[id.RoomID]*KnockedRoomState),
		presence:            make(map[id.UserID]event.Presence),
		threadNotifications: make(map[id.EventID]UnreadNotificationCounts),
	}
	cli.gatesCond = sync.NewCond(&cli.gatesMu)
	cli.dedup = timeline.NewIndex(&cli.gatesMu)
	return cli, nil
}

type ClientResponseHandler = func(req *http.Request, res *http.Response, responseJSON any) ([]byte, error)

// FullRequest carries every parameter MakeFullRequest accepts. Only Method
// and URL are required; a nil RequestJSON on anything but GET/HEAD is
// encoded as an empty JSON object, matching what most homeservers expect.
type FullRequest struct {
	Method           string
	URL              string
	RequestJSON      any
	ResponseJSON     any
	MaxAttempts      int
	SensitiveContent bool
	Handler          ClientResponseHandler

	// SkipAuth skips ensureAccessToken's proactive-refresh check before
	// dispatch. Set by the login and refresh requests themselves, which by
	// definition can't rely on there already being a valid access token to
	// refresh from.
	SkipAuth bool
}

var requestID int32
var logSensitiveContent = os.Getenv("MATRIXSYNC_LOG_SENSITIVE_CONTENT") == "yes"

func (params *FullRequest) compileRequest(ctx context.Context, cli *Client) (*http.Request, error) {
	var body io.Reader
	var logBody any
	if params.RequestJSON != nil {
		jsonBytes, err := json.Marshal(params.RequestJSON)
		if err != nil {
			return nil, HTTPError{Message: "failed to marshal request body", WrappedError: err}
		}
		if params.SensitiveContent && !logSensitiveContent {
			logBody = "<sensitive content omitted>"
		} else {
			logBody = params.RequestJSON
		}
		body = bytes.NewReader(jsonBytes)
	} else if params.Method != http.MethodGet && params.Method != http.MethodHead {
		body = bytes.NewReader([]byte("{}"))
		logBody = json.RawMessage("{}")
	}

	reqID := atomic.AddInt32(&requestID, 1)
	log := cli.Log.With().Int32("req_id", reqID).Str("method", params.Method).Logger()
	ctx = log.WithContext(ctx)

	req, err := http.NewRequestWithContext(ctx, params.Method, params.URL, body)
	if err != nil {
		return nil, HTTPError{Message: "failed to create request", WrappedError: err}
	}
	if params.RequestJSON != nil || body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	log.Debug().Interface("body", logBody).Msg("Sending request")
	return req, nil
}

// MakeFullRequest sends an authenticated JSON HTTP request and, on a 2xx
// response, unmarshals the body into params.ResponseJSON (if non-nil). On a
// non-2xx response it returns an HTTPError, populated with a RespError if
// the body parsed as one.
func (cli *Client) MakeFullRequest(ctx context.Context, params FullRequest) ([]byte, error) {
	if params.MaxAttempts == 0 {
		params.MaxAttempts = 1 + cli.DefaultHTTPRetries
	}
	if !params.SkipAuth {
		if err := cli.ensureAccessToken(ctx); err != nil {
			return nil, err
		}
	}
	req, err := params.compileRequest(ctx, cli)
	if err != nil {
		return nil, err
	}
	if params.Handler == nil {
		params.Handler = handleNormalResponse
	}
	req.Header.Set("User-Agent", cli.UserAgent)
	if token := cli.Session.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return cli.executeCompiledRequest(req, params.MaxAttempts-1, 4*time.Second, params.ResponseJSON, params.Handler)
}

func (cli *Client) doRetry(req *http.Request, cause error, retries int, backoff time.Duration, responseJSON any, handler ClientResponseHandler) ([]byte, error) {
	log := zerolog.Ctx(req.Context())
	if req.Body != nil {
		if req.GetBody == nil {
			log.Warn().Msg("cannot retry request: body is not replayable")
			return nil, cause
		}
		var err error
		req.Body, err = req.GetBody()
		if err != nil {
			return nil, cause
		}
	}
	log.Warn().Err(cause).Dur("retry_in", backoff).Msg("Request failed, retrying")
	select {
	case <-time.After(backoff):
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
	return cli.executeCompiledRequest(req, retries-1, backoff*2, responseJSON, handler)
}

func readResponseBody(req *http.Request, res *http.Response) ([]byte, error) {
	contents, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, HTTPError{Request: req, Response: res, Message: "failed to read response body", WrappedError: err}
	}
	return contents, nil
}

func handleNormalResponse(req *http.Request, res *http.Response, responseJSON any) ([]byte, error) {
	contents, err := readResponseBody(req, res)
	if err != nil {
		return nil, err
	}
	if responseJSON == nil {
		return contents, nil
	}
	if err = json.Unmarshal(contents, responseJSON); err != nil {
		return nil, HTTPError{Request: req, Response: res, Message: "failed to unmarshal response body", ResponseBody: string(contents), WrappedError: err}
	}
	return contents, nil
}

func parseErrorResponse(req *http.Request, res *http.Response) ([]byte, error) {
	contents, err := readResponseBody(req, res)
	if err != nil {
		return contents, err
	}
	respErr := &RespError{}
	if json.Unmarshal(contents, respErr) != nil || respErr.ErrCode == "" {
		respErr = nil
	}
	return contents, HTTPError{Request: req, Response: res, RespError: respErr, ResponseBody: string(contents)}
}

func (cli *Client) executeCompiledRequest(req *http.Request, retries int, backoff time.Duration, responseJSON any, handler ClientResponseHandler) ([]byte, error) {
	res, err := cli.Client.Do(req)
	if res != nil {
		defer res.Body.Close()
	}
	if err != nil {
		if retries > 0 {
			return cli.doRetry(req, err, retries, backoff, responseJSON, handler)
		}
		return nil, HTTPError{Request: req, Response: res, Message: "request error", WrappedError: err}
	}
	if retries > 0 && retryafter.Should(res.StatusCode, !cli.IgnoreRateLimit) {
		backoff = retryafter.Parse(res.Header.Get("Retry-After"), backoff)
		return cli.doRetry(req, fmt.Errorf("HTTP %d", res.StatusCode), retries, backoff, responseJSON, handler)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, err = parseErrorResponse(req, res)
		return nil, err
	}
	return handler(req, res, responseJSON)
}

// txnID returns a fresh UUIDv4 transaction ID, per the client-server API's
// requirement that transaction IDs be unique per access token.
func (cli *Client) txnID() string {
	return uuid.NewString()
}

// withRetry runs op, and if it fails on a soft logout, refreshes the access
// token and runs op again, for as long as the homeserver keeps reporting a
// soft logout and refresh keeps succeeding. A hard logout clears the stored
// session instead of retrying, since no refresh will fix it.
//
// Every authenticated Client method except Logout goes through this instead
// of calling MakeFullRequest directly, so token expiry recovery is uniform
// across the API surface rather than being special-cased for one endpoint.
func withRetry[T any](ctx context.Context, cli *Client, op func() (T, error)) (T, error) {
	for {
		resp, err := op()
		if err == nil {
			return resp, nil
		}
		var httpErr HTTPError
		if !asHTTPError(err, &httpErr) {
			return resp, err
		}
		if httpErr.IsHardLogout() {
			cli.Session.clear()
			return resp, ErrLoginRequired
		}
		if !httpErr.IsSoftLogout() {
			return resp, err
		}
		retry := errRetryRequested{after: httpErr}
		cli.Log.Debug().Err(retry).Msg("Soft logout, refreshing token and retrying")
		if refreshErr := cli.refresh(ctx); refreshErr != nil {
			return resp, refreshErr
		}
	}
}

// JoinRoom joins the client to a room ID or alias, optionally routing the
// join through a specific resident server.
// https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3joinroomidoralias
func (cli *Client) JoinRoom(ctx context.Context, roomIDOrAlias string, serverName string) (*RespJoinRoom, error) {
	query := map[string]string{}
	if serverName != "" {
		query["server_name"] = serverName
	}
	return withRetry(ctx, cli, func() (*RespJoinRoom, error) {
		var resp RespJoinRoom
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodPost,
			URL:          cli.BuildURLWithQuery([]any{"_matrix", "client", "v3", "join", roomIDOrAlias}, query),
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// LeaveRoom leaves the given room.
// https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3roomsroomidleave
func (cli *Client) LeaveRoom(ctx context.Context, roomID id.RoomID, req *ReqLeave) (*RespLeaveRoom, error) {
	if req == nil {
		req = &ReqLeave{}
	}
	return withRetry(ctx, cli, func() (*RespLeaveRoom, error) {
		var resp RespLeaveRoom
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodPost,
			URL:          cli.BuildClientURL("v3", "rooms", roomID, "leave"),
			RequestJSON:  req,
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// InviteUser invites a user to a room.
// https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3roomsroomidinvite
func (cli *Client) InviteUser(ctx context.Context, roomID id.RoomID, req *ReqInviteUser) (*RespInviteUser, error) {
	return withRetry(ctx, cli, func() (*RespInviteUser, error) {
		var resp RespInviteUser
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodPost,
			URL:          cli.BuildClientURL("v3", "rooms", roomID, "invite"),
			RequestJSON:  req,
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// CreateRoom creates a new Matrix room.
// https://spec.matrix.org/v1.11/client-server-api/#post_matrixclientv3createroom
func (cli *Client) CreateRoom(ctx context.Context, req *ReqCreateRoom) (*RespCreateRoom, error) {
	return withRetry(ctx, cli, func() (*RespCreateRoom, error) {
		var resp RespCreateRoom
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodPost,
			URL:          cli.BuildClientURL("v3", "createRoom"),
			RequestJSON:  req,
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// JoinedRooms lists the rooms the user is currently joined to.
// https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3joined_rooms
func (cli *Client) JoinedRooms(ctx context.Context) (*RespJoinedRooms, error) {
	return withRetry(ctx, cli, func() (*RespJoinedRooms, error) {
		var resp RespJoinedRooms
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodGet,
			URL:          cli.BuildClientURL("v3", "joined_rooms"),
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// SendMessageEvent sends a non-state event into a room.
// https://spec.matrix.org/v1.11/client-server-api/#put_matrixclientv3roomsroomidsendeventtypetxnid
func (cli *Client) SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, content any, extra ...ReqSendEvent) (*RespSendEvent, error) {
	var req ReqSendEvent
	if len(extra) > 0 {
		req = extra[0]
	}
	txnID := req.TransactionID
	if txnID == "" {
		txnID = cli.txnID()
	}
	query := map[string]string{}
	if req.Timestamp > 0 {
		query["ts"] = fmt.Sprintf("%d", req.Timestamp)
	}
	return withRetry(ctx, cli, func() (*RespSendEvent, error) {
		var resp RespSendEvent
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodPut,
			URL:          cli.BuildURLWithQuery([]any{"_matrix", "client", "v3", "rooms", roomID, "send", eventType.String(), txnID}, query),
			RequestJSON:  content,
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// SendText is a convenience wrapper around SendMessageEvent for m.text.
func (cli *Client) SendText(ctx context.Context, roomID id.RoomID, text string) (*RespSendEvent, error) {
	return cli.SendMessageEvent(ctx, roomID, event.EventMessage, &event.TextMessageEventContent{
		Body: text,
	})
}

// RedactEvent redacts the given event.
// https://spec.matrix.org/v1.11/client-server-api/#put_matrixclientv3roomsroomidredacteventidtxnid
func (cli *Client) RedactEvent(ctx context.Context, roomID id.RoomID, eventID id.EventID, req *ReqRedact) (*RespSendEvent, error) {
	if req == nil {
		req = &ReqRedact{}
	}
	txnID := req.TxnID
	if txnID == "" {
		txnID = cli.txnID()
	}
	return withRetry(ctx, cli, func() (*RespSendEvent, error) {
		var resp RespSendEvent
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodPut,
			URL:          cli.BuildClientURL("v3", "rooms", roomID, "redact", eventID, txnID),
			RequestJSON:  req,
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// Messages fetches a page of the room's timeline, in either direction from
// the given pagination token.
// https://spec.matrix.org/v1.11/client-server-api/#get_matrixclientv3roomsroomidmessages
func (cli *Client) Messages(ctx context.Context, roomID id.RoomID, req ReqMessages) (*RespMessages, error) {
	query := map[string]string{
		"from": req.From,
		"dir":  string(req.Dir),
	}
	if req.To != "" {
		query["to"] = req.To
	}
	if req.Limit > 0 {
		query["limit"] = fmt.Sprintf("%d", req.Limit)
	}
	return withRetry(ctx, cli, func() (*RespMessages, error) {
		var resp RespMessages
		_, err := cli.MakeFullRequest(ctx, FullRequest{
			Method:       http.MethodGet,
			URL:          cli.BuildURLWithQuery([]any{"_matrix", "client", "v3", "rooms", roomID, "messages"}, query),
			ResponseJSON: &resp,
		})
		return &resp, err
	})
}

// syncOnce makes a single /sync request. It never retries on failure: the
// engine's poll loop decides how to react to a failed sync.
func (cli *Client) syncOnce(ctx context.Context, req ReqSync) (*RespSync, error) {
	var resp RespSync
	_, err := cli.MakeFullRequest(ctx, FullRequest{
		Method:       http.MethodGet,
		URL:          cli.BuildURLWithQuery([]any{"_matrix", "client", "v3", "sync"}, req.BuildQuery()),
		ResponseJSON: &resp,
		MaxAttempts:  1,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

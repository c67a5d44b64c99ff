package mautrix

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/example/matrixsync/id"
)

// Session holds the credentials and token-lifecycle state for a logged-in
// client. All fields are protected by mu since refresh can race with
// requests that read the access token to set the Authorization header.
type Session struct {
	mu sync.Mutex

	userID       id.UserID
	deviceID     id.DeviceID
	accessToken  string
	refreshToken string
	expiresAt    time.Time // zero if the server didn't advertise expiry

	refreshing chan struct{} // non-nil while a refresh is in flight, closed when it completes
}

func (s *Session) snapshot() (userID id.UserID, deviceID id.DeviceID, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.deviceID, s.accessToken
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) UserID() id.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) DeviceID() id.DeviceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *Session) storeLogin(resp *RespLogin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = resp.UserID
	s.deviceID = resp.DeviceID
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	s.expiresAt = expiryFromMs(resp.ExpiresInMs)
}

func (s *Session) storeRefresh(resp *RespRefresh) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		s.refreshToken = resp.RefreshToken
	}
	s.expiresAt = expiryFromMs(resp.ExpiresInMs)
}

func expiryFromMs(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(ms) * time.Millisecond)
}

func (s *Session) needsProactiveRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.expiresAt.IsZero() && time.Now().After(s.expiresAt.Add(-10*time.Second))
}

func (s *Session) canRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken != ""
}

// clear wipes the stored credentials. Called on a hard logout, where the
// homeserver has revoked the session and no refresh will bring it back.
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
	s.expiresAt = time.Time{}
}

// LoggedIn reports whether the session currently holds an access token.
// It doesn't check whether the homeserver still considers that token
// valid; a token can be LoggedIn and still fail on next use.
func (s *Session) LoggedIn() bool {
	return s.AccessToken() != ""
}

// Expired reports whether the homeserver-advertised expiry for the current
// access token has passed as of now. Sessions whose homeserver didn't
// advertise an expiry are never considered expired by this check.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.expiresAt.IsZero() && now.After(s.expiresAt)
}

// LoginData is the persistence-boundary record for a session: enough to
// resume a client without logging in again. This package never writes it
// to disk itself; callers own the storage format.
type LoginData struct {
	HomeserverURL string      `json:"homeserver_url"`
	UserID        id.UserID   `json:"user_id"`
	DeviceID      id.DeviceID `json:"device_id"`
	AccessToken   string      `json:"access_token"`
	RefreshToken  string      `json:"refresh_token,omitempty"`
	ExpiresAt     time.Time   `json:"expires_at,omitempty"`
}

// ToLoginData snapshots the session into its persistence-boundary form.
func (s *Session) ToLoginData(homeserverURL string) LoginData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoginData{
		HomeserverURL: homeserverURL,
		UserID:        s.userID,
		DeviceID:      s.deviceID,
		AccessToken:   s.accessToken,
		RefreshToken:  s.refreshToken,
		ExpiresAt:     s.expiresAt,
	}
}

// NewClientFromLoginData restores a Client from a previously saved
// LoginData record, skipping the login request entirely.
func NewClientFromLoginData(data LoginData, httpClient *http.Client) (*Client, error) {
	cli, err := NewClient(data.HomeserverURL, httpClient)
	if err != nil {
		return nil, err
	}
	cli.Session = Session{
		userID:       data.UserID,
		deviceID:     data.DeviceID,
		accessToken:  data.AccessToken,
		refreshToken: data.RefreshToken,
		expiresAt:    data.ExpiresAt,
	}
	return cli, nil
}

// Login authenticates against the homeserver and stores the resulting
// credentials on the client, so subsequent requests are authenticated.
func (cli *Client) Login(ctx context.Context, req *ReqLogin) (*RespLogin, error) {
	var resp RespLogin
	_, err := cli.MakeFullRequest(ctx, FullRequest{
		Method:           http.MethodPost,
		URL:              cli.BuildClientURL("v3", "login"),
		RequestJSON:      req,
		ResponseJSON:     &resp,
		SensitiveContent: req.Password != "" || req.Token != "",
		SkipAuth:         true,
	})
	if err != nil {
		return nil, err
	}
	cli.Session.storeLogin(&resp)
	return &resp, nil
}

// Logout invalidates the current access token on the homeserver. It does
// not clear the locally stored credentials.
func (cli *Client) Logout(ctx context.Context) (*RespLogout, error) {
	var resp RespLogout
	_, err := cli.MakeFullRequest(ctx, FullRequest{
		Method:       http.MethodPost,
		URL:          cli.BuildClientURL("v3", "logout"),
		ResponseJSON: &resp,
	})
	return &resp, err
}

// refresh exchanges the stored refresh token for a new access token. Callers
// that raced to refresh concurrently coalesce onto a single request: the
// first caller performs it and the rest wait on cli.Session.refreshing.
func (cli *Client) refresh(ctx context.Context) error {
	cli.Session.mu.Lock()
	if cli.Session.refreshing != nil {
		waitCh := cli.Session.refreshing
		cli.Session.mu.Unlock()
		select {
		case <-waitCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if cli.Session.refreshToken == "" {
		cli.Session.mu.Unlock()
		return ErrLoginRequired
	}
	refreshToken := cli.Session.refreshToken
	waitCh := make(chan struct{})
	cli.Session.refreshing = waitCh
	cli.Session.mu.Unlock()

	defer func() {
		cli.Session.mu.Lock()
		cli.Session.refreshing = nil
		cli.Session.mu.Unlock()
		close(waitCh)
	}()

	var resp RespRefresh
	_, err := cli.MakeFullRequest(ctx, FullRequest{
		Method:       http.MethodPost,
		URL:          cli.BuildClientURL("v3", "refresh"),
		RequestJSON:  &ReqRefresh{RefreshToken: refreshToken},
		ResponseJSON: &resp,
		MaxAttempts:  1,
		SkipAuth:     true,
	})
	if err != nil {
		return err
	}
	cli.Session.storeRefresh(&resp)
	return nil
}

// ensureAccessToken refreshes the session's access token proactively if the
// homeserver told us when it expires and that time is less than ten seconds
// away (or has passed). It does not
// guarantee the token is still valid: reactive soft-logout handling in
// withRetry is what actually recovers from an expired token the client
// didn't know to preempt. Called by MakeFullRequest before every
// authenticated dispatch, not just before Sync.
func (cli *Client) ensureAccessToken(ctx context.Context) error {
	if cli.Session.AccessToken() == "" {
		return ErrLoginRequired
	}
	if cli.Session.needsProactiveRefresh() && cli.Session.canRefresh() {
		return cli.refresh(ctx)
	}
	return nil
}

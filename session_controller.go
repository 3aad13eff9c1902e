package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// ResponseError carries a non-2xx answer from the auth API along with the
// response body, which holds the human-readable failure description.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e == nil {
		return "auth response error"
	}
	return fmt.Sprintf("auth request failed: http %d", e.Status)
}

// AuthState is a point-in-time snapshot of the session. LoginError and
// CheckError hold the last failure of their respective operation, empty when
// the operation succeeded or has not run.
type AuthState struct {
	IsLoggedIn bool
	Token      string
	LoginError string
	CheckError string
}

// SessionController drives the login flow against an auth API and tracks the
// resulting session. A cookie jar persists the token between requests the
// same way a browser would, so CheckAuth after a successful Login answers
// positively without re-sending credentials.
//
// Operations are serialized: a Login and a CheckAuth never interleave, and
// each observes the state left by the previous one.
type SessionController struct {
	mu    sync.Mutex
	state AuthState

	baseURL    string
	cookieName string
	httpClient *http.Client
	logger     Logger
	onChange   func(AuthState)
}

type SessionControllerOption func(*SessionController)

func WithSessionLogger(logger Logger) SessionControllerOption {
	return func(s *SessionController) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithSessionCookieName(name string) SessionControllerOption {
	return func(s *SessionController) {
		if name != "" {
			s.cookieName = name
		}
	}
}

func WithSessionHTTPClient(client *http.Client) SessionControllerOption {
	return func(s *SessionController) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithSessionStateListener registers a callback fired after every state
// transition. The callback runs with the controller lock held; it must not
// call back into the controller.
func WithSessionStateListener(fn func(AuthState)) SessionControllerOption {
	return func(s *SessionController) {
		s.onChange = fn
	}
}

// NewSessionController creates a controller bound to the given auth API base
// URL and immediately probes the server for an existing session, mirroring an
// app restoring its login state on startup.
func NewSessionController(baseURL string, opts ...SessionControllerOption) (*SessionController, error) {
	s := &SessionController{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: DefaultCookieName,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	if s.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		s.httpClient.Jar = jar
	}

	if err := s.CheckAuth(context.Background()); err != nil {
		s.logger.Debug("startup session probe", "error", err)
	}

	return s, nil
}

// State returns a snapshot of the current session state.
func (s *SessionController) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsLoggedIn reports whether the controller currently holds a session.
func (s *SessionController) IsLoggedIn() bool {
	return s.State().IsLoggedIn
}

// Login submits the credentials to the auth API. On success the returned
// token is kept in memory and in the cookie jar; on failure the session is
// torn down and the failure description is retained in LoginError.
func (s *SessionController) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LoginError = ""

	token, err := s.postLogin(ctx, email, password)
	if err != nil {
		s.state.IsLoggedIn = false
		s.state.Token = ""
		s.state.LoginError = failureDetail(err)
		s.notify()
		return err
	}

	s.state.IsLoggedIn = true
	s.state.Token = token
	s.persistToken(token)
	s.notify()

	return nil
}

// CheckAuth asks the server whether the cookie-held token still names a valid
// session and reconciles local state with the answer. A rejected token is not
// an error: the controller simply transitions to logged out.
func (s *SessionController) CheckAuth(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CheckError = ""

	ok, err := s.getCheckToken(ctx)
	if err != nil {
		s.state.IsLoggedIn = false
		s.state.CheckError = failureDetail(err)
		s.notify()
		return err
	}

	s.state.IsLoggedIn = ok
	if !ok {
		s.state.Token = ""
	}
	s.notify()

	return nil
}

// Logout drops the session locally. The server keeps no session state beyond
// the token itself, so there is nothing to revoke remotely.
func (s *SessionController) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsLoggedIn = false
	s.state.Token = ""
	s.persistToken("")
	s.notify()
}

func (s *SessionController) notify() {
	if s.onChange != nil {
		s.onChange(s.state)
	}
}

func (s *SessionController) postLogin(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", &ResponseError{Status: resp.StatusCode, Body: string(body)}
	}

	return strings.TrimSpace(string(body)), nil
}

func (s *SessionController) getCheckToken(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/checkToken", nil)
	if err != nil {
		return false, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

// persistToken seeds the cookie jar so the token travels on subsequent
// requests even when the server did not set the cookie itself.
func (s *SessionController) persistToken(token string) {
	if s.httpClient.Jar == nil {
		return
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		s.logger.Warn("persist token", "error", err)
		return
	}

	s.httpClient.Jar.SetCookies(u, []*http.Cookie{{
		Name:  s.cookieName,
		Value: token,
		Path:  "/",
	}})
}

// failureDetail extracts the message shown to the user: a structured
// errorMessage field when the body is JSON, else the raw body, else the
// stringified error.
func failureDetail(err error) string {
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		return err.Error()
	}

	var parsed struct {
		ErrorMessage string `json:"errorMessage"`
	}
	if jsonErr := json.Unmarshal([]byte(respErr.Body), &parsed); jsonErr == nil && parsed.ErrorMessage != "" {
		return parsed.ErrorMessage
	}

	if strings.TrimSpace(respErr.Body) != "" {
		return respErr.Body
	}

	return respErr.Error()
}

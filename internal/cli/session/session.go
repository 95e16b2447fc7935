// Package session owns the client-side authentication state: CSRF bootstrap,
// login, logout and the session check. The Controller is the only writer of
// that state; views read snapshots and call its operations.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taskdesk-dev/taskdesk/internal/cli/auth"
	"github.com/taskdesk-dev/taskdesk/internal/cli/client"
	"github.com/taskdesk-dev/taskdesk/internal/cli/userconfig"
	"github.com/taskdesk-dev/taskdesk/internal/models"
)

const (
	csrfPath   = "auth/csrf/"
	logoutPath = "auth/logout/"
	checkPath  = "auth/check/"

	// DefaultLoginPath is used when Options.LoginPath is empty
	DefaultLoginPath = "auth/login/"
)

// State is the controller's position in the session state machine
type State int

const (
	Bootstrapping State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "bootstrapping"
	}
}

// Session is a snapshot of the in-memory session.
// Authenticated implies User != nil.
type Session struct {
	Authenticated bool
	User          *models.User
	CSRFToken     string
}

// API is the part of the HTTP adapter the controller needs
type API interface {
	Send(ctx context.Context, method, path string, body, out any) error
	BaseURL() string
	CSRFToken() string
	SetCSRFToken(token string)
	OnUnauthorized(fn func())
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
}

// Mirror is the persistent, non-authoritative copy of the auth state
type Mirror interface {
	Load() (userconfig.Session, error)
	Save(s userconfig.Session) error
	Clear() error
}

// Options configures a Controller
type Options struct {
	// LoginPath is the deployment's login endpoint relative to the API root
	LoginPath string
	// Mirror receives the auth state after every transition. Optional.
	Mirror Mirror
	// Cookies persists session cookies between runs. Optional.
	Cookies auth.CookieStore
	Logger  zerolog.Logger
}

// Controller drives the session state machine
type Controller struct {
	api       API
	loginPath string
	mirror    Mirror
	cookies   auth.CookieStore
	logger    zerolog.Logger

	// opMu serializes the four operations so overlapping calls cannot race
	opMu sync.Mutex

	mu        sync.RWMutex
	state     State
	session   Session
	lastCheck CheckResult
}

// New creates a controller in the Bootstrapping state. It registers a hook on
// api so that any 401 resets the session.
func New(api API, opts Options) *Controller {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	c := &Controller{
		api:       api,
		loginPath: loginPath,
		mirror:    opts.Mirror,
		cookies:   opts.Cookies,
		logger:    opts.Logger.With().Str("component", "session").Logger(),
		state:     Bootstrapping,
	}
	api.OnUnauthorized(c.handleUnauthorized)
	return c
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns a copy of the current session
func (c *Controller) Snapshot() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// User returns the authenticated user, or nil
func (c *Controller) User() *models.User {
	return c.Snapshot().User
}

// Optimistic returns the mirrored state from the previous run. It is only a
// hint for first paint; Bootstrap overwrites it.
func (c *Controller) Optimistic() userconfig.Session {
	if c.mirror == nil {
		return userconfig.Session{}
	}
	s, err := c.mirror.Load()
	if err != nil {
		c.logger.Debug().Err(err).Msg("Failed to read session mirror")
		return userconfig.Session{}
	}
	if s.Authenticated && s.User == nil {
		return userconfig.Session{}
	}
	return s
}

// LastCheck returns the result of the most recent session check
func (c *Controller) LastCheck() CheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCheck
}

// CSRFReady reports whether a CSRF token is available for state-changing calls
func (c *Controller) CSRFReady() bool {
	c.mu.RLock()
	token := c.session.CSRFToken
	c.mu.RUnlock()
	return token != "" || c.api.CSRFToken() != ""
}

// Bootstrap restores persisted cookies, fetches a CSRF token and checks the
// session. It always completes in Authenticated or Unauthenticated and never
// reports an error; a failed CSRF fetch is logged and tolerated.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.state = Bootstrapping
	c.mu.Unlock()

	c.restoreCookies()

	if err := c.fetchCSRF(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to fetch CSRF token, continuing")
	}

	result := c.check(ctx)
	c.apply(result)

	c.logger.Debug().Str("state", c.State().String()).Msg("Bootstrap complete")
}

// RefreshCSRF fetches a fresh CSRF token
func (c *Controller) RefreshCSRF(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.fetchCSRF(ctx)
}

// Login authenticates with username and password. On failure the state is
// Unauthenticated and the error is a *LoginError.
func (c *Controller) Login(ctx context.Context, username, password string) (models.User, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.CSRFReady() {
		return models.User{}, &LoginError{Kind: NotReady, Message: "security token not loaded yet, please retry"}
	}

	var resp struct {
		User *models.User `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.api.Send(ctx, http.MethodPost, c.loginPath, body, &resp); err != nil {
		c.reset()
		return models.User{}, classifyLoginError(err)
	}

	user := resp.User
	if user == nil || user.Username == "" {
		// Some deployments answer login without the user; ask the session check.
		result := c.check(ctx)
		if result.Status != CheckAuthenticated {
			c.reset()
			msg := "login was accepted but the session could not be confirmed"
			return models.User{}, &LoginError{Kind: Unavailable, Message: msg, Err: result.Err}
		}
		user = result.Session.User
	}

	c.setAuthenticated(*user)
	c.persistCookies()
	c.logger.Info().Str("username", user.Username).Msg("Logged in")
	return *user, nil
}

// Logout ends the session. The local state is always cleared; the returned
// error only reports that the server call failed.
func (c *Controller) Logout(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	err := c.api.Send(ctx, http.MethodPost, logoutPath, nil, nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Logout request failed, clearing local session anyway")
	}

	c.reset()
	c.api.SetCookies([]*http.Cookie{{Name: client.SessionCookieName, Path: "/", MaxAge: -1}})
	if c.cookies != nil {
		if derr := c.cookies.DeleteCookies(c.api.BaseURL()); derr != nil {
			c.logger.Warn().Err(derr).Msg("Failed to delete stored session")
		}
	}

	if err != nil {
		return fmt.Errorf("failed to log out on the server: %w", err)
	}
	return nil
}

// CheckAuth asks the server whether the session is valid and applies the
// answer. "Not authenticated" is a normal result, not an error; only
// transport failures are reported as CheckTransportError.
func (c *Controller) CheckAuth(ctx context.Context) CheckResult {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	result := c.check(ctx)
	c.apply(result)
	return result
}

func (c *Controller) fetchCSRF(ctx context.Context) error {
	var resp struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.api.Send(ctx, http.MethodGet, csrfPath, nil, &resp); err != nil {
		return err
	}
	if resp.CSRFToken != "" {
		c.api.SetCSRFToken(resp.CSRFToken)
	}

	c.mu.Lock()
	c.session.CSRFToken = c.api.CSRFToken()
	c.mu.Unlock()
	return nil
}

func (c *Controller) check(ctx context.Context) CheckResult {
	var resp struct {
		Authenticated bool         `json:"authenticated"`
		User          *models.User `json:"user"`
	}
	err := c.api.Send(ctx, http.MethodGet, checkPath, nil, &resp)
	switch {
	case err == nil && resp.Authenticated && resp.User != nil:
		return CheckResult{
			Status:  CheckAuthenticated,
			Session: Session{Authenticated: true, User: resp.User, CSRFToken: c.api.CSRFToken()},
		}
	case err == nil:
		return CheckResult{Status: CheckNotAuthenticated}
	case client.ClassOf(err) == client.ClassAuth:
		// An anonymous visitor failing the check is the expected outcome.
		c.logger.Debug().Err(err).Msg("Session check: not authenticated")
		return CheckResult{Status: CheckNotAuthenticated}
	default:
		return CheckResult{Status: CheckTransportError, Err: err}
	}
}

func (c *Controller) apply(result CheckResult) {
	c.mu.Lock()
	c.lastCheck = result
	c.mu.Unlock()

	if result.Status == CheckAuthenticated {
		c.setAuthenticated(*result.Session.User)
		c.persistCookies()
		return
	}
	if result.Status == CheckTransportError {
		c.logger.Debug().Err(result.Err).Msg("Session check failed")
	}
	c.reset()
}

func (c *Controller) setAuthenticated(user models.User) {
	c.mu.Lock()
	c.state = Authenticated
	c.session = Session{Authenticated: true, User: &user, CSRFToken: c.api.CSRFToken()}
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Save(userconfig.Session{Authenticated: true, User: &user}); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update session mirror")
		}
	}
}

// reset moves to Unauthenticated, keeping a CSRF token that is still in the jar
func (c *Controller) reset() {
	c.mu.Lock()
	c.state = Unauthenticated
	c.session = Session{}
	c.mu.Unlock()
	c.clearMirror()
}

// handleUnauthorized runs inside the adapter whenever a response is 401
func (c *Controller) handleUnauthorized() {
	c.mu.Lock()
	c.session = Session{}
	if c.state == Authenticated {
		c.state = Unauthenticated
	}
	c.mu.Unlock()

	c.clearMirror()
	if c.cookies != nil {
		if err := c.cookies.DeleteCookies(c.api.BaseURL()); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to delete stored session")
		}
	}
}

func (c *Controller) clearMirror() {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to clear session mirror")
	}
}

func (c *Controller) restoreCookies() {
	if c.cookies == nil {
		return
	}
	cookies, err := c.cookies.LoadCookies(c.api.BaseURL())
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			c.logger.Warn().Err(err).Msg("Failed to load stored session")
		}
		return
	}
	c.api.SetCookies(cookies)
}

func (c *Controller) persistCookies() {
	if c.cookies == nil {
		return
	}
	if err := c.cookies.SaveCookies(c.api.BaseURL(), c.api.Cookies()); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to store session")
	}
}

func classifyLoginError(err error) *LoginError {
	var herr *client.HTTPError
	if !errors.As(err, &herr) {
		return &LoginError{Kind: Unavailable, Message: "service unavailable, check your connection", Err: err}
	}

	switch {
	case herr.Status == http.StatusBadRequest || herr.Status == http.StatusUnauthorized:
		msg := herr.Message()
		if msg == "" {
			msg = "invalid username or password"
		}
		return &LoginError{Kind: InvalidCredentials, Message: msg}
	case herr.Status == http.StatusForbidden:
		return &LoginError{Kind: StaleCSRF, Message: "security token expired, refresh and try again", Err: err}
	default:
		return &LoginError{Kind: Unavailable, Message: "service unavailable, try again later", Err: err}
	}
}

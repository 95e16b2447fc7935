package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskdesk-dev/taskdesk/internal/cli/auth"
	"github.com/taskdesk-dev/taskdesk/internal/cli/client"
	"github.com/taskdesk-dev/taskdesk/internal/cli/config"
	"github.com/taskdesk-dev/taskdesk/internal/cli/serverselect"
	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/cli/store"
	"github.com/taskdesk-dev/taskdesk/internal/cli/userconfig"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
	appconfig "github.com/taskdesk-dev/taskdesk/internal/config"
	"github.com/taskdesk-dev/taskdesk/internal/logger"
)

// Globals holds the persistent flags shared by every command
type Globals struct {
	Deployment string
	Output     string
}

// runtime is everything a command needs to talk to one deployment
type runtime struct {
	server     *config.Server
	project    *config.Config
	env        *appconfig.Config
	deployment string
	format     string

	out    io.Writer
	errOut io.Writer
	in     io.Reader

	cookies    auth.CookieStore
	mirror     session.Mirror
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// Option configures a command run
type Option func(*runtime)

// WithServer skips deployment resolution
func WithServer(s *config.Server) Option {
	return func(r *runtime) { r.server = s }
}

// WithDeployment resolves the given alias or URL
func WithDeployment(d string) Option {
	return func(r *runtime) { r.deployment = d }
}

// WithOutput redirects normal output
func WithOutput(w io.Writer) Option {
	return func(r *runtime) { r.out = w }
}

// WithErrOutput redirects warnings and prompts
func WithErrOutput(w io.Writer) Option {
	return func(r *runtime) { r.errOut = w }
}

// WithInput replaces stdin
func WithInput(in io.Reader) Option {
	return func(r *runtime) { r.in = in }
}

// WithCookieStore replaces the OS keyring
func WithCookieStore(s auth.CookieStore) Option {
	return func(r *runtime) { r.cookies = s }
}

// WithMirror replaces the user-config session mirror
func WithMirror(m session.Mirror) Option {
	return func(r *runtime) { r.mirror = m }
}

// WithHTTPClient replaces the transport
func WithHTTPClient(hc *http.Client) Option {
	return func(r *runtime) { r.httpClient = hc }
}

// WithEnv replaces the environment configuration
func WithEnv(cfg *appconfig.Config) Option {
	return func(r *runtime) { r.env = cfg }
}

// WithFormat sets the output format (table, json, yaml)
func WithFormat(f string) Option {
	return func(r *runtime) { r.format = f }
}

// WithClock fixes "now" for date-dependent output
func WithClock(now func() time.Time) Option {
	return func(r *runtime) { r.now = now }
}

func (g *Globals) options() []Option {
	if g == nil {
		return nil
	}
	return []Option{WithDeployment(g.Deployment), WithFormat(g.Output)}
}

func newRuntime(opts ...Option) (*runtime, error) {
	r := &runtime{
		out:     os.Stdout,
		errOut:  os.Stderr,
		in:      os.Stdin,
		cookies: auth.Default,
		now:     time.Now,
		logger:  logger.Component("cli"),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.env == nil {
		env, err := appconfig.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load environment: %w", err)
		}
		r.env = env
	}

	if r.server == nil {
		project, err := config.LoadFromCurrentDir()
		if err != nil && !errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if errors.Is(err, config.ErrNotFound) && r.deployment == "" && r.env.API.URL == "" {
			return nil, fmt.Errorf("failed to load config: %w\nRun 'taskdesk init <api-url>' to create a configuration file", err)
		}
		r.project = project

		server, err := serverselect.ResolveServer(project, r.deployment, serverselect.Fallback{
			URL:       r.env.API.URL,
			LoginPath: r.env.API.LoginPath,
		})
		if err != nil {
			return nil, err
		}
		r.server = server
	}

	if r.format == "" && r.project != nil {
		r.format = r.project.Output
	}

	if r.mirror == nil {
		r.mirror = userconfig.MirrorFor(r.server.URL)
	}
	return r, nil
}

func (r *runtime) outputFormat() (view.Format, error) {
	return view.ParseFormat(r.format)
}

// conn is a live connection to the selected deployment
type conn struct {
	api     *client.Client
	session *session.Controller
	store   *store.Store
}

func (r *runtime) connect() (*conn, error) {
	clientOpts := []client.Option{
		client.WithLogger(logger.Component("client")),
		client.WithTimeout(r.env.API.Timeout),
	}
	if r.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(r.httpClient))
	}
	api, err := client.New(r.server.URL, clientOpts...)
	if err != nil {
		return nil, err
	}

	ctrl := session.New(api, session.Options{
		LoginPath: r.server.Login(),
		Mirror:    r.mirror,
		Cookies:   r.cookies,
		Logger:    logger.Component("session"),
	})
	return &conn{api: api, session: ctrl, store: store.New(api)}, nil
}

// authenticated bootstraps the session and fails unless it is valid
func (r *runtime) authenticated(ctx context.Context) (*conn, error) {
	c, err := r.connect()
	if err != nil {
		return nil, err
	}
	c.session.Bootstrap(ctx)
	if c.session.State() == session.Authenticated {
		return c, nil
	}
	// An unreachable server says nothing about the stored session
	if last := c.session.LastCheck(); last.Status == session.CheckTransportError {
		return nil, fmt.Errorf("could not reach %s: %w", r.server.Alias, last.Err)
	}
	return nil, fmt.Errorf("not logged in to %s. Please run 'taskdesk login' first", r.server.Alias)
}

// describeError adds field errors and a login hint to API failures
func describeError(action string, err error) error {
	if fields := client.FieldErrors(err); len(fields) > 0 {
		return fmt.Errorf("%s:\n%s", action, strings.TrimRight(client.FormatFieldErrors(fields), "\n"))
	}
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%s: session expired. Please run 'taskdesk login' again", action)
	}
	var herr *client.HTTPError
	if errors.As(err, &herr) {
		if msg := herr.Message(); msg != "" {
			return fmt.Errorf("%s: %s", action, msg)
		}
	}
	return fmt.Errorf("%s: %w", action, err)
}

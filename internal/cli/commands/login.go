package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/taskdesk-dev/taskdesk/internal/cli/session"
	"github.com/taskdesk-dev/taskdesk/internal/cli/view"
)

// NewLoginCmd creates the login command
func NewLoginCmd(g *Globals) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a taskdesk deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), username, password, g.options()...)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (or set TASKDESK_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set TASKDESK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, username, password string, opts ...Option) error {
	r, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	// Environment credentials are for CI
	if username == "" {
		username = r.env.Credentials.Username
	}
	if password == "" {
		password = r.env.Credentials.Password
	}

	if username == "" {
		if username, err = r.promptUsername(); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = r.readPassword(); err != nil {
			return err
		}
	}

	c, err := r.connect()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Logging in to %s (%s)...\n", r.server.Alias, r.server.URL)
	c.session.Bootstrap(ctx)

	user, err := c.session.Login(ctx, username, password)
	switch session.KindOf(err) {
	case session.NotReady, session.StaleCSRF:
		// One retry with a fresh token
		r.logger.Debug().Err(err).Msg("Refreshing CSRF token before retrying login")
		if rerr := c.session.RefreshCSRF(ctx); rerr != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		user, err = c.session.Login(ctx, username, password)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintln(r.out, "✓ Login successful!")
	fmt.Fprintf(r.out, "  User: %s\n", user.Username)
	return nil
}

func (r *runtime) promptUsername() (string, error) {
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		prompt := promptui.Prompt{
			Label: "Username",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("username is required")
				}
				return nil
			},
		}
		name, err := prompt.Run()
		if err != nil {
			return "", fmt.Errorf("failed to read username: %w", err)
		}
		return strings.TrimSpace(name), nil
	}
	return "", fmt.Errorf("username is required (use --username flag or TASKDESK_USERNAME env var)")
}

func (r *runtime) readPassword() (string, error) {
	if f, ok := r.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(r.errOut, "Password: ")
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.errOut)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(bytePassword), nil
	}

	// Piped input, e.g. `echo secret | taskdesk login -u admin`
	line, err := bufio.NewReader(r.in).ReadString('\n')
	if pw := strings.TrimRight(line, "\r\n"); pw != "" {
		return pw, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or TASKDESK_PASSWORD env var)")
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context(), g.options()...)
		},
	}
}

func runLogout(ctx context.Context, opts ...Option) error {
	r, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	c, err := r.connect()
	if err != nil {
		return err
	}

	// Bootstrap restores the stored cookies and the CSRF token the logout
	// request needs. Only a definite "not authenticated" skips the request;
	// an unreachable server still gets the local session cleared.
	c.session.Bootstrap(ctx)
	if c.session.LastCheck().Status == session.CheckNotAuthenticated {
		if err := r.cookies.DeleteCookies(c.api.BaseURL()); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to delete stored session")
		}
		fmt.Fprintf(r.out, "Not logged in to %s\n", r.server.Alias)
		return nil
	}

	if err := c.session.Logout(ctx); err != nil {
		fmt.Fprintf(r.errOut, "⚠ %v\n", err)
		fmt.Fprintln(r.errOut, "  The local session was cleared anyway.")
	}
	fmt.Fprintf(r.out, "✓ Logged out of %s\n", r.server.Alias)
	return nil
}

// statusReport is the machine-readable form of `taskdesk status`
type statusReport struct {
	Deployment    string `json:"deployment" yaml:"deployment"`
	URL           string `json:"url" yaml:"url"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	Username      string `json:"username,omitempty" yaml:"username,omitempty"`
	Cached        bool   `json:"cached,omitempty" yaml:"cached,omitempty"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewStatusCmd creates the status command
func NewStatusCmd(g *Globals) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show whether you are signed in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cached, g.options()...)
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "Report the last known state without contacting the server")

	return cmd
}

func runStatus(ctx context.Context, cached bool, opts ...Option) error {
	r, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	format, err := r.outputFormat()
	if err != nil {
		return err
	}
	c, err := r.connect()
	if err != nil {
		return err
	}

	report := statusReport{Deployment: r.server.Alias, URL: r.server.URL, Cached: cached}
	if cached {
		hint := c.session.Optimistic()
		report.Authenticated = hint.Authenticated
		if hint.User != nil {
			report.Username = hint.User.Username
		}
	} else {
		c.session.Bootstrap(ctx)
		if user := c.session.User(); user != nil {
			report.Authenticated = true
			report.Username = user.Username
		}
		if last := c.session.LastCheck(); last.Status == session.CheckTransportError {
			report.Error = last.Err.Error()
		}
	}

	return view.Write(r.out, format, report, func(w io.Writer) error {
		suffix := ""
		if cached {
			suffix = " (cached)"
		}
		switch {
		case report.Authenticated:
			fmt.Fprintf(w, "Logged in to %s (%s) as %s%s\n", report.Deployment, report.URL, report.Username, suffix)
		case report.Error != "":
			fmt.Fprintf(w, "Could not reach %s (%s): %s\n", report.Deployment, report.URL, report.Error)
		default:
			fmt.Fprintf(w, "Not logged in to %s (%s)%s\n", report.Deployment, report.URL, suffix)
		}
		return nil
	})
}

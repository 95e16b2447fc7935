package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/config"
)

type initOptions struct {
	alias     string
	loginPath string
	out       io.Writer
}

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init <api-url>",
		Short: "Add a deployment to ./taskdesk.json",
		Long: `Add a deployment to ./taskdesk.json, creating the file if needed.

Examples:
  $ taskdesk init http://localhost:8000/api/
  $ taskdesk init https://ops.example.com/api/ --alias production
  $ taskdesk init https://legacy.example.com/api/ --login-path login/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.out = cmd.OutOrStdout()
			return runInitWithOptions(args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.alias, "alias", "", "Alias for the deployment (default server-N)")
	cmd.Flags().StringVar(&opts.loginPath, "login-path", "", "Login endpoint relative to the API URL (default "+config.DefaultLoginPath+")")

	return cmd
}

func runInitWithOptions(args []string, opts *initOptions) error {
	if opts == nil {
		opts = &initOptions{}
	}
	out := opts.out
	if out == nil {
		out = os.Stdout
	}

	apiURL := strings.TrimSpace(args[0])
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{Servers: []config.Server{}}
		isNewConfig = true
	}

	if existing, err := cfg.GetServerByURL(apiURL); err == nil {
		fmt.Fprintf(out, "Deployment %s already exists in %s as %q\n", apiURL, config.ConfigFileName, existing.Alias)
		return nil
	}

	alias := opts.alias
	if alias == "" {
		alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}

	cfg.Servers = append(cfg.Servers, config.Server{
		URL:       apiURL,
		Alias:     alias,
		LoginPath: opts.loginPath,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with deployment %s (%s)\n", config.ConfigFileName, apiURL, alias)
	} else {
		fmt.Fprintf(out, "✓ Added deployment %s (%s) to ./%s\n", apiURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Run 'taskdesk login' to authenticate")
	fmt.Fprintln(out, "  2. Run 'taskdesk dash' to open the dashboard")

	return nil
}

package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/config"
	"github.com/taskdesk-dev/taskdesk/internal/cli/serverselect"
	"github.com/taskdesk-dev/taskdesk/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "select-server [url-or-alias]",
		Aliases: []string{"use"},
		Short:   "Select the deployment to use for commands",
		Long: `Select the deployment to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ taskdesk select-server                              # Interactive selection
  $ taskdesk select-server http://localhost:8000/api/   # Select by URL
  $ taskdesk select-server production                   # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectServer(urlOrAlias, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runSelectServer(urlOrAlias string, out io.Writer) error {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'taskdesk init <api-url>' to create a configuration file", err)
	}

	var server *config.Server

	if urlOrAlias != "" {
		server, err = cfg.GetServerByURLOrAlias(urlOrAlias)
		if err != nil {
			return err
		}
	} else {
		server, err = serverselect.PromptServerSelection(cfg)
		if err != nil {
			return err
		}
	}

	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	fmt.Fprintf(out, "Selected deployment: %s (%s)\n", server.Alias, server.URL)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskdesk-dev/taskdesk/internal/cli/commands"
	"github.com/taskdesk-dev/taskdesk/internal/config"
	"github.com/taskdesk-dev/taskdesk/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	g := &commands.Globals{}
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "taskdesk",
		Short: "taskdesk - clients, workers and tasks from the terminal",
		Long: `taskdesk CLI - Manage the tasks, clients and workers of a taskdesk
deployment from your terminal.

Sign in with 'taskdesk login', then use the list commands or open the
interactive dashboard with 'taskdesk dash'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load environment: %w", err)
			}
			level := cfg.Logging.Level
			if debug {
				level = "debug"
			}
			logger.Init(level, cfg.Logging.Format, os.Stderr)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.Deployment, "deployment", "D", "", "Deployment alias or API URL (overrides the selected deployment)")
	rootCmd.PersistentFlags().StringVar(&g.Deployment, "server", "", "Alias for --deployment")
	_ = rootCmd.PersistentFlags().MarkHidden("server")
	rootCmd.PersistentFlags().StringVarP(&g.Output, "output", "o", "", "Output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log HTTP and session activity to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskdesk version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectServerCmd())
	rootCmd.AddCommand(commands.NewLoginCmd(g))
	rootCmd.AddCommand(commands.NewLogoutCmd(g))
	rootCmd.AddCommand(commands.NewStatusCmd(g))
	rootCmd.AddCommand(commands.NewTasksCmd(g))
	rootCmd.AddCommand(commands.NewClientsCmd(g))
	rootCmd.AddCommand(commands.NewWorkersCmd(g))
	rootCmd.AddCommand(commands.NewExportCmd(g))
	rootCmd.AddCommand(commands.NewAnalyticsCmd(g))
	rootCmd.AddCommand(commands.NewDashCmd(g))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

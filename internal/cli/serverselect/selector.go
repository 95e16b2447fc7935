// Package serverselect decides which dashboard deployment a command talks to.
package serverselect

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/taskdesk-dev/taskdesk/internal/cli/config"
	"github.com/taskdesk-dev/taskdesk/internal/cli/userconfig"
)

// Fallback is the deployment configured outside taskdesk.json (environment)
type Fallback struct {
	URL       string
	LoginPath string
}

// ResolveServer picks the deployment, first match wins:
//  1. the --deployment flag (alias, configured URL or raw URL)
//  2. the deployment remembered in the user config
//  3. TASKDESK_API_URL
//  4. the only deployment in taskdesk.json
//  5. an interactive prompt
//
// projectConfig may be nil when no taskdesk.json exists.
func ResolveServer(projectConfig *config.Config, deployment string, fallback Fallback) (*config.Server, error) {
	if projectConfig == nil {
		projectConfig = &config.Config{}
	}

	if deployment != "" {
		return fromFlag(projectConfig, deployment, fallback.LoginPath)
	}

	selectedURL, err := userconfig.GetSelectedServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if selectedURL != "" {
		if server, err := projectConfig.GetServerByURL(selectedURL); err == nil {
			return server, nil
		}
		// The remembered deployment was removed from taskdesk.json
		_ = userconfig.SetSelectedServer("")
	}

	if fallback.URL != "" {
		return adHoc(fallback.URL, "env", fallback.LoginPath)
	}

	if len(projectConfig.Servers) == 1 {
		return remember(&projectConfig.Servers[0]), nil
	}

	server, err := PromptServerSelection(projectConfig)
	if err != nil {
		return nil, err
	}
	return remember(server), nil
}

func fromFlag(projectConfig *config.Config, deployment, loginPath string) (*config.Server, error) {
	if server, err := projectConfig.GetServerByURLOrAlias(deployment); err == nil {
		return server, nil
	}
	if strings.HasPrefix(deployment, "http://") || strings.HasPrefix(deployment, "https://") {
		return adHoc(deployment, deployment, loginPath)
	}
	return nil, fmt.Errorf("deployment '%s' not found in %s", deployment, config.ConfigFileName)
}

// adHoc builds a deployment that is not listed in taskdesk.json
func adHoc(apiURL, alias, loginPath string) (*config.Server, error) {
	server := &config.Server{URL: apiURL, Alias: alias, LoginPath: loginPath}
	if err := server.Validate(); err != nil {
		return nil, err
	}
	return server, nil
}

// remember stores server as the selected deployment; failing to save is not fatal
func remember(server *config.Server) *config.Server {
	if err := userconfig.SetSelectedServer(server.URL); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save selected deployment: %v\n", err)
	}
	return server
}

// deploymentItem is one row of the selection prompt
type deploymentItem struct {
	Label  string
	Server *config.Server
}

// PromptServerSelection asks the user to pick one of the configured deployments
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no deployments configured; run 'taskdesk init' or set TASKDESK_API_URL")
	}

	items := make([]deploymentItem, 0, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		s := &projectConfig.Servers[i]
		items = append(items, deploymentItem{Label: fmt.Sprintf("%s (%s)", s.Alias, s.URL), Server: s})
	}

	prompt := promptui.Select{
		Label: "Select a deployment",
		Items: items,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ .Label | cyan }}",
			Inactive: "  {{ .Label }}",
			Selected: "{{ .Label | green }}",
		},
		Size: 10,
	}
	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("deployment selection cancelled: %w", err)
	}
	return items[index].Server, nil
}

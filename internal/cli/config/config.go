package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	ConfigFileName = "taskdesk.json"

	// DefaultLoginPath is the login endpoint relative to the API root
	DefaultLoginPath = "auth/login/"
)

// ErrNotFound is returned when no taskdesk.json exists up the directory tree
var ErrNotFound = errors.New(ConfigFileName + " not found")

// Server represents one dashboard deployment
type Server struct {
	URL   string `json:"url"`
	Alias string `json:"alias"`
	// LoginPath overrides the login endpoint; some deployments mount it at "login/"
	LoginPath string `json:"login_path,omitempty"`
}

// Login returns the effective login path for the server
func (s *Server) Login() string {
	if p := strings.TrimSpace(s.LoginPath); p != "" {
		return strings.TrimPrefix(p, "/")
	}
	return DefaultLoginPath
}

// Validate checks that the server URL is usable
func (s *Server) Validate() error {
	if strings.TrimSpace(s.URL) == "" {
		return fmt.Errorf("server %q has no url", s.Alias)
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("server %q has an invalid url: %w", s.Alias, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server %q url must be an absolute http(s) URL, got %q", s.Alias, s.URL)
	}
	return nil
}

// Config represents the CLI configuration file
type Config struct {
	Servers []Server `json:"servers"`
	// Output is the default output format for list commands (table, json, yaml)
	Output string `json:"output,omitempty"`
}

// Validate checks every server and that aliases are unique
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Servers))
	for i := range c.Servers {
		if err := c.Servers[i].Validate(); err != nil {
			return err
		}
		alias := c.Servers[i].Alias
		if alias == "" {
			continue
		}
		if seen[alias] {
			return fmt.Errorf("duplicate server alias %q", alias)
		}
		seen[alias] = true
	}
	switch c.Output {
	case "", "table", "json", "yaml":
	default:
		return fmt.Errorf("invalid output %q, must be one of: table, json, yaml", c.Output)
	}
	return nil
}

// FindConfigFile walks from the working directory up to the filesystem root
// looking for taskdesk.json
func FindConfigFile() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if filepath.Dir(dir) == dir {
			return "", fmt.Errorf("%w in %s or any parent directory", ErrNotFound, wd)
		}
	}
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadFromCurrentDir loads the nearest taskdesk.json
func LoadFromCurrentDir() (*Config, error) {
	path, err := FindConfigFile()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Save writes cfg as indented JSON; the file is meant to be committed
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) find(match func(*Server) bool) *Server {
	for i := range c.Servers {
		if match(&c.Servers[i]) {
			return &c.Servers[i]
		}
	}
	return nil
}

// GetServerByAlias returns the deployment named alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	if s := c.find(func(s *Server) bool { return s.Alias == alias }); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("deployment with alias '%s' not found", alias)
}

// GetServerByURL returns the deployment with the given API URL. A missing
// trailing slash still matches.
func (c *Config) GetServerByURL(apiURL string) (*Server, error) {
	want := strings.TrimSuffix(apiURL, "/")
	if s := c.find(func(s *Server) bool { return strings.TrimSuffix(s.URL, "/") == want }); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("deployment with url '%s' not found", apiURL)
}

// GetServerByURLOrAlias looks a deployment up by URL first, then by alias
func (c *Config) GetServerByURLOrAlias(s string) (*Server, error) {
	if server, err := c.GetServerByURL(s); err == nil {
		return server, nil
	}
	if server, err := c.GetServerByAlias(s); err == nil {
		return server, nil
	}
	return nil, fmt.Errorf("deployment '%s' not found in %s", s, ConfigFileName)
}

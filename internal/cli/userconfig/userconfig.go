package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/taskdesk-dev/taskdesk/internal/models"
)

const (
	configDirName  = "taskdesk"
	configFileName = "config.json"
)

// fileMu serializes read-modify-write cycles within the process
var fileMu sync.Mutex

// UserConfig represents the user's local configuration stored in ~/.config/taskdesk/config.json
type UserConfig struct {
	SelectedServerURL string             `json:"selected_server_url"`
	Sessions          map[string]Session `json:"sessions,omitempty"`
}

// Session is the last known authentication state for one deployment.
// It is an optimistic hint for the next start, never a source of truth.
type Session struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	UpdatedAt     time.Time    `json:"updated_at,omitempty"`
}

// GetConfigPath returns ~/.config/taskdesk/config.json
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", configDirName, configFileName), nil
}

// Load reads the user configuration. A missing file is an empty config.
func Load() (*UserConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &UserConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	return cfg, nil
}

// Save replaces the user configuration file. The write goes through a temp
// file so a concurrent reader never sees a partial document.
func Save(cfg *UserConfig) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	return nil
}

// update runs a read-modify-write cycle under fileMu
func update(fn func(cfg *UserConfig)) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	cfg, err := Load()
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(cfg)
}

// SetSelectedServer updates the selected deployment URL and saves the config
func SetSelectedServer(apiURL string) error {
	return update(func(cfg *UserConfig) {
		cfg.SelectedServerURL = apiURL
	})
}

// GetSelectedServer returns the selected deployment URL, or empty string if not set
func GetSelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.SelectedServerURL, nil
}

// Mirror persists the session hint for a single deployment
type Mirror struct {
	apiURL string
}

// MirrorFor returns the session mirror for apiURL
func MirrorFor(apiURL string) *Mirror {
	return &Mirror{apiURL: apiURL}
}

// Load returns the stored hint. A missing entry is an unauthenticated session.
func (m *Mirror) Load() (Session, error) {
	cfg, err := Load()
	if err != nil {
		return Session{}, err
	}
	return cfg.Sessions[m.apiURL], nil
}

// Save stores s as the hint for this deployment
func (m *Mirror) Save(s Session) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	return update(func(cfg *UserConfig) {
		if cfg.Sessions == nil {
			cfg.Sessions = make(map[string]Session)
		}
		cfg.Sessions[m.apiURL] = s
	})
}

// Clear removes the hint for this deployment
func (m *Mirror) Clear() error {
	return update(func(cfg *UserConfig) {
		delete(cfg.Sessions, m.apiURL)
	})
}

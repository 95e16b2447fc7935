package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestServer_Login(t *testing.T) {
	tests := []struct {
		name      string
		loginPath string
		expected  string
	}{
		{name: "default", loginPath: "", expected: "auth/login/"},
		{name: "legacy mount", loginPath: "login/", expected: "login/"},
		{name: "leading slash trimmed", loginPath: "/auth/login/", expected: "auth/login/"},
		{name: "whitespace only", loginPath: "   ", expected: "auth/login/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Server{URL: "http://localhost:8000/api/", LoginPath: tt.loginPath}
			if got := s.Login(); got != tt.expected {
				t.Errorf("Login() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		shouldError bool
	}{
		{
			name: "valid",
			cfg: Config{Servers: []Server{
				{URL: "http://localhost:8000/api/", Alias: "local"},
				{URL: "https://tasks.example.com/api/", Alias: "prod", LoginPath: "login/"},
			}},
		},
		{
			name:        "missing url",
			cfg:         Config{Servers: []Server{{Alias: "x"}}},
			shouldError: true,
		},
		{
			name:        "relative url",
			cfg:         Config{Servers: []Server{{URL: "/api/", Alias: "x"}}},
			shouldError: true,
		},
		{
			name: "duplicate alias",
			cfg: Config{Servers: []Server{
				{URL: "http://a/api/", Alias: "x"},
				{URL: "http://b/api/", Alias: "x"},
			}},
			shouldError: true,
		},
		{
			name:        "bad output",
			cfg:         Config{Output: "xml"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.shouldError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFindConfigFile_SearchesParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}
	if err := Save(filepath.Join(root, ConfigFileName), &Config{Servers: []Server{{URL: "http://localhost:8000/api/", Alias: "local"}}}); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	t.Chdir(nested)

	cfg, err := LoadFromCurrentDir()
	if err != nil {
		t.Fatalf("LoadFromCurrentDir() error: %v", err)
	}
	if len(cfg.Servers) != 1 || cfg.Servers[0].Alias != "local" {
		t.Errorf("unexpected servers: %+v", cfg.Servers)
	}
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := FindConfigFile()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestConfig_Lookup(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{URL: "http://a/api/", Alias: "alpha"},
		{URL: "http://b/api/", Alias: "beta"},
	}}

	if s, err := cfg.GetServerByURLOrAlias("beta"); err != nil || s.URL != "http://b/api/" {
		t.Errorf("lookup by alias failed: %v %v", s, err)
	}
	if s, err := cfg.GetServerByURLOrAlias("http://a/api/"); err != nil || s.Alias != "alpha" {
		t.Errorf("lookup by url failed: %v %v", s, err)
	}
	if _, err := cfg.GetServerByURLOrAlias("gamma"); err == nil {
		t.Errorf("expected error for unknown server")
	}

	// Returned pointers alias the config entries
	s, _ := cfg.GetServerByAlias("alpha")
	s.LoginPath = "login/"
	if cfg.Servers[0].LoginPath != "login/" {
		t.Errorf("expected pointer into config slice")
	}

	if s, err := cfg.GetServerByURL("http://b/api"); err != nil || s.Alias != "beta" {
		t.Errorf("lookup without trailing slash failed: %v %v", s, err)
	}
}

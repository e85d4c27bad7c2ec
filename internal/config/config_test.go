package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeConfig writes data to a config.toml in a fresh temp dir and returns a CLI pointing at it.
func writeConfig(t *testing.T, data string) *CLI {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return &CLI{Config: path}
}

func TestLoad_ValidConfig(t *testing.T) {
	cli := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[auth]
base_url = "http://auth.internal:4000"
timeout_seconds = 5
idle_connections = 50

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Auth.BaseURL != "http://auth.internal:4000" {
		t.Errorf("Auth.BaseURL = %q, want %q", cfg.Auth.BaseURL, "http://auth.internal:4000")
	}
	if cfg.Auth.Timeout() != 5*time.Second {
		t.Errorf("Auth.Timeout() = %v, want %v", cfg.Auth.Timeout(), 5*time.Second)
	}
	if cfg.Auth.IdleConnections != 50 {
		t.Errorf("Auth.IdleConnections = %d, want %d", cfg.Auth.IdleConnections, 50)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[auth]
base_url = "https://auth.example.com"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("default Server.Port = %d, want %d", cfg.Server.Port, 3000)
	}
	if cfg.Server.BodyMaxBytes != 1024*1024 {
		t.Errorf("default Server.BodyMaxBytes = %d, want %d", cfg.Server.BodyMaxBytes, 1024*1024)
	}
	if cfg.Auth.TimeoutSeconds != 10 {
		t.Errorf("default Auth.TimeoutSeconds = %d, want %d", cfg.Auth.TimeoutSeconds, 10)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("default Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(&CLI{Config: "/nonexistent/config.toml"})
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[auth\nbase_url = "))
	if err == nil {
		t.Fatal("Load() expected error for malformed TOML, got nil")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("error = %q, want mention of parse", err)
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	cli := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 8000

[auth]
base_url = "http://toml-auth:4000"

[log]
level = "info"
`)
	cli.Host = "127.0.0.1"
	cli.Port = 3100
	cli.AuthURL = "http://cli-auth:4000"
	cli.LogLevel = "debug"

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q (CLI override)", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 3100 {
		t.Errorf("Server.Port = %d, want %d (CLI override)", cfg.Server.Port, 3100)
	}
	if cfg.Auth.BaseURL != "http://cli-auth:4000" {
		t.Errorf("Auth.BaseURL = %q, want %q (CLI override)", cfg.Auth.BaseURL, "http://cli-auth:4000")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (CLI override)", cfg.Log.Level, "debug")
	}
}

func TestLoad_CLISuppliesMissingAuthURL(t *testing.T) {
	cli := writeConfig(t, "[log]\nlevel = \"warn\"\n")
	cli.AuthURL = "http://127.0.0.1:4000"

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.BaseURL != "http://127.0.0.1:4000" {
		t.Errorf("Auth.BaseURL = %q, want CLI value", cfg.Auth.BaseURL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "missing base_url",
			data:    "[log]\nlevel = \"info\"\n",
			wantErr: "auth.base_url is required",
		},
		{
			name:    "unsupported scheme",
			data:    "[auth]\nbase_url = \"ftp://auth.example.com\"\n",
			wantErr: "http or https",
		},
		{
			name:    "no host",
			data:    "[auth]\nbase_url = \"http://\"\n",
			wantErr: "no host",
		},
		{
			name:    "negative port",
			data:    "[server]\nport = -1\n[auth]\nbase_url = \"http://auth:4000\"\n",
			wantErr: "server.port",
		},
		{
			name:    "port too large",
			data:    "[server]\nport = 70000\n[auth]\nbase_url = \"http://auth:4000\"\n",
			wantErr: "server.port",
		},
		{
			name:    "negative body_max_bytes",
			data:    "[server]\nbody_max_bytes = -1\n[auth]\nbase_url = \"http://auth:4000\"\n",
			wantErr: "body_max_bytes",
		},
		{
			name:    "negative timeout",
			data:    "[auth]\nbase_url = \"http://auth:4000\"\ntimeout_seconds = -5\n",
			wantErr: "timeout_seconds",
		},
		{
			name:    "negative idle connections",
			data:    "[auth]\nbase_url = \"http://auth:4000\"\nidle_connections = -1\n",
			wantErr: "idle_connections",
		},
		{
			name:    "invalid log level",
			data:    "[auth]\nbase_url = \"http://auth:4000\"\n[log]\nlevel = \"verbose\"\n",
			wantErr: "log.level",
		},
		{
			name:    "invalid log format",
			data:    "[auth]\nbase_url = \"http://auth:4000\"\n[log]\nformat = \"xml\"\n",
			wantErr: "log.format",
		},
		{
			name:    "rate limit without rps",
			data:    "[auth]\nbase_url = \"http://auth:4000\"\n[server.rate_limit]\nenabled = true\nrequests_per_second = 0\n",
			wantErr: "requests_per_second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.data))
			if err == nil {
				t.Fatalf("Load() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_RateLimitConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[auth]
base_url = "http://auth:4000"

[server.rate_limit]
enabled = true
requests_per_second = 50.0
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Server.RateLimit.Enabled {
		t.Error("expected RateLimit.Enabled = true")
	}
	if cfg.Server.RateLimit.RequestsPerSecond != 50.0 {
		t.Errorf("RateLimit.RequestsPerSecond = %v, want 50.0", cfg.Server.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_MetricsPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		enabled bool
		wantErr string
	}{
		{"custom path", "/custom-metrics", true, ""},
		{"no leading slash", "metrics", true, "metrics.path"},
		{"auth prefix", "/v1/auth", true, "conflicts"},
		{"under auth prefix", "/v1/auth/metrics", true, "conflicts"},
		{"healthz", "/healthz", true, "conflicts"},
		{"gateway status", "/gateway/status", true, "conflicts"},
		{"disabled skips validation", "bad-no-slash", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "[auth]\nbase_url = \"http://auth:4000\"\n\n[metrics]\n"
			if tt.enabled {
				data += "enabled = true\n"
			}
			data += "path = \"" + tt.path + "\"\n"

			cfg, err := Load(writeConfig(t, data))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				if cfg.Metrics.Path != tt.path {
					t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, tt.path)
				}
				return
			}
			if err == nil {
				t.Fatalf("Load() expected error for metrics.path=%q, got nil", tt.path)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestWarnPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits not meaningful on Windows")
	}

	tests := []struct {
		name     string
		mode     os.FileMode
		wantWarn bool
	}{
		{"loose", 0o644, true},
		{"strict", 0o600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("# test"), tt.mode); err != nil {
				t.Fatal(err)
			}
			if err := os.Chmod(path, tt.mode); err != nil {
				t.Fatal(err)
			}

			cfg := &Config{filePath: path}
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
			cfg.WarnPermissions(logger)

			gotWarn := strings.Contains(buf.String(), "readable by group/others")
			if gotWarn != tt.wantWarn {
				t.Errorf("warned = %v, want %v (output %q)", gotWarn, tt.wantWarn, buf.String())
			}
		})
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	path1 := filepath.Join(dir1, "config.toml")
	path2 := filepath.Join(dir2, "config.toml")
	for _, p := range []string{path1, path2} {
		if err := os.WriteFile(p, []byte("[auth]\nbase_url = \"http://auth:4000\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if got := findConfigInPaths([]string{path1, path2}); got != path1 {
		t.Errorf("findConfigInPaths() = %q, want first match %q", got, path1)
	}
	if got := findConfigInPaths([]string{"/nonexistent/a.toml", path2}); got != path2 {
		t.Errorf("findConfigInPaths() = %q, want %q", got, path2)
	}
	if got := findConfigInPaths([]string{"/nonexistent/a.toml"}); got != "" {
		t.Errorf("findConfigInPaths() = %q, want empty", got)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	sc := &ServerConfig{Host: "127.0.0.1", Port: 3000}
	want := "127.0.0.1:3000"
	if got := sc.Addr(); got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
}

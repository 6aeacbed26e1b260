package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Theme != "default" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "default")
	}
	if cfg.Explorer.LoadPolicy != "lazy" {
		t.Errorf("Explorer.LoadPolicy = %q, want %q", cfg.Explorer.LoadPolicy, "lazy")
	}
	if cfg.Explorer.SelectLimit != 200 {
		t.Errorf("Explorer.SelectLimit = %d, want %d", cfg.Explorer.SelectLimit, 200)
	}
	if cfg.Explorer.MetadataTimeout() != 0 {
		t.Errorf("Explorer.MetadataTimeout() = %v, want 0 (use built-in default)", cfg.Explorer.MetadataTimeout())
	}
	if cfg.Editor.TabSize != 4 {
		t.Errorf("Editor.TabSize = %d, want %d", cfg.Editor.TabSize, 4)
	}
	if cfg.Results.PageSize != 1000 {
		t.Errorf("Results.PageSize = %d, want %d", cfg.Results.PageSize, 1000)
	}
	if len(cfg.Servers) != 0 {
		t.Errorf("Servers length = %d, want 0", len(cfg.Servers))
	}
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `theme: monokai
explorer:
  load_policy: eager
  schema_filter: hr
  timeout_seconds: 30
  select_limit: 500
editor:
  tab_size: 2
  show_line_numbers: false
servers:
  - name: prod
    driver: sqlserver
    host: db.example.com
    port: 1433
    user: admin
    password: secret
    database: production
  - name: localfile
    driver: sqlite
    file: /tmp/test.db
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Theme != "monokai" {
		t.Errorf("Theme = %q, want %q", cfg.Theme, "monokai")
	}
	if cfg.Explorer.LoadPolicy != "eager" {
		t.Errorf("Explorer.LoadPolicy = %q, want %q", cfg.Explorer.LoadPolicy, "eager")
	}
	if cfg.Explorer.SchemaFilter != "hr" {
		t.Errorf("Explorer.SchemaFilter = %q, want %q", cfg.Explorer.SchemaFilter, "hr")
	}
	if cfg.Explorer.MetadataTimeout() != 30*time.Second {
		t.Errorf("Explorer.MetadataTimeout() = %v, want 30s", cfg.Explorer.MetadataTimeout())
	}
	if cfg.Editor.TabSize != 2 {
		t.Errorf("Editor.TabSize = %d, want %d", cfg.Editor.TabSize, 2)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("Servers length = %d, want 2", len(cfg.Servers))
	}

	sv := cfg.Servers[0]
	if sv.Name != "prod" || sv.Driver != "sqlserver" || sv.Host != "db.example.com" ||
		sv.Port != 1433 || sv.User != "admin" || sv.Password != "secret" || sv.Database != "production" {
		t.Errorf("Servers[0] fields mismatch: %+v", sv)
	}
	if cfg.Servers[1].File != "/tmp/test.db" {
		t.Errorf("Servers[1].File = %q, want %q", cfg.Servers[1].File, "/tmp/test.db")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing file", err)
	}
	if cfg.Theme != "default" || cfg.Explorer.LoadPolicy != "lazy" {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("theme: [unclosed"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Theme = "light"
	cfg.Explorer.LoadPolicy = "eager"
	cfg.Servers = append(cfg.Servers, SavedServer{
		Name: "dev", Driver: "postgres", DSN: "postgres://localhost/dev",
	})

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Theme != "light" || got.Explorer.LoadPolicy != "eager" {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if len(got.Servers) != 1 || got.Servers[0].DSN != "postgres://localhost/dev" {
		t.Errorf("round trip lost servers: %+v", got.Servers)
	}
}

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		sv   SavedServer
		want string
	}{
		{
			name: "explicit DSN wins",
			sv:   SavedServer{Driver: "postgres", DSN: "postgres://x/y", Host: "ignored"},
			want: "postgres://x/y",
		},
		{
			name: "sqlite uses file",
			sv:   SavedServer{Driver: "sqlite", File: "/data/app.db"},
			want: "/data/app.db",
		},
		{
			name: "network driver full",
			sv:   SavedServer{Driver: "sqlserver", Host: "db", Port: 1433, User: "sa", Password: "pw", Database: "app"},
			want: "sqlserver://sa:pw@db:1433/app",
		},
		{
			name: "defaults to localhost",
			sv:   SavedServer{Driver: "mysql", Database: "app"},
			want: "mysql://localhost/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sv.BuildDSN(); got != tt.want {
				t.Errorf("BuildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplayString(t *testing.T) {
	sv := SavedServer{Driver: "sqlserver", Host: "db", Port: 1433, Database: "app"}
	if got := sv.DisplayString(); got != "sqlserver://db:1433/app" {
		t.Errorf("DisplayString() = %q", got)
	}
	file := SavedServer{Driver: "sqlite", File: "/tmp/a.db"}
	if got := file.DisplayString(); got != "sqlite:///tmp/a.db" {
		t.Errorf("DisplayString() = %q", got)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Runner.TimeoutSeconds != 600 {
		t.Errorf("Expected TimeoutSeconds to be 600, got %d", cfg.Runner.TimeoutSeconds)
	}
	if cfg.Runner.MaxOutputBytes != 8<<20 {
		t.Errorf("Expected MaxOutputBytes to be 8 MiB, got %d", cfg.Runner.MaxOutputBytes)
	}
	if cfg.Log.Verbose {
		t.Error("Expected Verbose to be false")
	}
	if cfg.History.Enabled {
		t.Error("Expected history to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workspace.Root = "/ws"

	if got := cfg.ModulePath(); got != filepath.Join("/ws", "modules", "lang", "swift") {
		t.Errorf("ModulePath() = %s", got)
	}
	if got := cfg.SandboxPath(); got != filepath.Join("/ws", "zephyr-sandbox") {
		t.Errorf("SandboxPath() = %s", got)
	}

	cfg.Workspace.Module = "/elsewhere/pkg"
	cfg.Workspace.ZephyrSandbox = "/elsewhere/west"
	if got := cfg.ModulePath(); got != "/elsewhere/pkg" {
		t.Errorf("ModulePath() = %s, want explicit module", got)
	}
	if got := cfg.SandboxPath(); got != "/elsewhere/west" {
		t.Errorf("SandboxPath() = %s, want explicit sandbox", got)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvWorkspaceRoot: "/env/ws",
		EnvModule:        "/env/module",
		EnvVerbose:       "true",
	}
	cfg := DefaultConfig()
	if err := ApplyEnv(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Workspace.Root != "/env/ws" {
		t.Errorf("Root = %s, want /env/ws", cfg.Workspace.Root)
	}
	if cfg.ModulePath() != "/env/module" {
		t.Errorf("ModulePath() = %s, want /env/module", cfg.ModulePath())
	}
	if cfg.SandboxPath() != filepath.Join("/env/ws", "zephyr-sandbox") {
		t.Errorf("SandboxPath() = %s, want derived from env root", cfg.SandboxPath())
	}
	if !cfg.Log.Verbose {
		t.Error("Expected Verbose to be set from env")
	}

	// Unparseable booleans are reported and leave the value unchanged
	cfg.Log.Verbose = false
	err := ApplyEnv(cfg, func(k string) string {
		if k == EnvVerbose {
			return "yes"
		}
		return ""
	})
	if err == nil || !strings.Contains(err.Error(), EnvVerbose) {
		t.Errorf("expected error naming %s, got %v", EnvVerbose, err)
	}
	if cfg.Log.Verbose {
		t.Error("Invalid verbose value should not change the config")
	}
}

func TestLoadRejectsInvalidVerboseEnv(t *testing.T) {
	t.Setenv(EnvWorkspaceRoot, "")
	t.Setenv(EnvModule, "")
	t.Setenv(EnvZephyrSandbox, "")
	t.Setenv(EnvVerbose, "loud")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), EnvVerbose) {
		t.Errorf("expected error naming %s, got %v", EnvVerbose, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "empty root", mutate: func(c *Config) { c.Workspace.Root = " " }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Runner.TimeoutSeconds = -1 }, wantErr: true},
		{name: "zero timeout disables", mutate: func(c *Config) { c.Runner.TimeoutSeconds = 0 }},
		{name: "negative output bound", mutate: func(c *Config) { c.Runner.MaxOutputBytes = -5 }, wantErr: true},
		{name: "zero max days", mutate: func(c *Config) { c.Log.MaxDays = 0 }, wantErr: true},
		{
			name: "history without path",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.DBPath = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvWorkspaceRoot, "")
	t.Setenv(EnvModule, "")
	t.Setenv(EnvZephyrSandbox, "")
	t.Setenv(EnvVerbose, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Runner.TimeoutSeconds != 600 {
		t.Errorf("Expected default timeout, got %d", cfg.Runner.TimeoutSeconds)
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv(EnvWorkspaceRoot, "")
	t.Setenv(EnvModule, "")
	t.Setenv(EnvZephyrSandbox, "")
	t.Setenv(EnvVerbose, "")

	path := filepath.Join(t.TempDir(), "config", "config.yaml")

	cfg := DefaultConfig()
	cfg.Workspace.Root = "/saved/ws"
	cfg.Runner.TimeoutSeconds = 30

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("Config file not created")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if loaded.Workspace.Root != "/saved/ws" {
		t.Errorf("Root mismatch: got %s", loaded.Workspace.Root)
	}
	if loaded.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", loaded.Timeout())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
workspace:
  root: /from/file
tools:
  swift_analyze_memory:
    source_file: Sources/App/main.swift
    optimization_level: size
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvWorkspaceRoot, "/from/env")
	t.Setenv(EnvModule, "")
	t.Setenv(EnvZephyrSandbox, "")
	t.Setenv(EnvVerbose, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Workspace.Root != "/from/env" {
		t.Errorf("Root = %s, want env override", cfg.Workspace.Root)
	}

	preset, ok := cfg.Tools["swift_analyze_memory"]
	if !ok {
		t.Fatal("expected swift_analyze_memory preset")
	}
	var params struct {
		SourceFile string `yaml:"source_file"`
	}
	if err := preset.Decode(&params); err != nil {
		t.Fatalf("Decode preset: %v", err)
	}
	if params.SourceFile != "Sources/App/main.swift" {
		t.Errorf("SourceFile = %s", params.SourceFile)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workspace: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Runner.TimeoutSeconds = 0
	out := cfg.String()

	if !strings.Contains(out, "Timeout: disabled") {
		t.Errorf("String() should report disabled timeout:\n%s", out)
	}
	if !strings.Contains(out, "History: disabled") {
		t.Errorf("String() should report disabled history:\n%s", out)
	}
}

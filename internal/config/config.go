package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvWorkspaceRoot = "WORKSPACE_ROOT"
	EnvModule        = "SWIFT_ZEPHYR_MODULE"
	EnvZephyrSandbox = "ZEPHYR_SANDBOX"
	EnvVerbose       = "SWIFT_MCP_VERBOSE"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Config application configuration structure
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Runner    RunnerConfig    `yaml:"runner"`
	Log       LogConfig       `yaml:"log"`
	History   HistoryConfig   `yaml:"history"`

	// Tools holds per-tool parameter presets, keyed by tool name. They are
	// decoded onto the tool's defaults when it is called.
	Tools map[string]yaml.Node `yaml:"tools,omitempty"`
}

// WorkspaceConfig locates the Swift package and the Zephyr sandbox
type WorkspaceConfig struct {
	Root          string `yaml:"root"`
	Module        string `yaml:"module"`         // Swift Zephyr module, defaults to <root>/modules/lang/swift
	ZephyrSandbox string `yaml:"zephyr_sandbox"` // west workspace, defaults to <root>/zephyr-sandbox
}

// RunnerConfig bounds child processes
type RunnerConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`  // 0 disables the timeout
	MaxOutputBytes int `yaml:"max_output_bytes"` // per stream, 0 means unbounded
}

// LogConfig logging configuration
type LogConfig struct {
	Verbose bool   `yaml:"verbose"`
	Dir     string `yaml:"dir"`
	MaxDays int    `yaml:"max_days"`
	Console bool   `yaml:"console"`
}

// HistoryConfig invocation history configuration
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Workspace: WorkspaceConfig{
			Root: filepath.Join(homeDir, "workspace"),
		},
		Runner: RunnerConfig{
			TimeoutSeconds: 600,
			MaxOutputBytes: 8 << 20,
		},
		Log: LogConfig{
			Verbose: false,
			Dir:     LogDir(),
			MaxDays: 7,
			Console: true,
		},
		History: HistoryConfig{
			Enabled: false,
			DBPath:  filepath.Join(homeDir, ".swift-mcp-server", "history.db"),
		},
	}
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from path (the default config path when empty),
// applies environment overrides and validates the result. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with the non-empty environment values returned by
// getenv. A malformed boolean is an error rather than being ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvWorkspaceRoot); v != "" {
		cfg.Workspace.Root = v
	}
	if v := getenv(EnvModule); v != "" {
		cfg.Workspace.Module = v
	}
	if v := getenv(EnvZephyrSandbox); v != "" {
		cfg.Workspace.ZephyrSandbox = v
	}
	if v := getenv(EnvVerbose); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: %s=%q is not a boolean (use true/false, 1/0)", EnvVerbose, v)
		}
		cfg.Log.Verbose = b
	}
	return nil
}

// Save saves configuration to path (the default config path when empty)
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# swift-mcp-server configuration\n# Environment: WORKSPACE_ROOT, SWIFT_ZEPHYR_MODULE, ZEPHYR_SANDBOX, SWIFT_MCP_VERBOSE\n\n" + string(data)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Workspace.Root) == "" {
		return fmt.Errorf("config error: workspace.root cannot be empty")
	}
	if c.Runner.TimeoutSeconds < 0 {
		return fmt.Errorf("config error: runner.timeout_seconds cannot be negative")
	}
	if c.Runner.MaxOutputBytes < 0 {
		return fmt.Errorf("config error: runner.max_output_bytes cannot be negative")
	}
	if c.Log.MaxDays <= 0 {
		return fmt.Errorf("config error: log.max_days must be greater than 0")
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("config error: history.db_path cannot be empty when history is enabled")
	}
	return nil
}

// ModulePath returns the Swift Zephyr module directory
func (c *Config) ModulePath() string {
	if c.Workspace.Module != "" {
		return c.Workspace.Module
	}
	return filepath.Join(c.Workspace.Root, "modules", "lang", "swift")
}

// SandboxPath returns the Zephyr west workspace directory
func (c *Config) SandboxPath() string {
	if c.Workspace.ZephyrSandbox != "" {
		return c.Workspace.ZephyrSandbox
	}
	return filepath.Join(c.Workspace.Root, "zephyr-sandbox")
}

// Timeout returns the per-process timeout, zero when disabled
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Runner.TimeoutSeconds) * time.Second
}

// String returns string representation of config
func (c *Config) String() string {
	timeout := "disabled"
	if c.Runner.TimeoutSeconds > 0 {
		timeout = c.Timeout().String()
	}
	history := "disabled"
	if c.History.Enabled {
		history = c.History.DBPath
	}

	return fmt.Sprintf(`swift-mcp-server Configuration:
  Workspace:
    Root: %s
    Swift Module: %s
    Zephyr Sandbox: %s
  Runner:
    Timeout: %s
    Max Output Bytes: %d
  Log:
    Verbose: %v
    Dir: %s
    Max Days: %d
  History: %s
  Tool Presets: %d`,
		c.Workspace.Root,
		c.ModulePath(),
		c.SandboxPath(),
		timeout,
		c.Runner.MaxOutputBytes,
		c.Log.Verbose,
		c.Log.Dir,
		c.Log.MaxDays,
		history,
		len(c.Tools),
	)
}

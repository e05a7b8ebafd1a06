package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zephyr-swift/swift-mcp-server/internal/cli"
	"github.com/zephyr-swift/swift-mcp-server/internal/config"
	"github.com/zephyr-swift/swift-mcp-server/internal/history"
	"github.com/zephyr-swift/swift-mcp-server/internal/logger"
	"github.com/zephyr-swift/swift-mcp-server/internal/runner"
	"github.com/zephyr-swift/swift-mcp-server/internal/tools"
)

var (
	version = cli.Version
)

// flags shared by all commands
type flags struct {
	configPath    string
	workspaceRoot string
	module        string
	verbose       bool
	interactive   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "swift-mcp-server",
		Short: "Swift toolchain command shim for Zephyr development",
		Long: `swift-mcp-server reads commands line by line from standard input and runs
Swift and Zephyr toolchain operations on your workspace.

Commands:
  list_tools            List registered tools
  call_tool <name>      Run a tool with its configured parameters
  quit                  Exit`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if err := initLogger(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			logConfigInfo(cfg)
			return serve(cmd, cfg, f.interactive)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "config file (default ./config/config.yaml)")
	pf.StringVar(&f.workspaceRoot, "workspace-root", "", "workspace root (overrides "+config.EnvWorkspaceRoot+")")
	pf.StringVar(&f.module, "swift-zephyr-module", "", "Swift Zephyr package directory (overrides "+config.EnvModule+")")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "interactive prompt with completion")

	rootCmd.AddCommand(newConfigCmd(f))
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newDoctorCmd(f))
	rootCmd.AddCommand(newHistoryCmd(f))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// serve runs the dispatcher until quit, end of input or a signal
func serve(cmd *cobra.Command, cfg *config.Config, interactive bool) error {
	log := logger.L()

	registry := tools.NewDefaultRegistry()
	presets, err := tools.NewPresets(cfg.Tools, registry)
	if err != nil {
		return fmt.Errorf("failed to load tool presets: %w", err)
	}

	r := runner.New(
		runner.WithTimeout(cfg.Timeout()),
		runner.WithMaxOutputBytes(cfg.Runner.MaxOutputBytes),
		runner.WithLogger(log.With().Str("component", "runner").Logger()),
	)
	toolchain := tools.NewToolchain(r, cfg.ModulePath(), cfg.SandboxPath(),
		log.With().Str("component", "toolchain").Logger())

	opts := []cli.Option{
		cli.WithPresets(presets),
		cli.WithLogger(log.With().Str("component", "dispatcher").Logger()),
	}
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize history store: %w", err)
		}
		defer store.Close()
		opts = append(opts, cli.WithRecorder(store))
	}

	var src cli.LineSource = cli.NewReaderSource(cmd.InOrStdin())
	if interactive {
		src = cli.NewPromptSource(registry)
	}

	server := cli.NewServer(registry, toolchain, cmd.OutOrStdout(), opts...)
	return server.Run(cmd.Context(), src)
}

func newConfigCmd(f *flags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cfg.String())
			fmt.Fprintf(out, "\nConfig file path: %s\n", configFilePath(f))
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFilePath(f)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
			}
			if err := config.Save(config.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List tools and their parameters",
		Run: func(cmd *cobra.Command, args []string) {
			printTools(cmd.OutOrStdout(), tools.NewDefaultRegistry())
		},
	}
}

func newDoctorCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the Swift and Zephyr toolchains are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}

			r := runner.New(runner.WithTimeout(cfg.Timeout()), runner.WithMaxOutputBytes(64<<10))
			results := tools.Doctor(cmd.Context(), r, "", tools.DefaultProbes())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Swift module:   %s%s\n", cfg.ModulePath(), dirStatus(cfg.ModulePath()))
			fmt.Fprintf(out, "Zephyr sandbox: %s%s\n\n", cfg.SandboxPath(), dirStatus(cfg.SandboxPath()))

			missing := printProbes(out, results)
			if missing > 0 {
				return fmt.Errorf("%d toolchain binaries unavailable", missing)
			}
			return nil
		},
	}
}

func newHistoryCmd(f *flags) *cobra.Command {
	var limit int
	var tool string
	var clearAll bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled (set history.enabled in %s)", configFilePath(f))
			}

			store, err := history.NewSQLiteStore(cfg.History.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if clearAll {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(out, "History cleared")
				return nil
			}

			var invocations []*history.Invocation
			if tool != "" {
				invocations, err = store.ByTool(tool, limit)
			} else {
				invocations, err = store.Recent(limit)
			}
			if err != nil {
				return err
			}
			printHistory(out, invocations)
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of invocations to show")
	historyCmd.Flags().StringVar(&tool, "tool", "", "only show this tool")
	historyCmd.Flags().BoolVar(&clearAll, "clear", false, "delete all recorded invocations")
	return historyCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "swift-mcp-server v%s\n", version)
		},
	}
}

// loadConfig loads the config file and environment, then applies flags
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg, f)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags overrides cfg with explicitly set flags
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *flags) {
	flagSet := cmd.Flags()
	if flagSet.Changed("workspace-root") {
		cfg.Workspace.Root = f.workspaceRoot
	}
	if flagSet.Changed("swift-zephyr-module") {
		cfg.Workspace.Module = f.module
	}
	if flagSet.Changed("verbose") {
		cfg.Log.Verbose = f.verbose
	}
}

func configFilePath(f *flags) string {
	if f.configPath != "" {
		return f.configPath
	}
	path, _ := config.ConfigPath()
	return path
}

// initLogger sends logs to stderr and the log directory, never stdout
func initLogger(cfg *config.Config, stderr io.Writer) error {
	err := logger.Init(logger.Config{
		LogDir:     cfg.Log.Dir,
		Level:      logger.LevelFor(cfg.Log.Verbose),
		MaxDays:    cfg.Log.MaxDays,
		ConsoleOut: cfg.Log.Console,
		Console:    stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// logConfigInfo logs the effective configuration
func logConfigInfo(cfg *config.Config) {
	logger.L().Info().
		Str("version", version).
		Str("module", cfg.ModulePath()).
		Str("sandbox", cfg.SandboxPath()).
		Dur("timeout", cfg.Timeout()).
		Int("max_output_bytes", cfg.Runner.MaxOutputBytes).
		Bool("history", cfg.History.Enabled).
		Int("presets", len(cfg.Tools)).
		Msg("starting server")
}

func printTools(w io.Writer, registry *tools.Registry) {
	for _, tool := range registry.List() {
		fmt.Fprintf(w, "%s\n  %s\n", tool.Name, tool.Description)
		if len(tool.Parameters) == 0 {
			fmt.Fprintln(w)
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, p := range tool.Parameters {
			attr := p.Type
			if p.Required {
				attr += ", required"
			}
			if p.Default != "" {
				attr += ", default " + p.Default
			}
			fmt.Fprintf(tw, "    %s\t(%s)\t%s\n", p.Name, attr, p.Description)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
}

// printProbes prints probe results and returns how many are unavailable
func printProbes(w io.Writer, results []tools.ProbeResult) int {
	missing := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range results {
		if r.Available {
			fmt.Fprintf(tw, "[ok]\t%s\t%s\n", r.Name, r.Version)
		} else {
			missing++
			fmt.Fprintf(tw, "[missing]\t%s\t%s\n", r.Name, r.Detail)
		}
	}
	tw.Flush()
	return missing
}

func printHistory(w io.Writer, invocations []*history.Invocation) {
	if len(invocations) == 0 {
		fmt.Fprintln(w, "No invocations recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTOOL\tSTATUS\tDURATION")
	for _, inv := range invocations {
		status := "ok"
		if !inv.Success {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			inv.StartedAt.Local().Format("2006-01-02 15:04:05"), inv.Tool, status, inv.Duration)
	}
	tw.Flush()
}

func dirStatus(path string) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return " (missing)"
	case !info.IsDir():
		return " (not a directory)"
	default:
		return ""
	}
}

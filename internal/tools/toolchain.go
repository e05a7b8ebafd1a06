package tools

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/zephyr-swift/swift-mcp-server/internal/runner"
)

// Executor runs an operation and reports its result
type Executor interface {
	Execute(ctx context.Context, op Operation) Result
}

// Toolchain maps operations onto Swift and west command lines
type Toolchain struct {
	runner  runner.Runner
	module  string // Swift Zephyr package directory
	sandbox string // Zephyr west workspace
	log     zerolog.Logger
}

// NewToolchain creates a Toolchain running Swift commands in module and west
// commands in sandbox.
func NewToolchain(r runner.Runner, module, sandbox string, log zerolog.Logger) *Toolchain {
	return &Toolchain{runner: r, module: module, sandbox: sandbox, log: log}
}

// Execute validates op and runs it. Every failure is reported in the Result.
func (t *Toolchain) Execute(ctx context.Context, op Operation) Result {
	if err := op.Validate(); err != nil {
		t.log.Warn().Str("tool", op.ToolName()).Err(err).Msg("invalid parameters")
		return Failure("%v", err)
	}

	switch op := op.(type) {
	case *BuildParams:
		return t.buildPackage(ctx, op)
	case *TestParams:
		return t.runTests(ctx, op)
	case *UpdateParams:
		return t.updateDependencies(ctx)
	case *BindingsParams:
		return t.generateBindings(ctx, op)
	case *ValidateParams:
		return t.validateCompatibility(ctx, op)
	case *MemoryParams:
		return t.analyzeMemory(ctx, op)
	case *ConcurrencyParams:
		return t.checkConcurrency(ctx, op)
	case *FormatParams:
		return t.formatCode(ctx, op)
	case *LintParams:
		return t.lintCode(ctx, op)
	case *DocsParams:
		return t.generateDocs(ctx, op)
	case *GenerateFileParams:
		return t.generateFile(op)
	case *ZephyrBuildParams:
		return t.zephyrBuild(ctx, op)
	case *SizeReportParams:
		return t.zephyrSizeReport(ctx, op)
	case *ZephyrCleanParams:
		return t.zephyrClean(ctx, op)
	default:
		return Failure("unsupported operation %T", op)
	}
}

// ========== Swift package management ==========

func (t *Toolchain) buildPackage(ctx context.Context, p *BuildParams) Result {
	t.log.Info().Str("configuration", p.Configuration).Msg("building Swift package")

	args := []string{"swift", "build", "--configuration", p.Configuration}
	if p.Target != "" {
		args = append(args, "--target", p.Target)
	}
	if p.Embedded {
		args = append(args, "-Xswiftc", "-enable-experimental-feature", "-Xswiftc", "Embedded")
	}
	return fromOutcome(t.inModule(ctx, args...))
}

func (t *Toolchain) runTests(ctx context.Context, p *TestParams) Result {
	t.log.Info().Msg("running Swift package tests")

	args := []string{"swift", "test"}
	if p.Target != "" {
		args = append(args, "--target", p.Target)
	}
	if p.Filter != "" {
		args = append(args, "--filter", p.Filter)
	}
	return fromOutcome(t.inModule(ctx, args...))
}

func (t *Toolchain) updateDependencies(ctx context.Context) Result {
	t.log.Info().Msg("updating Swift package dependencies")
	return fromOutcome(t.inModule(ctx, "swift", "package", "update"))
}

// ========== Zephyr integration ==========

func (t *Toolchain) generateBindings(ctx context.Context, p *BindingsParams) Result {
	t.log.Info().Str("module", p.Module).Msg("generating Swift bindings for Zephyr module")

	outputDir := p.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(t.module, "Sources", "ZephyrBindings")
	}
	return fromOutcome(t.inModule(ctx,
		"swift", "run", "binding-generator",
		"--module", p.Module,
		"--output", outputDir,
	))
}

func (t *Toolchain) validateCompatibility(ctx context.Context, p *ValidateParams) Result {
	t.log.Info().Str("source_file", p.SourceFile).Msg("validating Zephyr compatibility")

	args := []string{"swift", "frontend", "-typecheck", p.SourceFile}
	if p.EmbeddedMode {
		args = append(args, "-enable-experimental-feature", "Embedded")
	}
	out := t.inModule(ctx, args...)
	return Result{
		Success: out.Success(),
		Output:  "Validation " + passedOrFailed(out),
		Error:   out.Stderr,
	}
}

// ========== Code analysis ==========

func (t *Toolchain) analyzeMemory(ctx context.Context, p *MemoryParams) Result {
	t.log.Info().Str("source_file", p.SourceFile).Msg("analyzing memory usage")

	out := t.inModule(ctx,
		"swift", "frontend", "-emit-sil",
		p.flag(),
		"-enable-experimental-feature", "Embedded",
		p.SourceFile,
	)
	return Result{
		Success: out.Success(),
		Output:  AnalyzeSIL(out.Stdout).Report(),
		Error:   out.Stderr,
	}
}

func (t *Toolchain) checkConcurrency(ctx context.Context, p *ConcurrencyParams) Result {
	t.log.Info().Str("source_file", p.SourceFile).Msg("checking concurrency compliance")

	args := []string{"swift", "frontend", "-typecheck", p.SourceFile}
	if p.StrictMode {
		args = append(args, "-strict-concurrency=complete")
	}
	out := t.inModule(ctx, args...)
	return Result{
		Success: out.Success(),
		Output:  "Concurrency check " + passedOrFailed(out),
		Error:   out.Stderr,
	}
}

// ========== Development tools ==========

func (t *Toolchain) formatCode(ctx context.Context, p *FormatParams) Result {
	t.log.Info().Str("source_file", p.SourceFile).Msg("formatting Swift code")

	args := []string{"swift-format", "--configuration", filepath.Join(t.module, ".swift-format")}
	if p.InPlace {
		args = append(args, "--in-place")
	}
	args = append(args, p.SourceFile)
	return fromOutcome(t.inModule(ctx, args...))
}

func (t *Toolchain) lintCode(ctx context.Context, p *LintParams) Result {
	t.log.Info().Str("source_file", p.SourceFile).Msg("linting Swift code")

	args := []string{"swiftlint", "lint"}
	if p.EmbeddedRules {
		args = append(args, "--config", filepath.Join(t.module, ".swiftlint-embedded.yml"))
	}
	args = append(args, p.SourceFile)
	return fromOutcome(t.inModule(ctx, args...))
}

func (t *Toolchain) generateDocs(ctx context.Context, p *DocsParams) Result {
	t.log.Info().Str("format", p.OutputFormat).Msg("generating documentation")

	args := []string{"swift", "package", "generate-documentation"}
	if p.OutputFormat == "docc" {
		if p.Target != "" {
			args = append(args, "--target", p.Target)
		}
	} else {
		args = append(args, "--output-format", p.OutputFormat)
	}
	return fromOutcome(t.inModule(ctx, args...))
}

func (t *Toolchain) generateFile(p *GenerateFileParams) Result {
	path := filepath.Join(t.module, "Sources", swiftFileName(p.FileName))
	t.log.Info().Str("path", path).Msg("generating Swift file")

	content := RenderSwiftFile(p.Imports, p.Types, p.Protocols)
	if err := writeFileAtomic(path, []byte(content), 0644); err != nil {
		t.log.Error().Err(err).Str("path", path).Msg("failed to write Swift file")
		return Failure("Failed to write file: %v", err)
	}
	return Result{Success: true, Output: "Generated Swift file: " + path}
}

// ========== Zephyr west ==========

func (t *Toolchain) zephyrBuild(ctx context.Context, p *ZephyrBuildParams) Result {
	t.log.Info().Str("app", p.AppPath).Str("board", p.Board).Msg("building Zephyr application")

	args := []string{"west", "build", "-b", p.Board}
	if p.Pristine {
		args = append(args, "-p", "always")
	}
	args = append(args, p.AppPath)
	return fromOutcome(t.inSandbox(ctx, args...))
}

func (t *Toolchain) zephyrSizeReport(ctx context.Context, p *SizeReportParams) Result {
	t.log.Info().Str("app", p.AppPath).Str("report", p.ReportType).Msg("generating Zephyr size report")
	return fromOutcome(t.inSandbox(ctx, "west", "build", p.AppPath, "-t", p.buildTarget()))
}

func (t *Toolchain) zephyrClean(ctx context.Context, p *ZephyrCleanParams) Result {
	t.log.Info().Str("app", p.AppPath).Msg("cleaning Zephyr build")
	return fromOutcome(t.inSandbox(ctx, "west", "build", p.AppPath, "-t", "clean"))
}

// ========== Helpers ==========

func (t *Toolchain) inModule(ctx context.Context, args ...string) runner.Outcome {
	return t.run(ctx, runner.Command{Args: args, Dir: t.module})
}

func (t *Toolchain) inSandbox(ctx context.Context, args ...string) runner.Outcome {
	return t.run(ctx, runner.Command{Args: args, Dir: t.sandbox})
}

func (t *Toolchain) run(ctx context.Context, cmd runner.Command) runner.Outcome {
	out := t.runner.Run(ctx, cmd)
	if out.ExitCode == runner.ExitSpawnFailed {
		t.log.Error().Str("command", cmd.String()).Str("stderr", out.Stderr).Msg("command did not complete")
	}
	return out
}

func fromOutcome(out runner.Outcome) Result {
	return Result{
		Success: out.Success(),
		Output:  out.Stdout,
		Error:   out.Stderr,
	}
}

func passedOrFailed(out runner.Outcome) string {
	if out.Success() {
		return "passed"
	}
	return "failed"
}

var _ Executor = (*Toolchain)(nil)

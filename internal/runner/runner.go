// Package runner executes external toolchain processes and captures their
// exit code and output streams.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ExitSpawnFailed is the exit code reported when a process could not be
// started, or was killed on timeout or cancellation.
const ExitSpawnFailed = -1

// DefaultWaitDelay bounds how long Run waits for output pipes to close after
// the child has been killed.
const DefaultWaitDelay = 2 * time.Second

// Command is one external process invocation
type Command struct {
	Args []string          // Program followed by its arguments
	Dir  string            // Working directory
	Env  map[string]string // Overrides on top of the parent environment
}

// String renders the command line for logs and reports
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Outcome is the raw result of one process run
type Outcome struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Truncated bool // Some output was dropped by the output bound
}

// Success reports whether the process exited with code 0
func (o Outcome) Success() bool {
	return o.ExitCode == 0
}

// Runner runs a command to completion. Implementations never return spawn
// failures as errors; they are folded into the Outcome.
type Runner interface {
	Run(ctx context.Context, cmd Command) Outcome
}

// ProcessRunner runs commands as child processes
type ProcessRunner struct {
	timeout        time.Duration
	maxOutputBytes int
	waitDelay      time.Duration
	log            zerolog.Logger
}

// Option configures a ProcessRunner
type Option func(*ProcessRunner)

// WithTimeout kills the child after d. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *ProcessRunner) { r.timeout = d }
}

// WithMaxOutputBytes bounds each captured stream. Zero means unbounded.
func WithMaxOutputBytes(n int) Option {
	return func(r *ProcessRunner) { r.maxOutputBytes = n }
}

// WithWaitDelay overrides DefaultWaitDelay
func WithWaitDelay(d time.Duration) Option {
	return func(r *ProcessRunner) { r.waitDelay = d }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *ProcessRunner) { r.log = l }
}

// New creates a ProcessRunner
func New(opts ...Option) *ProcessRunner {
	r := &ProcessRunner{
		waitDelay: DefaultWaitDelay,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes c and blocks until it exits, the timeout expires or ctx is done.
func (r *ProcessRunner) Run(ctx context.Context, c Command) Outcome {
	if len(c.Args) == 0 || c.Args[0] == "" {
		return Outcome{ExitCode: ExitSpawnFailed, Stderr: "empty command"}
	}

	parent := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	cmd.Env = mergeEnv(os.Environ(), c.Env)
	cmd.WaitDelay = r.waitDelay

	stdout := newBoundedBuffer(r.maxOutputBytes)
	stderr := newBoundedBuffer(r.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.log.Debug().Str("command", c.String()).Str("dir", c.Dir).Msg("running command")
	start := time.Now()
	err := cmd.Run()

	out := Outcome{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		out.ExitCode = 0
	case ctx.Err() != nil:
		out.ExitCode = ExitSpawnFailed
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.TimedOut = true
			out.Stderr = appendLine(out.Stderr, r.deadlineMessage(parent))
		} else {
			out.Stderr = appendLine(out.Stderr, "process cancelled")
		}
	case errors.As(err, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		// Exited, but a grandchild kept the pipes open
		out.ExitCode = cmd.ProcessState.ExitCode()
	default:
		out.ExitCode = ExitSpawnFailed
		out.Stderr = err.Error()
	}

	r.log.Debug().
		Str("command", c.String()).
		Int("exit_code", out.ExitCode).
		Bool("timed_out", out.TimedOut).
		Bool("truncated", out.Truncated).
		Dur("duration", time.Since(start)).
		Msg("command finished")

	return out
}

// deadlineMessage names which deadline stopped the process: the runner's own
// timeout, or one carried by the caller's context.
func (r *ProcessRunner) deadlineMessage(parent context.Context) string {
	if r.timeout > 0 && parent.Err() == nil {
		return fmt.Sprintf("process timed out after %s", r.timeout)
	}
	return "process deadline exceeded"
}

// mergeEnv appends overrides to base in a stable order. Later entries win in
// os/exec, so overrides take precedence over inherited values.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil // inherit
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(keys))
	env = append(env, base...)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

func appendLine(s, line string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s + line
	}
	return s + "\n" + line
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zephyr-swift/swift-mcp-server/internal/history"
	"github.com/zephyr-swift/swift-mcp-server/internal/tools"
)

const (
	ServerName = "swift-zephyr-tools"
	Version    = "1.0.0"

	cmdListTools = "list_tools"
	cmdCallTool  = "call_tool "
	cmdQuit      = "quit"
	cmdExit      = "exit"
)

// LineSource yields input lines. io.EOF ends the session.
type LineSource interface {
	ReadLine() (string, error)
}

// Recorder persists invocation records
type Recorder interface {
	Record(inv *history.Invocation) error
}

// Server is the line-oriented command dispatcher
type Server struct {
	name     string
	version  string
	registry *tools.Registry
	exec     tools.Executor
	presets  *tools.Presets
	recorder Recorder
	out      io.Writer
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithPresets applies configured parameter presets to each call
func WithPresets(p *tools.Presets) Option {
	return func(s *Server) { s.presets = p }
}

// WithRecorder records every tool call
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithLogger sets the diagnostic logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithIdentity overrides the name and version shown in the banner
func WithIdentity(name, version string) Option {
	return func(s *Server) {
		s.name = name
		s.version = version
	}
}

// NewServer creates a dispatcher writing protocol output to out
func NewServer(registry *tools.Registry, exec tools.Executor, out io.Writer, opts ...Option) *Server {
	s := &Server{
		name:     ServerName,
		version:  Version,
		registry: registry,
		exec:     exec,
		out:      out,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type readResult struct {
	line string
	err  error
}

// Run prints the banner and serves lines from src until quit, end of input
// or ctx cancellation. Only read errors other than EOF are returned.
func (s *Server) Run(ctx context.Context, src LineSource) error {
	s.printBanner()

	lines := make(chan readResult)
	next := make(chan struct{})
	done := make(chan struct{})
	defer close(done)

	// Reads happen off the loop so cancellation does not wait on input
	go func() {
		for {
			line, err := src.ReadLine()
			select {
			case lines <- readResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
			select {
			case <-next:
			case <-done:
				return
			}
		}
	}()

	for {
		var r readResult
		select {
		case <-ctx.Done():
			s.log.Info().Msg("shutting down")
			return nil
		case r = <-lines:
		}

		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				s.log.Debug().Msg("end of input")
				return nil
			}
			return fmt.Errorf("failed to read input: %w", r.err)
		}

		if !s.handleLine(ctx, r.line) {
			return nil
		}
		next <- struct{}{}
	}
}

// handleLine dispatches one line, returns false to stop the loop
func (s *Server) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return true
	}

	switch {
	case line == cmdQuit || line == cmdExit:
		return false
	case line == cmdListTools:
		s.listTools()
	case strings.HasPrefix(line, cmdCallTool):
		s.callTool(ctx, strings.TrimPrefix(line, cmdCallTool))
	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", line)
		fmt.Fprintln(s.out, "Available commands: list_tools, call_tool <name>, quit")
	}
	return true
}

func (s *Server) printBanner() {
	fmt.Fprintf(s.out, "Swift MCP Server '%s' v%s starting...\n", s.name, s.version)
	fmt.Fprintf(s.out, "Available tools: %s\n", strings.Join(s.registry.Names(), ", "))
}

func (s *Server) listTools() {
	fmt.Fprintln(s.out, "Available tools:")
	for _, tool := range s.registry.List() {
		fmt.Fprintf(s.out, "- %s: %s\n", tool.Name, tool.Description)
	}
}

func (s *Server) callTool(ctx context.Context, name string) {
	tool, ok := s.registry.Get(name)
	if !ok {
		fmt.Fprintf(s.out, "Tool '%s' not found\n", name)
		return
	}

	fmt.Fprintf(s.out, "Calling tool: %s\n", name)
	start := s.now()

	var result tools.Result
	op, err := s.presets.Resolve(tool)
	if err != nil {
		result = tools.Failure("%v", err)
	} else {
		result = s.exec.Execute(ctx, op)
	}
	elapsed := s.now().Sub(start)

	s.log.Debug().
		Str("tool", name).
		Bool("success", result.Success).
		Dur("duration", elapsed).
		Msg("tool call finished")

	fmt.Fprintf(s.out, "Result: %s\n", result.Output)
	if result.Error != "" {
		fmt.Fprintf(s.out, "Error: %s\n", result.Error)
	}

	s.record(name, result, start, elapsed)
}

func (s *Server) record(name string, result tools.Result, start time.Time, elapsed time.Duration) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(&history.Invocation{
		Tool:      name,
		Success:   result.Success,
		Output:    result.Output,
		Error:     result.Error,
		StartedAt: start,
		Duration:  elapsed,
	})
	if err != nil {
		// History is best effort; the protocol output is already written
		s.log.Warn().Err(err).Str("tool", name).Msg("failed to record invocation")
	}
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c-bata/go-prompt"
	"gopkg.in/yaml.v3"

	"github.com/zephyr-swift/swift-mcp-server/internal/history"
	"github.com/zephyr-swift/swift-mcp-server/internal/tools"
)

// fakeExecutor records operations and returns a canned result
type fakeExecutor struct {
	mu     sync.Mutex
	ops    []tools.Operation
	result tools.Result
}

func (f *fakeExecutor) Execute(_ context.Context, op tools.Operation) tools.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	return f.result
}

func (f *fakeExecutor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

type fakeRecorder struct {
	records []*history.Invocation
	err     error
}

func (f *fakeRecorder) Record(inv *history.Invocation) error {
	f.records = append(f.records, inv)
	return f.err
}

func testRegistry() *tools.Registry {
	registry := tools.NewRegistry()
	_ = registry.Register(tools.Tool{
		Name:        tools.NamePackageBuild,
		Description: "Build Swift package for Zephyr",
		New:         func() tools.Operation { return tools.NewBuildParams() },
	})
	_ = registry.Register(tools.Tool{
		Name:        tools.NamePackageUpdate,
		Description: "Update Swift package dependencies",
		New:         func() tools.Operation { return tools.NewUpdateParams() },
	})
	return registry
}

const banner = "Swift MCP Server 'swift-zephyr-tools' v1.0.0 starting...\n" +
	"Available tools: swift_package_build, swift_package_update\n"

func runServer(t *testing.T, input string, exec tools.Executor, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	server := NewServer(testRegistry(), exec, &out, opts...)
	if err := server.Run(context.Background(), NewReaderSource(strings.NewReader(input))); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	if Version != "1.0.0" {
		t.Errorf("Expected Version to be '1.0.0', got '%s'", Version)
	}
	if ServerName != "swift-zephyr-tools" {
		t.Errorf("unexpected server name %q", ServerName)
	}
}

func TestDispatch(t *testing.T) {
	listing := "Available tools:\n" +
		"- swift_package_build: Build Swift package for Zephyr\n" +
		"- swift_package_update: Update Swift package dependencies\n"
	long := strings.Repeat("x", 2<<20)

	tests := []struct {
		name  string
		input string
		want  string
		calls int
	}{
		{
			name:  "empty input",
			input: "",
			want:  banner,
		},
		{
			name:  "list tools is repeatable",
			input: "list_tools\nlist_tools\n",
			want:  banner + listing + listing,
		},
		{
			name:  "blank lines ignored",
			input: "\n   \n\t\nlist_tools\n",
			want:  banner + listing,
		},
		{
			name:  "unknown tool",
			input: "call_tool swift_teleport\n",
			want:  banner + "Tool 'swift_teleport' not found\n",
		},
		{
			name:  "tool name is not trimmed",
			input: "call_tool swift_package_build \n",
			want:  banner + "Tool 'swift_package_build ' not found\n",
		},
		{
			name:  "call tool",
			input: "call_tool swift_package_update\n",
			want:  banner + "Calling tool: swift_package_update\nResult: Build complete!\n",
			calls: 1,
		},
		{
			name:  "unknown command",
			input: "help me\n",
			want: banner + "Unknown command: help me\n" +
				"Available commands: list_tools, call_tool <name>, quit\n",
		},
		{
			name:  "call_tool without name",
			input: "call_tool\n",
			want: banner + "Unknown command: call_tool\n" +
				"Available commands: list_tools, call_tool <name>, quit\n",
		},
		{
			name:  "commands are case sensitive",
			input: "LIST_TOOLS\n",
			want: banner + "Unknown command: LIST_TOOLS\n" +
				"Available commands: list_tools, call_tool <name>, quit\n",
		},
		{
			name:  "quit stops processing",
			input: "quit\nlist_tools\ncall_tool swift_package_update\n",
			want:  banner,
		},
		{
			name:  "exit stops processing",
			input: "list_tools\nexit\nlist_tools\n",
			want:  banner + listing,
		},
		{
			name:  "carriage returns stripped",
			input: "list_tools\r\nquit\r\n",
			want:  banner + listing,
		},
		{
			name:  "oversized line does not end the session",
			input: long + "\nlist_tools\n",
			want: banner + "Unknown command: " + long + "\n" +
				"Available commands: list_tools, call_tool <name>, quit\n" + listing,
		},
		{
			name:  "input without trailing newline",
			input: "list_tools",
			want:  banner + listing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{result: tools.Result{Success: true, Output: "Build complete!"}}
			got := runServer(t, tt.input, exec)
			if got != tt.want {
				t.Errorf("output mismatch:\n got %q\nwant %q", got, tt.want)
			}
			if exec.calls() != tt.calls {
				t.Errorf("executor called %d times, want %d", exec.calls(), tt.calls)
			}
		})
	}
}

func TestCallToolPrintsError(t *testing.T) {
	exec := &fakeExecutor{result: tools.Result{Success: false, Output: "", Error: "error: no such module 'Zephyr'"}}
	got := runServer(t, "call_tool swift_package_build\n", exec)

	want := banner +
		"Calling tool: swift_package_build\n" +
		"Result: \n" +
		"Error: error: no such module 'Zephyr'\n"
	if got != want {
		t.Errorf("output mismatch:\n got %q\nwant %q", got, want)
	}

	op, ok := exec.ops[0].(*tools.BuildParams)
	if !ok {
		t.Fatalf("unexpected operation %T", exec.ops[0])
	}
	if op.Configuration != "debug" || !op.Embedded {
		t.Errorf("operation should carry defaults: %+v", op)
	}
}

func TestCallToolAppliesPresets(t *testing.T) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal([]byte("swift_package_build:\n  configuration: release\n"), &raw); err != nil {
		t.Fatal(err)
	}
	presets, err := tools.NewPresets(raw, testRegistry())
	if err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{result: tools.Result{Success: true}}
	runServer(t, "call_tool swift_package_build\n", exec, WithPresets(presets))

	if got := exec.ops[0].(*tools.BuildParams).Configuration; got != "release" {
		t.Errorf("configuration = %q, want release", got)
	}
}

func TestCallToolRecordsHistory(t *testing.T) {
	exec := &fakeExecutor{result: tools.Result{Success: true, Output: "ok"}}
	recorder := &fakeRecorder{}
	runServer(t, "call_tool swift_package_update\ncall_tool nope\n", exec, WithRecorder(recorder))

	if len(recorder.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recorder.records))
	}
	rec := recorder.records[0]
	if rec.Tool != tools.NamePackageUpdate || !rec.Success || rec.Output != "ok" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.StartedAt.IsZero() {
		t.Error("record should carry a start time")
	}

	// A failing recorder does not change protocol output
	failing := &fakeRecorder{err: errors.New("disk full")}
	got := runServer(t, "call_tool swift_package_update\n", exec, WithRecorder(failing))
	if !strings.HasSuffix(got, "Result: ok\n") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestWithIdentity(t *testing.T) {
	got := runServer(t, "", &fakeExecutor{}, WithIdentity("custom", "2.1.0"))
	if !strings.HasPrefix(got, "Swift MCP Server 'custom' v2.1.0 starting...\n") {
		t.Errorf("unexpected banner %q", got)
	}
}

type errSource struct{ err error }

func (s errSource) ReadLine() (string, error) { return "", s.err }

func TestRunReturnsReadErrors(t *testing.T) {
	server := NewServer(testRegistry(), &fakeExecutor{}, io.Discard)

	readErr := errors.New("broken pipe")
	err := server.Run(context.Background(), errSource{err: readErr})
	if !errors.Is(err, readErr) {
		t.Errorf("expected wrapped read error, got %v", err)
	}

	if err := server.Run(context.Background(), errSource{err: io.EOF}); err != nil {
		t.Errorf("EOF should end the loop cleanly, got %v", err)
	}
}

// blockingSource never yields a line
type blockingSource struct{ block chan struct{} }

func (s blockingSource) ReadLine() (string, error) {
	<-s.block
	return "", io.EOF
}

func TestRunStopsOnCancel(t *testing.T) {
	server := NewServer(testRegistry(), &fakeExecutor{}, io.Discard)
	src := blockingSource{block: make(chan struct{})}
	defer close(src.block)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(ctx, src) }()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("cancellation should not be an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestReaderSource(t *testing.T) {
	long := strings.Repeat("x", 2<<20)
	src := NewReaderSource(strings.NewReader("first\n" + long + "\nlast"))

	for _, want := range []string{"first", long, "last"} {
		got, err := src.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine failed: %v", err)
		}
		if got != want {
			t.Errorf("got line of %d bytes, want %d", len(got), len(want))
		}
	}
	if _, err := src.ReadLine(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestPromptSource(t *testing.T) {
	src := NewPromptSource(tools.NewDefaultRegistry())

	var gotPrefix string
	src.input = func(prefix string, _ prompt.Completer, _ ...prompt.Option) string {
		gotPrefix = prefix
		return "list_tools"
	}
	line, err := src.ReadLine()
	if err != nil || line != "list_tools" {
		t.Errorf("ReadLine = %q, %v", line, err)
	}
	if gotPrefix != "swift-mcp> " {
		t.Errorf("unexpected prefix %q", gotPrefix)
	}
}

func TestPromptCompletion(t *testing.T) {
	src := NewPromptSource(tools.NewDefaultRegistry())

	complete := func(text string) []string {
		buf := prompt.NewBuffer()
		buf.InsertText(text, false, true)
		var texts []string
		for _, s := range src.complete(*buf.Document()) {
			texts = append(texts, s.Text)
		}
		return texts
	}

	if got := complete(""); len(got) != 0 {
		t.Errorf("empty input should not suggest, got %v", got)
	}
	if got := complete("li"); len(got) != 1 || got[0] != "list_tools" {
		t.Errorf("unexpected suggestions %v", got)
	}
	got := complete("call_tool zephyr_")
	if len(got) != 3 {
		t.Errorf("expected 3 zephyr tools, got %v", got)
	}
	for _, s := range got {
		if !strings.HasPrefix(s, "call_tool zephyr_") {
			t.Errorf("unexpected suggestion %q", s)
		}
	}
}

func TestTruncateForDisplay(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxLen   int
		expected string
	}{
		{
			name:     "short text",
			text:     "Hello",
			maxLen:   10,
			expected: "Hello",
		},
		{
			name:     "exact length",
			text:     "Hello",
			maxLen:   5,
			expected: "Hello",
		},
		{
			name:     "truncate",
			text:     "Hello World",
			maxLen:   5,
			expected: "Hello...",
		},
		{
			name:     "with newlines",
			text:     "Hello\nWorld",
			maxLen:   20,
			expected: "Hello World",
		},
		{
			name:     "with carriage return",
			text:     "Hello\r\nWorld",
			maxLen:   20,
			expected: "Hello World",
		},
		{
			name:     "multibyte",
			text:     "héllo wörld",
			maxLen:   5,
			expected: "héllo...",
		},
		{
			name:     "empty string",
			text:     "",
			maxLen:   10,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateForDisplay(tt.text, tt.maxLen)
			if got != tt.expected {
				t.Errorf("truncateForDisplay(%q, %d) = %q, want %q", tt.text, tt.maxLen, got, tt.expected)
			}
		})
	}
}

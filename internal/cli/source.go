package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/zephyr-swift/swift-mcp-server/internal/tools"
)

// ReaderSource reads newline-delimited lines of any length from a stream
type ReaderSource struct {
	reader *bufio.Reader
	eof    bool
}

// NewReaderSource creates a line source over r
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{reader: bufio.NewReader(r)}
}

// ReadLine returns the next line without its newline. A final line without
// a newline is returned before io.EOF.
func (s *ReaderSource) ReadLine() (string, error) {
	if s.eof {
		return "", io.EOF
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			s.eof = true
			return line, nil
		}
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// PromptSource reads lines from the terminal with command and tool name
// completion. Ctrl+D on an empty line yields an empty line; quit ends the
// session.
type PromptSource struct {
	prefix      string
	suggestions []prompt.Suggest
	input       func(prefix string, completer prompt.Completer, opts ...prompt.Option) string
}

// NewPromptSource creates an interactive source completing registry tools
func NewPromptSource(registry *tools.Registry) *PromptSource {
	return &PromptSource{
		prefix:      "swift-mcp> ",
		suggestions: buildSuggestions(registry),
		input:       prompt.Input,
	}
}

// ReadLine prompts for the next line
func (p *PromptSource) ReadLine() (string, error) {
	line := p.input(p.prefix, p.complete,
		prompt.OptionTitle("swift-mcp-server"),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionMaxSuggestion(16),
	)
	return line, nil
}

func (p *PromptSource) complete(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	if text == "" {
		return nil
	}
	return prompt.FilterHasPrefix(p.suggestions, text, false)
}

func buildSuggestions(registry *tools.Registry) []prompt.Suggest {
	suggestions := []prompt.Suggest{
		{Text: cmdListTools, Description: "List registered tools"},
		{Text: cmdQuit, Description: "Exit the server"},
	}
	for _, tool := range registry.List() {
		suggestions = append(suggestions, prompt.Suggest{
			Text:        cmdCallTool + tool.Name,
			Description: truncateForDisplay(tool.Description, 60),
		})
	}
	return suggestions
}

// truncateForDisplay truncates text for single-line display
func truncateForDisplay(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}

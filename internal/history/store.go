package history

import (
	"time"
)

// Store invocation history storage interface
type Store interface {
	// Record saves an invocation, assigning its ID when empty
	Record(inv *Invocation) error
	// Recent returns the newest invocations first
	Recent(limit int) ([]*Invocation, error)
	// ByTool returns the newest invocations of one tool first
	ByTool(tool string, limit int) ([]*Invocation, error)
	// Clear deletes all invocations
	Clear() error

	// Close connection
	Close() error
}

// Invocation is one recorded tool call
type Invocation struct {
	ID        string
	Tool      string
	Success   bool
	Output    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

package tools

import "fmt"

// Tool is a named operation exposed by the dispatcher
type Tool struct {
	Name        string
	Description string
	Parameters  []ParameterDef
	New         func() Operation // Operation populated with documented defaults
}

// ParameterDef parameter definition
type ParameterDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string" | "boolean" | "array"
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// Result is the uniform outcome of one tool call
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"` // empty means no error
}

// Failure builds an unsuccessful Result with a formatted error
func Failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

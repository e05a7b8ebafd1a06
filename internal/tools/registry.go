package tools

import "fmt"

// Registry is an ordered tool registry. It is built once before the
// dispatcher starts and only read afterwards, so it carries no lock.
type Registry struct {
	tools []Tool
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a tool. Registering an existing name replaces that
// descriptor in place, keeping its position.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.New == nil {
		return fmt.Errorf("tool %s has no operation constructor", tool.Name)
	}

	for i := range r.tools {
		if r.tools[i].Name == tool.Name {
			r.tools[i] = tool
			return nil
		}
	}
	r.tools = append(r.tools, tool)
	return nil
}

// Get gets a tool by exact name
func (r *Registry) Get(name string) (Tool, bool) {
	for _, tool := range r.tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}

// List lists all tools in registration order
func (r *Registry) List() []Tool {
	tools := make([]Tool, len(r.tools))
	copy(tools, r.tools)
	return tools
}

// Names returns tool names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, tool := range r.tools {
		names[i] = tool.Name
	}
	return names
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// NewDefaultRegistry creates and registers all built-in tools
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	for _, tool := range builtinTools() {
		_ = registry.Register(tool) // built-in names are unique and constructors non-nil
	}
	return registry
}

func sourceFileParam() ParameterDef {
	return ParameterDef{Name: "source_file", Type: "string", Description: "Swift source file to process", Required: true}
}

func builtinTools() []Tool {
	return []Tool{
		// Swift package management
		{
			Name:        NamePackageBuild,
			Description: "Build Swift package for Zephyr",
			Parameters: []ParameterDef{
				{Name: "configuration", Type: "string", Description: "Build configuration (debug or release)", Default: "debug"},
				{Name: "target", Type: "string", Description: "Build only this target"},
				{Name: "embedded", Type: "boolean", Description: "Enable the Embedded Swift experimental feature", Default: "true"},
			},
			New: func() Operation { return NewBuildParams() },
		},
		{
			Name:        NamePackageTest,
			Description: "Run Swift package tests",
			Parameters: []ParameterDef{
				{Name: "target", Type: "string", Description: "Test only this target"},
				{Name: "filter", Type: "string", Description: "Run tests matching this filter"},
			},
			New: func() Operation { return NewTestParams() },
		},
		{
			Name:        NamePackageUpdate,
			Description: "Update Swift package dependencies",
			New:         func() Operation { return NewUpdateParams() },
		},

		// Zephyr integration
		{
			Name:        NameZephyrGenerate,
			Description: "Generate Swift bindings for Zephyr",
			Parameters: []ParameterDef{
				{Name: "module", Type: "string", Description: "Zephyr module to bind", Required: true},
				{Name: "output_dir", Type: "string", Description: "Output directory", Default: "<module>/Sources/ZephyrBindings"},
			},
			New: func() Operation { return NewBindingsParams() },
		},
		{
			Name:        NameZephyrValidate,
			Description: "Validate Swift code for Zephyr compatibility",
			Parameters: []ParameterDef{
				sourceFileParam(),
				{Name: "embedded_mode", Type: "boolean", Description: "Type-check with Embedded Swift enabled", Default: "true"},
			},
			New: func() Operation { return NewValidateParams() },
		},

		// Code analysis
		{
			Name:        NameAnalyzeMemory,
			Description: "Analyze memory usage of Swift code for embedded systems (heuristic)",
			Parameters: []ParameterDef{
				sourceFileParam(),
				{Name: "optimization_level", Type: "string", Description: "O, none, size or unchecked", Default: "O"},
			},
			New: func() Operation { return NewMemoryParams() },
		},
		{
			Name:        NameCheckConcurrency,
			Description: "Check Swift concurrency compliance",
			Parameters: []ParameterDef{
				sourceFileParam(),
				{Name: "strict_mode", Type: "boolean", Description: "Use -strict-concurrency=complete", Default: "true"},
			},
			New: func() Operation { return NewConcurrencyParams() },
		},

		// Development tools
		{
			Name:        NameFormatCode,
			Description: "Format Swift code according to project standards",
			Parameters: []ParameterDef{
				sourceFileParam(),
				{Name: "in_place", Type: "boolean", Description: "Rewrite the file in place", Default: "false"},
			},
			New: func() Operation { return NewFormatParams() },
		},
		{
			Name:        NameLintCode,
			Description: "Lint Swift code for style and best practices",
			Parameters: []ParameterDef{
				sourceFileParam(),
				{Name: "embedded_rules", Type: "boolean", Description: "Use .swiftlint-embedded.yml", Default: "true"},
			},
			New: func() Operation { return NewLintParams() },
		},

		// Documentation
		{
			Name:        NameGenerateDocs,
			Description: "Generate documentation for Swift code",
			Parameters: []ParameterDef{
				{Name: "target", Type: "string", Description: "Document only this target (docc format)"},
				{Name: "output_format", Type: "string", Description: "docc or another generate-documentation format", Default: "docc"},
			},
			New: func() Operation { return NewDocsParams() },
		},

		// Code generation
		{
			Name:        NameGenerateFile,
			Description: "Generate Swift file with proper structure and 2-space indentation",
			Parameters: []ParameterDef{
				{Name: "file_name", Type: "string", Description: "File name under Sources/", Default: "NewFile.swift"},
				{Name: "imports", Type: "array", Description: "Modules to import, emitted sorted", Default: "[Foundation]"},
				{Name: "types", Type: "array", Description: "Public struct names"},
				{Name: "protocols", Type: "array", Description: "Public protocol names"},
			},
			New: func() Operation { return NewGenerateFileParams() },
		},

		// Zephyr west
		{
			Name:        NameZephyrBuild,
			Description: "Build a Zephyr application using west",
			Parameters: []ParameterDef{
				{Name: "app_path", Type: "string", Description: "Application path relative to the Zephyr sandbox", Default: "app"},
				{Name: "board", Type: "string", Description: "Target board name", Default: "qemu_x86"},
				{Name: "pristine", Type: "boolean", Description: "Clean build", Default: "false"},
			},
			New: func() Operation { return NewZephyrBuildParams() },
		},
		{
			Name:        NameZephyrSizeReport,
			Description: "Generate Zephyr memory usage report",
			Parameters: []ParameterDef{
				{Name: "app_path", Type: "string", Description: "Application path relative to the Zephyr sandbox", Default: "app"},
				{Name: "report_type", Type: "string", Description: "ram, rom or footprint", Default: "footprint"},
			},
			New: func() Operation { return NewSizeReportParams() },
		},
		{
			Name:        NameZephyrClean,
			Description: "Clean Zephyr build artifacts",
			Parameters: []ParameterDef{
				{Name: "app_path", Type: "string", Description: "Application path relative to the Zephyr sandbox", Default: "app"},
			},
			New: func() Operation { return NewZephyrCleanParams() },
		},
	}
}

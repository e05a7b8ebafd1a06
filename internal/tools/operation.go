package tools

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Tool names
const (
	NamePackageBuild     = "swift_package_build"
	NamePackageTest      = "swift_package_test"
	NamePackageUpdate    = "swift_package_update"
	NameZephyrGenerate   = "swift_zephyr_generate"
	NameZephyrValidate   = "swift_zephyr_validate"
	NameAnalyzeMemory    = "swift_analyze_memory"
	NameCheckConcurrency = "swift_check_concurrency"
	NameFormatCode       = "swift_format_code"
	NameLintCode         = "swift_lint_code"
	NameGenerateDocs     = "swift_generate_docs"
	NameGenerateFile     = "swift_generate_file"
	NameZephyrBuild      = "zephyr_build"
	NameZephyrSizeReport = "zephyr_size_report"
	NameZephyrClean      = "zephyr_clean"
)

// Operation is one of the closed set of tool kinds. Each implementation is a
// parameter struct; the unexported marker keeps the set closed to this
// package so Toolchain.Execute can switch over all of them.
type Operation interface {
	ToolName() string
	Validate() error
	operation()
}

func missingParam(name string) error {
	return fmt.Errorf("missing required parameter: %s", name)
}

func invalidParam(name, value string, allowed ...string) error {
	return fmt.Errorf("invalid %s %q (allowed: %s)", name, value, strings.Join(allowed, ", "))
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// ========== Swift package management ==========

// BuildParams builds the Swift package
type BuildParams struct {
	Configuration string `yaml:"configuration"`
	Target        string `yaml:"target"`
	Embedded      bool   `yaml:"embedded"`
}

func NewBuildParams() *BuildParams {
	return &BuildParams{Configuration: "debug", Embedded: true}
}

func (p *BuildParams) ToolName() string { return NamePackageBuild }
func (p *BuildParams) operation()       {}

func (p *BuildParams) Validate() error {
	if !oneOf(p.Configuration, "debug", "release") {
		return invalidParam("configuration", p.Configuration, "debug", "release")
	}
	return nil
}

// TestParams runs the package tests
type TestParams struct {
	Target string `yaml:"target"`
	Filter string `yaml:"filter"`
}

func NewTestParams() *TestParams { return &TestParams{} }

func (p *TestParams) ToolName() string { return NamePackageTest }
func (p *TestParams) Validate() error  { return nil }
func (p *TestParams) operation()       {}

// UpdateParams updates package dependencies
type UpdateParams struct{}

func NewUpdateParams() *UpdateParams { return &UpdateParams{} }

func (p *UpdateParams) ToolName() string { return NamePackageUpdate }
func (p *UpdateParams) Validate() error  { return nil }
func (p *UpdateParams) operation()       {}

// ========== Zephyr integration ==========

// BindingsParams generates Swift bindings for a Zephyr module.
// An empty OutputDir means <module>/Sources/ZephyrBindings.
type BindingsParams struct {
	Module    string `yaml:"module"`
	OutputDir string `yaml:"output_dir"`
}

func NewBindingsParams() *BindingsParams { return &BindingsParams{} }

func (p *BindingsParams) ToolName() string { return NameZephyrGenerate }
func (p *BindingsParams) operation()       {}

func (p *BindingsParams) Validate() error {
	if strings.TrimSpace(p.Module) == "" {
		return missingParam("module")
	}
	return nil
}

// ValidateParams type-checks a source file for Zephyr compatibility
type ValidateParams struct {
	SourceFile   string `yaml:"source_file"`
	EmbeddedMode bool   `yaml:"embedded_mode"`
}

func NewValidateParams() *ValidateParams { return &ValidateParams{EmbeddedMode: true} }

func (p *ValidateParams) ToolName() string { return NameZephyrValidate }
func (p *ValidateParams) Validate() error  { return requireSource(p.SourceFile) }
func (p *ValidateParams) operation()       {}

// ========== Code analysis ==========

// MemoryParams runs the SIL memory heuristic on a source file
type MemoryParams struct {
	SourceFile        string `yaml:"source_file"`
	OptimizationLevel string `yaml:"optimization_level"`
}

var optimizationFlags = map[string]string{
	"O":         "-O",
	"none":      "-Onone",
	"size":      "-Osize",
	"unchecked": "-Ounchecked",
}

func NewMemoryParams() *MemoryParams { return &MemoryParams{OptimizationLevel: "O"} }

func (p *MemoryParams) ToolName() string { return NameAnalyzeMemory }
func (p *MemoryParams) operation()       {}

func (p *MemoryParams) Validate() error {
	if err := requireSource(p.SourceFile); err != nil {
		return err
	}
	if _, ok := optimizationFlags[p.OptimizationLevel]; !ok {
		return invalidParam("optimization_level", p.OptimizationLevel, "O", "none", "size", "unchecked")
	}
	return nil
}

// flag returns the compiler flag for the optimization level
func (p *MemoryParams) flag() string {
	return optimizationFlags[p.OptimizationLevel]
}

// ConcurrencyParams checks Swift concurrency compliance
type ConcurrencyParams struct {
	SourceFile string `yaml:"source_file"`
	StrictMode bool   `yaml:"strict_mode"`
}

func NewConcurrencyParams() *ConcurrencyParams { return &ConcurrencyParams{StrictMode: true} }

func (p *ConcurrencyParams) ToolName() string { return NameCheckConcurrency }
func (p *ConcurrencyParams) Validate() error  { return requireSource(p.SourceFile) }
func (p *ConcurrencyParams) operation()       {}

// ========== Development tools ==========

// FormatParams runs swift-format
type FormatParams struct {
	SourceFile string `yaml:"source_file"`
	InPlace    bool   `yaml:"in_place"`
}

func NewFormatParams() *FormatParams { return &FormatParams{} }

func (p *FormatParams) ToolName() string { return NameFormatCode }
func (p *FormatParams) Validate() error  { return requireSource(p.SourceFile) }
func (p *FormatParams) operation()       {}

// LintParams runs swiftlint
type LintParams struct {
	SourceFile    string `yaml:"source_file"`
	EmbeddedRules bool   `yaml:"embedded_rules"`
}

func NewLintParams() *LintParams { return &LintParams{EmbeddedRules: true} }

func (p *LintParams) ToolName() string { return NameLintCode }
func (p *LintParams) Validate() error  { return requireSource(p.SourceFile) }
func (p *LintParams) operation()       {}

// DocsParams generates documentation
type DocsParams struct {
	Target       string `yaml:"target"`
	OutputFormat string `yaml:"output_format"`
}

func NewDocsParams() *DocsParams { return &DocsParams{OutputFormat: "docc"} }

func (p *DocsParams) ToolName() string { return NameGenerateDocs }
func (p *DocsParams) operation()       {}

func (p *DocsParams) Validate() error {
	if strings.TrimSpace(p.OutputFormat) == "" {
		return missingParam("output_format")
	}
	return nil
}

// GenerateFileParams writes a skeleton Swift file under <module>/Sources
type GenerateFileParams struct {
	FileName  string   `yaml:"file_name"`
	Imports   []string `yaml:"imports"`
	Types     []string `yaml:"types"`
	Protocols []string `yaml:"protocols"`
}

func NewGenerateFileParams() *GenerateFileParams {
	return &GenerateFileParams{FileName: "NewFile.swift", Imports: []string{"Foundation"}}
}

func (p *GenerateFileParams) ToolName() string { return NameGenerateFile }
func (p *GenerateFileParams) operation()       {}

func (p *GenerateFileParams) Validate() error {
	name := strings.TrimSpace(p.FileName)
	if name == "" {
		return missingParam("file_name")
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid file_name %q: must be a bare file name", p.FileName)
	}
	if err := checkNames("import", p.Imports, isModuleName); err != nil {
		return err
	}
	if err := checkNames("type name", p.Types, isIdentifier); err != nil {
		return err
	}
	if err := checkNames("protocol name", p.Protocols, isIdentifier); err != nil {
		return err
	}
	// Types and protocols share one namespace in the generated file
	declared := append(slices.Clone(p.Types), p.Protocols...)
	if dup, ok := firstDuplicate(declared); ok {
		return fmt.Errorf("duplicate declaration %q", dup)
	}
	return nil
}

// checkNames validates each name and rejects repeats
func checkNames(kind string, names []string, valid func(string) bool) error {
	for _, name := range names {
		if !valid(name) {
			return fmt.Errorf("invalid %s %q", kind, name)
		}
	}
	if dup, ok := firstDuplicate(names); ok {
		return fmt.Errorf("duplicate %s %q", kind, dup)
	}
	return nil
}

func firstDuplicate(names []string) (string, bool) {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return name, true
		}
		seen[name] = true
	}
	return "", false
}

// ========== Zephyr west ==========

// ZephyrBuildParams builds a Zephyr application with west
type ZephyrBuildParams struct {
	AppPath  string `yaml:"app_path"`
	Board    string `yaml:"board"`
	Pristine bool   `yaml:"pristine"`
}

func NewZephyrBuildParams() *ZephyrBuildParams {
	return &ZephyrBuildParams{AppPath: "app", Board: "qemu_x86"}
}

func (p *ZephyrBuildParams) ToolName() string { return NameZephyrBuild }
func (p *ZephyrBuildParams) operation()       {}

func (p *ZephyrBuildParams) Validate() error {
	if strings.TrimSpace(p.AppPath) == "" {
		return missingParam("app_path")
	}
	if strings.TrimSpace(p.Board) == "" {
		return missingParam("board")
	}
	return nil
}

// SizeReportParams reports Zephyr memory usage
type SizeReportParams struct {
	AppPath    string `yaml:"app_path"`
	ReportType string `yaml:"report_type"`
}

func NewSizeReportParams() *SizeReportParams {
	return &SizeReportParams{AppPath: "app", ReportType: "footprint"}
}

func (p *SizeReportParams) ToolName() string { return NameZephyrSizeReport }
func (p *SizeReportParams) operation()       {}

func (p *SizeReportParams) Validate() error {
	if strings.TrimSpace(p.AppPath) == "" {
		return missingParam("app_path")
	}
	if !oneOf(p.ReportType, "ram", "rom", "footprint") {
		return invalidParam("report_type", p.ReportType, "ram", "rom", "footprint")
	}
	return nil
}

// buildTarget returns the west build target for the report type
func (p *SizeReportParams) buildTarget() string {
	if p.ReportType == "footprint" {
		return "footprint"
	}
	return p.ReportType + "_report"
}

// ZephyrCleanParams cleans Zephyr build artifacts
type ZephyrCleanParams struct {
	AppPath string `yaml:"app_path"`
}

func NewZephyrCleanParams() *ZephyrCleanParams { return &ZephyrCleanParams{AppPath: "app"} }

func (p *ZephyrCleanParams) ToolName() string { return NameZephyrClean }
func (p *ZephyrCleanParams) operation()       {}

func (p *ZephyrCleanParams) Validate() error {
	if strings.TrimSpace(p.AppPath) == "" {
		return missingParam("app_path")
	}
	return nil
}

func requireSource(path string) error {
	if strings.TrimSpace(path) == "" {
		return missingParam("source_file")
	}
	return nil
}

// isIdentifier reports whether s is a plain Swift identifier
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// isModuleName accepts dotted submodule imports such as Darwin.C
func isModuleName(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !isIdentifier(part) {
			return false
		}
	}
	return true
}

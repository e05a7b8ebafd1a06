package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var markSections = []string{"Extension", "Public", "Internal", "Private"}

// RenderSwiftFile builds a skeleton Swift source: sorted imports, one empty
// public protocol per protocol name, one empty public struct per type name,
// then the MARK section layout.
func RenderSwiftFile(imports, types, protocols []string) string {
	var b strings.Builder

	b.WriteString("// Imports\n")
	sorted := slices.Clone(imports)
	slices.Sort(sorted)
	for _, imp := range sorted {
		fmt.Fprintf(&b, "import %s\n", imp)
	}
	b.WriteString("\n")

	if len(protocols) > 0 {
		b.WriteString("// Public protocols\n")
		for _, name := range protocols {
			fmt.Fprintf(&b, "public protocol %s {}\n", name)
		}
		b.WriteString("\n")
	}

	if len(types) > 0 {
		b.WriteString("// Public types\n")
		for _, name := range types {
			fmt.Fprintf(&b, "public struct %s {\n  // Implementation\n}\n\n", name)
		}
	}

	for i, section := range markSections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "// MARK: - %s\n", section)
	}

	return b.String()
}

// swiftFileName appends the .swift extension when missing
func swiftFileName(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasSuffix(name, ".swift") {
		name += ".swift"
	}
	return name
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

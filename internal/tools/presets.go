package tools

import (
	"bytes"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Presets are configured parameter overrides, keyed by tool name
type Presets struct {
	nodes map[string]yaml.Node
}

// NewPresets checks every preset against the registry: the tool must exist
// and the preset must decode onto its parameters without unknown fields.
func NewPresets(raw map[string]yaml.Node, registry *Registry) (*Presets, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	p := &Presets{nodes: raw}
	for _, name := range names {
		tool, ok := registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("preset for unknown tool %q", name)
		}
		if err := p.Apply(tool.New()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Apply decodes the preset for op's tool, if any, onto op
func (p *Presets) Apply(op Operation) error {
	if p == nil {
		return nil
	}
	node, ok := p.nodes[op.ToolName()]
	if !ok {
		return nil
	}

	// Round-trip through a decoder so unknown keys are rejected
	data, err := yaml.Marshal(&node)
	if err != nil {
		return fmt.Errorf("invalid preset for %s: %w", op.ToolName(), err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(op); err != nil {
		return fmt.Errorf("invalid preset for %s: %w", op.ToolName(), err)
	}
	return nil
}

// Resolve builds the operation for tool: defaults overlaid by its preset
func (p *Presets) Resolve(tool Tool) (Operation, error) {
	op := tool.New()
	if err := p.Apply(op); err != nil {
		return nil, err
	}
	return op, nil
}

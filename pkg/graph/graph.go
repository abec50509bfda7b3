package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Diagram Serialization API
// =============================================================================

// MarshalDiagram encodes a diagram as indented JSON. Equal diagrams always
// produce identical bytes.
func MarshalDiagram(d Diagram) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDiagram(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDiagram writes a diagram as indented JSON to w.
func WriteDiagram(d Diagram, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteDiagramFile writes a diagram to a JSON file with 0644 permissions.
func WriteDiagramFile(d Diagram, path string) error {
	data, err := MarshalDiagram(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// UnmarshalDiagram decodes a diagram and checks that it is well formed.
func UnmarshalDiagram(data []byte) (Diagram, error) {
	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return Diagram{}, fmt.Errorf("unmarshal diagram: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Diagram{}, err
	}
	return d, nil
}

// ReadDiagram decodes a diagram from r.
func ReadDiagram(r io.Reader) (Diagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Diagram{}, fmt.Errorf("read: %w", err)
	}
	return UnmarshalDiagram(data)
}

// ReadDiagramFile reads a diagram from a JSON file.
func ReadDiagramFile(path string) (Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Diagram{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalDiagram(data)
}

// Validate checks structural consistency: unique node IDs, a known
// direction, and edges between existing nodes.
func (d *Diagram) Validate() error {
	switch d.Direction {
	case DirectionLR, DirectionTB:
	default:
		return fmt.Errorf("diagram %q: invalid direction %q", d.Network, d.Direction)
	}

	ids := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("diagram %q: node without id", d.Network)
		}
		if ids[n.ID] {
			return fmt.Errorf("diagram %q: duplicate node %q", d.Network, n.ID)
		}
		ids[n.ID] = true
	}
	for _, e := range d.Edges {
		if !ids[e.From] || !ids[e.To] {
			return fmt.Errorf("diagram %q: edge %s→%s references an unknown node", d.Network, e.From, e.To)
		}
	}
	return nil
}

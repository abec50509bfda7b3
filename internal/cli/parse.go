package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/neuralviz/pkg/dsl"
	"github.com/matzehuels/neuralviz/pkg/errors"
)

// Dump formats accepted by parse.
const (
	dumpJSON = "json"
	dumpYAML = "yaml"
)

// parseCommand creates the parse command, which dumps the syntax tree.
func (c *CLI) parseCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Dump the parsed document as JSON or YAML",
		Long: `Dump the parsed document as JSON or YAML.

Only syntax is checked; shapes and parameter counts are not inferred. Use
'check' for the full set of diagnostics. Syntax errors are logged and the
recovered document is still written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runParse(cmd.Context(), args[0], format, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", dumpJSON, "output format: json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runParse(ctx context.Context, input, format, output string) error {
	logger := loggerFromContext(ctx)

	src, err := readSource(input)
	if err != nil {
		return err
	}
	if err := errors.ValidateSource(src, 0); err != nil {
		return err
	}

	doc, diags := dsl.ParseString(src)
	for _, d := range diags {
		logger.Warn("syntax", "pos", d.Pos, "message", d.Message)
	}
	logger.Debug("parsed document", "blocks", len(doc.Blocks), "diagnostics", len(diags))

	data, err := encodeDocument(doc, format)
	if err != nil {
		return err
	}

	if output == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := writeOutput(output, data); err != nil {
		return err
	}
	printSuccess("Parsed %s", plural(len(doc.Blocks), "block"))
	printFile(output)
	return nil
}

// encodeDocument encodes doc as indented JSON or as YAML with the same keys
// in the same order.
func encodeDocument(doc *dsl.Document, format string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	switch format {
	case dumpJSON:
		return append(data, '\n'), nil
	case dumpYAML:
		return jsonToYAML(data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be json or yaml)", format)
	}
}

// jsonToYAML re-encodes a JSON document as block-style YAML. JSON is valid
// YAML, so decoding into a node keeps the key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// clearStyle drops the flow and quoting styles inherited from JSON.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		clearStyle(child)
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// writeOutput renders v as indented JSON or as YAML. YAML goes through JSON
// first so json tags and custom marshalers shape both formats alike.
func writeOutput(w io.Writer, format string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if format == "json" {
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// readJSON reads a JSON or YAML document and returns it as JSON.
func readJSON(stdin io.Reader, path string) (json.RawMessage, error) {
	b, err := readInput(stdin, path)
	if err != nil {
		return nil, err
	}
	if json.Valid(b) {
		return b, nil
	}

	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return out, nil
}

// readMapping reads a field key -> directive table from a JSON or YAML file.
func readMapping(stdin io.Reader, path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := readInput(stdin, path)
	if err != nil {
		return nil, err
	}
	var mapping map[string]any
	if err := yaml.Unmarshal(b, &mapping); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	return mapping, nil
}

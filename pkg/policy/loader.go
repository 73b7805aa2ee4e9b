// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/starload/starload/internal/json"
)

// Load reads and parses a policy document from a YAML or JSON file. The
// document is validated before being returned.
func Load(path string) (*Document, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var doc *Document
	switch ext := filepath.Ext(path); ext {
	case ".yml", ".yaml":
		doc, err = ParseYAML(contents)
	case ".json":
		doc, err = ParseJSON(contents)
	default:
		return nil, fmt.Errorf("unsupported policy file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseYAML(contents []byte) (*Document, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("parsing policy yaml: %w", err)
	}
	return decode(raw)
}

func ParseJSON(contents []byte) (*Document, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("parsing policy json: %w", err)
	}
	return decode(raw)
}

func decode(raw map[string]any) (*Document, error) {
	doc := &Document{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding policy document: %w", err)
	}
	return doc, nil
}

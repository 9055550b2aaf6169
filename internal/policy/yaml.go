package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	dErrors "casework/pkg/domain-errors"
)

// document is the on-disk layout of a policy file.
type document struct {
	Policies []Policy `yaml:"policies"`
}

// LoadYAML decodes and validates the policies in a YAML document of the form
//
//	policies:
//	  - id: 3f0c...
//	    organizationId: acme
//	    name: Code of Conduct
//	    sections: [...]
//
// Unknown keys are rejected.
func LoadYAML(r io.Reader) ([]Policy, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "decode policy yaml")
	}
	for i, p := range doc.Policies {
		if p.Status == "" {
			doc.Policies[i].Status = StatusDraft
			p.Status = StatusDraft
		}
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("policy %d (%s): %w", i, p.Name, err)
		}
	}
	return doc.Policies, nil
}

// LoadFile reads policies from a YAML file.
func LoadFile(path string) ([]Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return LoadYAML(bytes.NewReader(raw))
}

// MarshalYAML renders policies in the layout LoadYAML accepts.
func MarshalYAML(policies []Policy) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{Policies: policies}); err != nil {
		return nil, fmt.Errorf("encode policy yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode policy yaml: %w", err)
	}
	return buf.Bytes(), nil
}

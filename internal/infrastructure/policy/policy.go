// Package policy evaluates the operation → role access table with OPA.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_policy.yaml
var defaultPolicy []byte

// Document is the access table: per subsystem, which roles may invoke which
// operation. Operation names are prefixed with their subsystem ("portal.",
// "licensing.").
type Document struct {
	Services map[string]Service `yaml:"services"`
}

// Service is one subsystem's slice of the table. Enforce defaults to true;
// when false every authenticated caller of that subsystem is admitted to its
// declared operations.
type Service struct {
	Enforce    *bool               `yaml:"enforce"`
	Operations map[string][]string `yaml:"operations"`
}

// Enforced reports whether role checks apply to the subsystem.
func (s Service) Enforced() bool {
	return s.Enforce == nil || *s.Enforce
}

// Default returns the embedded access table.
func Default() (*Document, error) {
	return Parse(defaultPolicy)
}

// Load reads the access table at path, or the embedded default when path is
// empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access policy: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML access table.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode access policy: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	if len(d.Services) == 0 {
		return errors.New("access policy: no services defined")
	}
	for name, svc := range d.Services {
		for op, roles := range svc.Operations {
			if !strings.HasPrefix(op, name+".") {
				return fmt.Errorf("access policy: operation %q is not in service %q", op, name)
			}
			for i, r := range roles {
				roles[i] = strings.ToUpper(strings.TrimSpace(r))
			}
		}
	}
	return nil
}

// data renders the table as the document tree the rego module reads under
// data.rolegate.
func (d *Document) data() map[string]any {
	services := make(map[string]any, len(d.Services))
	for name, svc := range d.Services {
		ops := make(map[string]any, len(svc.Operations))
		for op, roles := range svc.Operations {
			list := make([]any, len(roles))
			for i, r := range roles {
				list[i] = r
			}
			ops[op] = list
		}
		services[name] = map[string]any{
			"enforce":    svc.Enforced(),
			"operations": ops,
		}
	}
	return map[string]any{"rolegate": map[string]any{"services": services}}
}

// serviceOf returns the subsystem prefix of an operation name.
func serviceOf(operation string) string {
	name, _, _ := strings.Cut(operation, ".")
	return name
}

package core

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"skillup/pkg/schema"
)

//go:embed personas.yaml
var defaultPersonasYAML []byte

// PersonaCatalog is the injected set of trainers a session can pick from.
type PersonaCatalog struct {
	personas []schema.Persona
}

type personaFile struct {
	Personas []schema.Persona `yaml:"personas"`
}

// DefaultPersonas returns the built-in catalog.
func DefaultPersonas() *PersonaCatalog {
	catalog, err := ParsePersonas(defaultPersonasYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in persona catalog: %v", err))
	}
	return catalog
}

// LoadPersonas reads a catalog from path, or returns the built-in catalog
// when path is empty.
func LoadPersonas(path string) (*PersonaCatalog, error) {
	if path == "" {
		return DefaultPersonas(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}
	catalog, err := ParsePersonas(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return catalog, nil
}

// ParsePersonas decodes and validates a YAML catalog.
func ParsePersonas(data []byte) (*PersonaCatalog, error) {
	var file personaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal personas: %w", err)
	}
	if len(file.Personas) == 0 {
		return nil, &ValidationError{Field: "personas", Message: "catalog is empty"}
	}

	seen := make(map[string]bool, len(file.Personas))
	for i := range file.Personas {
		p := &file.Personas[i]
		if err := schema.ValidatePersona(p); err != nil {
			return nil, &ValidationError{Field: "personas", Message: err.Error(), Err: err}
		}
		key := strings.ToLower(p.Name)
		if seen[key] {
			return nil, &ValidationError{Field: "personas", Message: fmt.Sprintf("duplicate persona %q", p.Name)}
		}
		seen[key] = true
	}
	return &PersonaCatalog{personas: file.Personas}, nil
}

// All returns a copy of the catalog in file order.
func (c *PersonaCatalog) All() []schema.Persona {
	return append([]schema.Persona(nil), c.personas...)
}

// Lookup finds a persona by name, case-insensitively.
func (c *PersonaCatalog) Lookup(name string) (schema.Persona, bool) {
	for _, p := range c.personas {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return schema.Persona{}, false
}

// Default returns the first persona that trains mode.
func (c *PersonaCatalog) Default(mode schema.Mode) schema.Persona {
	for _, p := range c.personas {
		if p.Supports(mode) {
			return p
		}
	}
	return c.personas[0]
}

package model

import "github.com/invopop/jsonschema"

// Descriptor describes a registered capability. Built fresh for every registry query.
type Descriptor struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Version     string             `json:"version,omitempty" yaml:"version,omitempty"`
	Citations   []string           `json:"citations,omitempty" yaml:"citations,omitempty"`
	Schema      *jsonschema.Schema `json:"schema,omitempty" yaml:"-"`
}

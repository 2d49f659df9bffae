package model

import "path/filepath"

// FileGroup is an ordered set of absolute file paths parsed together as one unit
type FileGroup []string

// Dir returns the directory of the first file in the group
func (g FileGroup) Dir() string {
	if len(g) == 0 {
		return ""
	}
	return filepath.Dir(g[0])
}

// Basenames returns the base name of every file in the group, in group order
func (g FileGroup) Basenames() []string {
	names := make([]string, len(g))
	for i, p := range g {
		names[i] = filepath.Base(p)
	}
	return names
}

// Context carries optional hints about the files being grouped or parsed
// (e.g., a known format or results of an earlier extraction).
// The core passes it through untouched; parsers document the keys they read.
type Context map[string]any

// Record is the metadata produced by a parser for one FileGroup.
// Values must be representable as nested mappings, sequences and scalars.
type Record map[string]any

// ParseResult is one item of the run-all stream
type ParseResult struct {
	Group    FileGroup `json:"group" yaml:"group"`
	Parser   string    `json:"parser" yaml:"parser"`
	Metadata Record    `json:"metadata" yaml:"metadata"`
}

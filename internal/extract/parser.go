// Package extract defines the parser contract shared by every extraction capability.
package extract

import (
	"iter"

	"github.com/invopop/jsonschema"
	"github.com/ppiankov/materialsio/internal/grouping"
	"github.com/ppiankov/materialsio/internal/model"
)

// Parser extracts a metadata record from a group of related files
type Parser interface {
	grouping.Policy

	// Parse builds one record from the group. Errors are returned as-is;
	// ErrUnparsableGroup marks groups the parser cannot handle.
	Parse(group model.FileGroup, ctx model.Context) (model.Record, error)

	// Describe returns human documentation; its first line is the summary
	Describe() string

	// Version returns the parser version
	Version() string

	// Implementors lists points of contact, "First Last <email>"
	Implementors() []string

	// Citations lists BibTeX references to cite when the parser is used
	Citations() []string

	// Schema describes the records produced by Parse
	Schema() *jsonschema.Schema
}

// SchemaDraft is the marker used when a parser does not describe its output
const SchemaDraft = "http://json-schema.org/schema#"

// Base supplies the optional Parser methods. Embed it and override as needed.
type Base struct{}

// Group puts every file in its own group
func (Base) Group(files, dirs []string, ctx model.Context) iter.Seq[model.FileGroup] {
	return grouping.Singleton{}.Group(files, dirs, ctx)
}

// Citations returns no citations
func (Base) Citations() []string {
	return nil
}

// Schema returns a bare schema marker
func (Base) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{Version: SchemaDraft}
}

// FileParseFunc extracts metadata from exactly one file
type FileParseFunc func(path string, ctx model.Context) (model.Record, error)

// ParseSingle runs fn on a group that must hold exactly one file
func ParseSingle(group model.FileGroup, ctx model.Context, fn FileParseFunc) (model.Record, error) {
	if len(group) != 1 {
		return nil, model.Unparsable("parser only takes a single file at a time, got %d", len(group))
	}
	return fn(group[0], ctx)
}

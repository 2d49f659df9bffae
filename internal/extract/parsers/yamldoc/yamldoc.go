// Package yamldoc extracts the content of YAML and JSON files.
package yamldoc

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/model"
	"gopkg.in/yaml.v3"
)

// Name is the registry name of the parser
const Name = "yaml"

var formats = map[string]string{
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
}

// Parser loads structured documents
type Parser struct {
	extract.Base
}

// New creates a YAML/JSON parser
func New() *Parser {
	return &Parser{}
}

// Describe returns the parser documentation
func (p *Parser) Describe() string {
	return "Load the content of YAML and JSON files"
}

// Version returns the parser version
func (p *Parser) Version() string {
	return "0.1.0"
}

// Implementors returns the points of contact
func (p *Parser) Implementors() []string {
	return []string{"Materials IO Maintainers"}
}

// Group yields one group per YAML or JSON file
func (p *Parser) Group(files, dirs []string, ctx model.Context) iter.Seq[model.FileGroup] {
	var matched []string
	for _, f := range files {
		if _, ok := formats[strings.ToLower(filepath.Ext(f))]; ok {
			matched = append(matched, f)
		}
	}
	return p.Base.Group(matched, dirs, ctx)
}

// Parse decodes one file. Multi-document YAML yields every document under "documents".
func (p *Parser) Parse(group model.FileGroup, ctx model.Context) (model.Record, error) {
	return extract.ParseSingle(group, ctx, parseFile)
}

func parseFile(path string, _ model.Context) (model.Record, error) {
	format, ok := formats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, model.Unparsable("%s is not a YAML or JSON file", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	var docs []any
	dec := yaml.NewDecoder(f)
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, model.Unparsable("decode %s: %v", filepath.Base(path), err)
		}
		docs = append(docs, normalize(doc))
	}

	if len(docs) == 0 {
		return nil, model.Unparsable("%s is empty", filepath.Base(path))
	}

	rec := model.Record{
		"format": format,
		"keys":   topLevelKeys(docs[0]),
	}
	if len(docs) == 1 {
		rec["data"] = docs[0]
	} else {
		rec["documents"] = docs
	}
	return rec, nil
}

// normalize turns map[any]any into map[string]any so the record stays serialisable
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[fmt.Sprint(k)] = normalize(inner)
		}
		return out
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	default:
		return v
	}
}

func topLevelKeys(doc any) []string {
	m, ok := doc.(map[string]any)
	if !ok {
		return []string{}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package registry resolves parsers and adapters by name.
//
// Capabilities are registered explicitly as name -> factory pairs; every Get
// builds a new instance. Default returns the table of built-in capabilities.
package registry

import (
	"fmt"
	"strings"

	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/extract/adapters"
	"github.com/ppiankov/materialsio/internal/extract/parsers/dft"
	"github.com/ppiankov/materialsio/internal/extract/parsers/generic"
	"github.com/ppiankov/materialsio/internal/extract/parsers/htmldoc"
	"github.com/ppiankov/materialsio/internal/extract/parsers/yamldoc"
	"github.com/ppiankov/materialsio/internal/model"
)

// Namespaces
const (
	NamespaceParser  = "materialsio.parser"
	NamespaceAdapter = "materialsio.adapter"
)

// Registry holds the parser and adapter namespaces
type Registry struct {
	Parsers  *Table[extract.Parser]
	Adapters *Table[adapters.Adapter]
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		Parsers:  NewTable[extract.Parser](NamespaceParser),
		Adapters: NewTable[adapters.Adapter](NamespaceAdapter),
	}
}

// Default creates a registry with the built-in capabilities
func Default() *Registry {
	r := New()

	// Parsers
	mustRegister(r.Parsers, dft.Name, func() (extract.Parser, error) { return dft.New(), nil })
	mustRegister(r.Parsers, generic.Name, func() (extract.Parser, error) { return generic.New(), nil })
	mustRegister(r.Parsers, htmldoc.Name, func() (extract.Parser, error) { return htmldoc.New(), nil })
	mustRegister(r.Parsers, yamldoc.Name, func() (extract.Parser, error) { return yamldoc.New(), nil })

	// Adapters
	mustRegister(r.Adapters, "noop", func() (adapters.Adapter, error) { return adapters.NewNoop(), nil })
	mustRegister(r.Adapters, "dft", func() (adapters.Adapter, error) { return adapters.NewDFT(), nil })
	mustRegister(r.Adapters, "flatten", func() (adapters.Adapter, error) { return adapters.NewFlatten(), nil })

	return r
}

func mustRegister[T any](t *Table[T], name string, f Factory[T]) {
	if err := t.Register(name, f); err != nil {
		panic(err)
	}
}

// GetParser builds the named parser
func (r *Registry) GetParser(name string) (extract.Parser, error) {
	return r.Parsers.Get(name)
}

// GetAdapter builds the named adapter
func (r *Registry) GetAdapter(name string) (adapters.Adapter, error) {
	return r.Adapters.Get(name)
}

// Get builds a capability by namespace and name
func (r *Registry) Get(namespace, name string) (any, error) {
	switch namespace {
	case NamespaceParser:
		return r.GetParser(name)
	case NamespaceAdapter:
		return r.GetAdapter(name)
	default:
		return nil, fmt.Errorf("unknown namespace: %s (supported: %s, %s)", namespace, NamespaceParser, NamespaceAdapter)
	}
}

// List describes every capability in a namespace
func (r *Registry) List(namespace string) (map[string]model.Descriptor, error) {
	switch namespace {
	case NamespaceParser:
		return r.ListParsers()
	case NamespaceAdapter:
		return r.ListAdapters()
	default:
		return nil, fmt.Errorf("unknown namespace: %s (supported: %s, %s)", namespace, NamespaceParser, NamespaceAdapter)
	}
}

// ListParsers describes every registered parser
func (r *Registry) ListParsers() (map[string]model.Descriptor, error) {
	out := make(map[string]model.Descriptor)
	for _, name := range r.Parsers.Names() {
		p, err := r.Parsers.Get(name)
		if err != nil {
			return nil, err
		}
		out[name] = model.Descriptor{
			Name:        name,
			Description: summary(p.Describe()),
			Version:     p.Version(),
			Citations:   p.Citations(),
			Schema:      p.Schema(),
		}
	}
	return out, nil
}

// ListAdapters describes every registered adapter
func (r *Registry) ListAdapters() (map[string]model.Descriptor, error) {
	out := make(map[string]model.Descriptor)
	for _, name := range r.Adapters.Names() {
		a, err := r.Adapters.Get(name)
		if err != nil {
			return nil, err
		}
		d := model.Descriptor{
			Name:        name,
			Description: summary(a.Describe()),
		}
		if v, ok := a.(adapters.Versioned); ok {
			d.Version = v.Version()
		}
		out[name] = d
	}
	return out, nil
}

// summary returns the first line of a capability's documentation
func summary(doc string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(doc), "\n")
	return strings.TrimSpace(line)
}

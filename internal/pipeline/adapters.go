package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// AdapterMap chooses the adapter applied to each parser's records.
// The zero value applies no adapter beyond the run default.
type AdapterMap struct {
	explicit    map[string]string
	matchByName bool
}

// MatchByName pairs each parser with the adapter of the same name, when one
// is registered
func MatchByName() AdapterMap {
	return AdapterMap{matchByName: true}
}

// ExplicitAdapters pairs parsers with adapters by name
func ExplicitAdapters(m map[string]string) AdapterMap {
	explicit := make(map[string]string, len(m))
	for parser, adapter := range m {
		explicit[parser] = adapter
	}
	return AdapterMap{explicit: explicit}
}

// ParseAdapterMap reads the config and flag form: "" for none, "match" for
// MatchByName, or "parser=adapter,..." for an explicit table
func ParseAdapterMap(s string) (AdapterMap, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return AdapterMap{}, nil
	case "match":
		return MatchByName(), nil
	}

	m := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		parser, adapter, ok := strings.Cut(strings.TrimSpace(pair), "=")
		parser, adapter = strings.TrimSpace(parser), strings.TrimSpace(adapter)
		if !ok || parser == "" || adapter == "" {
			return AdapterMap{}, fmt.Errorf("invalid adapter mapping %q (want parser=adapter)", pair)
		}
		if _, dup := m[parser]; dup {
			return AdapterMap{}, fmt.Errorf("parser %s mapped twice", parser)
		}
		m[parser] = adapter
	}
	return ExplicitAdapters(m), nil
}

// Resolve returns the adapter for parser: the explicit entry, else the
// same-named adapter when matching is on and exists reports it, else def.
// An empty result means no adapter.
func (m AdapterMap) Resolve(parser string, exists func(string) bool, def string) string {
	if name, ok := m.explicit[parser]; ok {
		return name
	}
	if m.matchByName && exists != nil && exists(parser) {
		return parser
	}
	return def
}

// String renders the map in the form ParseAdapterMap accepts
func (m AdapterMap) String() string {
	if m.matchByName {
		return "match"
	}
	pairs := make([]string, 0, len(m.explicit))
	for parser, adapter := range m.explicit {
		pairs = append(pairs, parser+"="+adapter)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

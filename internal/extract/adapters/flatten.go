package adapters

import (
	"sort"

	"github.com/ppiankov/materialsio/internal/model"
)

// Flatten turns nested mappings into a single level with dotted keys
type Flatten struct {
	separator string
}

// NewFlatten creates a flatten adapter joining keys with "."
func NewFlatten() *Flatten {
	return &Flatten{separator: "."}
}

// Describe returns the adapter documentation
func (a *Flatten) Describe() string {
	return `Flatten nested mappings into dotted keys

{"incar": {"ENCUT": 520}} becomes {"incar.ENCUT": 520}. Sequences are kept as values.`
}

// Version returns the adapter version
func (a *Flatten) Version() string {
	return "0.1.0"
}

// Transform flattens rec
func (a *Flatten) Transform(rec model.Record) (model.Record, error) {
	out := make(model.Record, len(rec))
	a.flatten(out, "", rec)
	return out, nil
}

func (a *Flatten) flatten(out model.Record, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + a.separator + k
		}

		switch v := m[k].(type) {
		case map[string]any:
			a.flatten(out, key, v)
		case model.Record:
			a.flatten(out, key, v)
		default:
			out[key] = v
		}
	}
}

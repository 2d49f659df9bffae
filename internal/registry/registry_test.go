package registry

import (
	"errors"
	"testing"

	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/extract/adapters"
	"github.com/ppiankov/materialsio/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Register(t *testing.T) {
	table := NewTable[adapters.Adapter](NamespaceAdapter)
	factory := func() (adapters.Adapter, error) { return adapters.NewNoop(), nil }

	tests := []struct {
		name    string
		key     string
		factory Factory[adapters.Adapter]
		wantErr bool
	}{
		{name: "register valid factory", key: "noop", factory: factory},
		{name: "register empty name", key: "", factory: factory, wantErr: true},
		{name: "register nil factory", key: "nil", factory: nil, wantErr: true},
		{name: "register duplicate", key: "noop", factory: factory, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := table.Register(tt.key, tt.factory)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, []string{"noop"}, table.Names())
}

func TestTable_GetBuildsFreshInstances(t *testing.T) {
	table := NewTable[*adapters.Flatten](NamespaceAdapter)
	require.NoError(t, table.Register("flatten", func() (*adapters.Flatten, error) { return adapters.NewFlatten(), nil }))

	a, err := table.Get("flatten")
	require.NoError(t, err)
	b, err := table.Get("flatten")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestTable_GetNotFound(t *testing.T) {
	table := NewTable[extract.Parser](NamespaceParser)

	_, err := table.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)

	var capErr *model.CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, NamespaceParser, capErr.Namespace)
	assert.Equal(t, "missing", capErr.Name)
}

func TestTable_FactoryError(t *testing.T) {
	table := NewTable[adapters.Adapter](NamespaceAdapter)
	require.NoError(t, table.Register("broken", func() (adapters.Adapter, error) {
		return nil, errors.New("missing credentials")
	}))

	_, err := table.Get("broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), "missing credentials")
}

func TestDefault_ListParsers(t *testing.T) {
	parsers, err := Default().ListParsers()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"dft", "generic", "html", "yaml"}, keys(parsers))

	d := parsers["dft"]
	assert.Equal(t, "dft", d.Name)
	assert.Equal(t, "Extract data from Density Functional Theory calculation results", d.Description)
	assert.NotEmpty(t, d.Version)
	assert.Len(t, d.Citations, 2)
	require.NotNil(t, d.Schema)
	assert.Equal(t, extract.SchemaDraft, d.Schema.Version)
}

func TestDefault_ListAdapters(t *testing.T) {
	list, err := Default().List(NamespaceAdapter)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"dft", "flatten", "noop"}, keys(list))
	assert.Equal(t, "Pass records through unchanged", list["noop"].Description)
	assert.Empty(t, list["noop"].Version, "noop exposes no version")
	assert.NotEmpty(t, list["flatten"].Version)
	assert.Equal(t, "Flatten nested mappings into dotted keys", list["flatten"].Description)
}

func TestRegistry_GetByNamespace(t *testing.T) {
	r := Default()

	p, err := r.Get(NamespaceParser, "dft")
	require.NoError(t, err)
	assert.Implements(t, (*extract.Parser)(nil), p)

	a, err := r.Get(NamespaceAdapter, "flatten")
	require.NoError(t, err)
	assert.Implements(t, (*adapters.Adapter)(nil), a)

	_, err = r.Get(NamespaceAdapter, "unknown")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = r.Get("materialsio.other", "dft")
	assert.Error(t, err)
	_, err = r.List("materialsio.other")
	assert.Error(t, err)
}

func TestRegistry_DescriptorsAreNotCached(t *testing.T) {
	r := Default()

	first, err := r.ListParsers()
	require.NoError(t, err)
	second, err := r.ListParsers()
	require.NoError(t, err)

	assert.NotSame(t, first["dft"].Schema, second["dft"].Schema)
}

func keys(m map[string]model.Descriptor) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

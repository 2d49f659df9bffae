package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/extract/adapters"
	"github.com/ppiankov/materialsio/internal/model"
	"github.com/ppiankov/materialsio/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagParser records which parser saw each file. Files named bad* fail and
// files named boom* panic.
type tagParser struct {
	extract.Base
	tag   string
	calls *int
}

func (p *tagParser) Parse(group model.FileGroup, ctx model.Context) (model.Record, error) {
	if p.calls != nil {
		*p.calls++
	}
	name := filepath.Base(group[0])
	switch {
	case strings.HasPrefix(name, "bad"):
		return nil, model.Unparsable("cannot read %s", name)
	case strings.HasPrefix(name, "boom"):
		panic("corrupt input")
	}
	return model.Record{"tag": p.tag, "file": name}, nil
}

func (p *tagParser) Describe() string       { return "Tag files with " + p.tag }
func (p *tagParser) Version() string        { return "0.0.1" }
func (p *tagParser) Implementors() []string { return nil }

// stampAdapter marks records it transformed. Records for veto* files are
// dropped and records for reject* files fail.
type stampAdapter struct {
	name string
}

func (a *stampAdapter) Describe() string { return "Stamp records with " + a.name }

func (a *stampAdapter) Transform(rec model.Record) (model.Record, error) {
	file, _ := rec["file"].(string)
	switch {
	case strings.HasPrefix(file, "veto"):
		return nil, adapters.Veto("%s is not interesting", file)
	case strings.HasPrefix(file, "reject"):
		return nil, errors.New("malformed record")
	}
	out := model.Record{"adapted_by": a.name}
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	}
}

func registerParser(t *testing.T, reg *registry.Registry, name string, calls *int) {
	t.Helper()
	require.NoError(t, reg.Parsers.Register(name, func() (extract.Parser, error) {
		return &tagParser{tag: name, calls: calls}, nil
	}))
}

func registerAdapter(t *testing.T, reg *registry.Registry, name string) {
	t.Helper()
	require.NoError(t, reg.Adapters.Register(name, func() (adapters.Adapter, error) {
		return &stampAdapter{name: name}, nil
	}))
}

func collect(t *testing.T, seq func(func(model.ParseResult, error) bool)) ([]model.ParseResult, []error) {
	t.Helper()
	var results []model.ParseResult
	var errs []error
	for res, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

func TestParseDirectory_SkipsFailingGroup(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "bad.txt", "c.txt")

	p := NewPipeline(registry.New(), nil, nil)

	var files []string
	for item, err := range p.ParseDirectory(context.Background(), &tagParser{tag: "A"}, root, nil) {
		require.NoError(t, err)
		files = append(files, item.Metadata["file"].(string))
		assert.Len(t, item.Group, 1)
	}

	assert.Equal(t, []string{"a.txt", "c.txt"}, files)
}

func TestParseDirectory_RecoversParserPanic(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "boom.txt", "sub/c.txt")

	p := NewPipeline(registry.New(), nil, nil)

	var files []string
	for item, err := range p.ParseDirectory(context.Background(), &tagParser{tag: "A"}, root, nil) {
		require.NoError(t, err)
		files = append(files, item.Metadata["file"].(string))
	}

	assert.Equal(t, []string{"a.txt", "c.txt"}, files)
}

func TestParseDirectory_EarlyStop(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt", "c.txt", "sub/d.txt")

	calls := 0
	p := NewPipeline(registry.New(), nil, nil)

	for _, err := range p.ParseDirectory(context.Background(), &tagParser{tag: "A", calls: &calls}, root, nil) {
		require.NoError(t, err)
		break
	}

	assert.Equal(t, 1, calls)
}

func TestParseDirectory_MissingRoot(t *testing.T) {
	p := NewPipeline(registry.New(), nil, nil)

	var errs []error
	for _, err := range p.ParseDirectory(context.Background(), &tagParser{tag: "A"}, filepath.Join(t.TempDir(), "missing"), nil) {
		errs = append(errs, err)
	}

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestIdentifyFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "sub/b.txt")

	p := NewPipeline(registry.New(), nil, nil)

	var groups []model.FileGroup
	for group, err := range p.IdentifyFiles(&tagParser{tag: "A"}, root, nil) {
		require.NoError(t, err)
		groups = append(groups, group)
	}

	require.Len(t, groups, 2)
	assert.Equal(t, "a.txt", groups[0].Basenames()[0])
	assert.Equal(t, "b.txt", groups[1].Basenames()[0])
}

func TestRunAllParsers_MatchByName(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.txt")

	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerParser(t, reg, "B", nil)
	registerAdapter(t, reg, "A")

	p := NewPipeline(reg, nil, nil)
	results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, MatchByName(), ""))

	require.Empty(t, errs)
	require.Len(t, results, 2)

	assert.Equal(t, "A", results[0].Parser)
	assert.Equal(t, "A", results[0].Metadata["adapted_by"])

	assert.Equal(t, "B", results[1].Parser)
	assert.NotContains(t, results[1].Metadata, "adapted_by")
	assert.Equal(t, model.Record{"tag": "B", "file": "x.txt"}, results[1].Metadata)
}

func TestRunAllParsers_AdapterResolutionOrder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.txt")

	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerParser(t, reg, "B", nil)
	registerAdapter(t, reg, "A")
	registerAdapter(t, reg, "fallback")
	registerAdapter(t, reg, "special")

	p := NewPipeline(reg, nil, nil)

	tests := []struct {
		name       string
		adapterMap AdapterMap
		def        string
		want       map[string]any // parser -> adapted_by, nil for none
	}{
		{
			name:       "no map and no default",
			adapterMap: AdapterMap{},
			want:       map[string]any{"A": nil, "B": nil},
		},
		{
			name:       "default only",
			adapterMap: AdapterMap{},
			def:        "fallback",
			want:       map[string]any{"A": "fallback", "B": "fallback"},
		},
		{
			name:       "match falls back to default",
			adapterMap: MatchByName(),
			def:        "fallback",
			want:       map[string]any{"A": "A", "B": "fallback"},
		},
		{
			name:       "explicit wins",
			adapterMap: ExplicitAdapters(map[string]string{"A": "special"}),
			def:        "fallback",
			want:       map[string]any{"A": "special", "B": "fallback"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, tt.adapterMap, tt.def))
			require.Empty(t, errs)
			require.Len(t, results, 2)
			for _, res := range results {
				assert.Equal(t, tt.want[res.Parser], res.Metadata["adapted_by"], "parser %s", res.Parser)
			}
		})
	}
}

func TestRunAllParsers_TransformFailuresSkipItem(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "keep.txt", "reject.txt", "veto.txt")

	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerAdapter(t, reg, "A")

	p := NewPipeline(reg, nil, nil)
	results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, MatchByName(), ""))

	require.Empty(t, errs)
	require.Len(t, results, 1)
	assert.Equal(t, "keep.txt", results[0].Metadata["file"])
}

func TestRunAllParsers_CapabilityFailureIsIsolated(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.txt")

	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerParser(t, reg, "C", nil)
	require.NoError(t, reg.Parsers.Register("B", func() (extract.Parser, error) {
		return nil, errors.New("missing dependency")
	}))

	p := NewPipeline(reg, nil, nil)

	t.Run("parser construction", func(t *testing.T) {
		results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, AdapterMap{}, ""))
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "missing dependency")
		require.Len(t, results, 2)
		assert.Equal(t, "A", results[0].Parser)
		assert.Equal(t, "C", results[1].Parser)
	})

	t.Run("unknown adapter", func(t *testing.T) {
		adapterMap := ExplicitAdapters(map[string]string{"A": "nope"})
		results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, adapterMap, ""))
		require.Len(t, errs, 2)
		assert.ErrorIs(t, errs[0], model.ErrNotFound)
		require.Len(t, results, 1)
		assert.Equal(t, "C", results[0].Parser)
	})
}

func TestRunAllParsers_EarlyStop(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt")

	calls := 0
	reg := registry.New()
	registerParser(t, reg, "A", &calls)
	registerParser(t, reg, "B", &calls)

	p := NewPipeline(reg, nil, nil)
	for res, err := range p.RunAllParsers(context.Background(), root, nil, AdapterMap{}, "") {
		require.NoError(t, err)
		assert.Equal(t, "A", res.Parser)
		break
	}

	assert.Equal(t, 1, calls)
}

func TestRunAllParsers_ContextCancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")

	calls := 0
	reg := registry.New()
	registerParser(t, reg, "A", &calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(reg, nil, nil)
	results, errs := collect(t, p.RunAllParsers(ctx, root, nil, AdapterMap{}, ""))

	assert.Empty(t, results)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.Zero(t, calls)
}

func TestRunAllParsers_MissingRoot(t *testing.T) {
	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerParser(t, reg, "B", nil)

	p := NewPipeline(reg, nil, nil)
	_, errs := collect(t, p.RunAllParsers(context.Background(), filepath.Join(t.TempDir(), "missing"), nil, AdapterMap{}, ""))

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestRunAllParsers_RateLimited(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt")

	reg := registry.New()
	registerParser(t, reg, "A", nil)

	cfg := model.DefaultConfig()
	cfg.RateLimiting.GroupsPerSecond = 1000
	p := NewPipeline(reg, cfg, nil)
	require.NotNil(t, p.limiter)

	results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, AdapterMap{}, ""))
	require.Empty(t, errs)
	assert.Len(t, results, 2)
}

func TestRunAllParsers_PerParserRate(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "b.txt")

	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerParser(t, reg, "B", nil)

	cfg := model.DefaultConfig()
	cfg.RateLimiting.BurstSize = 1
	cfg.RateLimiting.Parsers = map[string]float64{"A": 0.001}
	p := NewPipeline(reg, cfg, nil)
	require.NotNil(t, p.limiter)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	results, errs := collect(t, p.RunAllParsers(ctx, root, nil, AdapterMap{}, ""))
	require.Len(t, errs, 1, "second A group must be throttled past the deadline")

	byParser := map[string]int{}
	for _, res := range results {
		byParser[res.Parser]++
	}
	assert.Equal(t, 1, byParser["A"])
	assert.Equal(t, 2, byParser["B"])
}

func TestExecuteParser(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt", "bad.txt", "veto.txt", "reject.txt")
	path := func(name string) model.FileGroup { return model.FileGroup{filepath.Join(root, name)} }

	reg := registry.New()
	registerParser(t, reg, "A", nil)
	registerAdapter(t, reg, "A")
	p := NewPipeline(reg, nil, nil)
	ctx := context.Background()

	t.Run("without adapter", func(t *testing.T) {
		rec, err := p.ExecuteParser(ctx, "A", path("a.txt"), nil, "")
		require.NoError(t, err)
		assert.Equal(t, model.Record{"tag": "A", "file": "a.txt"}, rec)
	})

	t.Run("with adapter", func(t *testing.T) {
		rec, err := p.ExecuteParser(ctx, "A", path("a.txt"), nil, "A")
		require.NoError(t, err)
		assert.Equal(t, "A", rec["adapted_by"])
	})

	t.Run("parse failure propagates", func(t *testing.T) {
		_, err := p.ExecuteParser(ctx, "A", path("bad.txt"), nil, "")
		assert.ErrorIs(t, err, model.ErrUnparsableGroup)
	})

	t.Run("veto propagates", func(t *testing.T) {
		_, err := p.ExecuteParser(ctx, "A", path("veto.txt"), nil, "A")
		assert.ErrorIs(t, err, model.ErrTransformVetoed)
	})

	t.Run("rejection propagates", func(t *testing.T) {
		_, err := p.ExecuteParser(ctx, "A", path("reject.txt"), nil, "A")
		assert.ErrorIs(t, err, model.ErrTransformRejected)
	})

	t.Run("unknown parser", func(t *testing.T) {
		_, err := p.ExecuteParser(ctx, "missing", path("a.txt"), nil, "")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("unknown adapter", func(t *testing.T) {
		_, err := p.ExecuteParser(ctx, "A", path("a.txt"), nil, "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestRunAllParsers_DefaultRegistry(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"calc/INCAR", "calc/OUTCAR",
		"docs/page.html",
		"docs/meta.yaml",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc/INCAR"), []byte("ENCUT = 520\nSYSTEM = Si\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc/OUTCAR"), []byte("  free  energy   TOTEN  =       -10.5 eV\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs/page.html"), []byte("<html><head><title>Si</title></head><body>hi</body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs/meta.yaml"), []byte("material: Si\n"), 0o644))

	p := NewPipeline(registry.Default(), nil, nil)
	results, errs := collect(t, p.RunAllParsers(context.Background(), root, nil, MatchByName(), ""))
	require.Empty(t, errs)

	byParser := map[string]int{}
	for _, res := range results {
		byParser[res.Parser]++
	}
	assert.Equal(t, 1, byParser["dft"])
	assert.Equal(t, 4, byParser["generic"])
	assert.Equal(t, 1, byParser["html"])
	assert.Equal(t, 1, byParser["yaml"])
}

// Package pipeline dispatches parsers and adapters over directory trees.
//
// All streams returned here are lazy and single-pass: a sequence walks the
// tree once per range loop and stops as soon as the consumer breaks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/ppiankov/materialsio/internal/extract"
	"github.com/ppiankov/materialsio/internal/extract/adapters"
	"github.com/ppiankov/materialsio/internal/grouping"
	"github.com/ppiankov/materialsio/internal/model"
	"github.com/ppiankov/materialsio/internal/registry"
	"github.com/ppiankov/materialsio/internal/worker"
)

// Pipeline orchestrates grouping, parsing and adaptation
type Pipeline struct {
	registry *registry.Registry
	limiter  *worker.Limiter // nil when unthrottled
	logger   hclog.Logger
	config   *model.Config
}

// NewPipeline creates a new pipeline. A nil cfg uses the defaults and a nil
// logger discards output.
func NewPipeline(reg *registry.Registry, cfg *model.Config, logger hclog.Logger) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var limiter *worker.Limiter
	rl := cfg.RateLimiting
	if rl.GroupsPerSecond > 0 || len(rl.Parsers) > 0 {
		limiter = worker.NewLimiter(rl.GroupsPerSecond, rl.BurstSize)
		for name, perSecond := range rl.Parsers {
			limiter.SetRate(name, perSecond, rl.BurstSize)
		}
	}

	return &Pipeline{
		registry: reg,
		limiter:  limiter,
		logger:   logger.Named("pipeline"),
		config:   cfg,
	}
}

// Registry returns the capability registry the pipeline dispatches to
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

// GroupRecord is one parsed group before adaptation
type GroupRecord struct {
	Group    model.FileGroup
	Metadata model.Record
}

// IdentifyFiles yields the groups parser would see under root
func (p *Pipeline) IdentifyFiles(parser extract.Parser, root string, mctx model.Context) iter.Seq2[model.FileGroup, error] {
	return grouping.Walk(root, parser, mctx)
}

// ParseDirectory groups and parses every level under root. Groups the parser
// cannot handle are skipped; walk errors are yielded.
func (p *Pipeline) ParseDirectory(ctx context.Context, parser extract.Parser, root string, mctx model.Context) iter.Seq2[GroupRecord, error] {
	return p.parseDirectory(ctx, fmt.Sprintf("%T", parser), parser, root, mctx)
}

func (p *Pipeline) parseDirectory(ctx context.Context, name string, parser extract.Parser, root string, mctx model.Context) iter.Seq2[GroupRecord, error] {
	return func(yield func(GroupRecord, error) bool) {
		for group, err := range p.IdentifyFiles(parser, root, mctx) {
			if err != nil {
				if !yield(GroupRecord{}, err) {
					return
				}
				continue
			}

			if err := p.wait(ctx, name); err != nil {
				yield(GroupRecord{}, err)
				return
			}

			rec, err := safeParse(parser, group, mctx)
			if err != nil {
				p.skipItem(name, group, err)
				continue
			}
			if rec == nil {
				continue
			}

			if !yield(GroupRecord{Group: group, Metadata: rec}, nil) {
				return
			}
		}
	}
}

// RunAllParsers runs every registered parser over root, in name order, and
// adapts each record. A capability that fails as a whole is reported as an
// error and the run moves on to the next one.
func (p *Pipeline) RunAllParsers(ctx context.Context, root string, mctx model.Context, adapterMap AdapterMap, defaultAdapter string) iter.Seq2[model.ParseResult, error] {
	return func(yield func(model.ParseResult, error) bool) {
		if err := checkRoot(root); err != nil {
			yield(model.ParseResult{}, err)
			return
		}

		for _, name := range p.registry.Parsers.Names() {
			if err := ctx.Err(); err != nil {
				yield(model.ParseResult{}, err)
				return
			}

			if !p.runParser(ctx, name, root, mctx, adapterMap, defaultAdapter, yield) {
				return
			}
		}
	}
}

// runParser returns false once the consumer stops
func (p *Pipeline) runParser(ctx context.Context, name, root string, mctx model.Context, adapterMap AdapterMap, defaultAdapter string, yield func(model.ParseResult, error) bool) bool {
	log := p.logger.With("parser", name)

	parser, err := p.registry.GetParser(name)
	if err != nil {
		log.Error("parser unavailable", "error", err)
		return yield(model.ParseResult{}, err)
	}

	var adapter adapters.Adapter
	adapterName := adapterMap.Resolve(name, p.registry.Adapters.Has, defaultAdapter)
	if adapterName != "" {
		adapter, err = p.registry.GetAdapter(adapterName)
		if err != nil {
			log.Error("adapter unavailable", "adapter", adapterName, "error", err)
			return yield(model.ParseResult{}, fmt.Errorf("parser %s: %w", name, err))
		}
	}

	count := 0
	for item, err := range p.parseDirectory(ctx, name, parser, root, mctx) {
		if err != nil {
			if !yield(model.ParseResult{}, err) || ctx.Err() != nil {
				return false
			}
			continue
		}

		rec := item.Metadata
		if adapter != nil {
			rec, err = adapters.Apply(adapter, rec)
			if err != nil {
				p.skipItem(adapterName, item.Group, err)
				continue
			}
		}

		count++
		if !yield(model.ParseResult{Group: item.Group, Parser: name, Metadata: rec}, nil) {
			return false
		}
	}

	log.Debug("parser finished", "records", count, "adapter", adapterName)
	return true
}

// ExecuteParser parses one group and optionally adapts the record. Unlike
// the directory streams, every failure is returned to the caller.
func (p *Pipeline) ExecuteParser(ctx context.Context, name string, group model.FileGroup, mctx model.Context, adapterName string) (model.Record, error) {
	parser, err := p.registry.GetParser(name)
	if err != nil {
		return nil, err
	}

	if err := p.wait(ctx, name); err != nil {
		return nil, err
	}

	rec, err := parser.Parse(group, mctx)
	if err != nil {
		return nil, fmt.Errorf("parse with %s: %w", name, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("parse with %s: %w", name, model.Unparsable("no record produced"))
	}

	if adapterName == "" {
		return rec, nil
	}

	adapter, err := p.registry.GetAdapter(adapterName)
	if err != nil {
		return nil, err
	}

	out, err := adapters.Apply(adapter, rec)
	if err != nil {
		return nil, fmt.Errorf("adapt with %s: %w", adapterName, err)
	}
	return out, nil
}

// skipItem is the skip-and-log policy for per-group failures inside a
// directory stream
func (p *Pipeline) skipItem(capability string, group model.FileGroup, err error) {
	args := []any{"capability", capability, "dir", group.Dir(), "files", group.Basenames(), "error", err}
	switch {
	case errors.Is(err, model.ErrTransformVetoed):
		p.logger.Debug("record vetoed", args...)
	case errors.Is(err, model.ErrTransformRejected):
		p.logger.Warn("transform rejected", args...)
	default:
		p.logger.Debug("group skipped", args...)
	}
}

func (p *Pipeline) wait(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx, key)
}

// safeParse turns a parser panic into an ordinary parse failure
func safeParse(parser extract.Parser, group model.FileGroup, mctx model.Context) (rec model.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("parser panic: %v", r)
		}
	}()
	return parser.Parse(group, mctx)
}

func checkRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", abs)
	}
	return nil
}

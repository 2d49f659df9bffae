package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/materialsio/internal/model"
	"github.com/ppiankov/materialsio/internal/pipeline"
	"github.com/ppiankov/materialsio/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var batchTimeout time.Duration

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <roots-file>",
	Short: "Run every parser over many directory trees in parallel",
	Long: `Batch reads root directories from a file (one per line, '#' comments)
and runs every parser over each root on a worker pool. Each root is
processed sequentially; roots are processed concurrently. Results are
printed in the order the roots are listed. The command fails if any root
reported an error.

Example:
  materialsio batch roots.txt
  materialsio batch roots.txt --workers 8 --adapter-map match`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("workers", 0, "number of roots processed concurrently (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 0, "total timeout for the batch (0 for none)")
	addDispatchFlags(batchCmd)
	addContextFlag(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	_ = viper.BindPFlag("concurrency.workers", cmd.Flags().Lookup("workers"))
	workers := viper.GetInt("concurrency.workers")

	mctx, err := parseContext(contextFlags)
	if err != nil {
		return err
	}

	adapterMap, defaultAdapter, err := dispatchOptions(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	if batchTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, batchTimeout)
		defer cancel()
	}

	p := newPipeline()
	processor := worker.NewBatchProcessor(rootScanner(p, mctx, adapterMap, defaultAdapter), workers)

	logger.Info("batch starting", "file", file, "workers", workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer, err := newRenderer(cmd)
	if err != nil {
		return err
	}

	records, failures := 0, 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			logger.Warn("root failed", "root", result.Root, "error", result.Error)
		}
		for _, res := range result.Results {
			if err := renderer.Result(result.Root, res); err != nil {
				return err
			}
			records++
		}
	}

	logger.Info("batch complete", "roots", len(results), "failures", failures, "records", records, "run_id", renderer.RunID())
	if err := renderer.Close(); err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d roots failed", failures, len(results))
	}
	return nil
}

// rootScanner collects RunAllParsers for one root. Walk and capability
// errors are joined; the records found alongside them are kept.
func rootScanner(p *pipeline.Pipeline, mctx model.Context, adapterMap pipeline.AdapterMap, defaultAdapter string) worker.ScanFunc {
	return func(ctx context.Context, root string) ([]model.ParseResult, error) {
		var (
			results []model.ParseResult
			errs    []error
		)
		for res, err := range p.RunAllParsers(ctx, root, mctx, adapterMap, defaultAdapter) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			results = append(results, res)
		}
		return results, errors.Join(errs...)
	}
}

package cli

import (
	"errors"

	"github.com/ppiankov/materialsio/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Run every parser over a directory tree",
	Long: `Run applies every registered parser, in name order, to the tree under
<dir> and prints each record tagged with the parser that produced it.

Adapters are chosen per parser: an explicit --adapter-map entry first, then
the adapter of the same name when --adapter-map=match, then
--default-adapter. Records an adapter vetoes or rejects are skipped.
Walk and capability errors are logged as they happen and make the command
fail once every parser has run.

Example:
  materialsio run ./calculations
  materialsio run ./calculations --adapter-map match
  materialsio run ./calculations --adapter-map dft=flatten --default-adapter noop`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addDispatchFlags(runCmd)
	addContextFlag(runCmd)
}

// addDispatchFlags adds the adapter selection flags shared by run, batch and watch
func addDispatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("adapter-map", "", `adapter per parser: "match" or "parser=adapter,..."`)
	cmd.Flags().String("default-adapter", "", "adapter for parsers without a mapping")
}

// dispatchOptions resolves adapter selection from flags over config
func dispatchOptions(cmd *cobra.Command) (pipeline.AdapterMap, string, error) {
	_ = viper.BindPFlag("dispatch.adapter_map", cmd.Flags().Lookup("adapter-map"))
	_ = viper.BindPFlag("dispatch.default_adapter", cmd.Flags().Lookup("default-adapter"))

	adapterMap, err := pipeline.ParseAdapterMap(viper.GetString("dispatch.adapter_map"))
	if err != nil {
		return pipeline.AdapterMap{}, "", err
	}
	return adapterMap, viper.GetString("dispatch.default_adapter"), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	root := args[0]
	mctx, err := parseContext(contextFlags)
	if err != nil {
		return err
	}

	adapterMap, defaultAdapter, err := dispatchOptions(cmd)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	var errs []error
	count := 0
	for res, err := range newPipeline().RunAllParsers(ctx, root, mctx, adapterMap, defaultAdapter) {
		if err != nil {
			logger.Warn("run error", "root", root, "error", err)
			errs = append(errs, err)
			continue
		}
		if err := renderer.Result(root, res); err != nil {
			return err
		}
		count++
	}

	logger.Info("run complete", "root", root, "records", count, "errors", len(errs), "adapter_map", adapterMap.String(), "run_id", renderer.RunID())
	if err := renderer.Close(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

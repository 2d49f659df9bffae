package cli

import (
	"context"

	"github.com/ppiankov/materialsio/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchIgnore []string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Re-run every parser whenever a directory tree changes",
	Long: `Watch runs every parser over <dir> once, then again each time files
under it change. Bursts of changes are coalesced (see --debounce).
Each pass gets its own run ID.

Example:
  materialsio watch ./calculations --adapter-map match
  materialsio watch ./calculations --ignore '**/*.tmp'`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("debounce", 0, "quiet period before re-running (default from config)")
	watchCmd.Flags().StringArrayVar(&watchIgnore, "ignore", nil, "doublestar pattern of paths to ignore (repeatable)")
	addDispatchFlags(watchCmd)
	addContextFlag(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := args[0]
	_ = viper.BindPFlag("watch.debounce", cmd.Flags().Lookup("debounce"))

	mctx, err := parseContext(contextFlags)
	if err != nil {
		return err
	}

	adapterMap, defaultAdapter, err := dispatchOptions(cmd)
	if err != nil {
		return err
	}

	p := newPipeline()
	scan := rootScanner(p, mctx, adapterMap, defaultAdapter)

	pass := func(ctx context.Context, changed []string) error {
		renderer, err := newRenderer(cmd)
		if err != nil {
			return err
		}

		results, err := scan(ctx, root)
		if err != nil {
			logger.Warn("run error", "root", root, "error", err)
		}
		for _, res := range results {
			if err := renderer.Result(root, res); err != nil {
				return err
			}
		}

		logger.Info("pass complete", "root", root, "changed", len(changed), "records", len(results), "run_id", renderer.RunID())
		return renderer.Close()
	}

	w, err := watch.New(watch.Config{
		Root:     root,
		Debounce: viper.GetDuration("watch.debounce"),
		Ignore:   watchIgnore,
		OnChange: pass,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := pass(ctx, nil); err != nil {
		return err
	}
	return w.Run(ctx)
}

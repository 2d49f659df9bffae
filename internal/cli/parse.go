package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/materialsio/internal/grouping"
	"github.com/ppiankov/materialsio/internal/model"
	"github.com/spf13/cobra"
)

var (
	parserName  string
	adapterName string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <dir>",
	Short: "Run one parser over a directory tree",
	Long: `Parse walks the tree under <dir>, groups files the way the chosen parser
expects and prints one record per group. Groups the parser cannot handle
are skipped (see --verbose for details).

Example:
  materialsio parse ./calculations --parser dft
  materialsio parse ./calculations --parser dft -c quality_report=true`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec <parser> <file>...",
	Short: "Parse one explicit group of files",
	Long: `Exec hands the given files to a parser as a single group and prints the
record. Unlike parse and run, any failure is reported as an error.

Example:
  materialsio exec dft run/INCAR run/OUTCAR
  materialsio exec dft run/INCAR run/OUTCAR --adapter dft`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

// groupCmd represents the group command
var groupCmd = &cobra.Command{
	Use:   "group <path>...",
	Short: "Show how a parser groups files without parsing them",
	Long: `Group applies a parser's grouping to the given files and directories
(directories are walked recursively) and prints the groups.

Example:
  materialsio group ./calculations --parser dft`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGroup,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(groupCmd)

	parseCmd.Flags().StringVarP(&parserName, "parser", "p", "", "parser name (see 'materialsio list parsers')")
	_ = parseCmd.MarkFlagRequired("parser")
	addContextFlag(parseCmd)

	execCmd.Flags().StringVarP(&adapterName, "adapter", "a", "", "adapter applied to the record")
	addContextFlag(execCmd)

	groupCmd.Flags().StringVarP(&parserName, "parser", "p", "", "parser whose grouping is used")
	_ = groupCmd.MarkFlagRequired("parser")
	addContextFlag(groupCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	root := args[0]
	mctx, err := parseContext(contextFlags)
	if err != nil {
		return err
	}

	p := newPipeline()
	parser, err := p.Registry().GetParser(parserName)
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
	for item, err := range p.ParseDirectory(ctx, parser, root, mctx) {
		if err != nil {
			logger.Warn("walk error", "root", root, "error", err)
			errs = append(errs, err)
			continue
		}
		res := model.ParseResult{Group: item.Group, Parser: parserName, Metadata: item.Metadata}
		if err := renderer.Result(root, res); err != nil {
			return err
		}
		count++
	}

	logger.Info("parse complete", "parser", parserName, "root", root, "records", count, "errors", len(errs), "run_id", renderer.RunID())
	if err := renderer.Close(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func runExec(cmd *cobra.Command, args []string) error {
	name, files := args[0], args[1:]
	mctx, err := parseContext(contextFlags)
	if err != nil {
		return err
	}

	group, err := resolveGroup(files)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rec, err := newPipeline().ExecuteParser(ctx, name, group, mctx, adapterName)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cmd)
	if err != nil {
		return err
	}
	if err := renderer.Result("", model.ParseResult{Group: group, Parser: name, Metadata: rec}); err != nil {
		return err
	}
	return renderer.Close()
}

func runGroup(cmd *cobra.Command, args []string) error {
	mctx, err := parseContext(contextFlags)
	if err != nil {
		return err
	}

	parser, err := newPipeline().Registry().GetParser(parserName)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cmd)
	if err != nil {
		return err
	}

	var errs []error
	for group, err := range grouping.GroupPaths(args, parser, mctx) {
		if err != nil {
			logger.Warn("walk error", "error", err)
			errs = append(errs, err)
			continue
		}
		if err := renderer.Value(map[string]any{"run_id": renderer.RunID(), "parser": parserName, "group": group}); err != nil {
			return err
		}
	}
	if err := renderer.Close(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// resolveGroup makes every path absolute and checks it is an existing file
func resolveGroup(files []string) (model.FileGroup, error) {
	group := make(model.FileGroup, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", f, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory; exec takes files only", f)
		}
		group = append(group, abs)
	}
	return group, nil
}

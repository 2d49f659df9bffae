package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ppiankov/materialsio/internal/model"
	"github.com/ppiankov/materialsio/internal/pipeline"
	"github.com/ppiankov/materialsio/internal/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// contextFlags collects repeated --context key=value options
var contextFlags []string

func addContextFlag(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&contextFlags, "context", "c", nil, "parser option key=value (repeatable)")
}

// parseContext turns key=value pairs into a context. Values are read as
// YAML scalars, so "true" is a bool and "3" an int.
func parseContext(pairs []string) (model.Context, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	ctx := make(model.Context, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context option %q (want key=value)", pair)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		ctx[key] = value
	}
	return ctx, nil
}

// newPipeline builds a pipeline over the built-in capabilities
func newPipeline() *pipeline.Pipeline {
	return pipeline.NewPipeline(registry.Default(), appConfig, logger)
}

func newRenderer(cmd *cobra.Command) (*pipeline.Renderer, error) {
	cfg := model.DefaultConfig().Output
	if appConfig != nil {
		cfg = appConfig.Output
	}
	return pipeline.NewRenderer(cmd.OutOrStdout(), cfg)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

package cli

import (
	"fmt"
	"sort"

	"github.com/ppiankov/materialsio/internal/registry"
	"github.com/spf13/cobra"
)

var withSchema bool

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list <parsers|adapters>",
	Short: "List the available parsers or adapters",
	Long: `List prints one descriptor per capability: name, summary, version and,
for parsers, citations. Add --schema to include each parser's output schema.

Example:
  materialsio list parsers
  materialsio list adapters -o yaml`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"parsers", "adapters"},
	RunE:      runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&withSchema, "schema", false, "include output schemas")
}

func runList(cmd *cobra.Command, args []string) error {
	var namespace string
	switch args[0] {
	case "parsers", "parser":
		namespace = registry.NamespaceParser
	case "adapters", "adapter":
		namespace = registry.NamespaceAdapter
	default:
		return fmt.Errorf("unknown capability kind: %s (supported: parsers, adapters)", args[0])
	}

	descriptors, err := registry.Default().List(namespace)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = renderer.Close() }()

	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		d := descriptors[name]
		if !withSchema {
			d.Schema = nil
		}
		if err := renderer.Value(d); err != nil {
			return err
		}
	}
	return renderer.Close()
}

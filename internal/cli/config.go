package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/materialsio/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Materials IO configuration",
	Long: `Manage Materials IO configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (MATERIALSIO_*, also read from ./.env)
3. Config file (~/.materialsio/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, env vars and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "# Configuration file: %s\n", configFile)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "# No configuration file found (using defaults)\n")
		}

		yamlData, err := yaml.Marshal(appConfig)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(yamlData)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.materialsio/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}

		configPath, err := writeDefaultConfig(dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created default configuration: %s\n", configPath)
		fmt.Fprintf(out, "\nTo view the effective configuration:\n  materialsio config show\n")
		return nil
	},
}

// writeDefaultConfig writes config.yaml under dir unless one already exists
func writeDefaultConfig(dir string) (string, error) {
	configPath := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s\nUse 'materialsio config show' to view it, or delete it first to recreate", configPath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	header := `# Materials IO Configuration File
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (MATERIALSIO_LOG_LEVEL, MATERIALSIO_DISPATCH_ADAPTER_MAP, ...)
#   3. This config file
#   4. Built-in defaults
#
# dispatch.adapter_map accepts "", "match" or "parser=adapter,..."
# rate_limiting.groups_per_second of 0 disables throttling
# rate_limiting.parsers overrides it per parser, e.g. {dft: 0.5}

`
	if err := os.WriteFile(configPath, append([]byte(header), yamlData...), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return configPath, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

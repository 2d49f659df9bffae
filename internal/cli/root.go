package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/ppiankov/materialsio/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X ...cli.version=..."
var version = "v0.1.0"

var (
	cfgFile string
	verbose bool

	// Populated by loadConfig before any subcommand runs
	appConfig *model.Config
	logger    hclog.Logger = hclog.NewNullLogger()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "materialsio",
	Short: "Materials IO - group and parse scientific data files",
	Long: `Materials IO walks directory trees of scientific data, groups related
files (for example the INCAR/OUTCAR/POSCAR of one VASP run), parses each
group into a metadata record and optionally adapts the record for a
downstream consumer.

Parsers and adapters are resolved by name; see 'materialsio list'.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "materialsio %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.materialsio/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (log level debug)")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error")
	flags.Bool("log-json", false, "log as JSON")
	flags.StringP("format", "o", "", "output format: json or yaml")
	flags.Bool("pretty", false, "indent JSON output")

	// Bind flags to viper
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("output.format", flags.Lookup("format"))
	_ = viper.BindPFlag("output.pretty", flags.Lookup("pretty"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and MATERIALSIO_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("MATERIALSIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env variables and Unmarshal see it
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.pretty", cfg.Output.Pretty)
	v.SetDefault("dispatch.adapter_map", cfg.Dispatch.AdapterMap)
	v.SetDefault("dispatch.default_adapter", cfg.Dispatch.DefaultAdapter)
	v.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	v.SetDefault("rate_limiting.groups_per_second", cfg.RateLimiting.GroupsPerSecond)
	v.SetDefault("rate_limiting.burst_size", cfg.RateLimiting.BurstSize)
	v.SetDefault("watch.debounce", cfg.Watch.Debounce)
}

// loadConfig resolves the layered configuration and builds the logger
func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := decodeConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	appConfig = cfg
	logger = newLogger(cfg.Log, cmd.ErrOrStderr())
	return nil
}

func decodeConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg model.LogConfig, out io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "materialsio",
		Level:      level,
		JSONFormat: cfg.JSON,
		Output:     out,
	})
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".materialsio"), nil
}

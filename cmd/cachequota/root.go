package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lucasew/cachequota/internal/config"
	"github.com/lucasew/cachequota/internal/errutil"
	"github.com/lucasew/cachequota/internal/eviction/policy/maxsize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cachequota",
	Short: "Per-tenant disk quota for a flat artifact cache",
	Long: `cachequota keeps each tenant directory of an artifact cache under a byte
quota by deleting its oldest files, by modification time, on demand.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if _, printErr := fmt.Fprintln(os.Stderr, err); printErr != nil {
			errutil.ReportError(printErr, "Failed to print error to stderr")
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("base-dir", "/tmp", "Directory holding one sub-directory per tenant")
	flags.Float64("default-mb", maxsize.DefaultMB, "Quota in MiB when a request does not supply one")
	flags.Int64("min-free-space", 0, "Min free disk bytes under base-dir; evict further while below it (0 disables)")
	flags.Bool("rescan", false, "Re-measure the whole directory after every deletion")
	flags.String("journal-path", "", "SQLite file journaling every eviction (empty disables)")
	flags.Int("sweep-concurrency", 4, "Tenants maintained in parallel during a sweep")

	for _, name := range []string{
		"log-level", "log-format", "base-dir", "default-mb", "min-free-space",
		"rescan", "journal-path", "sweep-concurrency",
	} {
		mustBindPFlag(name, flags.Lookup(name))
	}
}

func initConfig() {
	viper.SetEnvPrefix("CACHEQUOTA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			errutil.ReportError(err, "Failed to read config file", "path", cfgFile)
			os.Exit(1)
		}
	}
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", key, err))
	}
}

// loadConfig validates the merged configuration and installs the logger.
func loadConfig() config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		errutil.ReportError(err, "Invalid configuration")
		os.Exit(1)
	}
	slog.SetDefault(cfg.Logger(os.Stderr))
	return cfg
}

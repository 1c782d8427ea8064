// Package cmd implements the CLI commands for amul-stock-tracker.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/amul-stock-tracker/internal/api/client"
	"github.com/donaldgifford/amul-stock-tracker/internal/config"
	"github.com/donaldgifford/amul-stock-tracker/pkg/logger"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "amul-stock-tracker",
		Short: "Get a push notification when Amul protein products restock",
		Long: "amul-stock-tracker polls the Amul storefront for a delivery pincode,\n" +
			"compares product availability against the last recorded state, and\n" +
			"sends an ntfy notification when a product comes back in stock.\n\n" +
			"Run `check` from a scheduled job, or `serve` for the picker page,\n" +
			"a status API and an in-process schedule.",
		SilenceUsage: true,
	}
)

// Keys overridable from the environment. The variable names match what a
// scheduled job runner passes in as secrets.
var envBindings = map[string]string{
	"pincode":       "PINCODE",
	"targets":       "TARGET_PRODUCTS",
	"ntfy_topic":    "NTFY_TOPIC",
	"ntfy_server":   "NTFY_SERVER",
	"state_file":    "STATE_FILE",
	"state_backend": "STATE_BACKEND",
	"retailer_mode": "RETAILER_MODE",
	"log_level":     "LOG_LEVEL",
	"log_format":    "LOG_FORMAT",
}

// Keys overridable by flag, mapped to the flag name.
var flagBindings = map[string]string{
	"pincode":       "pincode",
	"targets":       "targets",
	"ntfy_topic":    "ntfy-topic",
	"state_file":    "state-file",
	"state_backend": "state-backend",
	"retailer_mode": "mode",
	"log_level":     "log-level",
	"log_format":    "log-format",
	"server":        "server",
	"output":        "output",
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "config.yaml", "config file path (missing file means defaults)")
	pf.String("server", "http://localhost:8080", "API server URL for remote commands")
	pf.String("output", "table", "output format (table, json)")
	pf.String("pincode", "", "delivery pincode to monitor")
	pf.String("targets", "", "comma-separated product identifiers to alert on")
	pf.String("ntfy-topic", "", "ntfy topic to publish alerts to")
	pf.String("state-file", "", "status map path for the file backend")
	pf.String("state-backend", "", "state backend (file, postgres, gcs)")
	pf.String("mode", "", "storefront fetch mode (api, browser)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (text, json, pretty)")

	for key, env := range envBindings {
		cobra.CheckErr(viper.BindEnv(key, env))
	}
	for key, name := range flagBindings {
		cobra.CheckErr(viper.BindPFlag(key, pf.Lookup(name)))
	}

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(targetsCmd())
	rootCmd.AddCommand(triggerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

// loadConfig reads the optional config file and layers environment and flag
// overrides on top. Validation is left to each command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyOverrides(cfg, viper.GetViper())
	return cfg, nil
}

// applyOverrides copies every key set in v onto cfg. Flags win over
// environment variables, which win over the file.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	set := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	set("pincode", &cfg.Monitor.Pincode)
	set("targets", &cfg.Monitor.Targets)
	set("ntfy_topic", &cfg.Notifications.Ntfy.Topic)
	set("ntfy_server", &cfg.Notifications.Ntfy.Server)
	set("state_file", &cfg.State.File)
	set("state_backend", &cfg.State.Backend)
	set("retailer_mode", &cfg.Retailer.Mode)
	set("log_level", &cfg.Logging.Level)
	set("log_format", &cfg.Logging.Format)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Logging.Level, cfg.Logging.Format)
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}

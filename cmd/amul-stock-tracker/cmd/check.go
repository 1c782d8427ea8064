package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one stock check and exit",
		Long: "Fetch the catalog for the configured pincode, compare it with the\n" +
			"stored status map, save the new map and notify for every targeted\n" +
			"product that came back in stock. Exits non-zero when the fetch,\n" +
			"load or save fails; notification failures are only logged.\n\n" +
			"TARGET_PRODUCTS lists product aliases (for example paneer-400g), the\n" +
			"keys of the status map. Product names from older configurations do\n" +
			"not match and are reported as warnings; run `targets` to rebuild the list.",
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer flush()

	eng, st, err := newEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	res, err := eng.RunCheck(ctx)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return outputJSON(cmd.OutOrStdout(), res)
	}
	return printRunResult(cmd.OutOrStdout(), res)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/amul-stock-tracker/internal/api/handlers"
	"github.com/donaldgifford/amul-stock-tracker/internal/store"
	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

func statusCmd() *cobra.Command {
	var remote bool

	c := &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded availability of every known product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				body *handlers.StatusBody
				err  error
			)
			if remote {
				body, err = newClient().GetStatus(cmd.Context())
			} else {
				body, err = localStatus(cmd)
			}
			if err != nil {
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), body)
			}
			return printStatus(cmd.OutOrStdout(), body)
		},
	}
	c.Flags().BoolVar(&remote, "remote", false, "query a running server instead of the state backend")

	return c
}

func localStatus(cmd *cobra.Command) (*handlers.StatusBody, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateState(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger(cfg)
	st, err := store.New(cmd.Context(), &cfg.State, log)
	if err != nil {
		return nil, err
	}
	defer closeStore(st, log)

	statuses, err := st.Load(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	body := handlers.NewStatusBody(statuses, cfg.Monitor.Pincode, domain.ParseTargets(cfg.Monitor.Targets))
	return &body, nil
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/amul-stock-tracker/internal/api/client"
)

func triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask a running server to check stock now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().TriggerCheck(cmd.Context())
			if err != nil {
				var apiErr *apiclient.APIError
				if errors.As(err, &apiErr) && apiErr.Throttled() {
					return fmt.Errorf("a check ran recently, try again later")
				}
				return err
			}

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			return printRunResult(cmd.OutOrStdout(), res)
		},
	}
}

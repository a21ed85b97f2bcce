package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the bridge",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := notesClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			printJSON(cmd.OutOrStdout(), health)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\nRelay:  %s\n", health.Status, health.Relay)
		}

		if health.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", health.Status)
		}
		return nil
	},
}

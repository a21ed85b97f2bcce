package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var notesCmd = &cobra.Command{
	Use:     "notes",
	Short:   "Show the latest stored text notes",
	GroupID: "notes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var limit *int
		if cmd.Flags().Changed("limit") {
			n, _ := cmd.Flags().GetInt("limit")
			limit = &n
		}

		notes, err := notesClient.LatestTextNotes(context.Background(), limit)
		if err != nil {
			return fmt.Errorf("listing notes: %w", err)
		}

		if jsonOutput {
			printJSON(cmd.OutOrStdout(), notes)
			return nil
		}
		printNotes(cmd.OutOrStdout(), notes)
		return nil
	},
}

func init() {
	notesCmd.Flags().IntP("limit", "n", 10, "maximum number of notes (the bridge caps this at 10)")
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:     "keys",
	Short:   "Mint a fresh keypair on the bridge",
	Long:    "Ask the bridge for a newly generated keypair. Nothing is stored; keep the secret safe.",
	GroupID: "notes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := notesClient.NewKeys(context.Background())
		if err != nil {
			return fmt.Errorf("minting keys: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			printJSON(out, keys)
			return nil
		}
		fmt.Fprintf(out, "pubkey: %s\n", keys.PubKey)
		fmt.Fprintf(out, "secret: %s\n", keys.Secret)
		return nil
	},
}

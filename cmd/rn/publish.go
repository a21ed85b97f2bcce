package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:     "publish [message...]",
	Short:   "Publish a text note signed by the bridge identity",
	Long:    "Publish a text note. The message is taken from the arguments, or from stdin when none are given.",
	GroupID: "notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := noteMessage(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		if err := notesClient.PublishTextNote(context.Background(), msg); err != nil {
			return fmt.Errorf("publishing note: %w", err)
		}
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), map[string]string{"status": "published"})
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), "published")
		return nil
	},
}

// noteMessage joins args with spaces, or reads all of stdin when there are
// no args. A trailing newline from stdin is dropped.
func noteMessage(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	msg := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(msg) == "" {
		return "", fmt.Errorf("message must not be empty")
	}
	return msg, nil
}

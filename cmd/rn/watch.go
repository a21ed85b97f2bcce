package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/alfredjeanlab/relaynotes/internal/events"
	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow new text notes as the bridge stores them",
	GroupID: "notes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		seen := make(map[string]bool)

		if err := queryAndPrint(ctx, out, seen); err != nil {
			return err
		}
		if once {
			return nil
		}

		if natsURL == "" {
			natsURL = os.Getenv("RN_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL != "" {
			return watchNATS(ctx, out, natsURL, seen)
		}
		return watchPoll(ctx, out, interval, seen)
	},
}

// watchNATS prints notes as they arrive on the event bus. A reconnect
// triggers a re-query so notes stored while disconnected are not missed.
func watchNATS(ctx context.Context, out io.Writer, natsURL string, seen map[string]bool) error {
	reconnectCh := make(chan struct{}, 1)

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("nats: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Printf("nats: reconnected")
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicPrefix + ">")
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := printMessage(out, msg, seen); err != nil {
				log.Printf("watch: %v", err)
			}
		case <-reconnectCh:
			if err := queryAndPrint(ctx, out, seen); err != nil {
				return err
			}
		}
	}
}

// watchPoll polls for new notes at the given interval.
func watchPoll(ctx context.Context, out io.Writer, interval time.Duration, seen map[string]bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		if err := queryAndPrint(ctx, out, seen); err != nil {
			return err
		}
	}
}

// printMessage renders one bus message. Stored notes already seen are
// skipped; relay state changes are shown as a status line.
func printMessage(out io.Writer, msg events.Message, seen map[string]bool) error {
	switch msg.Topic {
	case events.TopicNoteStored:
		var stored events.NoteStored
		if err := msg.Decode(&stored); err != nil {
			return err
		}
		printNew(out, []model.Note{stored.Note}, seen)
	case events.TopicRelayState:
		var st events.RelayState
		if err := msg.Decode(&st); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(out, st)
		} else {
			fmt.Fprintln(out, ui.RenderWarn("relay "+st.URL+" is "+st.State))
		}
	}
	return nil
}

// queryAndPrint fetches the latest notes and prints the ones not seen yet.
func queryAndPrint(ctx context.Context, out io.Writer, seen map[string]bool) error {
	notes, err := notesClient.LatestTextNotes(ctx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("listing notes: %w", err)
	}
	// Newest first on the wire; print in chronological order.
	for i, j := 0, len(notes)-1; i < j; i, j = i+1, j-1 {
		notes[i], notes[j] = notes[j], notes[i]
	}
	printNew(out, notes, seen)
	return nil
}

func printNew(out io.Writer, notes []model.Note, seen map[string]bool) {
	for _, n := range diffNotes(notes, seen) {
		if jsonOutput {
			printJSON(out, n)
			continue
		}
		fmt.Fprint(out, ui.FormatNote(n.AuthorBech32, n.Content, n.CreatedAt))
	}
}

// diffNotes returns the notes not present in seen and marks them seen.
// Notes carry no id, so author, timestamp and content together identify one.
func diffNotes(notes []model.Note, seen map[string]bool) []model.Note {
	var fresh []model.Note
	for _, n := range notes {
		key := noteKey(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, n)
	}
	return fresh
}

func noteKey(n model.Note) string {
	return n.AuthorBech32 + "\x00" + strconv.FormatInt(n.CreatedAt, 10) + "\x00" + n.Content
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "polling interval when no NATS URL is set")
	watchCmd.Flags().Bool("once", false, "print the current notes and exit")
	watchCmd.Flags().String("nats", "", "NATS URL (defaults to RN_NATS_URL or the active remote)")
}

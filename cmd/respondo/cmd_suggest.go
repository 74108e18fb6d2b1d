package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"respondo/internal/controller"
	"respondo/internal/reply"
	"respondo/internal/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	suggestShowMessages bool
	suggestDryRun       bool
	suggestQuiet        bool
)

// suggestCmd runs one cycle without the popup
var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a reply for the open dialog and copy it",
	Long: `Runs one extraction cycle headlessly: reads the dialog, asks the reply
service for a suggestion, prints it and copies it to the clipboard.

With --dry-run the dialog is sent to /api/test instead, which formats it
without generating a reply.`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestShowMessages, "messages", false, "Print the extracted dialog")
	suggestCmd.Flags().BoolVar(&suggestDryRun, "dry-run", false, "Format the dialog on the server without generating a reply")
	suggestCmd.Flags().BoolVarP(&suggestQuiet, "quiet", "q", false, "Print only the reply")
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, cleanup, err := newBridge(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	client := newReplyClient(cfg)

	if suggestDryRun {
		return runDryRun(ctx, out, b, client)
	}

	tracker := openTracker()
	if tracker != nil {
		defer tracker.Close()
	}

	ctrl := controller.New(b, client, controller.Options{
		TickInterval: -1,
		Clipboard:    newClipboard(),
		Observer:     trackerObserver(tracker),
	})
	defer ctrl.Close()

	logger.Info("Starting cycle", zap.String("server", client.BaseURL()))
	outcome, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Cycle finished",
		zap.String("cycle", outcome.CycleID),
		zap.String("state", outcome.State.String()),
		zap.Duration("elapsed", outcome.Elapsed))

	if suggestShowMessages && !suggestQuiet {
		printMessages(out, outcome.Messages)
	}

	if outcome.State == controller.StateError {
		printError(out, outcome.Err)
		return fmt.Errorf("%s", outcome.Err.Message)
	}

	if suggestQuiet {
		fmt.Fprintln(out, outcome.Reply)
		return nil
	}
	printResult(out, outcome)
	return nil
}

func runDryRun(ctx context.Context, out io.Writer, b controller.MessageSource, client *reply.Client) error {
	msgs, err := b.RequestMessages(ctx)
	if err == nil && len(msgs) == 0 {
		err = types.EmptyResult()
	}
	if err != nil {
		e := types.AsError(err)
		printError(out, e)
		return fmt.Errorf("%s", e.Message)
	}

	sorted := append([]types.MessageRecord(nil), msgs...)
	types.SortByTimestamp(sorted)
	if suggestShowMessages {
		printMessages(out, sorted)
	}

	res, err := client.TestDialog(ctx, types.TurnsFromRecords(sorted))
	if err != nil {
		e := types.AsError(err)
		printError(out, e)
		return fmt.Errorf("%s", e.Message)
	}

	bold := color.New(color.Bold)
	bold.Fprintf(out, "Formatted dialog (%d messages)\n", res.MessageCount)
	fmt.Fprintln(out, res.FormattedDialog)
	if res.TestReply != "" {
		fmt.Fprintln(out)
		color.New(color.FgCyan).Fprintln(out, res.TestReply)
	}
	return nil
}

func printMessages(out io.Writer, msgs []types.MessageRecord) {
	author := color.New(color.FgBlue, color.Bold)
	faint := color.New(color.Faint)
	for _, m := range msgs {
		author.Fprint(out, types.AuthorFor(m.Role))
		if m.Date != "" {
			faint.Fprintf(out, " | %s", m.Date)
		}
		if m.ID != "" {
			faint.Fprintf(out, " | ID: %s", m.ID)
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "  %s\n", m.Text)
	}
	fmt.Fprintln(out)
}

func printResult(out io.Writer, o controller.Outcome) {
	color.New(color.Bold).Fprintln(out, "Suggested reply:")
	fmt.Fprintln(out, o.Reply)
	fmt.Fprintln(out)

	if o.CopyErr != nil {
		color.New(color.FgYellow).Fprintf(out, "Could not copy to clipboard: %v\n", o.CopyErr)
	} else {
		color.New(color.FgGreen).Fprintln(out, "✓ Copied to clipboard")
	}

	timing := fmt.Sprintf("Generated in %.2fs", o.Elapsed.Seconds())
	if o.ProcessingTime != nil {
		timing += fmt.Sprintf(" (server %.2fs)", *o.ProcessingTime)
	}
	color.New(color.Faint).Fprintln(out, timing)
}

func printError(out io.Writer, e *types.Error) {
	if e == nil {
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(out, "✗ %s\n", e.Message)
	fmt.Fprintln(out, e.Hint.Text())
}

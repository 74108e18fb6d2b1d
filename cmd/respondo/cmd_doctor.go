package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"respondo/internal/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// doctorCmd checks that every piece of a cycle is reachable
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configuration, the reply service and the page bridge",
	RunE:  runDoctor,
}

type checkResult struct {
	name   string
	detail string
	err    error
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var results []checkResult

	if err := cfg.Validate(); err != nil {
		results = append(results, checkResult{name: "config", err: err})
		printChecks(cmd.OutOrStdout(), results)
		return fmt.Errorf("configuration is invalid")
	}
	results = append(results, checkResult{name: "config", detail: fmt.Sprintf("bridge=%s", cfg.Bridge.Transport)})

	client := newReplyClient(cfg)
	results = append(results, checkResult{
		name:   "reply service",
		detail: client.BaseURL(),
		err:    client.Health(ctx),
	})

	results = append(results, checkBridge(ctx))

	printChecks(cmd.OutOrStdout(), results)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		}
	}
	logger.Info("Doctor finished", zap.Int("checks", len(results)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	return nil
}

// checkBridge reads the dialog once; an empty dialog still proves the path works.
func checkBridge(ctx context.Context) checkResult {
	res := checkResult{name: "page bridge"}
	b, cleanup, err := newBridge(cfg)
	if err != nil {
		res.err = err
		return res
	}
	defer cleanup()

	msgs, err := b.RequestMessages(ctx)
	switch {
	case err == nil:
		res.detail = fmt.Sprintf("%d messages in the open dialog", len(msgs))
	case types.IsKind(err, types.ErrorEmptyResult):
		res.detail = "reachable, but the open dialog has no messages"
	default:
		res.err = err
	}
	return res
}

func printChecks(out io.Writer, results []checkResult) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, r := range results {
		if r.err == nil {
			fmt.Fprintf(out, "%s %s %s\n", ok("✓"), r.name, faint(r.detail))
			continue
		}
		fmt.Fprintf(out, "%s %s: %v\n", bad("✗"), r.name, r.err)
		if e := types.AsError(r.err); e != nil && e.Kind != types.ErrorInternal {
			fmt.Fprintf(out, "  %s\n", faint(e.Hint.Text()))
		}
	}
}

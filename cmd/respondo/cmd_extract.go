package main

import (
	"encoding/json"
	"fmt"
	"os"

	"respondo/internal/bridge"
	"respondo/internal/extractor"
	"respondo/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	extractSorted bool
	extractTurns  bool
)

// extractCmd prints the messages of a page as JSON
var extractCmd = &cobra.Command{
	Use:   "extract [file.html]",
	Short: "Extract the dialog messages and print them as JSON",
	Long: `Extracts the messages of the open dialog through the configured bridge and
prints the getMessages response. With a file argument the saved page is parsed
directly, without the host check.

--turns prints the conversation exactly as it would be sent to the reply service.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractSorted, "sorted", false, "Sort messages by timestamp")
	extractCmd.Flags().BoolVar(&extractTurns, "turns", false, "Print conversation turns instead of raw records (implies --sorted)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	var (
		msgs []types.MessageRecord
		err  error
	)

	if len(args) == 1 {
		f, openErr := os.Open(args[0])
		if openErr != nil {
			return fmt.Errorf("failed to open page: %w", openErr)
		}
		defer f.Close()
		msgs, err = extractor.New(cfg.Extractor).ExtractHTML(f)
		if err != nil {
			return err
		}
	} else {
		b, cleanup, bridgeErr := newBridge(cfg)
		if bridgeErr != nil {
			return bridgeErr
		}
		defer cleanup()
		msgs, err = b.RequestMessages(cmd.Context())
		if err != nil {
			return err
		}
	}
	logger.Debug("Extracted messages", zap.Int("count", len(msgs)))

	if extractSorted || extractTurns {
		types.SortByTimestamp(msgs)
	}

	var payload any = bridge.Response{Messages: msgs}
	if extractTurns {
		payload = types.SuggestReplyRequest{Messages: types.TurnsFromRecords(msgs)}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(payload)
}

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"respondo/cmd/respondo/ui"
	"respondo/internal/bridge"
	"respondo/internal/config"
	"respondo/internal/controller"
	"respondo/internal/logging"

	"github.com/spf13/cobra"
)

// runPopup opens the interactive popup (the default command).
func runPopup(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, cleanup, err := newBridge(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	obs := controller.NewChannelObserver(64)

	tracker := openTracker()
	if tracker != nil {
		defer tracker.Close()
	}

	ctrl := controller.New(b, newReplyClient(cfg), controller.Options{
		TickInterval: cfg.UI.GetTickInterval(),
		Clipboard:    newClipboard(),
		Observer:     controller.MultiObserver(trackerObserver(tracker), obs),
	})
	defer func() {
		// Release a blocked observer before waiting for the cycle.
		obs.Close()
		ctrl.Close()
	}()

	popupCfg := ui.Config{
		AutoRun:      cfg.UI.AutoRun,
		ShowMessages: cfg.UI.ShowMessages,
		Theme:        cfg.UI.Theme,
		BaseURL:      cfg.Server.BaseURL,
		Events:       obs.Events(),
	}

	if cfg.UI.WatchSnapshot && cfg.Bridge.Transport == config.TransportLocal && cfg.Bridge.Source == config.SourceSnapshot {
		w, err := bridge.WatchSnapshot(ctx, cfg.Bridge.SnapshotPath)
		if err != nil {
			return fmt.Errorf("failed to watch snapshot: %w", err)
		}
		defer w.Stop()
		popupCfg.Changes = w.Changes()
	}

	logging.UIDebug("popup opened (auto_run=%v)", cfg.UI.AutoRun)
	return ui.Run(ctx, ctrl, popupCfg)
}

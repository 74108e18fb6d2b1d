// Package main implements the respondo CLI commands.
// This file contains the live browser commands.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"respondo/internal/bridge"
	"respondo/internal/browser"
	"respondo/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// BROWSER COMMANDS - Live Chrome page source
// =============================================================================

var browserOpenURL string

// browserCmd manages the Chrome instance the dialog is read from
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Manage the Chrome instance the dialog is read from",
}

var browserLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch Chrome with remote debugging and keep it running",
	RunE:  browserLaunch,
}

var browserTabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List open tabs and which one the popup would read",
	RunE:  browserTabs,
}

func init() {
	browserLaunchCmd.Flags().StringVar(&browserOpenURL, "url", "https://vk.com/im", "Page to open after launch (empty for none)")
}

// browserLaunch launches Chrome and records its control URL until interrupted
func browserLaunch(cmd *cobra.Command, args []string) error {
	logger.Info("Launching browser")

	mgr := browser.NewSessionManager(browserConfig(cfg, true))

	// A control file left by a crashed run would point at a dead browser
	if err := mgr.RemoveControlFile(); err != nil {
		logging.BootWarn("failed to remove stale control file: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	if err := mgr.WriteControlFile(); err != nil {
		logging.BootWarn("failed to write browser control file: %v", err)
	}

	if browserOpenURL != "" {
		if _, err := mgr.Open(ctx, browserOpenURL); err != nil {
			logger.Warn("Failed to open page", zap.String("url", browserOpenURL), zap.Error(err))
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Browser launched. Control URL: %s\n", mgr.ControlURL())
	fmt.Fprintf(out, "Control file: %s\n", cfg.Browser.ControlFile)
	fmt.Fprintln(out, "Press Ctrl+C to shutdown")

	<-ctx.Done()

	if err := mgr.RemoveControlFile(); err != nil {
		logging.BootWarn("failed to remove browser control file: %v", err)
	}
	if err := mgr.Shutdown(context.Background()); err != nil {
		logging.BootWarn("failed to shutdown browser manager: %v", err)
	}
	return nil
}

// browserTabs lists the open tabs of the running browser
func browserTabs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mgr := browser.NewSessionManager(browserConfig(cfg, false))
	if err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Shutdown(context.Background())

	sessions, err := mgr.List(ctx)
	if err != nil {
		return err
	}
	active, activeErr := mgr.ActiveTab(ctx, cfg.Bridge.AllowedHosts)

	green := color.New(color.FgGreen).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tTARGET\tURL\tTITLE")
	for _, s := range sessions {
		marker := " "
		if activeErr == nil && s.TargetID == active.TargetID {
			marker = green("*")
		}
		url := s.URL
		if !bridge.HostAllowed(s.URL, cfg.Bridge.AllowedHosts) {
			url = faint(url)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, s.TargetID, url, s.Title)
	}
	return w.Flush()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"respondo/internal/bridge"
	"respondo/internal/logging"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveHTTP bool
	serveNATS bool
)

// serveCmd exposes the page context to a remote popup
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer getMessages requests from the browser or a snapshot",
	Long: `Runs the page-context responder: it reads the active chat tab (or the
configured snapshot) and answers tab and getMessages requests over HTTP,
NATS, or both. Point a popup at it with bridge.transport: http or nats.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveHTTP, "http", true, "Serve over HTTP (bridge.http.listen)")
	serveCmd.Flags().BoolVar(&serveNATS, "nats", false, "Serve over NATS (bridge.nats.url)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if !serveHTTP && !serveNATS {
		return fmt.Errorf("nothing to serve: enable --http or --nats")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := newResponder(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var conn *nats.Conn
	if serveNATS {
		conn, err = bridge.ConnectNATS(cfg.Bridge.NATS.URL, cfg.Bridge.NATS.Token)
		if err != nil {
			return err
		}
		defer conn.Close()
	}

	g, ctx := errgroup.WithContext(ctx)

	if serveHTTP {
		addr := cfg.Bridge.HTTP.Listen
		logger.Info("Serving HTTP", zap.String("addr", addr))
		g.Go(func() error {
			return bridge.ListenAndServe(ctx, addr, r)
		})
	}

	if conn != nil {
		logger.Info("Serving NATS",
			zap.String("url", cfg.Bridge.NATS.URL),
			zap.String("subject", cfg.Bridge.NATS.Subject))
		g.Go(func() error {
			return bridge.ServeNATS(ctx, conn, cfg.Bridge.NATS.Subject, r)
		})
	}

	logging.Bridge("responder started (source=%s)", cfg.Bridge.Source)
	fmt.Fprintln(cmd.OutOrStdout(), "Responder running. Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Responder stopped")
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"respondo/internal/config"
	"respondo/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	baseURL    string
	timeout    time.Duration
	snapshot   string

	// Loaded in PersistentPreRunE
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "respondo",
	Short: "respondo - reply suggestions for the open chat dialog",
	Long: `respondo reads the messages of the dialog open in your browser, asks the
reply service for a suggested answer, and copies it to the clipboard.

Run without arguments to open the popup.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		// Skip logger init for the popup (it owns the terminal)
		if isPopup(cmd) {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runPopup,
}

// popupCmd opens the popup explicitly
var popupCmd = &cobra.Command{
	Use:   "popup",
	Short: "Open the popup (same as running respondo without arguments)",
	RunE:  runPopup,
}

func isPopup(cmd *cobra.Command) bool {
	if cmd.Name() == "popup" {
		return true
	}
	return cmd.Use == "respondo" && cmd.CalledAs() == "respondo"
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	if baseURL != "" {
		loaded.Server.BaseURL = baseURL
	}
	if cmd.Flags().Changed("timeout") {
		loaded.Server.Timeout = timeout.String()
		if timeout == 0 {
			loaded.Server.Timeout = "0"
		}
	}
	if snapshot != "" {
		loaded.Bridge.Transport = config.TransportLocal
		loaded.Bridge.Source = config.SourceSnapshot
		loaded.Bridge.SnapshotPath = snapshot
	}
	if verbose {
		loaded.Logging.DebugMode = true
		loaded.Logging.Level = "debug"
	}

	if err := logging.Initialize(config.DefaultDir(), loaded.Logging.Options()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	logging.Boot("config loaded from %s (bridge=%s, server=%s)", path, loaded.Bridge.Transport, loaded.Server.BaseURL)

	cfg = loaded
	return nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.respondo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Reply service URL (or set RESPONDO_BASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Reply call timeout; 0 disables it (default from config: 120s)")
	rootCmd.PersistentFlags().StringVar(&snapshot, "snapshot", "", "Read the dialog from a saved HTML page instead of the browser")

	// Browser subcommands
	browserCmd.AddCommand(browserLaunchCmd)
	browserCmd.AddCommand(browserTabsCmd)

	// Config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// Add commands to root
	rootCmd.AddCommand(popupCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(browserCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"text/tabwriter"

	"respondo/internal/config"
	"respondo/internal/usage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsDays int

// statsCmd summarizes recorded cycles
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many replies were suggested and how long they took",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "Number of most recent days to list")
}

func runStats(cmd *cobra.Command, args []string) error {
	tracker, err := usage.NewTracker(config.DefaultDir())
	if err != nil {
		return err
	}
	stats := tracker.Stats()
	out := cmd.OutOrStdout()

	if stats.Total.Cycles == 0 {
		fmt.Fprintln(out, "No cycles recorded yet.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Fprintf(out, "%d cycles, %d succeeded, %d failed (avg %.2fs)\n\n",
		stats.Total.Cycles, stats.Total.Succeeded, stats.Total.Failed, stats.Total.AverageElapsed().Seconds())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OUTCOME\tCYCLES\tAVG")
	for _, k := range usage.Keys(stats.ByOutcome) {
		c := stats.ByOutcome[k]
		fmt.Fprintf(w, "%s\t%d\t%.2fs\n", k, c.Cycles, c.AverageElapsed().Seconds())
	}
	fmt.Fprintln(w)

	days := usage.Keys(stats.ByDay)
	if statsDays > 0 && len(days) > statsDays {
		days = days[len(days)-statsDays:]
	}
	fmt.Fprintln(w, "DAY\tCYCLES\tFAILED")
	for _, d := range days {
		c := stats.ByDay[d]
		fmt.Fprintf(w, "%s\t%d\t%d\n", d, c.Cycles, c.Failed)
	}
	return w.Flush()
}

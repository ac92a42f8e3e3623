package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statsPrune time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "List stored runs",
	Long:  "Prints a table of stored classification runs. --prune deletes results older than the given duration first.",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsPrune, "prune", 0, "delete results processed longer ago than this (e.g. 720h)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	sqlStore, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	if statsPrune > 0 {
		if err := sqlStore.Cleanup(statsPrune); err != nil {
			fmt.Fprintf(os.Stderr, "prune failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pruned results older than %s\n\n", statsPrune)
	}

	runs, err := sqlStore.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list runs: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	fmt.Printf("%-17s %-38s %6s %8s %7s %7s\n", "Started", "Run", "Leads", "Drafted", "Failed", "Rate")
	fmt.Println(strings.Repeat("─", 88))

	var leads, drafted, failed int
	for _, r := range runs {
		fmt.Printf("%-17s %-38s %6d %8d %7d %6.1f%%\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.RunID, r.Leads, r.EntryLevel, r.Failed, rate(r.EntryLevel, r.Leads-r.Failed))
		leads += r.Leads
		drafted += r.EntryLevel
		failed += r.Failed
	}

	fmt.Printf("\nTotal: %d runs, %d leads (%d drafted, %d failed)\n", len(runs), leads, drafted, failed)
	return nil
}

func rate(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

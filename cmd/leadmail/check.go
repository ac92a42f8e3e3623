package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/leadmail/internal/model"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a lead table and preview rule decisions",
	Long: "Parses the lead table, reports the detected delimiter and any dropped rows, and previews " +
		"the rule engine's decision for every lead. Nothing is stored and no AI calls are made.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	res, err := readLeads(args[0], logger)
	if err != nil {
		var schemaErr *model.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Fprintf(os.Stderr, "The table needs %q and %q columns (optional %q).\n", "Emails", "Description", "Phone Numbers")
		}
		logger.Error("invalid lead table", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Delimiter: %s\nLeads:     %d\nDropped:   %d\n\n", delimiterName(res.Delimiter), len(res.Leads), len(res.Dropped))
	if len(res.Leads) == 0 {
		return nil
	}

	engine := newEngine(cfg)
	results := engine.ClassifyAll(res.Leads, cfg.Profile)
	for i, lead := range res.Leads {
		c := results[i]
		mark := "skip "
		if c.IsEntryLevel {
			mark = "entry"
		}
		fmt.Printf("[%s] %-30s %s\n", mark, lead.Email, c.Reason)
	}

	sum, err := summarize(results)
	if err != nil {
		return err
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(sum)
	return nil
}

func delimiterName(r rune) string {
	switch r {
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	default:
		return "comma"
	}
}

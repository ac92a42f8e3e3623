package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/leadmail/internal/classifier"
	"github.com/amishk599/leadmail/internal/model"
	"github.com/amishk599/leadmail/internal/notifier"
	"github.com/amishk599/leadmail/internal/pipeline"
	"github.com/amishk599/leadmail/internal/store"
)

var (
	classifyDryRun bool
	classifyForce  bool
	classifyOut    string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify leads and draft emails",
	Long: "Imports a lead table (use - for stdin), classifies every lead, drafts emails for the " +
		"entry-level ones, stores the results and notifies. Leads already processed are reused unless --force is set.",
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyDryRun, "dry-run", false, "do not store results; log drafts instead of notifying")
	classifyCmd.Flags().BoolVar(&classifyForce, "force", false, "reclassify leads that already have a stored result")
	classifyCmd.Flags().StringVarP(&classifyOut, "out", "o", "", "write results as a delimited table to this path")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	res, err := readLeads(args[0], logger)
	if err != nil {
		logger.Error("failed to read leads", "error", err)
		os.Exit(1)
	}
	if len(res.Leads) == 0 {
		logger.Info("no leads to classify", "file", args[0])
		return nil
	}

	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	profile, err := resolveProfile(sqlStore, cfg)
	if err != nil {
		logger.Error("failed to load profile", "error", err)
		os.Exit(1)
	}
	if profile.IsZero() {
		logger.Warn("no sender profile set; emails will be unsigned (see `leadmail profile set`)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, source, err := setupClassifier(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up classifier", "error", err)
		os.Exit(1)
	}

	var (
		resultStore model.ResultStore = sqlStore
		n           model.Notifier
	)
	if classifyDryRun {
		logger.Info("dry-run mode: results will not be stored")
		resultStore = store.NewNopStore()
		n = notifier.NewLogNotifier(logger)
	} else {
		n = setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	}

	runID := uuid.NewString()
	logger.Info("classifying leads", "run_id", runID, "leads", len(res.Leads), "source", source)

	runner := pipeline.NewRunner(c, source, resultStore, n, logger)
	runner.Force = classifyForce
	runner.Settings = classifierSettings(cfg)
	results, _, runErr := runner.Run(ctx, runID, res.Leads, profile)

	printResults(results)

	if classifyOut != "" && len(results) > 0 {
		if err := writeExport(classifyOut, res.Delimiter, results); err != nil {
			logger.Error("failed to write results", "path", classifyOut, "error", err)
			os.Exit(1)
		}
		logger.Info("results written", "path", classifyOut, "rows", len(results))
	}

	if runErr != nil {
		logger.Error("run aborted", "run_id", runID, "error", runErr)
		os.Exit(1)
	}
	return nil
}

func printResults(results []model.LeadResult) {
	if len(results) == 0 {
		return
	}

	var classified []model.Classification
	for _, r := range results {
		switch {
		case r.Failed():
			fmt.Printf("[fail ] %-30s %s\n", r.Lead.Email, r.Err)
		case r.Classification.IsEntryLevel:
			fmt.Printf("[entry] %-30s %s\n", r.Lead.Email, r.Classification.EmailSubject)
		default:
			fmt.Printf("[skip ] %-30s %s\n", r.Lead.Email, r.Classification.Reason)
		}
		if !r.Failed() {
			classified = append(classified, r.Classification)
		}
	}

	if sum, err := summarize(classified); err == nil {
		fmt.Println(strings.Repeat("─", 60))
		fmt.Println(sum)
	}
}

// summarize renders the one-line batch summary.
func summarize(results []model.Classification) (string, error) {
	sum, err := classifier.Summarize(results)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Total: %d | Entry-level: %d | Skipped: %d | %s%% entry-level",
		sum.Total, sum.EntryLevel, sum.Skipped, sum.PercentString()), nil
}

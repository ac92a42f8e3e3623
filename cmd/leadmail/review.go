package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/amishk599/leadmail/internal/classifier"
	"github.com/amishk599/leadmail/internal/config"
	"github.com/amishk599/leadmail/internal/model"
	"github.com/amishk599/leadmail/internal/pipeline"
	"github.com/amishk599/leadmail/internal/review"
	"github.com/amishk599/leadmail/internal/store"
)

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Browse classified leads and drafted emails (TUI)",
	Long: "With a file, classifies it behind a progress spinner and opens the split-pane review. " +
		"Without one, shows a picker over stored runs.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReviewCmd,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
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

	opts := review.Options{
		Classifier: classifier.NewRuleClassifier(newEngine(cfg)),
		Source:     classifier.SourceRules,
		Profile:    profile,
		Save: func(r model.LeadResult) error {
			r.Inputs = model.Fingerprint(profile, rulesSettings(cfg))
			return sqlStore.SaveResult(r.Lead.Key(), r)
		},
	}

	if len(args) == 1 {
		results, err := classifyWithSpinner(cfg, sqlStore, args[0], profile)
		if err != nil {
			fmt.Printf("Error classifying leads: %v\n", err)
			if len(results) == 0 {
				os.Exit(1)
			}
		}
		if len(results) == 0 {
			fmt.Println("No leads to review.")
			return nil
		}
		if _, err := review.RunReviewTUI(results, opts); err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		return nil
	}

	runReviewLoop(os.Stdout, sqlStore, opts)
	return nil
}

func classifyWithSpinner(cfg *config.Config, sqlStore *store.SQLiteStore, path string, profile model.Profile) ([]model.LeadResult, error) {
	// The spinner owns the terminal; log output would corrupt it.
	quiet := silentLogger()

	res, err := readLeads(path, quiet)
	if err != nil {
		return nil, err
	}
	if len(res.Leads) == 0 {
		return nil, nil
	}

	c, source, err := setupClassifier(context.Background(), cfg, quiet)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(c, source, sqlStore, nil, quiet)
	runner.Settings = classifierSettings(cfg)
	runID := uuid.NewString()

	return review.RunLoader(fmt.Sprintf("Classifying %d leads", len(res.Leads)),
		func(ctx context.Context, progress func(done, total int)) ([]model.LeadResult, error) {
			runner.OnProgress = progress
			results, _, err := runner.Run(ctx, runID, res.Leads, profile)
			return results, err
		})
}

func runReviewLoop(out io.Writer, sqlStore *store.SQLiteStore, opts review.Options) {
	empty, err := sqlStore.IsEmpty()
	if err != nil {
		fmt.Fprintf(out, "Error reading store: %v\n", err)
		return
	}
	if empty {
		fmt.Fprintln(out, "No stored results. Classify a lead table first: leadmail classify leads.csv")
		return
	}

	for {
		runs, err := sqlStore.ListRuns()
		if err != nil {
			fmt.Fprintf(out, "Error listing runs: %v\n", err)
			return
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No stored runs.")
			return
		}

		choice, err := review.RunPicker(runs)
		if err != nil {
			fmt.Fprintf(out, "Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}

		results, err := sqlStore.ListResults(runs[choice].RunID)
		if err != nil {
			fmt.Fprintf(out, "Error loading run: %v\n", err)
			continue
		}

		wantQuit, err := review.RunReviewTUI(results, opts)
		if err != nil {
			fmt.Fprintf(out, "TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
		// else: loop → back to picker
	}
}

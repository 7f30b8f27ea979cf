package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <competition-id|url>",
	Short: "Analyse a competition's top notebooks",
	Long: `Start an analysis run for a competition and watch its progress.

Pass a competition id from 'kagglementor competitions', or a full Kaggle
competition URL to register it as a custom competition first.

Examples:
  kagglementor analyze titanic --uid alice
  kagglementor analyze https://www.kaggle.com/competitions/my-private-comp`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	target := args[0]

	var competitionID string
	if strings.Contains(target, "/") {
		comp, err := api.RegisterCustom(ctx, uid, target)
		if err != nil {
			return err
		}
		competitionID = comp.ID
		fmt.Printf("Registered custom competition %q\n", comp.ID)
	} else {
		run, err := api.StartAnalysis(ctx, uid, target)
		if err != nil {
			return err
		}
		competitionID = target
		fmt.Printf("Analysis started (run %s)\n", run.RunID)
	}

	return RunAnalysisProgress(api, competitionID)
}

package cli

import (
	"fmt"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/spf13/cobra"
)

var competitionsRefresh bool

var competitionsCmd = &cobra.Command{
	Use:   "competitions",
	Short: "List Kaggle competitions",
	Long: `List the cached Kaggle competition listing with analysis state.

Use --refresh to pull a fresh listing from Kaggle (requires stored
credentials or KAGGLE_USERNAME/KAGGLE_KEY on the server).

Examples:
  kagglementor competitions
  kagglementor competitions --refresh --uid alice`,
	RunE: runCompetitions,
}

func init() {
	competitionsCmd.Flags().BoolVarP(&competitionsRefresh, "refresh", "r", false, "refresh the listing from Kaggle")
}

func runCompetitions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var comps []models.Competition
	if competitionsRefresh {
		list, err := api.RefreshCompetitions(ctx, uid)
		if err != nil {
			return err
		}
		if list.Degraded {
			fmt.Println("Warning: Kaggle is unreachable, showing sample data (not persisted).")
			fmt.Println()
		}
		comps = list.Competitions
	} else {
		var err error
		comps, err = api.ListCompetitions(ctx)
		if err != nil {
			return err
		}
	}

	if len(comps) == 0 {
		fmt.Println("No competitions cached yet. Run 'kagglementor competitions --refresh' first.")
		return nil
	}

	for _, comp := range comps {
		status := "not analysed"
		if comp.Ingestion != nil {
			status = string(comp.Ingestion.Status)
		}
		fmt.Printf("%-50s  %-12s  %-10s  %s\n", comp.ID, status, comp.Prize, comp.Title)
	}
	fmt.Printf("\n%d competitions\n", len(comps))
	return nil
}

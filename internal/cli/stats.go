package cli

import (
	"fmt"

	"github.com/raphaelgruber/kagglementor/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server operation statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	snap, err := api.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Uptime: %.0fs\n\n", snap.UptimeSeconds)
	printOp("Kaggle list", snap.KaggleList)
	printOp("Kaggle pull", snap.KagglePull)
	printOp("LLM generate", snap.LLMGenerate)
	printOp("DB query", snap.DBQuery)
	return nil
}

func printOp(name string, op *metrics.OperationSnapshot) {
	if op == nil {
		fmt.Printf("%-14s no data\n", name)
		return
	}
	fmt.Printf("%-14s count=%d avg=%.1fms min=%dms max=%dms\n",
		name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

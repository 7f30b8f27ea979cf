// Package cli provides the command-line interface for kagglementor.
package cli

import (
	"github.com/raphaelgruber/kagglementor/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string
	uid       string

	// API client, created before every command runs
	api *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kagglementor",
	Short: "Learn machine learning from Kaggle's best notebooks",
	Long: `Kagglementor analyses the top notebooks of Kaggle competitions with an
LLM, tags every cell with the ML concepts it uses, and serves summaries,
context files and a mentor/tutor chat over them.

The CLI talks to a running kagglementor-server instance.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $KAGGLEMENTOR_SERVER_URL or http://localhost:8585)")
	rootCmd.PersistentFlags().StringVarP(&uid, "uid", "u", "", "user id for credentials and progress tracking")

	rootCmd.AddCommand(competitionsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(mentorCmd)
	rootCmd.AddCommand(tutorCmd)
	rootCmd.AddCommand(credsCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

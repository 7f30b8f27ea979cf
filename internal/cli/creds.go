package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage stored Kaggle credentials",
}

var credsSetCmd = &cobra.Command{
	Use:   "set <kaggle-username> <api-key>",
	Short: "Store Kaggle credentials for a user",
	Long: `Store a Kaggle username and API key on the server for the given --uid.
Get an API key from kaggle.com -> Account -> Create New API Token.

Example:
  kagglementor creds set alice-kaggle abc123 --uid alice`,
	Args: cobra.ExactArgs(2),
	RunE: runCredsSet,
}

var credsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored Kaggle username",
	Args:  cobra.NoArgs,
	RunE:  runCredsShow,
}

func init() {
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsShowCmd)
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	if uid == "" {
		return fmt.Errorf("--uid is required to store credentials")
	}
	if err := api.SaveCredentials(cmd.Context(), uid, args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("Credentials saved.")
	return nil
}

func runCredsShow(cmd *cobra.Command, args []string) error {
	if uid == "" {
		return fmt.Errorf("--uid is required")
	}
	user, err := api.GetUser(cmd.Context(), uid)
	if err != nil {
		return err
	}
	if user.KaggleUsername == "" {
		fmt.Println("No Kaggle credentials stored.")
		return nil
	}
	fmt.Printf("Kaggle username: %s (API key stored)\n", user.KaggleUsername)
	return nil
}

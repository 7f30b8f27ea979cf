package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var contextOutput string

var contextCmd = &cobra.Command{
	Use:   "context <competition-id|url>",
	Short: "Download a competition's notebook context file",
	Long: `Build a plain-text file concatenating the competition's top notebooks,
suitable for pasting into an LLM as context.

Examples:
  kagglementor context titanic
  kagglementor context titanic -o titanic-context.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringVarP(&contextOutput, "output", "o", "", "write to file instead of stdout")
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id := args[0]
	if strings.Contains(id, "/") {
		// Accept a full URL and reduce it to the slug
		parts := strings.Split(strings.TrimRight(id, "/"), "/")
		id = parts[len(parts)-1]
	}

	content, err := api.ContextFile(ctx, uid, id)
	if err != nil {
		return err
	}

	if contextOutput == "" {
		fmt.Print(content)
		return nil
	}

	if err := os.WriteFile(contextOutput, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write context file: %w", err)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(content), contextOutput)
	return nil
}

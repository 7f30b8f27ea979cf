package cli

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/spf13/cobra"
)

var (
	tutorHistory   []string
	tutorInterests []string
)

var mentorCmd = &cobra.Command{
	Use:   "mentor <competition-id> <question>",
	Short: "Ask the mentor about an analysed competition",
	Long: `Ask a question about a specific competition. Answers are grounded only
in the competition's analysed notebooks, so the competition must have a
completed analysis first.

Example:
  kagglementor mentor titanic "Which features mattered most?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMentor,
}

var tutorCmd = &cobra.Command{
	Use:   "tutor <question>",
	Short: "Ask the beginner ML tutor a question",
	Long: `Ask the tutor a general machine learning question. If a uid is given,
the tutor tailors its analogies to that user's stored interests.

Prior turns can be replayed with repeated --history flags, alternating
user and model messages.

Examples:
  kagglementor tutor "What is gradient boosting?"
  kagglementor tutor --uid alice --history "What is overfitting?" --history "Overfitting is..." "How do I avoid it?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTutor,
}

func init() {
	tutorCmd.Flags().StringArrayVar(&tutorHistory, "history", nil, "previous chat turns, alternating user/model")
	tutorCmd.Flags().StringArrayVarP(&tutorInterests, "interest", "i", nil, "add an interest to the user profile before asking")
}

func runMentor(cmd *cobra.Command, args []string) error {
	question := strings.Join(args[1:], " ")

	answer, err := api.MentorChat(cmd.Context(), args[0], question)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func runTutor(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	if len(tutorInterests) > 0 {
		if uid == "" {
			return fmt.Errorf("--uid is required to store interests")
		}
		if _, err := api.UpdateInterests(cmd.Context(), uid, tutorInterests, nil); err != nil {
			return err
		}
	}

	history := make([]models.ChatMessage, 0, len(tutorHistory))
	for i, content := range tutorHistory {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.ChatMessage{Role: role, Content: content})
	}

	answer, err := api.TutorChat(cmd.Context(), uid, question, history)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

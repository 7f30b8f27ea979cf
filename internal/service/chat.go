package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/kagglementor/internal/models"
)

const mentorSystemPrompt = `You are an expert Data Science mentor. A user is asking a question about a specific Kaggle competition. Your task is to provide a clear, helpful, and insightful answer based *only* on the provided context.

Do not use any external knowledge. If the answer is not in the context, state that the information is not available in the provided materials.`

const tutorSystemPrompt = `You are "KaggleBot", an expert and friendly AI Tutor for beginners exploring machine learning. Your goal is to guide, teach, and encourage users on their learning journey.

- Your tone should be encouraging, patient, and clear.
- Break down complex topics into simple, easy-to-understand steps.
- Use analogies related to the user's interests to explain concepts where possible.
- When a user asks a question, provide a direct answer but also suggest a logical next question or topic to explore.
- If you provide code examples, use Python and keep them short and simple.
- Always recommend real-world Kaggle competitions or datasets that are suitable for a beginner's level for the topic being discussed.`

// ChatService answers mentor and tutor questions with single LLM calls.
type ChatService struct {
	model Generator
}

// NewChatService creates a chat service.
func NewChatService(model Generator) *ChatService {
	return &ChatService{model: model}
}

// Mentor answers a question grounded only in the given competition context.
func (s *ChatService) Mentor(ctx context.Context, question, competitionContext string) (string, error) {
	var b strings.Builder
	b.WriteString("Here is the competition context:\n---\n")
	b.WriteString(competitionContext)
	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, "Here is the user's question:\n%q\n\nProvide your answer below.\n", question)

	answer, err := s.model.GenerateWithSystem(ctx, mentorSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("mentor chat: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("mentor chat: model returned no answer")
	}
	return strings.TrimSpace(answer), nil
}

// Tutor answers a beginner question, flavored by the user's interests and
// prior conversation turns.
func (s *ChatService) Tutor(ctx context.Context, question string, interests []string, history []models.ChatMessage) (string, error) {
	var b strings.Builder
	if len(interests) > 0 {
		fmt.Fprintf(&b, "The user has expressed interest in the following fields: %s.\n\n", strings.Join(interests, ", "))
	} else {
		b.WriteString("The user is interested in general machine learning.\n\n")
	}

	if len(history) > 0 {
		b.WriteString("Previous conversation context:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User's question: %q\n\nProvide your answer below.", question)

	answer, err := s.model.GenerateWithSystem(ctx, tutorSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("tutor chat: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("tutor chat: model returned no answer")
	}
	return strings.TrimSpace(answer), nil
}

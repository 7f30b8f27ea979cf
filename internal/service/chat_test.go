package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMentorAnswers(t *testing.T) {
	model := &fakeModel{response: "Use a random forest."}
	svc := NewChatService(model)

	answer, err := svc.Mentor(context.Background(), "What model works best?", "Notebook context here.")
	require.NoError(t, err)
	assert.Equal(t, "Use a random forest.", answer)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Notebook context here.")
	assert.Contains(t, model.prompts[0], "What model works best?")
	assert.Contains(t, model.prompts[0], "based *only* on the provided context")
}

func TestMentorEmptyAnswerErrors(t *testing.T) {
	svc := NewChatService(&fakeModel{response: "  "})

	_, err := svc.Mentor(context.Background(), "question", "context")
	assert.Error(t, err)
}

func TestMentorModelErrorPropagates(t *testing.T) {
	svc := NewChatService(&fakeModel{err: fmt.Errorf("down")})

	_, err := svc.Mentor(context.Background(), "question", "context")
	assert.Error(t, err)
}

func TestTutorIncludesInterestsAndHistory(t *testing.T) {
	model := &fakeModel{response: "Start with logistic regression."}
	svc := NewChatService(model)

	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "What is overfitting?"},
		{Role: models.RoleModel, Content: "Overfitting is..."},
	}
	answer, err := svc.Tutor(context.Background(), "What should I try next?", []string{"nlp", "vision"}, history)
	require.NoError(t, err)
	assert.Equal(t, "Start with logistic regression.", answer)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "nlp, vision")
	assert.Contains(t, model.prompts[0], "user: What is overfitting?")
	assert.Contains(t, model.prompts[0], "model: Overfitting is...")
	assert.Contains(t, model.prompts[0], "What should I try next?")
}

func TestTutorWithoutInterests(t *testing.T) {
	model := &fakeModel{response: "Answer."}
	svc := NewChatService(model)

	_, err := svc.Tutor(context.Background(), "question", nil, nil)
	require.NoError(t, err)
	assert.Contains(t, model.prompts[0], "general machine learning")
}

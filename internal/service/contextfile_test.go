package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/raphaelgruber/kagglementor/internal/kaggle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContextFile(t *testing.T) {
	source := &fakeSource{
		refs: []string{"alice/first", "bob/second"},
		notebooks: map[string]*kaggle.Notebook{
			"alice/first": {Content: "cell one\ncell two", FileName: "first.ipynb"},
			"bob/second":  {Content: "other content", FileName: "second.ipynb"},
		},
	}
	svc := NewContextFileService(source, validCreds())

	content, err := svc.Build(context.Background(), "alice", "https://www.kaggle.com/c/titanic")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "CONTEXT FOR KAGGLE COMPETITION: titanic\n\n====================\n\n"))
	assert.Contains(t, content, "--- NOTEBOOK: first.ipynb ---\n\ncell one\ncell two\n\n--- END OF NOTEBOOK ---\n\n")
	assert.Contains(t, content, "--- NOTEBOOK: second.ipynb ---\n\nother content\n\n--- END OF NOTEBOOK ---\n\n")
}

func TestBuildContextFileNoNotebooks(t *testing.T) {
	svc := NewContextFileService(&fakeSource{}, validCreds())

	content, err := svc.Build(context.Background(), "alice", "https://www.kaggle.com/competitions/titanic")
	require.NoError(t, err)
	assert.Equal(t, "No public notebooks were found for this competition.", content)
}

func TestBuildContextFileAllPullsFail(t *testing.T) {
	source := &fakeSource{
		refs: []string{"alice/first"},
		pullErr: map[string]error{
			"alice/first": fmt.Errorf("boom"),
		},
	}
	svc := NewContextFileService(source, validCreds())

	content, err := svc.Build(context.Background(), "alice", "https://www.kaggle.com/c/titanic")
	require.NoError(t, err)
	assert.Equal(t, "No public notebooks were found for this competition.", content)
}

func TestBuildContextFileBadURL(t *testing.T) {
	svc := NewContextFileService(&fakeSource{}, validCreds())

	_, err := svc.Build(context.Background(), "alice", "https://")
	assert.Error(t, err)
}

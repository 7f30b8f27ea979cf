package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/kagglementor/internal/notebook"
)

// contextFileEmpty is the whole-file content when a competition has no
// public notebooks. Exact wording is part of the API contract.
const contextFileEmpty = "No public notebooks were found for this competition."

// ContextFileService builds plain-text dumps of a competition's top
// notebooks for use as LLM context.
type ContextFileService struct {
	source NotebookSource
	creds  CredentialSource
}

// NewContextFileService creates a context file service.
func NewContextFileService(source NotebookSource, credSource CredentialSource) *ContextFileService {
	return &ContextFileService{source: source, creds: credSource}
}

// Build fetches the competition's top notebooks and concatenates them
// verbatim between per-notebook delimiters. Notebooks that fail to pull are
// skipped; the file is best effort.
func (s *ContextFileService) Build(ctx context.Context, uid, competitionURL string) (string, error) {
	slug, err := notebook.CompetitionSlug(competitionURL)
	if err != nil {
		return "", fmt.Errorf("build context file: %w", err)
	}

	credentials, err := s.creds.Resolve(ctx, uid)
	if err != nil {
		slog.Debug("building context file without credentials", "uid", uid)
	}

	refs := s.source.ListTopNotebooks(ctx, credentials, slug)
	if len(refs) == 0 {
		return contextFileEmpty, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CONTEXT FOR KAGGLE COMPETITION: %s\n\n", slug)
	b.WriteString("====================\n\n")

	included := 0
	for _, ref := range refs {
		nb, err := s.source.PullNotebook(ctx, credentials, ref)
		if err != nil {
			slog.Warn("skipping notebook in context file", "ref", ref, "error", err)
			continue
		}
		fmt.Fprintf(&b, "--- NOTEBOOK: %s ---\n\n", nb.FileName)
		b.WriteString(nb.Content)
		b.WriteString("\n\n--- END OF NOTEBOOK ---\n\n")
		included++
	}

	if included == 0 {
		return contextFileEmpty, nil
	}

	slog.Info("context file built", "competition", slug, "notebooks", included)
	return b.String(), nil
}

// Package service orchestrates competition analysis, listing, context files
// and chat on top of the db, kaggle and llm layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/kagglementor/internal/creds"
	"github.com/raphaelgruber/kagglementor/internal/kaggle"
	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/raphaelgruber/kagglementor/internal/notebook"
	"github.com/raphaelgruber/kagglementor/internal/tagger"
)

// Canned user-facing strings. These are part of the API contract: clients
// match on them, so change them only together with the frontend.
const (
	summaryNoNotebooks      = "No public notebooks were found for this competition, so a summary could not be generated."
	summaryNothingProcessed = "No notebooks could be successfully processed for this competition."
	summaryFallback         = "Could not generate a summary for this competition."

	msgInvalidCredentials = "Invalid Kaggle credentials. Please check your username and API key in Settings."
	msgAnalysisTimeout    = "Analysis timed out - please retry"
)

const xpPerAnalysis = 100

// levelFor derives a level from total XP, 250 XP per level.
func levelFor(xp int) int {
	return xp/250 + 1
}

const summaryPromptFormat = `Based on the content from the top notebooks of a Kaggle competition provided below, generate a concise, one-paragraph summary of the competition's main goal. Focus on what problem is being solved (e.g., "predicting house prices," "classifying images of dogs").

Competition Context:
---
%s
---
`

// NotebookSource is the Kaggle API surface the analysis pipeline needs.
type NotebookSource interface {
	ListCompetitions(ctx context.Context, creds models.Credentials) kaggle.CompetitionList
	ListTopNotebooks(ctx context.Context, creds models.Credentials, slug string) []string
	PullNotebook(ctx context.Context, creds models.Credentials, ref string) (*kaggle.Notebook, error)
}

// CredentialSource resolves Kaggle credentials for a user.
type CredentialSource interface {
	Resolve(ctx context.Context, uid string) (models.Credentials, error)
}

// Generator is the LLM capability used for summaries and chat.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CellTagger annotates parsed notebook cells.
type CellTagger interface {
	TagCells(ctx context.Context, meta tagger.Meta, cells []models.RawCell) ([]models.TaggedCell, error)
}

// ingestStore is the db surface the ingest pipeline needs.
type ingestStore interface {
	QueryGetCompetition(ctx context.Context, id string) (*models.Competition, error)
	QueryTryStartIngestion(ctx context.Context, id, runID string) error
	QueryCompleteIngestion(ctx context.Context, id, runID, summary string, notebooks []models.DeconstructedNotebook) error
	QueryFailIngestion(ctx context.Context, id, runID, message string) error
	QueryGetUser(ctx context.Context, uid string) (*models.User, error)
	QueryAwardUserProgress(ctx context.Context, uid string, xpGain, level int) (*models.User, error)
}

// BatchResult summarizes a notebook fan-out: every notebook either survives
// into Succeeded or is counted in Failed. Partial success is success.
type BatchResult struct {
	Succeeded []models.DeconstructedNotebook
	Failed    int
}

// IngestService runs the competition analysis pipeline.
type IngestService struct {
	store       ingestStore
	source      NotebookSource
	creds       CredentialSource
	tagger      CellTagger
	model       Generator
	timeout     time.Duration
	concurrency int
}

// NewIngestService creates an ingest service. timeout bounds a whole analysis
// run; concurrency bounds the notebook fan-out (default 4).
func NewIngestService(
	store ingestStore,
	source NotebookSource,
	credSource CredentialSource,
	cellTagger CellTagger,
	model Generator,
	timeout time.Duration,
	concurrency int,
) *IngestService {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &IngestService{
		store:       store,
		source:      source,
		creds:       credSource,
		tagger:      cellTagger,
		model:       model,
		timeout:     timeout,
		concurrency: concurrency,
	}
}

// StartAnalysis claims the competition and runs the analysis in the
// background. The claim happens synchronously so callers can surface
// db.ErrAnalysisInProgress immediately. Returns the run ID.
func (s *IngestService) StartAnalysis(ctx context.Context, uid, competitionID string) (string, error) {
	runID := uuid.NewString()
	if err := s.store.QueryTryStartIngestion(ctx, competitionID, runID); err != nil {
		return "", err
	}

	go s.runClaimed(uid, competitionID, runID)
	return runID, nil
}

// Analyze claims the competition and runs the full pipeline synchronously.
func (s *IngestService) Analyze(ctx context.Context, uid, competitionID string) error {
	runID := uuid.NewString()
	if err := s.store.QueryTryStartIngestion(ctx, competitionID, runID); err != nil {
		return err
	}
	return s.runPipeline(ctx, uid, competitionID, runID)
}

// runClaimed executes an already-claimed run under the ingest timeout.
// Cancellation is active: a timed-out run stops pulling and tagging instead
// of lingering until the janitor sweeps it.
func (s *IngestService) runClaimed(uid, competitionID, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.runPipeline(ctx, uid, competitionID, runID); err != nil {
		slog.Error("analysis run failed", "competition", competitionID, "run", runID, "error", err)
	}
}

// runPipeline drives a claimed run to a terminal state. Every error path
// ends in a failed record so no run is left processing.
func (s *IngestService) runPipeline(ctx context.Context, uid, competitionID, runID string) error {
	slog.Info("starting competition analysis", "competition", competitionID, "run", runID, "uid", uid)

	comp, err := s.store.QueryGetCompetition(ctx, competitionID)
	if err != nil {
		return s.fail(competitionID, runID, err)
	}
	if comp == nil {
		return s.fail(competitionID, runID, fmt.Errorf("competition %q not found", competitionID))
	}

	slug, err := notebook.CompetitionSlug(comp.URL)
	if err != nil {
		return s.fail(competitionID, runID, fmt.Errorf("extract competition slug: %w", err))
	}

	credentials, err := s.creds.Resolve(ctx, uid)
	if err != nil && !errors.Is(err, creds.ErrNotFound) {
		return s.fail(competitionID, runID, err)
	}

	refs := s.source.ListTopNotebooks(ctx, credentials, slug)
	if len(refs) == 0 {
		slog.Info("no public notebooks found", "competition", competitionID)
		return s.complete(ctx, uid, competitionID, runID, summaryNoNotebooks, []models.DeconstructedNotebook{})
	}

	batch := s.processNotebooks(ctx, credentials, refs)
	if ctx.Err() != nil {
		return s.fail(competitionID, runID, ctx.Err())
	}
	if len(batch.Succeeded) == 0 {
		slog.Warn("no notebooks survived processing", "competition", competitionID, "failed", batch.Failed)
		return s.complete(ctx, uid, competitionID, runID, summaryNothingProcessed, []models.DeconstructedNotebook{})
	}

	summary, err := s.summarize(ctx, batch.Succeeded)
	if err != nil {
		return s.fail(competitionID, runID, err)
	}

	slog.Info("competition analysis complete",
		"competition", competitionID, "run", runID,
		"notebooks", len(batch.Succeeded), "failed", batch.Failed)
	return s.complete(ctx, uid, competitionID, runID, summary, batch.Succeeded)
}

// processNotebooks fans out over notebook refs with a bounded worker pool.
// Notebook failures are isolated: a bad notebook is logged and counted, never
// fatal to the batch.
func (s *IngestService) processNotebooks(ctx context.Context, credentials models.Credentials, refs []string) BatchResult {
	concurrency := s.concurrency
	if concurrency > len(refs) {
		concurrency = len(refs)
	}

	var (
		failed  atomic.Int32
		mu      sync.Mutex
		results = make([]*models.DeconstructedNotebook, len(refs))
	)

	refChan := make(chan int, len(refs))
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range refChan {
				if ctx.Err() != nil {
					return
				}

				ref := refs[idx]
				nb, err := s.processNotebook(ctx, credentials, ref)
				if err != nil {
					failed.Add(1)
					slog.Warn("skipping notebook", "worker", workerID, "ref", ref, "error", err)
					continue
				}

				mu.Lock()
				results[idx] = nb
				mu.Unlock()
			}
		}(i)
	}

	for i := range refs {
		refChan <- i
	}
	close(refChan)
	wg.Wait()

	// Preserve ref order in the surviving set
	batch := BatchResult{Failed: int(failed.Load())}
	for _, nb := range results {
		if nb != nil {
			batch.Succeeded = append(batch.Succeeded, *nb)
		}
	}
	return batch
}

// processNotebook pulls, parses and tags a single notebook.
func (s *IngestService) processNotebook(ctx context.Context, credentials models.Credentials, ref string) (*models.DeconstructedNotebook, error) {
	pulled, err := s.source.PullNotebook(ctx, credentials, ref)
	if err != nil {
		return nil, fmt.Errorf("pull notebook: %w", err)
	}

	cells, err := notebook.Parse(pulled.Content)
	if err != nil {
		return nil, fmt.Errorf("parse notebook: %w", err)
	}

	title, author := notebook.TitleAuthor(ref)
	url := notebook.URL(ref)

	tagged, err := s.tagger.TagCells(ctx, tagger.Meta{Title: title, Author: author, URL: url}, cells)
	if err != nil {
		return nil, err
	}

	return &models.DeconstructedNotebook{
		Title:  title,
		Author: author,
		URL:    url,
		Cells:  tagged,
	}, nil
}

// summarize asks the model for a one-paragraph goal summary. An empty model
// response degrades to the fallback sentence, a failed call is an error.
func (s *IngestService) summarize(ctx context.Context, notebooks []models.DeconstructedNotebook) (string, error) {
	var b strings.Builder
	for i, nb := range notebooks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Notebook: %s\n", nb.Title)
		for j, cell := range nb.Cells {
			if j > 0 {
				b.WriteString("\n")
			}
			b.WriteString(cell.Content)
		}
	}

	response, err := s.model.Generate(ctx, fmt.Sprintf(summaryPromptFormat, b.String()))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return summaryFallback, nil
	}
	return strings.TrimSpace(response), nil
}

// complete persists a terminal complete state and awards progress.
func (s *IngestService) complete(ctx context.Context, uid, competitionID, runID, summary string, notebooks []models.DeconstructedNotebook) error {
	if err := s.store.QueryCompleteIngestion(ctx, competitionID, runID, summary, notebooks); err != nil {
		return s.fail(competitionID, runID, err)
	}
	s.awardProgress(ctx, uid)
	return nil
}

// fail records a failed run with a user-facing message. Uses a fresh context
// so a timed-out run can still reach its terminal state.
func (s *IngestService) fail(competitionID, runID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message := failureMessage(cause)
	if err := s.store.QueryFailIngestion(ctx, competitionID, runID, message); err != nil {
		slog.Error("failed to record analysis failure", "competition", competitionID, "run", runID, "error", err)
	}
	return fmt.Errorf("analyze %s: %w", competitionID, cause)
}

// awardProgress grants XP for a finished analysis. Best effort, anonymous
// and system runs earn nothing.
func (s *IngestService) awardProgress(ctx context.Context, uid string) {
	if uid == "" || uid == creds.SystemUser {
		return
	}

	user, err := s.store.QueryGetUser(ctx, uid)
	if err != nil {
		slog.Warn("failed to load user for progress award", "uid", uid, "error", err)
		return
	}

	xp := xpPerAnalysis
	if user != nil {
		xp = user.XP + xpPerAnalysis
	}
	if _, err := s.store.QueryAwardUserProgress(ctx, uid, xpPerAnalysis, levelFor(xp)); err != nil {
		slog.Warn("failed to award user progress", "uid", uid, "error", err)
	}
}

// failureMessage maps pipeline errors to the user-facing messages the
// frontend expects.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return msgAnalysisTimeout
	case errors.Is(err, kaggle.ErrUnauthorized),
		errors.Is(err, creds.ErrNotFound),
		strings.Contains(err.Error(), "401"),
		strings.Contains(err.Error(), "Unauthorized"):
		return msgInvalidCredentials
	default:
		return err.Error()
	}
}

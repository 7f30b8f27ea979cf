package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/db"
	"github.com/raphaelgruber/kagglementor/internal/kaggle"
	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/raphaelgruber/kagglementor/internal/tagger"
)

// fakeStore is an in-memory stand-in for the db client.
type fakeStore struct {
	mu           sync.Mutex
	comps        map[string]*models.Competition
	cache        *models.CompetitionCache
	users        map[string]*models.User
	sweepCutoff  time.Time
	sweepMessage string
	sweepCount   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		comps: make(map[string]*models.Competition),
		users: make(map[string]*models.User),
	}
}

func (f *fakeStore) addCompetition(comp models.Competition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := comp
	f.comps[comp.ID] = &c
}

func (f *fakeStore) competition(id string) *models.Competition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comps[id]
}

func (f *fakeStore) QueryGetCompetition(_ context.Context, id string) (*models.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comp, ok := f.comps[id]
	if !ok {
		return nil, nil
	}
	c := *comp
	return &c, nil
}

func (f *fakeStore) QueryListCompetitions(_ context.Context) ([]models.Competition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Competition, 0, len(f.comps))
	for _, comp := range f.comps {
		out = append(out, *comp)
	}
	return out, nil
}

func (f *fakeStore) QueryUpsertCompetition(_ context.Context, comp models.Competition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.comps[comp.ID]; ok {
		comp.Ingestion = existing.Ingestion
	}
	comp.LastUpdated = time.Now()
	f.comps[comp.ID] = &comp
	return nil
}

func (f *fakeStore) QueryUpsertCompetitions(ctx context.Context, comps []models.Competition) error {
	for _, comp := range comps {
		if err := f.QueryUpsertCompetition(ctx, comp); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) QueryTryStartIngestion(_ context.Context, id, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comp, ok := f.comps[id]
	if !ok {
		return fmt.Errorf("start ingestion for %q: %w", id, db.ErrNotFound)
	}
	if comp.Ingestion != nil && comp.Ingestion.Status == models.IngestionProcessing {
		return fmt.Errorf("start ingestion for %q: %w", id, db.ErrAnalysisInProgress)
	}
	comp.Ingestion = &models.IngestionData{Status: models.IngestionProcessing, RunID: runID}
	return nil
}

func (f *fakeStore) QuerySetIngestionPending(_ context.Context, id, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if comp, ok := f.comps[id]; ok {
		comp.Ingestion = &models.IngestionData{Status: models.IngestionPending, RunID: runID}
	}
	return nil
}

func (f *fakeStore) QueryCompleteIngestion(_ context.Context, id, runID, summary string, notebooks []models.DeconstructedNotebook) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comp, ok := f.comps[id]
	if !ok {
		return fmt.Errorf("complete ingestion: %w", db.ErrNotFound)
	}
	comp.Ingestion = &models.IngestionData{
		Status:    models.IngestionComplete,
		RunID:     runID,
		Summary:   summary,
		Notebooks: notebooks,
	}
	return nil
}

func (f *fakeStore) QueryFailIngestion(_ context.Context, id, runID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	comp, ok := f.comps[id]
	if !ok {
		return fmt.Errorf("fail ingestion: %w", db.ErrNotFound)
	}
	comp.Ingestion = &models.IngestionData{
		Status: models.IngestionFailed,
		RunID:  runID,
		Error:  message,
	}
	return nil
}

func (f *fakeStore) QueryResetStuckCompetitions(_ context.Context, cutoff time.Time, message string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepCutoff = cutoff
	f.sweepMessage = message
	f.sweepCount++
	count := 0
	for _, comp := range f.comps {
		if comp.Ingestion != nil && comp.Ingestion.Status.Active() && comp.LastUpdated.Before(cutoff) {
			comp.Ingestion = &models.IngestionData{Status: models.IngestionFailed, Error: message}
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) QueryGetCachedCompetitions(_ context.Context) (*models.CompetitionCache, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		return nil, nil
	}
	c := *f.cache
	return &c, nil
}

func (f *fakeStore) QuerySaveCachedCompetitions(_ context.Context, comps []models.Competition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = &models.CompetitionCache{Competitions: comps, LastRefresh: time.Now()}
	return nil
}

func (f *fakeStore) QueryGetUser(_ context.Context, uid string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[uid]
	if !ok {
		return nil, nil
	}
	u := *user
	return &u, nil
}

func (f *fakeStore) QueryAwardUserProgress(_ context.Context, uid string, xpGain, level int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[uid]
	if !ok {
		user = &models.User{ID: uid}
		f.users[uid] = user
	}
	user.XP += xpGain
	user.Level = level
	user.CompetitionsAnalysed++
	u := *user
	return &u, nil
}

// fakeSource is a canned Kaggle API.
type fakeSource struct {
	list      kaggle.CompetitionList
	refs      []string
	notebooks map[string]*kaggle.Notebook
	pullErr   map[string]error
}

func (f *fakeSource) ListCompetitions(_ context.Context, _ models.Credentials) kaggle.CompetitionList {
	return f.list
}

func (f *fakeSource) ListTopNotebooks(_ context.Context, _ models.Credentials, _ string) []string {
	return f.refs
}

func (f *fakeSource) PullNotebook(_ context.Context, _ models.Credentials, ref string) (*kaggle.Notebook, error) {
	if err, ok := f.pullErr[ref]; ok {
		return nil, err
	}
	nb, ok := f.notebooks[ref]
	if !ok {
		return nil, fmt.Errorf("no notebook for ref %q", ref)
	}
	return nb, nil
}

// validNotebook is a minimal well-formed .ipynb document.
const validNotebook = `{"cells":[{"cell_type":"code","source":"import pandas as pd"},{"cell_type":"markdown","source":["# Intro\n","Welcome"]}]}`

// fakeCreds resolves a fixed credential pair or error.
type fakeCreds struct {
	creds models.Credentials
	err   error
}

func (f *fakeCreds) Resolve(_ context.Context, _ string) (models.Credentials, error) {
	return f.creds, f.err
}

// fakeModel returns canned generation output.
type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeModel) GenerateWithSystem(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.prompts = append(f.prompts, systemPrompt+"\n"+userPrompt)
	return f.response, f.err
}

// fakeTagger passes cells through with a fixed tag.
type fakeTagger struct {
	err error
}

func (f *fakeTagger) TagCells(_ context.Context, _ tagger.Meta, cells []models.RawCell) ([]models.TaggedCell, error) {
	if f.err != nil {
		return nil, f.err
	}
	tagged := make([]models.TaggedCell, len(cells))
	for i, cell := range cells {
		tagged[i] = models.TaggedCell{
			Type:    cell.Type,
			Content: cell.Content,
			Tags:    []string{"EDA"},
			Signal:  models.SignalMedium,
		}
	}
	return tagged, nil
}

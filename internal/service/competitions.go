package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/raphaelgruber/kagglementor/internal/notebook"
)

// ErrNoCredentials is returned when an operation requires Kaggle credentials
// and none could be resolved.
var ErrNoCredentials = errors.New("cannot refresh competitions without kaggle credentials")

// competitionStore is the db surface the competition service needs.
type competitionStore interface {
	QueryGetCompetition(ctx context.Context, id string) (*models.Competition, error)
	QueryListCompetitions(ctx context.Context) ([]models.Competition, error)
	QueryUpsertCompetition(ctx context.Context, comp models.Competition) error
	QueryUpsertCompetitions(ctx context.Context, comps []models.Competition) error
	QuerySetIngestionPending(ctx context.Context, id, runID string) error
	QueryGetCachedCompetitions(ctx context.Context) (*models.CompetitionCache, error)
	QuerySaveCachedCompetitions(ctx context.Context, comps []models.Competition) error
}

// Sweeper resets stuck analysis runs. The competition service sweeps before
// listing reads so clients never see a run stuck in processing forever.
type Sweeper interface {
	SweepOnce(ctx context.Context) (int, error)
}

// CompetitionService serves the competition listing and registration flows.
type CompetitionService struct {
	store    competitionStore
	source   NotebookSource
	creds    CredentialSource
	ingest   *IngestService
	sweeper  Sweeper
	cacheTTL time.Duration
	now      func() time.Time
}

// NewCompetitionService creates a competition service. cacheTTL bounds how
// old the shared listing cache may be before it is treated as absent.
func NewCompetitionService(
	store competitionStore,
	source NotebookSource,
	credSource CredentialSource,
	ingest *IngestService,
	sweeper Sweeper,
	cacheTTL time.Duration,
) *CompetitionService {
	if cacheTTL <= 0 {
		cacheTTL = 7 * 24 * time.Hour
	}
	return &CompetitionService{
		store:    store,
		source:   source,
		creds:    credSource,
		ingest:   ingest,
		sweeper:  sweeper,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// List returns the cached competition listing with current analysis state
// overlaid. A stale or missing cache yields an empty list; refreshing is an
// explicit, credentialed operation.
func (s *CompetitionService) List(ctx context.Context) ([]models.Competition, error) {
	if s.sweeper != nil {
		if count, err := s.sweeper.SweepOnce(ctx); err != nil {
			slog.Warn("stuck-competition sweep failed", "error", err)
		} else if count > 0 {
			slog.Info("reset stuck competitions before listing", "count", count)
		}
	}

	cache, err := s.store.QueryGetCachedCompetitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	if cache == nil || cache.Stale(s.cacheTTL, s.now()) {
		return []models.Competition{}, nil
	}

	return s.overlayIngestion(ctx, cache.Competitions), nil
}

// overlayIngestion joins live analysis state onto cached listing entries.
// The cache stores listing fields only; analysis state lives on the
// competition records.
func (s *CompetitionService) overlayIngestion(ctx context.Context, cached []models.Competition) []models.Competition {
	stored, err := s.store.QueryListCompetitions(ctx)
	if err != nil {
		slog.Warn("failed to overlay analysis state on listing", "error", err)
		return cached
	}

	byID := make(map[string]models.Competition, len(stored))
	for _, comp := range stored {
		byID[comp.ID] = comp
	}

	out := make([]models.Competition, len(cached))
	for i, comp := range cached {
		if live, ok := byID[comp.ID]; ok {
			comp.Ingestion = live.Ingestion
			comp.LastUpdated = live.LastUpdated
		}
		out[i] = comp
	}
	return out
}

// RefreshAll pulls the live Kaggle listing, merges it into the store and
// rewrites the cache. Degraded (mock fallback) listings are returned to the
// caller but never persisted: cached data must always be real data.
func (s *CompetitionService) RefreshAll(ctx context.Context, uid string) ([]models.Competition, bool, error) {
	credentials, err := s.creds.Resolve(ctx, uid)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}

	list := s.source.ListCompetitions(ctx, credentials)
	if list.Degraded {
		slog.Warn("kaggle listing degraded, serving mock data without persisting")
		return list.Competitions, true, nil
	}

	if err := s.store.QueryUpsertCompetitions(ctx, list.Competitions); err != nil {
		return nil, false, fmt.Errorf("refresh competitions: %w", err)
	}
	if err := s.store.QuerySaveCachedCompetitions(ctx, list.Competitions); err != nil {
		return nil, false, fmt.Errorf("refresh competition cache: %w", err)
	}

	slog.Info("competition listing refreshed", "count", len(list.Competitions))
	return list.Competitions, false, nil
}

// Get returns a single competition with its analysis state, or nil.
func (s *CompetitionService) Get(ctx context.Context, id string) (*models.Competition, error) {
	return s.store.QueryGetCompetition(ctx, id)
}

// RegisterCustom registers a user-supplied competition URL as a Custom
// competition, marks it pending and starts its analysis in the background.
// Returns the registered competition.
func (s *CompetitionService) RegisterCustom(ctx context.Context, uid, competitionURL string) (*models.Competition, error) {
	slug, err := notebook.CompetitionSlug(competitionURL)
	if err != nil {
		return nil, fmt.Errorf("register custom competition: %w", err)
	}

	comp := models.Competition{
		ID:     slug,
		Title:  "Custom: " + slug,
		URL:    competitionURL,
		Prize:  "N/A",
		Status: models.CompetitionStatusCustom,
	}
	if err := s.store.QueryUpsertCompetition(ctx, comp); err != nil {
		return nil, fmt.Errorf("register custom competition: %w", err)
	}
	if err := s.store.QuerySetIngestionPending(ctx, slug, ""); err != nil {
		return nil, fmt.Errorf("register custom competition: %w", err)
	}

	runID, err := s.ingest.StartAnalysis(ctx, uid, slug)
	if err != nil {
		return nil, err
	}

	comp.Ingestion = &models.IngestionData{Status: models.IngestionProcessing, RunID: runID}
	slog.Info("registered custom competition", "competition", slug, "run", runID, "uid", uid)
	return &comp, nil
}

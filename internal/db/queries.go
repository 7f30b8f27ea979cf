// Package db provides SurrealDB query functions for competition, cache and
// user operations.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// cacheRecordID is the single shared competition cache record.
const cacheRecordID = "global"

// competitionRecord mirrors models.Competition with the SurrealDB record id.
type competitionRecord struct {
	ID          surrealmodels.RecordID `json:"id"`
	Title       string                 `json:"title"`
	URL         string                 `json:"url"`
	Prize       string                 `json:"prize"`
	Status      string                 `json:"status"`
	Tags        []string               `json:"tags"`
	Ingestion   *models.IngestionData  `json:"ingestion,omitempty"`
	LastUpdated time.Time              `json:"last_updated"`
}

func (r competitionRecord) toModel() models.Competition {
	return models.Competition{
		ID:          models.MustRecordIDString(r.ID),
		Title:       r.Title,
		URL:         r.URL,
		Prize:       r.Prize,
		Status:      r.Status,
		Tags:        r.Tags,
		Ingestion:   r.Ingestion,
		LastUpdated: r.LastUpdated,
	}
}

// userRecord mirrors models.User with the SurrealDB record id.
type userRecord struct {
	ID                   surrealmodels.RecordID `json:"id"`
	KaggleUsername       *string                `json:"kaggle_username,omitempty"`
	KaggleKey            *string                `json:"kaggle_key,omitempty"`
	Interests            []string               `json:"interests"`
	XP                   int                    `json:"xp"`
	Level                int                    `json:"level"`
	CompetitionsAnalysed int                    `json:"competitions_analysed"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

func (r userRecord) toModel() models.User {
	u := models.User{
		ID:                   models.MustRecordIDString(r.ID),
		Interests:            r.Interests,
		XP:                   r.XP,
		Level:                r.Level,
		CompetitionsAnalysed: r.CompetitionsAnalysed,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.KaggleUsername != nil {
		u.KaggleUsername = *r.KaggleUsername
	}
	if r.KaggleKey != nil {
		u.KaggleKey = *r.KaggleKey
	}
	return u
}

// cacheRecord mirrors models.CompetitionCache with the SurrealDB record id.
type cacheRecord struct {
	ID           surrealmodels.RecordID `json:"id"`
	Competitions []models.Competition   `json:"competitions"`
	LastRefresh  time.Time              `json:"last_refresh"`
}

// QueryGetCompetition retrieves a competition by ID.
// Returns nil if not found.
func (c *Client) QueryGetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	defer c.recordTiming(time.Now())

	results, err := surrealdb.Query[[]competitionRecord](ctx, c.db, `
		SELECT * FROM type::record("competition", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get competition: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	comp := (*results)[0].Result[0].toModel()
	return &comp, nil
}

// QueryListCompetitions returns all stored competitions ordered by title.
func (c *Client) QueryListCompetitions(ctx context.Context) ([]models.Competition, error) {
	defer c.recordTiming(time.Now())

	results, err := surrealdb.Query[[]competitionRecord](ctx, c.db, `
		SELECT * FROM competition ORDER BY title
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Competition{}, nil
	}
	comps := make([]models.Competition, 0, len((*results)[0].Result))
	for _, rec := range (*results)[0].Result {
		comps = append(comps, rec.toModel())
	}
	return comps, nil
}

// QueryUpsertCompetition creates or updates a competition's listing fields.
// Analysis state under ingestion is deliberately untouched so a refresh of
// the listing never clobbers a run in flight.
func (c *Client) QueryUpsertCompetition(ctx context.Context, comp models.Competition) error {
	defer c.recordTiming(time.Now())

	tags := comp.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("competition", $id) MERGE {
			title: $title,
			url: $url,
			prize: $prize,
			status: $status,
			tags: $tags,
			last_updated: time::now()
		}
	`, map[string]any{
		"id":     comp.ID,
		"title":  comp.Title,
		"url":    comp.URL,
		"prize":  comp.Prize,
		"status": comp.Status,
		"tags":   tags,
	})
	if err != nil {
		return fmt.Errorf("upsert competition: %w", wrapQueryError(err))
	}
	return nil
}

// QueryUpsertCompetitions merges a batch of competitions one by one.
// A single failure aborts the batch.
func (c *Client) QueryUpsertCompetitions(ctx context.Context, comps []models.Competition) error {
	for _, comp := range comps {
		if err := c.QueryUpsertCompetition(ctx, comp); err != nil {
			return err
		}
	}
	return nil
}

// QueryTryStartIngestion atomically claims the processing slot for a
// competition. The WHERE clause is the mutual-exclusion guard: exactly one
// concurrent caller observes a non-processing state and wins. Losers get
// ErrAnalysisInProgress, a missing competition gets ErrNotFound.
func (c *Client) QueryTryStartIngestion(ctx context.Context, id, runID string) error {
	defer c.recordTiming(time.Now())

	existing, err := c.QueryGetCompetition(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("start ingestion for %q: %w", id, ErrNotFound)
	}

	results, err := surrealdb.Query[[]competitionRecord](ctx, c.db, `
		UPDATE type::record("competition", $id) SET
			ingestion = { status: 'processing', run_id: $run },
			last_updated = time::now()
		WHERE ingestion = NONE OR ingestion.status != 'processing'
		RETURN AFTER
	`, map[string]any{"id": id, "run": runID})
	if err != nil {
		return fmt.Errorf("start ingestion: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("start ingestion for %q: %w", id, ErrAnalysisInProgress)
	}
	return nil
}

// QuerySetIngestionPending marks a competition as queued for analysis.
func (c *Client) QuerySetIngestionPending(ctx context.Context, id, runID string) error {
	defer c.recordTiming(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("competition", $id) SET
			ingestion = { status: 'pending', run_id: $run },
			last_updated = time::now()
	`, map[string]any{"id": id, "run": runID})
	if err != nil {
		return fmt.Errorf("set ingestion pending: %w", wrapQueryError(err))
	}
	return nil
}

// QueryCompleteIngestion stores the analysis output and marks the run
// complete.
func (c *Client) QueryCompleteIngestion(
	ctx context.Context,
	id, runID, summary string,
	notebooks []models.DeconstructedNotebook,
) error {
	defer c.recordTiming(time.Now())

	if notebooks == nil {
		notebooks = []models.DeconstructedNotebook{}
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("competition", $id) SET
			ingestion = {
				status: 'complete',
				run_id: $run,
				summary: $summary,
				notebooks: $notebooks
			},
			last_updated = time::now()
	`, map[string]any{
		"id":        id,
		"run":       runID,
		"summary":   summary,
		"notebooks": notebooks,
	})
	if err != nil {
		return fmt.Errorf("complete ingestion: %w", wrapQueryError(err))
	}
	return nil
}

// QueryFailIngestion marks the run failed with a user-facing error message.
func (c *Client) QueryFailIngestion(ctx context.Context, id, runID, message string) error {
	defer c.recordTiming(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("competition", $id) SET
			ingestion = { status: 'failed', run_id: $run, error: $message },
			last_updated = time::now()
	`, map[string]any{"id": id, "run": runID, "message": message})
	if err != nil {
		return fmt.Errorf("fail ingestion: %w", wrapQueryError(err))
	}
	return nil
}

// QueryResetStuckCompetitions fails every competition whose analysis is
// still pending or processing but has not been touched since cutoff.
// Returns the number of competitions swept.
func (c *Client) QueryResetStuckCompetitions(ctx context.Context, cutoff time.Time, message string) (int, error) {
	defer c.recordTiming(time.Now())

	results, err := surrealdb.Query[[]competitionRecord](ctx, c.db, `
		UPDATE competition SET
			ingestion.status = 'failed',
			ingestion.error = $message,
			last_updated = time::now()
		WHERE ingestion.status IN ['pending', 'processing']
			AND last_updated < $cutoff
		RETURN AFTER
	`, map[string]any{
		"cutoff":  cutoff,
		"message": message,
	})
	if err != nil {
		return 0, fmt.Errorf("reset stuck competitions: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// QueryGetCachedCompetitions returns the shared listing cache.
// Returns nil if no cache record exists yet.
func (c *Client) QueryGetCachedCompetitions(ctx context.Context) (*models.CompetitionCache, error) {
	defer c.recordTiming(time.Now())

	results, err := surrealdb.Query[[]cacheRecord](ctx, c.db, `
		SELECT * FROM type::record("competition_cache", $id)
	`, map[string]any{"id": cacheRecordID})
	if err != nil {
		return nil, fmt.Errorf("get cached competitions: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	rec := (*results)[0].Result[0]
	return &models.CompetitionCache{
		Competitions: rec.Competitions,
		LastRefresh:  rec.LastRefresh,
	}, nil
}

// QuerySaveCachedCompetitions replaces the shared listing cache.
func (c *Client) QuerySaveCachedCompetitions(ctx context.Context, comps []models.Competition) error {
	defer c.recordTiming(time.Now())

	if comps == nil {
		comps = []models.Competition{}
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("competition_cache", $id) SET
			competitions = $competitions,
			last_refresh = time::now()
	`, map[string]any{"id": cacheRecordID, "competitions": comps})
	if err != nil {
		return fmt.Errorf("save cached competitions: %w", wrapQueryError(err))
	}
	return nil
}

// QueryGetUser retrieves a user by ID.
// Returns nil if not found.
func (c *Client) QueryGetUser(ctx context.Context, uid string) (*models.User, error) {
	defer c.recordTiming(time.Now())

	results, err := surrealdb.Query[[]userRecord](ctx, c.db, `
		SELECT * FROM type::record("user", $id)
	`, map[string]any{"id": uid})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	user := (*results)[0].Result[0].toModel()
	return &user, nil
}

// QuerySaveUserCredentials stores a user's Kaggle credential pair.
func (c *Client) QuerySaveUserCredentials(ctx context.Context, uid, username, key string) error {
	defer c.recordTiming(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("user", $id) SET
			kaggle_username = $username,
			kaggle_key = $key,
			updated_at = time::now()
	`, map[string]any{"id": uid, "username": username, "key": key})
	if err != nil {
		return fmt.Errorf("save user credentials: %w", wrapQueryError(err))
	}
	return nil
}

// QueryUpdateUserInterests merges added interests in and removes dropped
// ones, returning the resulting user.
func (c *Client) QueryUpdateUserInterests(ctx context.Context, uid string, add, remove []string) (*models.User, error) {
	defer c.recordTiming(time.Now())

	if add == nil {
		add = []string{}
	}
	if remove == nil {
		remove = []string{}
	}

	results, err := surrealdb.Query[[]userRecord](ctx, c.db, `
		UPSERT type::record("user", $id) SET
			interests = array::difference(array::union(interests ?? [], $add), $remove),
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": uid, "add": add, "remove": remove})
	if err != nil {
		return nil, fmt.Errorf("update user interests: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update user interests: no result returned")
	}
	user := (*results)[0].Result[0].toModel()
	return &user, nil
}

// QuerySaveUserProgress sets a user's progress fields to absolute values.
func (c *Client) QuerySaveUserProgress(ctx context.Context, uid string, xp, level, competitionsAnalysed int) error {
	defer c.recordTiming(time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("user", $id) SET
			xp = $xp,
			level = $level,
			competitions_analysed = $analysed,
			updated_at = time::now()
	`, map[string]any{"id": uid, "xp": xp, "level": level, "analysed": competitionsAnalysed})
	if err != nil {
		return fmt.Errorf("save user progress: %w", wrapQueryError(err))
	}
	return nil
}

// QueryAwardUserProgress adds XP to a user, bumps the analysed-competition
// counter, and sets the recomputed level. Returns the resulting user.
func (c *Client) QueryAwardUserProgress(ctx context.Context, uid string, xpGain, level int) (*models.User, error) {
	defer c.recordTiming(time.Now())

	results, err := surrealdb.Query[[]userRecord](ctx, c.db, `
		UPSERT type::record("user", $id) SET
			xp = (xp ?? 0) + $xp_gain,
			competitions_analysed = (competitions_analysed ?? 0) + 1,
			level = $level,
			updated_at = time::now()
		RETURN AFTER
	`, map[string]any{"id": uid, "xp_gain": xpGain, "level": level})
	if err != nil {
		return nil, fmt.Errorf("award user progress: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("award user progress: no result returned")
	}
	user := (*results)[0].Result[0].toModel()
	return &user, nil
}

//go:build integration

// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func testCompetition(id string) models.Competition {
	return models.Competition{
		ID:     id,
		Title:  "Test Competition " + id,
		URL:    "https://www.kaggle.com/competitions/" + id,
		Prize:  "$10,000",
		Status: models.CompetitionStatusActive,
		Tags:   []string{"tabular"},
	}
}

func TestUpsertAndGetCompetition(t *testing.T) {
	ctx := context.Background()

	comp := testCompetition("upsert-get")
	if err := testDB.QueryUpsertCompetition(ctx, comp); err != nil {
		t.Fatalf("QueryUpsertCompetition failed: %v", err)
	}

	got, err := testDB.QueryGetCompetition(ctx, "upsert-get")
	if err != nil {
		t.Fatalf("QueryGetCompetition failed: %v", err)
	}
	if got == nil {
		t.Fatal("QueryGetCompetition returned nil")
	}
	if got.Title != comp.Title {
		t.Errorf("Expected title %q, got %q", comp.Title, got.Title)
	}
	if got.Ingestion != nil {
		t.Error("Fresh competition should have no ingestion data")
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set by the database")
	}

	// Get non-existent
	missing, err := testDB.QueryGetCompetition(ctx, "does-not-exist")
	if err != nil {
		t.Errorf("QueryGetCompetition with non-existent ID should not error: %v", err)
	}
	if missing != nil {
		t.Error("QueryGetCompetition with non-existent ID should return nil")
	}
}

func TestUpsertPreservesIngestion(t *testing.T) {
	ctx := context.Background()

	comp := testCompetition("preserve-ingestion")
	if err := testDB.QueryUpsertCompetition(ctx, comp); err != nil {
		t.Fatalf("QueryUpsertCompetition failed: %v", err)
	}
	if err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-1"); err != nil {
		t.Fatalf("QueryTryStartIngestion failed: %v", err)
	}

	// A listing refresh must not clobber the in-flight run
	comp.Prize = "$99,999"
	if err := testDB.QueryUpsertCompetition(ctx, comp); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := testDB.QueryGetCompetition(ctx, comp.ID)
	if err != nil {
		t.Fatalf("QueryGetCompetition failed: %v", err)
	}
	if got.Prize != "$99,999" {
		t.Errorf("Expected refreshed prize, got %q", got.Prize)
	}
	if got.Ingestion == nil || got.Ingestion.Status != models.IngestionProcessing {
		t.Errorf("Ingestion state should survive a listing refresh, got %+v", got.Ingestion)
	}
}

func TestTryStartIngestionMutualExclusion(t *testing.T) {
	ctx := context.Background()

	comp := testCompetition("mutual-exclusion")
	if err := testDB.QueryUpsertCompetition(ctx, comp); err != nil {
		t.Fatalf("QueryUpsertCompetition failed: %v", err)
	}

	if err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-a"); err != nil {
		t.Fatalf("First claim should succeed: %v", err)
	}

	err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-b")
	if !errors.Is(err, ErrAnalysisInProgress) {
		t.Errorf("Second claim should fail with ErrAnalysisInProgress, got %v", err)
	}

	// Completing frees the slot for a retry
	if err := testDB.QueryCompleteIngestion(ctx, comp.ID, "run-a", "done", nil); err != nil {
		t.Fatalf("QueryCompleteIngestion failed: %v", err)
	}
	if err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-c"); err != nil {
		t.Errorf("Claim after completion should succeed: %v", err)
	}

	// A failed run is also reclaimable
	if err := testDB.QueryFailIngestion(ctx, comp.ID, "run-c", "boom"); err != nil {
		t.Fatalf("QueryFailIngestion failed: %v", err)
	}
	if err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-d"); err != nil {
		t.Errorf("Claim after failure should succeed: %v", err)
	}
}

func TestTryStartIngestionNotFound(t *testing.T) {
	ctx := context.Background()

	err := testDB.QueryTryStartIngestion(ctx, "ghost-competition", "run-x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCompleteIngestionStoresResults(t *testing.T) {
	ctx := context.Background()

	comp := testCompetition("complete-results")
	if err := testDB.QueryUpsertCompetition(ctx, comp); err != nil {
		t.Fatalf("QueryUpsertCompetition failed: %v", err)
	}
	if err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-1"); err != nil {
		t.Fatalf("QueryTryStartIngestion failed: %v", err)
	}

	notebooks := []models.DeconstructedNotebook{
		{
			Title:  "Winning Solution",
			Author: "alice",
			URL:    "https://www.kaggle.com/code/alice/winning-solution",
			Cells: []models.TaggedCell{
				{Type: models.CellTypeCode, Content: "import pandas", Tags: []string{"setup"}, Signal: models.SignalBoilerplate},
			},
		},
	}
	if err := testDB.QueryCompleteIngestion(ctx, comp.ID, "run-1", "A fine competition.", notebooks); err != nil {
		t.Fatalf("QueryCompleteIngestion failed: %v", err)
	}

	got, err := testDB.QueryGetCompetition(ctx, comp.ID)
	if err != nil {
		t.Fatalf("QueryGetCompetition failed: %v", err)
	}
	if got.Ingestion == nil {
		t.Fatal("Expected ingestion data")
	}
	if got.Ingestion.Status != models.IngestionComplete {
		t.Errorf("Expected complete status, got %q", got.Ingestion.Status)
	}
	if got.Ingestion.Summary != "A fine competition." {
		t.Errorf("Summary mismatch: %q", got.Ingestion.Summary)
	}
	if len(got.Ingestion.Notebooks) != 1 || got.Ingestion.Notebooks[0].Author != "alice" {
		t.Errorf("Notebooks not stored correctly: %+v", got.Ingestion.Notebooks)
	}
}

func TestResetStuckCompetitions(t *testing.T) {
	ctx := context.Background()

	comp := testCompetition("stuck-sweep")
	if err := testDB.QueryUpsertCompetition(ctx, comp); err != nil {
		t.Fatalf("QueryUpsertCompetition failed: %v", err)
	}
	if err := testDB.QueryTryStartIngestion(ctx, comp.ID, "run-stuck"); err != nil {
		t.Fatalf("QueryTryStartIngestion failed: %v", err)
	}

	// A cutoff in the past must not sweep the fresh run
	count, err := testDB.QueryResetStuckCompetitions(ctx, time.Now().Add(-time.Hour), "Analysis timed out - please retry")
	if err != nil {
		t.Fatalf("QueryResetStuckCompetitions failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Fresh run should not be swept, got count %d", count)
	}

	// A cutoff in the future sweeps it
	count, err = testDB.QueryResetStuckCompetitions(ctx, time.Now().Add(time.Hour), "Analysis timed out - please retry")
	if err != nil {
		t.Fatalf("QueryResetStuckCompetitions failed: %v", err)
	}
	if count < 1 {
		t.Errorf("Expected at least 1 swept competition, got %d", count)
	}

	got, err := testDB.QueryGetCompetition(ctx, comp.ID)
	if err != nil {
		t.Fatalf("QueryGetCompetition failed: %v", err)
	}
	if got.Ingestion == nil || got.Ingestion.Status != models.IngestionFailed {
		t.Errorf("Swept run should be failed, got %+v", got.Ingestion)
	}
	if got.Ingestion.Error != "Analysis timed out - please retry" {
		t.Errorf("Unexpected sweep error message: %q", got.Ingestion.Error)
	}
}

func TestCompetitionCacheRoundTrip(t *testing.T) {
	ctx := context.Background()

	// No cache yet (or left over from another test run): save then read
	comps := []models.Competition{testCompetition("cache-a"), testCompetition("cache-b")}
	if err := testDB.QuerySaveCachedCompetitions(ctx, comps); err != nil {
		t.Fatalf("QuerySaveCachedCompetitions failed: %v", err)
	}

	cache, err := testDB.QueryGetCachedCompetitions(ctx)
	if err != nil {
		t.Fatalf("QueryGetCachedCompetitions failed: %v", err)
	}
	if cache == nil {
		t.Fatal("Expected cache record")
	}
	if len(cache.Competitions) != 2 {
		t.Errorf("Expected 2 cached competitions, got %d", len(cache.Competitions))
	}
	if cache.LastRefresh.IsZero() {
		t.Error("LastRefresh should be set by the database")
	}

	// Saving again replaces, not appends
	if err := testDB.QuerySaveCachedCompetitions(ctx, comps[:1]); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	cache, err = testDB.QueryGetCachedCompetitions(ctx)
	if err != nil {
		t.Fatalf("QueryGetCachedCompetitions failed: %v", err)
	}
	if len(cache.Competitions) != 1 {
		t.Errorf("Expected cache replacement, got %d entries", len(cache.Competitions))
	}
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()

	// Missing user
	user, err := testDB.QueryGetUser(ctx, "nobody")
	if err != nil {
		t.Fatalf("QueryGetUser failed: %v", err)
	}
	if user != nil {
		t.Error("Expected nil for missing user")
	}

	// Credentials create the record
	if err := testDB.QuerySaveUserCredentials(ctx, "alice", "alice-kaggle", "secret"); err != nil {
		t.Fatalf("QuerySaveUserCredentials failed: %v", err)
	}
	user, err = testDB.QueryGetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("QueryGetUser failed: %v", err)
	}
	if user == nil {
		t.Fatal("Expected user after saving credentials")
	}
	if user.KaggleUsername != "alice-kaggle" || user.KaggleKey != "secret" {
		t.Errorf("Credentials mismatch: %+v", user)
	}

	// Interests merge additively and remove exactly
	user, err = testDB.QueryUpdateUserInterests(ctx, "alice", []string{"nlp", "tabular"}, nil)
	if err != nil {
		t.Fatalf("QueryUpdateUserInterests failed: %v", err)
	}
	if len(user.Interests) != 2 {
		t.Errorf("Expected 2 interests, got %v", user.Interests)
	}
	user, err = testDB.QueryUpdateUserInterests(ctx, "alice", []string{"vision"}, []string{"tabular"})
	if err != nil {
		t.Fatalf("QueryUpdateUserInterests failed: %v", err)
	}
	if len(user.Interests) != 2 {
		t.Errorf("Expected nlp+vision, got %v", user.Interests)
	}
	for _, i := range user.Interests {
		if i == "tabular" {
			t.Error("Removed interest still present")
		}
	}

	// Progress accumulates
	user, err = testDB.QueryAwardUserProgress(ctx, "alice", 100, 2)
	if err != nil {
		t.Fatalf("QueryAwardUserProgress failed: %v", err)
	}
	if user.XP != 100 || user.Level != 2 || user.CompetitionsAnalysed != 1 {
		t.Errorf("Progress mismatch: %+v", user)
	}
	user, err = testDB.QueryAwardUserProgress(ctx, "alice", 50, 2)
	if err != nil {
		t.Fatalf("QueryAwardUserProgress failed: %v", err)
	}
	if user.XP != 150 || user.CompetitionsAnalysed != 2 {
		t.Errorf("Progress should accumulate: %+v", user)
	}
}

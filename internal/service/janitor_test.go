package service

import (
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnceResetsOldRuns(t *testing.T) {
	store := newFakeStore()

	stuck := titanic()
	stuck.Ingestion = &models.IngestionData{Status: models.IngestionProcessing}
	store.addCompetition(stuck)
	store.comps["titanic"].LastUpdated = time.Now().Add(-time.Hour)

	fresh := models.Competition{ID: "fresh", Title: "Fresh", URL: "https://www.kaggle.com/c/fresh"}
	fresh.Ingestion = &models.IngestionData{Status: models.IngestionProcessing}
	store.addCompetition(fresh)
	store.comps["fresh"].LastUpdated = time.Now()

	janitor := NewJanitor(store, 15*time.Minute, time.Minute)
	count, err := janitor.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, models.IngestionFailed, store.competition("titanic").Ingestion.Status)
	assert.Equal(t, "Analysis timed out - please retry", store.competition("titanic").Ingestion.Error)
	assert.Equal(t, models.IngestionProcessing, store.competition("fresh").Ingestion.Status)
}

func TestSweepOnceCutoff(t *testing.T) {
	store := newFakeStore()
	janitor := NewJanitor(store, 15*time.Minute, time.Minute)
	now := time.Now()
	janitor.now = func() time.Time { return now }

	_, err := janitor.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, now.Add(-15*time.Minute), store.sweepCutoff)
	assert.Equal(t, "Analysis timed out - please retry", store.sweepMessage)
}

func TestJanitorDefaults(t *testing.T) {
	janitor := NewJanitor(newFakeStore(), 0, 0)
	assert.Equal(t, 15*time.Minute, janitor.threshold)
	assert.Equal(t, time.Minute, janitor.interval)
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	janitor := NewJanitor(store, 15*time.Minute, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on cancel")
	}

	store.mu.Lock()
	sweeps := store.sweepCount
	store.mu.Unlock()
	assert.Greater(t, sweeps, 0)
}

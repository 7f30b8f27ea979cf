// Package models defines data structures for the Kaggle Mentor database.
package models

import (
	"time"
)

// IngestionStatus tracks the lifecycle of a competition analysis.
// Transitions are monotonic: pending -> processing -> complete|failed.
// A failed analysis may be retried, which re-enters processing.
type IngestionStatus string

const (
	IngestionPending    IngestionStatus = "pending"
	IngestionProcessing IngestionStatus = "processing"
	IngestionComplete   IngestionStatus = "complete"
	IngestionFailed     IngestionStatus = "failed"
)

// Active reports whether the status represents a run that has not reached
// a terminal state yet.
func (s IngestionStatus) Active() bool {
	return s == IngestionPending || s == IngestionProcessing
}

// Competition statuses. Competitions fetched from the Kaggle listing are
// "active"; user-submitted URLs are registered as "Custom".
const (
	CompetitionStatusActive = "active"
	CompetitionStatusCustom = "Custom"
)

// Competition represents a Kaggle competition with optional analysis results.
type Competition struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Prize       string         `json:"prize"`
	Status      string         `json:"status"`
	Tags        []string       `json:"tags,omitempty"`
	Ingestion   *IngestionData `json:"ingestion,omitempty"`
	LastUpdated time.Time      `json:"last_updated,omitempty"`
}

// IngestionData holds the state and output of a competition analysis run.
type IngestionData struct {
	Status    IngestionStatus         `json:"status"`
	RunID     string                  `json:"run_id,omitempty"`
	Summary   string                  `json:"summary,omitempty"`
	Notebooks []DeconstructedNotebook `json:"notebooks,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// CompetitionCache is the single shared document holding the global
// competition listing. It is considered stale (and treated as absent) once
// LastRefresh is older than the configured TTL.
type CompetitionCache struct {
	Competitions []Competition `json:"competitions"`
	LastRefresh  time.Time     `json:"last_refresh"`
}

// Stale reports whether the cache entry is older than ttl.
func (c CompetitionCache) Stale(ttl time.Duration, now time.Time) bool {
	return c.LastRefresh.IsZero() || now.Sub(c.LastRefresh) > ttl
}

// Package kaggle provides a thin client for the Kaggle REST API.
package kaggle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/metrics"
	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/raphaelgruber/kagglementor/internal/notebook"
)

// DefaultBaseURL is the Kaggle REST API root.
const DefaultBaseURL = "https://www.kaggle.com/api/v1"

const (
	// maxCompetitions caps the competition listing.
	maxCompetitions = 50
	// maxNotebooks caps the per-competition notebook listing.
	maxNotebooks = 10
)

var (
	// ErrNoCredentials is returned before any network request when no
	// credential pair could be attached.
	ErrNoCredentials = errors.New("kaggle credentials not set")
	// ErrUnauthorized marks an HTTP 401 from the API, reported distinctly so
	// callers can present an actionable message.
	ErrUnauthorized = errors.New("invalid kaggle credentials")
	// ErrNoSource marks a notebook response that lacks source content.
	ErrNoSource = errors.New("no notebook source found in API response")
)

// Client is a thin wrapper over the Kaggle REST API. All calls attach HTTP
// basic auth derived from the supplied credentials and fail fast when the
// pair is missing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Collector
}

// New creates a Kaggle client. An empty baseURL selects DefaultBaseURL;
// a nil collector disables metrics.
func New(baseURL string, mc *metrics.Collector) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		metrics: mc,
	}
}

// CompetitionList is the result of a competition listing. Degraded marks the
// built-in fallback data returned when the upstream call failed, so callers
// can distinguish real data from mock data instead of relying on logs.
type CompetitionList struct {
	Competitions []models.Competition
	Degraded     bool
}

// Notebook is a pulled notebook: the raw document text plus a derived file
// name.
type Notebook struct {
	Content  string
	FileName string
}

// apiCompetition mirrors the fields we read from /competitions/list.
// The id may be a number or a string depending on the endpoint version.
type apiCompetition struct {
	ID     any    `json:"id"`
	Ref    string `json:"ref"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Reward string `json:"reward"`
}

// apiKernel mirrors the fields we read from /kernels/list.
type apiKernel struct {
	Ref    string `json:"ref"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// apiKernelContent mirrors the fields we read from /kernels/get.
type apiKernelContent struct {
	Source     string `json:"source"`
	Language   string `json:"language"`
	KernelType string `json:"kernel_type"`
}

// ListCompetitions returns active competitions sorted by latest deadline,
// truncated to 50. On any failure (network, auth, parse) it returns the
// built-in mock list with Degraded set instead of propagating the error:
// the listing is a non-critical feature and availability wins.
func (c *Client) ListCompetitions(ctx context.Context, creds models.Credentials) CompetitionList {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpKaggleList, time.Since(start))
	}()

	var raw []apiCompetition
	err := c.get(ctx, creds, "/competitions/list?sortBy=latestDeadline", &raw)
	if err != nil {
		slog.Warn("competition listing failed, falling back to mock data", "error", err)
		return CompetitionList{Competitions: MockCompetitions(), Degraded: true}
	}

	if len(raw) > maxCompetitions {
		raw = raw[:maxCompetitions]
	}

	comps := make([]models.Competition, 0, len(raw))
	for _, rc := range raw {
		comps = append(comps, normalizeCompetition(rc))
	}
	slog.Info("fetched competitions", "count", len(comps))
	return CompetitionList{Competitions: comps}
}

// ListTopNotebooks returns up to 10 "author/slug" references for the most
// voted public Python notebooks of a competition. A 404 or any other failure
// yields an empty list (logged); callers must handle emptiness.
func (c *Client) ListTopNotebooks(ctx context.Context, creds models.Credentials, slug string) []string {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpKaggleList, time.Since(start))
	}()

	path := fmt.Sprintf("/kernels/list?competition=%s&language=python&sort_by=vote_count&page_size=%d",
		url.QueryEscape(slug), maxNotebooks)

	var kernels []apiKernel
	if err := c.get(ctx, creds, path, &kernels); err != nil {
		slog.Warn("notebook listing failed", "competition", slug, "error", err)
		return nil
	}

	refs := make([]string, 0, len(kernels))
	for _, k := range kernels {
		if k.Ref != "" {
			refs = append(refs, k.Ref)
		}
	}
	if len(refs) > maxNotebooks {
		refs = refs[:maxNotebooks]
	}
	slog.Info("listed notebooks", "competition", slug, "count", len(refs))
	return refs
}

// PullNotebook fetches one notebook's raw source by "author/slug" reference.
// A 401 surfaces as ErrUnauthorized; a response without source content as
// ErrNoSource.
func (c *Client) PullNotebook(ctx context.Context, creds models.Credentials, ref string) (*Notebook, error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordTiming(metrics.OpKagglePull, time.Since(start))
	}()

	path := "/kernels/get?kernel=" + url.QueryEscape(ref)

	var content apiKernelContent
	if err := c.get(ctx, creds, path, &content); err != nil {
		return nil, fmt.Errorf("pull notebook %s: %w", ref, err)
	}

	if content.Source == "" {
		return nil, fmt.Errorf("pull notebook %s: %w", ref, ErrNoSource)
	}

	return &Notebook{
		Content:  content.Source,
		FileName: notebook.FileName(ref),
	}, nil
}

// get performs an authenticated GET against the API and decodes the JSON
// response body into out.
func (c *Client) get(ctx context.Context, creds models.Credentials, path string, out any) error {
	if !creds.Valid() {
		return ErrNoCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+basicToken(creds))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return fmt.Errorf("kaggle API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// basicToken builds the base64 basic-auth token for a credential pair.
func basicToken(creds models.Credentials) string {
	return base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Key))
}

// normalizeCompetition fills the gaps the listing endpoint leaves: missing
// titles are derived from the slug, missing URLs point at the /c/ page, and
// competitions without a reward are labeled "Knowledge".
func normalizeCompetition(rc apiCompetition) models.Competition {
	id := rc.Ref
	if id == "" {
		id = fmt.Sprint(rc.ID)
	}

	title := rc.Title
	if title == "" {
		title = titleize(id)
	}

	compURL := rc.URL
	if compURL == "" {
		compURL = "https://www.kaggle.com/c/" + id
	}

	prize := rc.Reward
	if prize == "" {
		prize = "Knowledge"
	}

	return models.Competition{
		ID:     id,
		Title:  title,
		URL:    compURL,
		Prize:  prize,
		Status: models.CompetitionStatusActive,
	}
}

// titleize turns a slug like "house-prices" into "House Prices".
func titleize(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

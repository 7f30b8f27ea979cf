// Package client provides a REST client for the Kaggle Mentor server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/raphaelgruber/kagglementor/internal/metrics"
	"github.com/raphaelgruber/kagglementor/internal/models"
)

// Client is a REST client for the Kaggle Mentor server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
// If endpoint is empty, uses KAGGLEMENTOR_SERVER_URL env var or defaults to
// localhost:8585. Timeout can be configured via KAGGLEMENTOR_CLIENT_TIMEOUT
// (default 15m: an analyze call may wait on a full LLM pipeline).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("KAGGLEMENTOR_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8585"
	}

	timeout := 15 * time.Minute
	if t := os.Getenv("KAGGLEMENTOR_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// apiError is the server's JSON error body.
type apiError struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// CompetitionList is the listing response.
type CompetitionList struct {
	Competitions []models.Competition `json:"competitions"`
	Degraded     bool                 `json:"degraded,omitempty"`
}

// AnalysisRun is the response to starting an analysis.
type AnalysisRun struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// chatResponse is the chat endpoints' response body.
type chatResponse struct {
	Answer string `json:"answer"`
}

// do executes a JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Hint != "" {
				return fmt.Errorf("%s (%s)", apiErr.Error, apiErr.Hint)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Health checks the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ListCompetitions returns the cached competition listing.
func (c *Client) ListCompetitions(ctx context.Context) ([]models.Competition, error) {
	var list CompetitionList
	if err := c.do(ctx, http.MethodGet, "/api/v1/competitions", nil, &list); err != nil {
		return nil, err
	}
	return list.Competitions, nil
}

// RefreshCompetitions pulls a fresh listing from Kaggle via the server.
func (c *Client) RefreshCompetitions(ctx context.Context, uid string) (CompetitionList, error) {
	var list CompetitionList
	path := "/api/v1/competitions/refresh?uid=" + url.QueryEscape(uid)
	if err := c.do(ctx, http.MethodPost, path, nil, &list); err != nil {
		return CompetitionList{}, err
	}
	return list, nil
}

// GetCompetition returns one competition with its analysis state.
func (c *Client) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	var comp models.Competition
	if err := c.do(ctx, http.MethodGet, "/api/v1/competitions/"+url.PathEscape(id), nil, &comp); err != nil {
		return nil, err
	}
	return &comp, nil
}

// StartAnalysis kicks off a background analysis run.
func (c *Client) StartAnalysis(ctx context.Context, uid, id string) (AnalysisRun, error) {
	var run AnalysisRun
	path := fmt.Sprintf("/api/v1/competitions/%s/analyze?uid=%s", url.PathEscape(id), url.QueryEscape(uid))
	if err := c.do(ctx, http.MethodPost, path, nil, &run); err != nil {
		return AnalysisRun{}, err
	}
	return run, nil
}

// RegisterCustom registers a custom competition URL and starts its analysis.
func (c *Client) RegisterCustom(ctx context.Context, uid, competitionURL string) (*models.Competition, error) {
	var comp models.Competition
	body := map[string]string{"uid": uid, "url": competitionURL}
	if err := c.do(ctx, http.MethodPost, "/api/v1/competitions", body, &comp); err != nil {
		return nil, err
	}
	return &comp, nil
}

// ContextFile downloads the merged notebook context file for a competition.
func (c *Client) ContextFile(ctx context.Context, uid, id string) (string, error) {
	path := fmt.Sprintf("/api/v1/competitions/%s/context-file?uid=%s", url.PathEscape(id), url.QueryEscape(uid))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("%s", apiErr.Error)
		}
		return "", fmt.Errorf("server error: %s", resp.Status)
	}
	return string(data), nil
}

// MentorChat asks the competition mentor a question.
func (c *Client) MentorChat(ctx context.Context, competitionID, question string) (string, error) {
	var resp chatResponse
	body := map[string]string{"competition_id": competitionID, "question": question}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/mentor", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// TutorChat asks the beginner tutor a question.
func (c *Client) TutorChat(ctx context.Context, uid, question string, history []models.ChatMessage) (string, error) {
	var resp chatResponse
	body := map[string]any{"uid": uid, "question": question, "history": history}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chat/tutor", body, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// SaveCredentials stores a user's Kaggle credential pair on the server.
func (c *Client) SaveCredentials(ctx context.Context, uid, username, key string) error {
	body := map[string]string{"username": username, "key": key}
	return c.do(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(uid)+"/credentials", body, nil)
}

// GetUser returns a user's profile (credentials key is always masked).
func (c *Client) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(uid), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateInterests adds and removes user interests.
func (c *Client) UpdateInterests(ctx context.Context, uid string, add, remove []string) (*models.User, error) {
	var user models.User
	body := map[string][]string{"add": add, "remove": remove}
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(uid)+"/interests", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveProgress sets a user's XP, level and analysed-competition count.
func (c *Client) SaveProgress(ctx context.Context, uid string, xp, level, competitionsAnalysed int) error {
	body := map[string]int{"xp": xp, "level": level, "competitions_analysed": competitionsAnalysed}
	return c.do(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(uid)+"/progress", body, nil)
}

// Stats returns server operation metrics.
func (c *Client) Stats(ctx context.Context) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &snap); err != nil {
		return metrics.Snapshot{}, err
	}
	return snap, nil
}

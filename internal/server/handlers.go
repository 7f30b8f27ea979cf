package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/raphaelgruber/kagglementor/internal/db"
	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/raphaelgruber/kagglementor/internal/service"
)

const credentialHint = "Check your Kaggle username and API key in Settings."

// ErrorResponse is the JSON error body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func errorJSON(c echo.Context, status int, message, hint string) error {
	return c.JSON(status, ErrorResponse{Error: message, Hint: hint})
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// CompetitionListResponse is the response body for competition listings.
type CompetitionListResponse struct {
	Competitions []models.Competition `json:"competitions"`
	Degraded     bool                 `json:"degraded,omitempty"`
}

func (s *Server) handleListCompetitions(c echo.Context) error {
	comps, err := s.competitions.List(c.Request().Context())
	if err != nil {
		s.logger.Error("list competitions failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to list competitions", "")
	}
	return c.JSON(http.StatusOK, CompetitionListResponse{Competitions: comps})
}

func (s *Server) handleRefreshCompetitions(c echo.Context) error {
	uid := c.QueryParam("uid")

	comps, degraded, err := s.competitions.RefreshAll(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, service.ErrNoCredentials) {
			return errorJSON(c, http.StatusBadRequest, "Cannot refresh competitions without Kaggle credentials.", credentialHint)
		}
		s.logger.Error("competition refresh failed", "error", err)
		return errorJSON(c, http.StatusBadGateway, fmt.Sprintf("Competition refresh failed: %v", err), "")
	}
	return c.JSON(http.StatusOK, CompetitionListResponse{Competitions: comps, Degraded: degraded})
}

func (s *Server) handleGetCompetition(c echo.Context) error {
	comp, err := s.competitions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("get competition failed", "id", c.Param("id"), "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load competition", "")
	}
	if comp == nil {
		return errorJSON(c, http.StatusNotFound, "competition not found", "")
	}
	return c.JSON(http.StatusOK, comp)
}

// AnalyzeResponse is the response body for POST /competitions/:id/analyze.
type AnalyzeResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

func (s *Server) handleAnalyzeCompetition(c echo.Context) error {
	uid := c.QueryParam("uid")
	id := c.Param("id")

	runID, err := s.ingest.StartAnalysis(c.Request().Context(), uid, id)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrAnalysisInProgress):
			return errorJSON(c, http.StatusConflict, "analysis already in progress", "")
		case errors.Is(err, db.ErrNotFound):
			return errorJSON(c, http.StatusNotFound, "competition not found", "")
		default:
			s.logger.Error("start analysis failed", "id", id, "error", err)
			return errorJSON(c, http.StatusInternalServerError, "failed to start analysis", "")
		}
	}
	return c.JSON(http.StatusAccepted, AnalyzeResponse{RunID: runID, Status: string(models.IngestionProcessing)})
}

// RegisterCustomRequest is the request body for POST /competitions.
type RegisterCustomRequest struct {
	UID string `json:"uid"`
	URL string `json:"url"`
}

func (s *Server) handleRegisterCustom(c echo.Context) error {
	var req RegisterCustomRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body", "")
	}
	if strings.TrimSpace(req.URL) == "" {
		return errorJSON(c, http.StatusBadRequest, "url field is required", "")
	}

	comp, err := s.competitions.RegisterCustom(c.Request().Context(), req.UID, req.URL)
	if err != nil {
		if errors.Is(err, db.ErrAnalysisInProgress) {
			return errorJSON(c, http.StatusConflict, "analysis already in progress", "")
		}
		return errorJSON(c, http.StatusBadRequest, err.Error(), "")
	}
	return c.JSON(http.StatusCreated, comp)
}

func (s *Server) handleContextFile(c echo.Context) error {
	id := c.Param("id")
	uid := c.QueryParam("uid")

	comp, err := s.competitions.Get(c.Request().Context(), id)
	if err != nil {
		s.logger.Error("get competition failed", "id", id, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load competition", "")
	}
	if comp == nil {
		return errorJSON(c, http.StatusNotFound, "competition not found", "")
	}

	content, err := s.contextFiles.Build(c.Request().Context(), uid, comp.URL)
	if err != nil {
		s.logger.Error("context file build failed", "id", id, "error", err)
		return errorJSON(c, http.StatusBadGateway, "failed to build context file", "")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, id+"-context.txt"))
	return c.String(http.StatusOK, content)
}

// MentorChatRequest is the request body for POST /chat/mentor.
type MentorChatRequest struct {
	CompetitionID string `json:"competition_id"`
	Question      string `json:"question"`
}

// ChatResponse is the response body for chat endpoints.
type ChatResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleMentorChat(c echo.Context) error {
	var req MentorChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body", "")
	}
	if strings.TrimSpace(req.Question) == "" {
		return errorJSON(c, http.StatusBadRequest, "question field is required", "")
	}

	comp, err := s.competitions.Get(c.Request().Context(), req.CompetitionID)
	if err != nil {
		s.logger.Error("get competition failed", "id", req.CompetitionID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load competition", "")
	}
	if comp == nil {
		return errorJSON(c, http.StatusNotFound, "competition not found", "")
	}
	if comp.Ingestion == nil || comp.Ingestion.Status != models.IngestionComplete {
		return errorJSON(c, http.StatusConflict, "competition has not been analysed yet", "Run an analysis first.")
	}

	answer, err := s.chat.Mentor(c.Request().Context(), req.Question, mentorContext(comp))
	if err != nil {
		s.logger.Error("mentor chat failed", "id", req.CompetitionID, "error", err)
		return errorJSON(c, http.StatusBadGateway, "the mentor is unavailable right now", "")
	}
	return c.JSON(http.StatusOK, ChatResponse{Answer: answer})
}

// mentorContext flattens a completed analysis into the text context the
// mentor prompt is grounded in.
func mentorContext(comp *models.Competition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Competition: %s\n\nSummary: %s\n", comp.Title, comp.Ingestion.Summary)
	for _, nb := range comp.Ingestion.Notebooks {
		fmt.Fprintf(&b, "\nNotebook: %s by %s\n", nb.Title, nb.Author)
		for _, cell := range nb.Cells {
			fmt.Fprintf(&b, "[%s | %s] %s\n", cell.Type, strings.Join(cell.Tags, ","), cell.Content)
		}
	}
	return b.String()
}

// TutorChatRequest is the request body for POST /chat/tutor.
type TutorChatRequest struct {
	UID      string               `json:"uid"`
	Question string               `json:"question"`
	History  []models.ChatMessage `json:"history"`
}

func (s *Server) handleTutorChat(c echo.Context) error {
	var req TutorChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body", "")
	}
	if strings.TrimSpace(req.Question) == "" {
		return errorJSON(c, http.StatusBadRequest, "question field is required", "")
	}

	var interests []string
	if req.UID != "" {
		user, err := s.users.QueryGetUser(c.Request().Context(), req.UID)
		if err != nil {
			s.logger.Warn("failed to load user interests for tutor", "uid", req.UID, "error", err)
		} else if user != nil {
			interests = user.Interests
		}
	}

	answer, err := s.chat.Tutor(c.Request().Context(), req.Question, interests, req.History)
	if err != nil {
		s.logger.Error("tutor chat failed", "error", err)
		return errorJSON(c, http.StatusBadGateway, "the tutor is unavailable right now", "")
	}
	return c.JSON(http.StatusOK, ChatResponse{Answer: answer})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.metrics.Snapshot())
}

// CredentialsRequest is the request body for PUT /users/:id/credentials.
type CredentialsRequest struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

func (s *Server) handleSaveCredentials(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body", "")
	}
	if req.Username == "" || req.Key == "" {
		return errorJSON(c, http.StatusBadRequest, "username and key fields are required", credentialHint)
	}

	uid := c.Param("id")
	if err := s.users.QuerySaveUserCredentials(c.Request().Context(), uid, req.Username, req.Key); err != nil {
		s.logger.Error("save credentials failed", "uid", uid, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to save credentials", "")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetUser(c echo.Context) error {
	uid := c.Param("id")
	user, err := s.users.QueryGetUser(c.Request().Context(), uid)
	if err != nil {
		s.logger.Error("get user failed", "uid", uid, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load user", "")
	}
	if user == nil {
		return errorJSON(c, http.StatusNotFound, "user not found", "")
	}

	// Never echo the API key back out
	user.KaggleKey = ""
	return c.JSON(http.StatusOK, user)
}

// InterestsRequest is the request body for PUT /users/:id/interests.
type InterestsRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (s *Server) handleUpdateInterests(c echo.Context) error {
	var req InterestsRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body", "")
	}

	uid := c.Param("id")
	user, err := s.users.QueryUpdateUserInterests(c.Request().Context(), uid, req.Add, req.Remove)
	if err != nil {
		s.logger.Error("update interests failed", "uid", uid, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to update interests", "")
	}
	user.KaggleKey = ""
	return c.JSON(http.StatusOK, user)
}

// ProgressRequest is the request body for PUT /users/:id/progress.
type ProgressRequest struct {
	XP                   int `json:"xp"`
	Level                int `json:"level"`
	CompetitionsAnalysed int `json:"competitions_analysed"`
}

func (s *Server) handleSaveProgress(c echo.Context) error {
	var req ProgressRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body", "")
	}

	uid := c.Param("id")
	if err := s.users.QuerySaveUserProgress(c.Request().Context(), uid, req.XP, req.Level, req.CompetitionsAnalysed); err != nil {
		s.logger.Error("save progress failed", "uid", uid, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to save progress", "")
	}
	return c.NoContent(http.StatusNoContent)
}

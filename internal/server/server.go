// Package server provides the HTTP JSON API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/raphaelgruber/kagglementor/internal/metrics"
	"github.com/raphaelgruber/kagglementor/internal/models"
	"github.com/raphaelgruber/kagglementor/internal/service"
)

// userStore is the db surface the user endpoints need.
type userStore interface {
	QueryGetUser(ctx context.Context, uid string) (*models.User, error)
	QuerySaveUserCredentials(ctx context.Context, uid, username, key string) error
	QueryUpdateUserInterests(ctx context.Context, uid string, add, remove []string) (*models.User, error)
	QuerySaveUserProgress(ctx context.Context, uid string, xp, level, competitionsAnalysed int) error
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port string
}

// Server serves the competition, chat and user APIs over HTTP.
type Server struct {
	echo         *echo.Echo
	competitions *service.CompetitionService
	ingest       *service.IngestService
	contextFiles *service.ContextFileService
	chat         *service.ChatService
	users        userStore
	metrics      *metrics.Collector
	logger       *slog.Logger
	config       Config
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(
	competitions *service.CompetitionService,
	ingest *service.IngestService,
	contextFiles *service.ContextFileService,
	chat *service.ChatService,
	users userStore,
	mc *metrics.Collector,
	logger *slog.Logger,
	cfg Config,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == "" {
		cfg.Port = "8585"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:         e,
		competitions: competitions,
		ingest:       ingest,
		contextFiles: contextFiles,
		chat:         chat,
		users:        users,
		metrics:      mc,
		logger:       logger,
		config:       cfg,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/competitions", s.handleListCompetitions)
	v1.POST("/competitions", s.handleRegisterCustom)
	v1.POST("/competitions/refresh", s.handleRefreshCompetitions)
	v1.GET("/competitions/:id", s.handleGetCompetition)
	v1.POST("/competitions/:id/analyze", s.handleAnalyzeCompetition)
	v1.GET("/competitions/:id/context-file", s.handleContextFile)
	v1.POST("/chat/mentor", s.handleMentorChat)
	v1.POST("/chat/tutor", s.handleTutorChat)
	v1.GET("/stats", s.handleStats)
	v1.PUT("/users/:id/credentials", s.handleSaveCredentials)
	v1.GET("/users/:id", s.handleGetUser)
	v1.PUT("/users/:id/interests", s.handleUpdateInterests)
	v1.PUT("/users/:id/progress", s.handleSaveProgress)
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

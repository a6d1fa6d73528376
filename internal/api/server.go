// Package api exposes the agent over HTTP: the Pub/Sub webhook, the
// synchronous draft endpoint and watch management.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hal9000y/gmail-agent/internal/draft"
	"github.com/hal9000y/gmail-agent/internal/gservice"
	"github.com/hal9000y/gmail-agent/internal/ingest"
)

type notificationHandler interface {
	HandleNotification(ctx context.Context, n ingest.Notification) (ingest.Summary, error)
}

type draftSvc interface {
	Generate(ctx context.Context, thread []gservice.EmailMessage, userEmail, recipientEmail, recipientName string) (draft.Result, error)
}

type watchSvc interface {
	Renew(ctx context.Context) (gservice.WatchInfo, error)
}

type labelSetup interface {
	EnsureExist(ctx context.Context) (map[string]string, error)
	RespondName() string
}

// TokenVerifier checks the Authorization header of webhook pushes.
// A nil verifier disables authentication (local development).
type TokenVerifier interface {
	Verify(authorization string) error
}

// Config wires the server's collaborators.
type Config struct {
	Processor notificationHandler
	Drafter   draftSvc
	Watch     watchSvc
	Labels    labelSetup

	// Verifier authenticates Pub/Sub pushes; nil disables the check.
	Verifier TokenVerifier

	PubSubTopic string
	Version     string
	Debug       bool
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/health", s.handleHealth)
	engine.POST("/generate-draft", s.handleGenerateDraft)
	engine.POST("/webhook/gmail", s.handleWebhook)
	engine.POST("/renew-watch", s.handleRenewWatch)
	engine.GET("/watch-status", s.handleWatchStatus)

	s.engine = engine
	return s
}

// Server is the gin-backed HTTP API.
type Server struct {
	cfg    Config
	engine *gin.Engine
	logger *slog.Logger
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: s.cfg.Version})
}

// handleWebhook receives Gmail push notifications from Pub/Sub.
// Non-2xx responses make Pub/Sub retry, so batch-level failures after
// authentication still acknowledge with an error status.
func (s *Server) handleWebhook(c *gin.Context) {
	if s.cfg.Verifier != nil {
		if err := s.cfg.Verifier.Verify(c.GetHeader("Authorization")); err != nil {
			s.logger.Warn("webhook authentication failed", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	}

	var req PubSubPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := ingest.DecodeNotification(req.Message.Data)
	if err != nil {
		s.logger.Error("failed to decode notification", "error", err)
		c.JSON(http.StatusOK, ingest.Summary{Status: ingest.StatusError})
		return
	}

	summary, err := s.cfg.Processor.HandleNotification(c.Request.Context(), notification)
	if err != nil {
		s.logger.Error("notification processing failed", "error", err)
	}

	c.JSON(http.StatusOK, summary)
}

// handleGenerateDraft is the stateless draft endpoint used outside the
// webhook flow. It always takes the tone-detection path; no contact
// memory is consulted.
func (s *Server) handleGenerateDraft(c *gin.Context) {
	var req GenerateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread := make([]gservice.EmailMessage, 0, len(req.Thread))
	for _, msg := range req.Thread {
		thread = append(thread, gservice.EmailMessage{
			FromEmail: msg.From,
			ToEmail:   msg.To,
			Date:      msg.Date,
			Subject:   msg.Subject,
			Body:      msg.Body,
		})
	}

	s.logger.Info("generating draft", "messages", len(thread))

	result, err := s.cfg.Drafter.Generate(c.Request.Context(), thread, req.UserEmail, "", "")
	if err != nil {
		s.logger.Error("draft generation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate draft"})
		return
	}

	c.JSON(http.StatusOK, GenerateDraftResponse{
		Draft:        result.Text,
		DetectedTone: result.Tone,
		Confidence:   result.Confidence,
	})
}

// handleRenewWatch re-registers the Gmail watch. Meant to be called by
// a scheduler every six days; watches expire after seven.
func (s *Server) handleRenewWatch(c *gin.Context) {
	if _, err := s.cfg.Labels.EnsureExist(c.Request.Context()); err != nil {
		s.logger.Error("label setup failed", "error", err)
		c.JSON(http.StatusInternalServerError, RenewWatchResponse{Success: false, Message: err.Error()})
		return
	}

	info, err := s.cfg.Watch.Renew(c.Request.Context())
	if err != nil {
		s.logger.Error("watch renewal failed", "error", err)
		c.JSON(http.StatusInternalServerError, RenewWatchResponse{Success: false, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RenewWatchResponse{
		Success:    true,
		Message:    "Watch renewed successfully",
		HistoryID:  info.HistoryID,
		Expiration: &info.Expiration,
	})
}

// handleWatchStatus reports whether a watch is active. Gmail has no
// read-only status call; re-registering is the documented way to learn
// the expiration, and refreshes the watch as a side effect.
func (s *Server) handleWatchStatus(c *gin.Context) {
	resp := WatchStatusResponse{
		LabelName:   s.cfg.Labels.RespondName(),
		PubSubTopic: s.cfg.PubSubTopic,
	}

	info, err := s.cfg.Watch.Renew(c.Request.Context())
	if err != nil {
		s.logger.Error("watch status check failed", "error", err)
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Active = true
	resp.Expiration = &info.Expiration

	c.JSON(http.StatusOK, resp)
}

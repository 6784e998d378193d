package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"nexo_bot/internal/config"
	"nexo_bot/internal/telegram"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateQueue accepts updates for background processing.
type UpdateQueue interface {
	Enqueue(ctx context.Context, u telegram.Update)
}

type WebhookRegistrar interface {
	SetWebhook(ctx context.Context, url, secret string) error
}

type Server struct {
	cfg       config.Config
	queue     UpdateQueue
	registrar WebhookRegistrar
	engine    *gin.Engine
	http      *http.Server
	logger    *zap.Logger
	started   time.Time
}

func NewServer(cfg config.Config, bot *telegram.Bot, logger *zap.Logger) *Server {
	return newServer(cfg, bot, bot.Client(), logger)
}

func newServer(cfg config.Config, queue UpdateQueue, registrar WebhookRegistrar, logger *zap.Logger) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:       cfg,
		queue:     queue,
		registrar: registrar,
		engine:    gin.New(),
		logger:    logger.Named("http"),
		started:   time.Now(),
	}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes()
	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/", s.info)
	s.engine.GET("/health", s.health)
	s.engine.POST("/webhook", s.webhook)
	s.engine.GET("/setup-webhook", s.setupWebhook)
}

func (s *Server) Start() error {
	go func() {
		s.logger.Info("http server starting", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.http.Shutdown(ctx)
}

// webhook acknowledges Telegram immediately and handles the update in the
// background.
func (s *Server) webhook(c *gin.Context) {
	if s.cfg.WebhookSecret != "" && !s.secretMatches(c.GetHeader(secretHeader)) {
		s.logger.Warn("webhook secret mismatch", zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.Warn("bad webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid update"})
		return
	}
	s.queue.Enqueue(c.Request.Context(), update)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// setupWebhook re-registers the webhook. It is only served when a secret is
// configured and the caller passes it as ?secret= or in the secret header.
func (s *Server) setupWebhook(c *gin.Context) {
	if s.cfg.WebhookSecret == "" {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "WEBHOOK_SECRET is not set"})
		return
	}
	got := c.Query("secret")
	if got == "" {
		got = c.GetHeader(secretHeader)
	}
	if !s.secretMatches(got) {
		s.logger.Warn("setup-webhook secret mismatch", zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false})
		return
	}

	base := strings.TrimRight(strings.TrimSpace(s.cfg.PublicURL), "/")
	if base == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "PUBLIC_URL is not set"})
		return
	}
	url := base + "/webhook"
	if err := s.registrar.SetWebhook(c.Request.Context(), url, s.cfg.WebhookSecret); err != nil {
		s.logger.Error("setting webhook", zap.String("url", url), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "telegram rejected the webhook"})
		return
	}
	s.logger.Info("webhook registered", zap.String("url", url))
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}

func (s *Server) secretMatches(got string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) == 1
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Nexo",
		"description": "Asistente de Telegram para la tienda: stock, ventas, clientes y deudas sobre Google Sheets.",
		"endpoints": gin.H{
			"webhook":       "POST /webhook",
			"setup_webhook": "GET /setup-webhook?secret=<WEBHOOK_SECRET>",
			"health":        "GET /health",
		},
	})
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

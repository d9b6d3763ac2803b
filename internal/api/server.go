package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sentinel-toxicity/internal/analytics"
	"sentinel-toxicity/internal/storage"
	"sentinel-toxicity/internal/toxicity"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultFlagLimit = 50
	maxFlagLimit     = 500
	probeTimeout     = 3 * time.Second
	shutdownTimeout  = 5 * time.Second
)

type Classifier interface {
	Classify(ctx context.Context, text string) (toxicity.Verdict, error)
	Probe(ctx context.Context) error
	Categories() []string
}

type FlagStore interface {
	ListFlaggedMessages(ctx context.Context, guildID string, since time.Time, limit int) ([]storage.FlaggedMessage, error)
}

type Reporter interface {
	Report(ctx context.Context, guildID string, since time.Time) (analytics.Report, error)
}

type Server struct {
	classifier Classifier
	flags      FlagStore
	reporter   Reporter
	logger     *zap.Logger
	router     *gin.Engine
	now        func() time.Time
}

type classifyRequest struct {
	Text string `json:"text" binding:"required"`
}

func New(classifier Classifier, flags FlagStore, reporter Reporter, logger *zap.Logger) *Server {
	s := &Server{
		classifier: classifier,
		flags:      flags,
		reporter:   reporter,
		logger:     logger,
		now:        time.Now,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())
	router.GET("/health", s.health)
	router.GET("/ready", s.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/classify", s.classify)
		v1.GET("/guilds/:guildID/flags", s.listFlags)
		v1.GET("/guilds/:guildID/report", s.report)
	}
	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sentinel"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	if err := s.classifier.Probe(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "categories": s.classifier.Categories()})
}

func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "body must be a JSON object with a non-empty text field"})
		return
	}

	verdict, err := s.classifier.Classify(c.Request.Context(), req.Text)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, verdict)
	case errors.Is(err, toxicity.ErrTooShort):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	case errors.Is(err, toxicity.ErrUnavailable):
		s.logger.Warn("classify unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": err.Error()})
	default:
		s.logger.Error("classify failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "classification failed"})
	}
}

func (s *Server) listFlags(c *gin.Context) {
	guildID := c.Param("guildID")

	since := time.Time{}
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "since must be an RFC 3339 timestamp"})
			return
		}
		since = parsed
	}

	limit := defaultFlagLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxFlagLimit)
	}

	flags, err := s.flags.ListFlaggedMessages(c.Request.Context(), guildID, since, limit)
	if err != nil {
		s.logger.Error("list flags failed", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "listing flags failed"})
		return
	}
	if flags == nil {
		flags = []storage.FlaggedMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": guildID, "flags": flags})
}

func (s *Server) report(c *gin.Context) {
	guildID := c.Param("guildID")
	since, err := analytics.PeriodStart(c.Query("period"), s.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	report, err := s.reporter.Report(c.Request.Context(), guildID, since)
	if err != nil {
		s.logger.Error("report failed", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "building report failed"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

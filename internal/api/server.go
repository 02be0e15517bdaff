package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/pregnancy-episode-engine/internal/domain"
	"github.com/pregnancy-episode-engine/internal/middleware"
	"github.com/pregnancy-episode-engine/internal/repository"
)

// Server exposes stored pipeline runs over HTTP.
type Server struct {
	cfg    domain.ServerConfig
	store  repository.Store
	log    *logrus.Logger
	router *gin.Engine
	server *http.Server

	// episodeCache avoids re-reading and re-unmarshalling episode payloads
	// for hot runs. Keyed by runID|patientID.
	episodeCache *expirable.LRU[string, []domain.EpisodeResult]
}

// NewServer creates the HTTP server around a results store.
func NewServer(cfg domain.ServerConfig, store repository.Store, logger *logrus.Logger) *Server {
	if logger.GetLevel() == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RateLimit(cfg.RequestsPerSecond, cfg.BurstLimit))
	router.Use(corsMiddleware())

	s := &Server{
		cfg:          cfg,
		store:        store,
		log:          logger,
		router:       router,
		episodeCache: expirable.NewLRU[string, []domain.EpisodeResult](cfg.CacheSize, nil, cfg.CacheTTL),
	}

	s.setupRoutes()
	return s
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Results server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Handler returns the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/runs", s.handleListRuns)
		v1.GET("/runs/:id/summary", s.handleRunSummary)
		v1.GET("/runs/:id/episodes", s.handleRunEpisodes)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.store.ListRuns(c.Request.Context())
	if err != nil {
		s.fail(c, "list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunSummary(c *gin.Context) {
	runID := c.Param("id")

	summary, err := s.store.GetSummary(c.Request.Context(), runID)
	if err != nil {
		s.fail(c, "get summary", err)
		return
	}
	if len(summary) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "episodes": summary})
}

func (s *Server) handleRunEpisodes(c *gin.Context) {
	runID := c.Param("id")
	patientID := c.Query("patient_id")
	cacheKey := runID + "|" + patientID

	if cached, ok := s.episodeCache.Get(cacheKey); ok {
		c.JSON(http.StatusOK, gin.H{"run_id": runID, "episodes": cached, "cached": true})
		return
	}

	episodes, err := s.store.GetEpisodes(c.Request.Context(), runID, patientID)
	if err != nil {
		s.fail(c, "get episodes", err)
		return
	}
	if len(episodes) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no episodes found"})
		return
	}

	s.episodeCache.Add(cacheKey, episodes)
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "episodes": episodes})
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.log.WithError(err).WithFields(logrus.Fields{
		"operation":      op,
		"correlation_id": c.GetString("correlation_id"),
	}).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept-Encoding, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

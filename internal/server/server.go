package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
	"github.com/spigell/job-aggregator/internal/search"
)

const shutdownTimeout = 30 * time.Second

// Searcher is the part of the search service exposed over HTTP.
type Searcher interface {
	Search(ctx context.Context, profile jobs.UserProfile, page int) (*search.Result, error)
	ClearCache() int
	CacheSize() int
}

// Config holds the HTTP settings.
type Config struct {
	Addr string `mapstructure:"addr"`
	// Debug adds internal error details to 500 responses.
	Debug        bool          `mapstructure:"debug"`
	AllowOrigins []string      `mapstructure:"allow-origins"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

type Server struct {
	searcher Searcher
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

func New(searcher Searcher, l *zap.Logger, cfg Config) *Server {
	return &Server{
		searcher: searcher,
		logger:   logger.OrNop(l),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(requestID())
	router.Use(accessLog(s.logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic while serving request", zap.Any("panic", recovered), zap.String("request_id", c.GetString(requestIDKey)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: internalErrorMessage})
	}))
	router.Use(cors.New(s.corsConfig()))

	router.GET("/health", s.health)

	router.POST("/search", s.search)
	router.POST("/api/search", s.search)

	router.POST("/cache/clear", s.clearCache)
	router.DELETE("/cache", s.clearCache)

	return router
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(s.cfg.AllowOrigins) == 0 || slices.Contains(s.cfg.AllowOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = s.cfg.AllowOrigins
	cfg.AllowCredentials = true
	return cfg
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}

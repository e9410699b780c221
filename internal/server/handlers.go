package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	searchCompletedMessage = "Job search completed"
	internalErrorMessage   = "Server error. Please try again."
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type SearchResponse struct {
	Message      string           `json:"message"`
	Page         int              `json:"page"`
	TotalPages   int              `json:"totalPages"`
	Total        int              `json:"total"`
	HasNextPage  bool             `json:"hasNextPage"`
	HasPrevPage  bool             `json:"hasPrevPage"`
	Jobs         []jobs.Job       `json:"jobs"`
	SearchParams jobs.UserProfile `json:"searchParams"`
	Cached       bool             `json:"cached"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	CacheSize int    `json:"cacheSize"`
	Timestamp string `json:"timestamp"`
}

type ClearCacheResponse struct {
	Message string `json:"message"`
	Cleared int    `json:"cleared"`
}

func (s *Server) search(c *gin.Context) {
	profile, err := parseProfile(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	result, err := s.searcher.Search(c.Request.Context(), profile, parsePage(c.Query("page")))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		Message:      searchCompletedMessage,
		Page:         result.Page.Page,
		TotalPages:   result.TotalPages,
		Total:        result.Total,
		HasNextPage:  result.HasNext,
		HasPrevPage:  result.HasPrev,
		Jobs:         result.Jobs,
		SearchParams: result.Profile,
		Cached:       result.Cached,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		CacheSize: s.searcher.CacheSize(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) clearCache(c *gin.Context) {
	c.JSON(http.StatusOK, ClearCacheResponse{
		Message: "Cache cleared",
		Cleared: s.searcher.ClearCache(),
	})
}

// fail maps service errors onto HTTP responses. Validation problems are
// reported as is; anything else hides its details unless debug is on.
func (s *Server) fail(c *gin.Context, err error) {
	if errors.Is(err, jobs.ErrValidation) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	_ = c.Error(err)
	s.logger.Error("search failed", zap.Error(err), zap.String(requestIDKey, c.GetString(requestIDKey)))

	resp := ErrorResponse{Error: internalErrorMessage}
	if s.cfg.Debug {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusInternalServerError, resp)
}

// parseProfile reads a JSON profile or the form fields of a multipart or
// url-encoded request. Form lists are comma separated.
func parseProfile(c *gin.Context) (jobs.UserProfile, error) {
	if strings.Contains(c.ContentType(), "application/json") {
		var profile jobs.UserProfile
		if err := c.ShouldBindJSON(&profile); err != nil {
			return jobs.UserProfile{}, err
		}
		return profile.Clean(), nil
	}

	// The resume upload is accepted but not used.
	return jobs.NewProfile(
		c.PostForm("skills"),
		formValue(c, "roles", "preferences[roles]"),
		formValue(c, "locations", "preferences[locations]"),
		formValue(c, "experience", "preferences[experience]"),
	), nil
}

func formValue(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.PostForm(key)); v != "" {
			return v
		}
	}
	return ""
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/cache"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
	"github.com/spigell/job-aggregator/internal/matching"
	"github.com/spigell/job-aggregator/internal/paging"
)

// Aggregator collects filtered jobs for a profile.
type Aggregator interface {
	Search(ctx context.Context, profile jobs.UserProfile) ([]jobs.Job, error)
}

// Result is one served page together with the search it belongs to.
type Result struct {
	paging.Page
	Key     string
	Cached  bool
	Profile jobs.UserProfile
}

// Service answers searches from the cache and falls back to the aggregator.
type Service struct {
	aggregator Aggregator
	scorer     *matching.Scorer
	cache      *cache.Cache
	paginator  paging.Paginator
	logger     *zap.Logger
}

type Option func(*Service)

func WithScorer(s *matching.Scorer) Option {
	return func(svc *Service) { svc.scorer = s }
}

func WithPaginator(p paging.Paginator) Option {
	return func(svc *Service) { svc.paginator = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

func New(aggregator Aggregator, c *cache.Cache, opts ...Option) *Service {
	svc := &Service{
		aggregator: aggregator,
		scorer:     matching.NewScorer(),
		cache:      c,
		paginator:  paging.New(paging.DefaultPageSize, paging.DefaultPageSize),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.cache == nil {
		svc.cache = cache.New(cache.DefaultTTL)
	}
	svc.logger = logger.OrNop(svc.logger)

	return svc
}

// Search validates the profile and returns the requested page of the
// ranked result.
func (s *Service) Search(ctx context.Context, profile jobs.UserProfile, page int) (*Result, error) {
	profile = profile.Clean()
	ranked, key, cached, err := s.ranked(ctx, profile)
	if err != nil {
		return nil, err
	}

	p := s.paginator.Paginate(key, ranked, page)
	if p.Clamped {
		s.logger.Info("requested page is out of range", zap.Int("requested", page), zap.Int("served", p.Page))
	}

	return &Result{Page: p, Key: key, Cached: cached, Profile: profile}, nil
}

// All returns the full ranked result without pagination.
func (s *Service) All(ctx context.Context, profile jobs.UserProfile) ([]jobs.Job, error) {
	ranked, _, _, err := s.ranked(ctx, profile.Clean())
	return ranked, err
}

// ClearCache drops every cached search and returns how many were removed.
func (s *Service) ClearCache() int {
	n := s.cache.Clear()
	s.logger.Info("cache cleared", zap.Int("entries", n))
	return n
}

// CacheSize returns the number of live cached searches.
func (s *Service) CacheSize() int {
	return s.cache.Len()
}

func (s *Service) ranked(ctx context.Context, profile jobs.UserProfile) ([]jobs.Job, string, bool, error) {
	if err := profile.Validate(); err != nil {
		return nil, "", false, err
	}

	key := cache.Key(profile)
	ranked, cached, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]jobs.Job, error) {
		s.logger.Info("searching sources",
			zap.Strings("roles", profile.Preferences.Roles),
			zap.Strings("locations", profile.Preferences.Locations),
		)

		found, err := s.aggregator.Search(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("aggregating jobs: %w", err)
		}

		return paging.Rank(s.scorer.ScoreAll(found, profile)), nil
	})
	if err != nil {
		return nil, key, false, err
	}

	s.logger.Debug("ranked jobs", zap.String("key", key), zap.Bool("cached", cached), zap.Int("count", len(ranked)))
	return ranked, key, cached, nil
}

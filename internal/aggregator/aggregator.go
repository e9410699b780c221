package aggregator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-aggregator/internal/filtering"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
	"github.com/spigell/job-aggregator/internal/sources"
	"github.com/spigell/job-aggregator/internal/utils"
)

const remoteLocation = "Remote"

// Adapter binds a source to its per-call settings.
type Adapter struct {
	Source sources.Source
	// Limit is the maximum number of jobs requested per call.
	Limit int
	// Delay is the minimum interval between two calls of this source.
	Delay time.Duration
	// MaxLocations caps how many requested locations are queried. Zero means all.
	MaxLocations int
}

// Aggregator fans a profile out over all sources and merges the results in
// a deterministic order.
type Aggregator struct {
	adapters  []Adapter
	logger    *zap.Logger
	pacer     *utils.Pacer
	parallel  bool
	filters   []filtering.Filter
	filterCfg *filtering.Config
}

type Option func(*Aggregator)

func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithPacer replaces the pacer, mostly to inject a fake clock.
func WithPacer(p *utils.Pacer) Option {
	return func(a *Aggregator) { a.pacer = p }
}

// WithParallel runs the calls of different sources concurrently.
func WithParallel(parallel bool) Option {
	return func(a *Aggregator) { a.parallel = parallel }
}

// WithFilters replaces the default filtering pipeline.
func WithFilters(cfg *filtering.Config, steps ...filtering.Filter) Option {
	return func(a *Aggregator) {
		a.filterCfg = cfg
		if len(steps) > 0 {
			a.filters = steps
		}
	}
}

func New(adapters []Adapter, opts ...Option) *Aggregator {
	a := &Aggregator{
		adapters:  adapters,
		pacer:     utils.NewPacer(),
		filters:   filtering.Default(),
		filterCfg: &filtering.Config{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logger.OrNop(a.logger)

	return a
}

// call is one planned adapter invocation. Its index in the plan is the
// slot its results are merged into.
type call struct {
	adapter  int
	role     string
	location string
}

// plan lists the calls in merge order: roles outermost, then remote-only
// sources, then every non-remote location with the location-aware sources
// in configuration order.
func (a *Aggregator) plan(profile jobs.UserProfile) []call {
	var locations []string
	for _, loc := range profile.Preferences.Locations {
		if !jobs.IsRemoteText(loc) {
			locations = append(locations, loc)
		}
	}
	remote := profile.WantsRemote()

	var calls []call
	for _, role := range profile.Preferences.Roles {
		if remote {
			for idx, adapter := range a.adapters {
				if adapter.Source.RemoteOnly() {
					calls = append(calls, call{adapter: idx, role: role, location: remoteLocation})
				}
			}
		}

		for locIdx, loc := range locations {
			for idx, adapter := range a.adapters {
				if adapter.Source.RemoteOnly() {
					continue
				}
				if adapter.MaxLocations > 0 && locIdx >= adapter.MaxLocations {
					continue
				}
				calls = append(calls, call{adapter: idx, role: role, location: loc})
			}
		}
	}

	return calls
}

// Search collects, merges and filters jobs for the profile. Failing sources
// are logged and skipped; only a cancelled context fails the search.
func (a *Aggregator) Search(ctx context.Context, profile jobs.UserProfile) ([]jobs.Job, error) {
	profile = profile.Clean()
	calls := a.plan(profile)
	slots := make([][]jobs.Job, len(calls))

	var err error
	if a.parallel {
		err = a.runParallel(ctx, calls, slots)
	} else {
		err = a.runSequential(ctx, calls, slots)
	}
	if err != nil {
		return nil, err
	}

	merged := make([]jobs.Job, 0)
	for _, slot := range slots {
		merged = append(merged, slot...)
	}

	a.logger.Info("collected jobs",
		zap.Int("calls", len(calls)),
		zap.Int("count", len(merged)),
		zap.Any("by_source", jobs.ReportBySource(merged)),
	)

	filtered, err := filtering.Run(ctx, a.filterCfg, filtering.Deps{Logger: a.logger, Profile: profile}, a.filters, merged)
	if err != nil {
		return nil, fmt.Errorf("filtering: %w", err)
	}

	return filtered, nil
}

func (a *Aggregator) runSequential(ctx context.Context, calls []call, slots [][]jobs.Job) error {
	for i, c := range calls {
		items, err := a.do(ctx, c)
		if err != nil {
			return err
		}
		slots[i] = items
	}
	return nil
}

// runParallel starts one goroutine per source. Each goroutine walks its own
// calls in plan order, so pacing and slot assignment match the sequential run.
func (a *Aggregator) runParallel(ctx context.Context, calls []call, slots [][]jobs.Job) error {
	perAdapter := make(map[int][]int)
	for i, c := range calls {
		perAdapter[c.adapter] = append(perAdapter[c.adapter], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, indexes := range perAdapter {
		g.Go(func() error {
			for _, i := range indexes {
				items, err := a.do(gctx, calls[i])
				if err != nil {
					return err
				}
				slots[i] = items
			}
			return nil
		})
	}

	return g.Wait()
}

// do paces and performs a single call. Adapter failures are logged and
// turned into an empty contribution; the returned error is always a
// context error.
func (a *Aggregator) do(ctx context.Context, c call) ([]jobs.Job, error) {
	adapter := a.adapters[c.adapter]
	name := adapter.Source.Name()
	log := logger.WithFields(a.logger, logger.SearchFields(name, c.role, c.location)...)

	if err := a.pacer.Wait(ctx, name, adapter.Delay); err != nil {
		return nil, err
	}

	items, err := fetch(ctx, adapter, c)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("source failed", zap.Error(err))
		return nil, nil
	}

	log.Debug("source returned jobs", zap.Int("count", len(items)))
	return items, nil
}

func fetch(ctx context.Context, adapter Adapter, c call) (items []jobs.Job, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = &sources.AdapterError{Source: adapter.Source.Name(), Op: "fetch", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	return adapter.Source.Fetch(ctx, c.role, c.location, adapter.Limit)
}

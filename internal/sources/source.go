package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/logger"
)

const (
	NameRemoteOK = "RemoteOK"
	NameLinkedIn = "LinkedIn"
	NameJSearch  = "JSearch"
	NameAdzuna   = "Adzuna"
)

// ErrMissingCredentials is reported by sources that need an API key which
// was not configured.
var ErrMissingCredentials = errors.New("missing credentials")

// Source converts one upstream job board into normalized jobs.
type Source interface {
	Name() string
	// RemoteOnly sources are queried once per role and only when remote work
	// was requested.
	RemoteOnly() bool
	Fetch(ctx context.Context, role, location string, limit int) ([]jobs.Job, error)
}

// AdapterError is a recoverable failure of a single source call.
type AdapterError struct {
	Source string
	Op     string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// Option customizes a source.
type Option func(*base)

// WithEndpoint overrides the upstream URL.
func WithEndpoint(endpoint string) Option {
	return func(b *base) { b.endpoint = endpoint }
}

// WithClock overrides the time used for missing posting dates.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) { b.logger = l }
}

type base struct {
	name     string
	fetcher  Fetcher
	endpoint string
	logger   *zap.Logger
	now      func() time.Time
}

func newBase(name, endpoint string, fetcher Fetcher, opts []Option) base {
	b := base{
		name:     name,
		fetcher:  fetcher,
		endpoint: endpoint,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = logger.WithSource(b.logger, name)
	return b
}

func (b *base) fail(op string, err error) error {
	return &AdapterError{Source: b.name, Op: op, Err: err}
}

// decodeItems maps each raw item onto T. Items that do not fit are skipped
// and logged; they never fail the whole response.
func decodeItems[T any](b *base, items []any) []T {
	out := make([]T, 0, len(items))
	for idx, item := range items {
		var v T
		if err := decode(item, &v); err != nil {
			b.logger.Debug("skipping malformed item", zap.Int("index", idx), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out
}

func decode(input, out any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func capLimit(n, limit int) int {
	if limit > 0 && limit < n {
		return limit
	}
	return n
}

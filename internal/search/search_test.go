package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spigell/job-aggregator/internal/aggregator"
	"github.com/spigell/job-aggregator/internal/cache"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/matching"
	"github.com/spigell/job-aggregator/internal/paging"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	name  string
	items []jobs.Job
	calls int
}

func (s *stubSource) Name() string     { return s.name }
func (s *stubSource) RemoteOnly() bool { return true }

func (s *stubSource) Fetch(context.Context, string, string, int) ([]jobs.Job, error) {
	s.calls++
	return s.items, nil
}

type countingAggregator struct {
	items []jobs.Job
	err   error
	calls int
}

func (a *countingAggregator) Search(context.Context, jobs.UserProfile) ([]jobs.Job, error) {
	a.calls++
	return a.items, a.err
}

func frontendDev(source string) jobs.Job {
	return jobs.Job{
		ID:          source + "-1",
		Title:       "Frontend Dev",
		Company:     "Acme",
		Location:    "Remote",
		Description: "Build product UI",
		Tags:        []string{"React", "Node"},
		Source:      source,
		PostedDate:  now.Add(-30 * 24 * time.Hour),
		IsRemote:    true,
	}
}

func TestSearchEndToEnd(t *testing.T) {
	first := &stubSource{name: "RemoteOK", items: []jobs.Job{frontendDev("RemoteOK")}}
	second := &stubSource{name: "Mirror", items: []jobs.Job{frontendDev("Mirror")}}

	agg := aggregator.New([]aggregator.Adapter{{Source: first}, {Source: second}})
	svc := New(agg, cache.New(time.Minute), WithScorer(matching.NewScorer().WithClock(func() time.Time { return now })))

	profile := jobs.NewProfile("react, node", "Software Developer", "Remote", "")
	result, err := svc.Search(context.Background(), profile, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 1 || len(result.Jobs) != 1 {
		t.Fatalf("expected a single deduplicated job, got %d", result.Total)
	}
	got := result.Jobs[0]
	if got.Source != "RemoteOK" || got.MatchScore != 70 {
		t.Fatalf("unexpected job: source=%s score=%d", got.Source, got.MatchScore)
	}
	if result.Cached {
		t.Fatalf("expected the first search to miss the cache")
	}
	if result.Key != "skills=react,node|roles=software developer|locations=remote|experience=" {
		t.Fatalf("unexpected key: %q", result.Key)
	}

	again, err := svc.Search(context.Background(), profile, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.Cached || first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected a cache hit without new source calls, cached=%v calls=%d/%d", again.Cached, first.calls, second.calls)
	}
}

func TestSearchValidation(t *testing.T) {
	agg := &countingAggregator{}
	svc := New(agg, nil)

	_, err := svc.Search(context.Background(), jobs.NewProfile("go", "", " , ", ""), 1)
	if !errors.Is(err, jobs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if agg.calls != 0 {
		t.Fatalf("expected no aggregation for an invalid profile")
	}
}

func TestSearchPropagatesAggregatorError(t *testing.T) {
	agg := &countingAggregator{err: context.DeadlineExceeded}
	svc := New(agg, nil)
	profile := jobs.NewProfile("go", "dev", "Berlin", "")

	if _, err := svc.Search(context.Background(), profile, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if svc.CacheSize() != 0 {
		t.Fatalf("expected failures not to be cached")
	}
}

func TestSearchPagesFromCache(t *testing.T) {
	items := make([]jobs.Job, 45)
	for i := range items {
		items[i] = jobs.Job{ID: fmt.Sprintf("%02d", i), Title: "Go Developer", Location: "Berlin"}
	}
	agg := &countingAggregator{items: items}
	svc := New(agg, nil, WithPaginator(paging.New(20, 20)))
	profile := jobs.NewProfile("go", "developer", "Berlin", "senior")

	for _, tt := range []struct {
		page, wantPage, wantLen int
		wantClamped             bool
	}{
		{page: 1, wantPage: 1, wantLen: 20},
		{page: 3, wantPage: 3, wantLen: 5},
		{page: 9, wantPage: 3, wantLen: 5, wantClamped: true},
	} {
		result, err := svc.Search(context.Background(), profile, tt.page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Page.Page != tt.wantPage || len(result.Jobs) != tt.wantLen || result.Clamped != tt.wantClamped {
			t.Fatalf("page %d: got page=%d len=%d clamped=%v", tt.page, result.Page.Page, len(result.Jobs), result.Clamped)
		}
		if result.TotalPages != 3 {
			t.Fatalf("expected 3 pages, got %d", result.TotalPages)
		}
	}

	if agg.calls != 1 {
		t.Fatalf("expected one aggregation for all pages, got %d", agg.calls)
	}
	if result, _ := svc.Search(context.Background(), profile, 1); result.Profile.Preferences.Experience != "senior" {
		t.Fatalf("expected experience to be echoed back")
	}
}

func TestAllAndClearCache(t *testing.T) {
	agg := &countingAggregator{items: []jobs.Job{
		{ID: "low", Title: "Cook", Location: "Berlin"},
		{ID: "high", Title: "Go Developer", Location: "Berlin"},
	}}
	svc := New(agg, nil)
	profile := jobs.NewProfile("go", "developer", "Berlin", "")

	all, err := svc.All(context.Background(), profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].ID != "high" {
		t.Fatalf("expected ranked jobs, got %+v", all)
	}
	if svc.CacheSize() != 1 {
		t.Fatalf("expected one cached search, got %d", svc.CacheSize())
	}

	if cleared := svc.ClearCache(); cleared != 1 {
		t.Fatalf("expected 1 cleared entry, got %d", cleared)
	}
	if _, err := svc.All(context.Background(), profile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agg.calls != 2 {
		t.Fatalf("expected a new aggregation after clearing, got %d", agg.calls)
	}
}

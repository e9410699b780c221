package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-aggregator/internal/filtering"
	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/sources"
	"github.com/spigell/job-aggregator/internal/utils"
)

type stubSource struct {
	name   string
	remote bool
	fetch  func(role, location string) ([]jobs.Job, error)

	mu    sync.Mutex
	calls []string
}

func (s *stubSource) Name() string     { return s.name }
func (s *stubSource) RemoteOnly() bool { return s.remote }

func (s *stubSource) Fetch(_ context.Context, role, location string, _ int) ([]jobs.Job, error) {
	s.mu.Lock()
	s.calls = append(s.calls, role+"@"+location)
	s.mu.Unlock()

	if s.fetch != nil {
		return s.fetch(role, location)
	}
	return []jobs.Job{{
		ID:       fmt.Sprintf("%s|%s|%s", s.name, role, location),
		Title:    role,
		Company:  s.name + " " + location,
		Location: location,
		Source:   s.name,
	}}, nil
}

// recorder keeps the global call order across sources.
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) wrap(s *stubSource) *stubSource {
	inner := s.fetch
	s.fetch = func(role, location string) ([]jobs.Job, error) {
		r.mu.Lock()
		r.order = append(r.order, s.name+":"+role+"@"+location)
		r.mu.Unlock()
		if inner != nil {
			return inner(role, location)
		}
		return []jobs.Job{{
			ID:       fmt.Sprintf("%s|%s|%s", s.name, role, location),
			Title:    role,
			Company:  s.name + " " + location,
			Location: location,
			Source:   s.name,
		}}, nil
	}
	return s
}

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept map[time.Duration]int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), slept: map[time.Duration]int{}}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept[d]++
	return ctx.Err()
}

func fakePacer(clock *fakeClock) *utils.Pacer {
	return utils.NewPacer().WithClock(clock.Now, clock.Sleep)
}

func ids(items []jobs.Job) []string {
	out := make([]string, 0, len(items))
	for _, j := range items {
		out = append(out, j.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func profile(roles, locations []string) jobs.UserProfile {
	return jobs.UserProfile{
		Skills:      []string{"go"},
		Preferences: jobs.Preferences{Roles: roles, Locations: locations},
	}
}

func TestSearchCallOrder(t *testing.T) {
	rec := &recorder{}
	remote := rec.wrap(&stubSource{name: "R", remote: true})
	first := rec.wrap(&stubSource{name: "L1"})
	second := rec.wrap(&stubSource{name: "L2"})

	agg := New([]Adapter{
		{Source: first, MaxLocations: 1},
		{Source: remote},
		{Source: second},
	}, WithPacer(fakePacer(newFakeClock())))

	got, err := agg.Search(context.Background(), profile([]string{"A", "B"}, []string{"Berlin", "Remote", "Munich"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantOrder := []string{
		"R:A@Remote", "L1:A@Berlin", "L2:A@Berlin", "L2:A@Munich",
		"R:B@Remote", "L1:B@Berlin", "L2:B@Berlin", "L2:B@Munich",
	}
	if !equal(rec.order, wantOrder) {
		t.Fatalf("unexpected call order:\n got %v\nwant %v", rec.order, wantOrder)
	}

	wantIDs := []string{
		"R|A|Remote", "L1|A|Berlin", "L2|A|Berlin", "L2|A|Munich",
		"R|B|Remote", "L1|B|Berlin", "L2|B|Berlin", "L2|B|Munich",
	}
	if !equal(ids(got), wantIDs) {
		t.Fatalf("unexpected merge order:\n got %v\nwant %v", ids(got), wantIDs)
	}
}

func TestSearchSkipsRemoteOnlySourcesWithoutRemoteRequest(t *testing.T) {
	remote := &stubSource{name: "R", remote: true}
	local := &stubSource{name: "L"}

	agg := New([]Adapter{{Source: remote}, {Source: local}}, WithPacer(fakePacer(newFakeClock())))
	if _, err := agg.Search(context.Background(), profile([]string{"A"}, []string{"Berlin"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(remote.calls) != 0 {
		t.Fatalf("expected remote only source to be skipped, got %v", remote.calls)
	}
	if !equal(local.calls, []string{"A@Berlin"}) {
		t.Fatalf("unexpected local calls: %v", local.calls)
	}
}

func TestSearchDedupsAcrossSources(t *testing.T) {
	dup := func(source string) func(string, string) ([]jobs.Job, error) {
		return func(string, string) ([]jobs.Job, error) {
			return []jobs.Job{{
				ID: source + "-1", Title: "Frontend Dev", Company: "Acme", Location: "Remote",
				IsRemote: true, Source: source, Tags: []string{"React", "Node"},
			}}, nil
		}
	}

	remote := &stubSource{name: "RemoteOK", remote: true, fetch: dup("RemoteOK")}
	other := &stubSource{name: "Other", remote: true, fetch: dup("Other")}

	agg := New([]Adapter{{Source: remote}, {Source: other}}, WithPacer(fakePacer(newFakeClock())))
	got, err := agg.Search(context.Background(), profile([]string{"Software Developer"}, []string{"Remote"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !equal(ids(got), []string{"RemoteOK-1"}) {
		t.Fatalf("expected the earliest duplicate to survive, got %v", ids(got))
	}
}

func TestSearchSkipsFailingSources(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	failing := &stubSource{name: "Broken", fetch: func(string, string) ([]jobs.Job, error) {
		return nil, &sources.AdapterError{Source: "Broken", Op: "fetch", Err: errors.New("bad status: 500")}
	}}
	panicking := &stubSource{name: "Panicky", fetch: func(string, string) ([]jobs.Job, error) {
		panic("unexpected payload")
	}}
	healthy := &stubSource{name: "Healthy"}

	agg := New(
		[]Adapter{{Source: failing}, {Source: panicking}, {Source: healthy}},
		WithLogger(zap.New(core)),
		WithPacer(fakePacer(newFakeClock())),
	)

	got, err := agg.Search(context.Background(), profile([]string{"A"}, []string{"Berlin"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equal(ids(got), []string{"Healthy|A|Berlin"}) {
		t.Fatalf("unexpected jobs: %v", ids(got))
	}

	warnings := logs.FilterMessage("source failed").All()
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
	if warnings[0].ContextMap()["source"] != "Broken" || warnings[1].ContextMap()["source"] != "Panicky" {
		t.Fatalf("unexpected warning sources: %v, %v", warnings[0].ContextMap(), warnings[1].ContextMap())
	}
}

func TestSearchPacesCallsPerSource(t *testing.T) {
	clock := newFakeClock()
	a := &stubSource{name: "A"}
	b := &stubSource{name: "B"}

	agg := New([]Adapter{
		{Source: a, Delay: 2 * time.Second},
		{Source: b, Delay: time.Second},
	}, WithPacer(fakePacer(clock)))

	if _, err := agg.Search(context.Background(), profile([]string{"x", "y"}, []string{"Berlin", "Paris"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Four calls per source; the first one never waits.
	if clock.slept[2*time.Second] != 3 || clock.slept[time.Second] != 3 {
		t.Fatalf("unexpected waits: %v", clock.slept)
	}
}

func TestSearchParallelKeepsMergeOrder(t *testing.T) {
	build := func(parallel bool) []string {
		slow := &stubSource{name: "Slow", fetch: func(role, location string) ([]jobs.Job, error) {
			time.Sleep(5 * time.Millisecond)
			return []jobs.Job{{ID: "slow-" + role + "-" + location, Title: role, Company: "Slow " + location, Location: location}}, nil
		}}
		fast := &stubSource{name: "Fast", fetch: func(role, location string) ([]jobs.Job, error) {
			return []jobs.Job{{ID: "fast-" + role + "-" + location, Title: role, Company: "Fast " + location, Location: location}}, nil
		}}
		remote := &stubSource{name: "Remote", remote: true}

		agg := New(
			[]Adapter{{Source: slow}, {Source: fast}, {Source: remote}},
			WithParallel(parallel),
			WithPacer(fakePacer(newFakeClock())),
		)
		got, err := agg.Search(context.Background(), profile([]string{"a", "b"}, []string{"Berlin", "Remote", "Paris"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return ids(got)
	}

	sequential := build(false)
	parallel := build(true)
	if len(sequential) != 10 {
		t.Fatalf("expected 10 jobs, got %d: %v", len(sequential), sequential)
	}
	if !equal(sequential, parallel) {
		t.Fatalf("parallel order differs:\nsequential %v\nparallel   %v", sequential, parallel)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	src := &stubSource{name: "S", fetch: func(string, string) ([]jobs.Job, error) {
		calls++
		cancel()
		return nil, context.Canceled
	}}

	agg := New([]Adapter{{Source: src}}, WithPacer(fakePacer(newFakeClock())))
	_, err := agg.Search(ctx, profile([]string{"a", "b"}, []string{"Berlin"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the search to stop after the first call, got %d calls", calls)
	}
}

func TestSearchAppliesConfiguredFilters(t *testing.T) {
	src := &stubSource{name: "S", fetch: func(string, string) ([]jobs.Job, error) {
		return []jobs.Job{
			{ID: "1", Title: "Go Dev", Company: "Acme", Location: "Berlin"},
			{ID: "2", Title: "Go Dev", Company: "Evil Corp", Location: "Berlin"},
			{ID: "3", Title: "Unpaid Go Dev", Company: "Globex", Location: "Berlin"},
		}, nil
	}}

	cfg := &filtering.Config{ExcludedCompanies: []string{"evil corp"}, RedFlags: []string{"unpaid"}}
	agg := New([]Adapter{{Source: src}}, WithFilters(cfg), WithPacer(fakePacer(newFakeClock())))

	got, err := agg.Search(context.Background(), profile([]string{"go"}, []string{"Berlin"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equal(ids(got), []string{"1"}) {
		t.Fatalf("unexpected jobs: %v", ids(got))
	}
}

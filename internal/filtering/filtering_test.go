package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-aggregator/internal/jobs"
)

func job(id, title, company, location string) jobs.Job {
	return jobs.Job{ID: id, Title: title, Company: company, Location: location}
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

func TestRunDefaultPipeline(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	deps := Deps{
		Logger: zap.New(core),
		Profile: jobs.UserProfile{
			Preferences: jobs.Preferences{Locations: []string{"Berlin", "Remote"}},
		},
	}
	cfg := &Config{
		ExcludedCompanies: []string{"ACME Inc."},
		RedFlags:          []string{"Unpaid"},
	}

	items := []jobs.Job{
		job("1", "Go Developer", "Globex", "Berlin, Germany"),
		job("2", "Go-Developer", "globex", "Munich"),
		job("3", "Backend Engineer", "Acme Inc", "Berlin"),
		job("4", "Unpaid Intern", "Initech", "Remote"),
		job("5", "SRE", "Initech", "Paris"),
		{ID: "6", Title: "Platform Engineer", Company: "Hooli", Location: "Austin", IsRemote: true},
	}

	got, err := Run(context.Background(), cfg, deps, Default(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []string{"1", "6"}; !equal(ids(got), want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}

	steps := logs.FilterMessage("filter step").All()
	if len(steps) != 4 {
		t.Fatalf("expected 4 step logs, got %d", len(steps))
	}

	wantDropped := map[string]int64{"dedup": 1, "location": 1, "excluded_companies": 1, "red_flags": 1}
	for _, entry := range steps {
		fields := entry.ContextMap()
		name := fields["name"].(string)
		if fields["dropped"] != wantDropped[name] {
			t.Errorf("step %s dropped %v, want %d", name, fields["dropped"], wantDropped[name])
		}
	}
}

func TestDedupKeepsEarliest(t *testing.T) {
	items := []jobs.Job{
		job("a", "Frontend Dev", "Acme", "Remote"),
		job("b", "Frontend Dev!", "ACME", "Remote"),
		job("c", "Frontend Dev", "Globex", "Remote"),
	}

	got, step, err := NewDedup().Apply(context.Background(), Deps{}, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equal(ids(got), []string{"a", "c"}) {
		t.Fatalf("unexpected survivors: %v", ids(got))
	}
	if step != (Step{Initial: 3, Dropped: 1, Left: 2}) {
		t.Fatalf("unexpected step: %+v", step)
	}
}

func TestLocationFilterDropsRemoteUnlessRequested(t *testing.T) {
	deps := Deps{Profile: jobs.UserProfile{Preferences: jobs.Preferences{Locations: []string{"Bangalore"}}}}
	items := []jobs.Job{
		job("1", "Dev", "A", "Bengaluru, India"),
		job("2", "Dev", "B", "Remote"),
		job("3", "Dev", "C", "Delhi"),
	}

	got, _, err := NewLocation().Apply(context.Background(), deps, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equal(ids(got), []string{"1"}) {
		t.Fatalf("unexpected survivors: %v", ids(got))
	}
}

func TestExcludedCompaniesWithoutConfig(t *testing.T) {
	f := NewExcludedCompanies()
	if err := f.Validate(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := []jobs.Job{job("1", "Dev", "Acme", "Berlin")}
	got, step, err := f.Apply(context.Background(), Deps{}, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || step.Dropped != 0 {
		t.Fatalf("expected passthrough, got %v %+v", ids(got), step)
	}
}

func TestContainsRedFlag(t *testing.T) {
	tests := []struct {
		name  string
		job   jobs.Job
		flags []string
		want  bool
	}{
		{name: "no flags", job: job("1", "Unpaid", "", ""), flags: nil, want: false},
		{name: "title", job: job("1", "UNPAID internship", "", ""), flags: []string{"unpaid"}, want: true},
		{name: "company", job: job("1", "Dev", "Crypto Casino", ""), flags: []string{"casino"}, want: true},
		{name: "description", job: jobs.Job{Description: "Commission only role"}, flags: []string{"commission only"}, want: true},
		{name: "empty flag ignored", job: job("1", "Dev", "Acme", ""), flags: []string{""}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsRedFlag(tt.job, tt.flags); got != tt.want {
				t.Fatalf("ContainsRedFlag() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisabledStepIsSkipped(t *testing.T) {
	steps := Default()
	if !DisableByName(steps, NameLocation, "not needed") {
		t.Fatal("expected the location step to be found")
	}
	if DisableByName(steps, "salary", "not needed") {
		t.Fatal("expected an unknown name to match nothing")
	}

	items := []jobs.Job{job("1", "Dev", "Acme", "Paris")}
	got, err := Run(context.Background(), &Config{}, Deps{}, steps, items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected location step to be skipped, got %v", ids(got))
	}

	for _, status := range Describe(steps) {
		if status.Name == "location" && (status.Enabled || status.Reason != "not needed") {
			t.Fatalf("unexpected status: %+v", status)
		}
	}
}

type failingFilter struct{ toggle }

func (failingFilter) Name() string           { return "failing" }
func (failingFilter) Validate(*Config) error { return nil }
func (failingFilter) Apply(context.Context, Deps, []jobs.Job) ([]jobs.Job, Step, error) {
	return nil, Step{}, errors.New("boom")
}

func TestRunWrapsStepError(t *testing.T) {
	_, err := Run(context.Background(), nil, Deps{}, []Filter{&failingFilter{}}, nil)
	if err == nil || err.Error() != "failing: boom" {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, nil, Deps{}, Default(), []jobs.Job{job("1", "Dev", "Acme", "Paris")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

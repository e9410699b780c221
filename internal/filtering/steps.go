package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
	"github.com/spigell/job-aggregator/internal/matching"
)

type dedupFilter struct {
	toggle
}

// NewDedup creates a filter that keeps the first job for every normalized
// title and company pair.
func NewDedup() Filter {
	return &dedupFilter{}
}

func (f *dedupFilter) Name() string { return NameDedup }

func (f *dedupFilter) Validate(*Config) error { return nil }

func (f *dedupFilter) Apply(_ context.Context, deps Deps, items []jobs.Job) ([]jobs.Job, Step, error) {
	initial := len(items)
	kept, dropped := jobs.Dedup(items)
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding duplicated jobs",
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

type locationFilter struct {
	toggle
}

// NewLocation creates a filter that removes jobs outside the requested
// locations. Remote jobs survive only when remote work was requested.
func NewLocation() Filter {
	return &locationFilter{}
}

func (f *locationFilter) Name() string { return NameLocation }

func (f *locationFilter) Validate(*Config) error { return nil }

func (f *locationFilter) Apply(_ context.Context, deps Deps, items []jobs.Job) ([]jobs.Job, Step, error) {
	initial := len(items)
	requested := deps.Profile.Preferences.Locations

	kept, dropped := keep(items, func(job jobs.Job) bool {
		return matching.JobMatchesLocation(job, requested)
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Debug("excluding jobs by location",
			zap.Strings("locations", requested),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *locationFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type excludedCompaniesFilter struct {
	toggle
	companies []string
}

// NewExcludedCompanies creates a filter that removes jobs by companies configured in the config.
func NewExcludedCompanies() Filter {
	return &excludedCompaniesFilter{}
}

func (f *excludedCompaniesFilter) Name() string { return NameExcludedCompanies }

func (f *excludedCompaniesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg != nil {
		f.companies = append(f.companies, cfg.ExcludedCompanies...)
	}
	return nil
}

func (f *excludedCompaniesFilter) Apply(_ context.Context, deps Deps, items []jobs.Job) ([]jobs.Job, Step, error) {
	initial := len(items)
	if len(f.companies) == 0 {
		return items, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	excluded := make(map[string]struct{}, len(f.companies))
	for _, company := range f.companies {
		if key := jobs.Normalize(company); key != "" {
			excluded[key] = struct{}{}
		}
	}

	kept, dropped := keep(items, func(job jobs.Job) bool {
		_, found := excluded[jobs.Normalize(job.Company)]
		return !found
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding jobs by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *excludedCompaniesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

type redFlagsFilter struct {
	toggle
	flags []string
}

// NewRedFlags creates a filter that removes jobs mentioning any configured
// term in the title, company or description.
func NewRedFlags() Filter {
	return &redFlagsFilter{}
}

func (f *redFlagsFilter) Name() string { return NameRedFlags }

func (f *redFlagsFilter) Validate(cfg *Config) error {
	f.flags = nil
	if cfg == nil {
		return nil
	}
	for _, flag := range cfg.RedFlags {
		if flag = strings.ToLower(strings.TrimSpace(flag)); flag != "" {
			f.flags = append(f.flags, flag)
		}
	}
	return nil
}

func (f *redFlagsFilter) Apply(_ context.Context, deps Deps, items []jobs.Job) ([]jobs.Job, Step, error) {
	initial := len(items)
	if len(f.flags) == 0 {
		return items, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept, dropped := keep(items, func(job jobs.Job) bool {
		return !ContainsRedFlag(job, f.flags)
	})
	if deps.Logger != nil && len(dropped) > 0 {
		deps.Logger.Info("excluding jobs with red flags",
			zap.Strings("red_flags", f.flags),
			zap.Strings("excluded_jobs", dropped),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(dropped), Left: len(kept)}, nil
}

func (f *redFlagsFilter) Status() Status {
	details := map[string]string{}
	if len(f.flags) > 0 {
		details["red_flags"] = strings.Join(f.flags, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// ContainsRedFlag reports whether any term appears, case-insensitively, in
// the job's title, company or description.
func ContainsRedFlag(job jobs.Job, flags []string) bool {
	if len(flags) == 0 {
		return false
	}
	combined := strings.ToLower(job.Title + " " + job.Company + " " + job.Description)
	for _, flag := range flags {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return true
		}
	}
	return false
}

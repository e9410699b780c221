package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	remoteOKURL     = "https://remoteok.com/api"
	remoteOKJobsURL = "https://remoteok.com/remote-jobs/"
)

// RemoteOK reads the public RemoteOK feed. The feed ignores query
// parameters, so role matching happens client side.
type RemoteOK struct {
	base
}

type remoteOKPosting struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Epoch       int64    `json:"epoch"`
	Date        string   `json:"date"`
	Company     string   `json:"company"`
	Position    string   `json:"position"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	SalaryMin   float64  `json:"salary_min"`
	SalaryMax   float64  `json:"salary_max"`
	URL         string   `json:"url"`
	Featured    bool     `json:"featured"`
}

func NewRemoteOK(fetcher Fetcher, opts ...Option) *RemoteOK {
	return &RemoteOK{base: newBase(NameRemoteOK, remoteOKURL, fetcher, opts)}
}

func (s *RemoteOK) Name() string { return s.name }

func (s *RemoteOK) RemoteOnly() bool { return true }

func (s *RemoteOK) Fetch(ctx context.Context, role, _ string, limit int) ([]jobs.Job, error) {
	raw, err := s.fetcher.Fetch(ctx, Request{Method: http.MethodGet, URL: s.endpoint})
	if err != nil {
		return nil, s.fail("fetch", err)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, s.fail("decode", fmt.Errorf("expected a json array, got %T", raw))
	}

	// The first element is a legal notice, not a posting.
	if len(items) > 0 {
		items = items[1:]
	}

	keywords := strings.Fields(strings.ToLower(role))
	fetchedAt := s.now()

	result := make([]jobs.Job, 0, capLimit(len(items), limit))
	for _, posting := range decodeItems[remoteOKPosting](&s.base, items) {
		if posting.Position == "" || !posting.matches(keywords) {
			continue
		}
		result = append(result, posting.toJob(fetchedAt))
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	s.logger.Debug("fetched jobs", zap.String("role", role), zap.Int("count", len(result)))
	return result, nil
}

func (p remoteOKPosting) matches(keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	text := strings.ToLower(p.Position + " " + p.Description + " " + strings.Join(p.Tags, " "))
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// toJob field order:
//
//	title       position
//	location    location, "Remote"
//	link        url, remote-jobs/<slug|id>
//	description description, tags joined
//	posted      date, epoch, fetch time
func (p remoteOKPosting) toJob(fetchedAt time.Time) jobs.Job {
	posted := fetchedAt
	if p.Date != "" {
		posted = jobs.ParseTime(p.Date, fetchedAt)
	} else if p.Epoch > 0 {
		posted = time.Unix(p.Epoch, 0).UTC()
	}

	link := p.URL
	if link == "" {
		if ref := firstNonEmpty(p.Slug, p.ID); ref != "" {
			link = remoteOKJobsURL + ref
		}
	}

	id := jobs.FallbackID("remoteok", p.Position, p.Company)
	if p.ID != "" {
		id = "remoteok-" + p.ID
	}

	job := jobs.Job{
		ID:          id,
		Title:       p.Position,
		Company:     p.Company,
		Location:    firstNonEmpty(p.Location, "Remote"),
		Salary:      jobs.FormatSalaryK(p.SalaryMin, p.SalaryMax),
		Link:        link,
		Description: firstNonEmpty(p.Description, strings.Join(p.Tags, ", ")),
		Tags:        append([]string{}, p.Tags...),
		Source:      NameRemoteOK,
		PostedDate:  posted,
		IsRemote:    true,
		Featured:    p.Featured,
	}
	job.Fill()
	return job
}

package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	linkedInURL  = "https://linkedin-jobs-search.p.rapidapi.com/"
	linkedInHost = "linkedin-jobs-search.p.rapidapi.com"
)

// LinkedIn queries the LinkedIn jobs search API published on RapidAPI.
type LinkedIn struct {
	base
	apiKey string
}

type linkedInPosting struct {
	JobID       string `json:"job_id"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	JobTitle    string `json:"job_title"`
	Company     string `json:"company"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Salary      string `json:"salary"`
	JobURL      string `json:"job_url"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
	PostedDate  string `json:"posted_date"`
	Date        string `json:"date"`
	JobType     string `json:"job_type"`
}

func NewLinkedIn(fetcher Fetcher, apiKey string, opts ...Option) *LinkedIn {
	return &LinkedIn{base: newBase(NameLinkedIn, linkedInURL, fetcher, opts), apiKey: apiKey}
}

func (s *LinkedIn) Name() string { return s.name }

func (s *LinkedIn) RemoteOnly() bool { return false }

func (s *LinkedIn) Fetch(ctx context.Context, role, location string, limit int) ([]jobs.Job, error) {
	if s.apiKey == "" {
		return nil, s.fail("configure", ErrMissingCredentials)
	}

	raw, err := s.fetcher.Fetch(ctx, Request{
		Method: http.MethodPost,
		URL:    s.endpoint,
		Headers: map[string]string{
			"x-rapidapi-key":  s.apiKey,
			"x-rapidapi-host": linkedInHost,
		},
		Body: map[string]string{
			"search_terms": role,
			"location":     location,
			"page":         "1",
		},
	})
	if err != nil {
		return nil, s.fail("fetch", err)
	}

	items, err := linkedInItems(raw)
	if err != nil {
		return nil, s.fail("decode", err)
	}
	items = items[:capLimit(len(items), limit)]

	fetchedAt := s.now()
	result := make([]jobs.Job, 0, len(items))
	for _, posting := range decodeItems[linkedInPosting](&s.base, items) {
		result = append(result, posting.toJob(location, fetchedAt))
	}

	s.logger.Debug("fetched jobs", zap.String("role", role), zap.String("location", location), zap.Int("count", len(result)))
	return result, nil
}

// linkedInItems accepts either a bare array or an object with a jobs array.
func linkedInItems(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if items, ok := v["jobs"].([]any); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("unknown response format: %T", raw)
}

// toJob field order:
//
//	id          job_id, id, title+company
//	title       title, job_title
//	company     company, company_name
//	location    location, requested location
//	link        job_url, url
//	description description, snippet
//	posted      posted_date, date, fetch time
func (p linkedInPosting) toJob(requested string, fetchedAt time.Time) jobs.Job {
	title := firstNonEmpty(p.Title, p.JobTitle)
	company := firstNonEmpty(p.Company, p.CompanyName)
	location := firstNonEmpty(p.Location, requested)

	id := jobs.FallbackID("linkedin", title, company)
	if native := firstNonEmpty(p.JobID, p.ID); native != "" {
		id = "linkedin-" + native
	}

	job := jobs.Job{
		ID:          id,
		Title:       title,
		Company:     company,
		Location:    location,
		Salary:      p.Salary,
		Link:        firstNonEmpty(p.JobURL, p.URL),
		Description: firstNonEmpty(p.Description, p.Snippet),
		Source:      NameLinkedIn,
		PostedDate:  jobs.ParseTime(firstNonEmpty(p.PostedDate, p.Date), fetchedAt),
		IsRemote:    jobs.IsRemoteText(location),
		JobType:     p.JobType,
	}
	job.Fill()
	return job
}

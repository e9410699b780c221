package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	jsearchURL  = "https://jsearch.p.rapidapi.com/search"
	jsearchHost = "jsearch.p.rapidapi.com"
)

// JSearch queries the JSearch aggregator (Indeed, Glassdoor and others)
// published on RapidAPI.
type JSearch struct {
	base
	apiKey string
}

type jsearchResponse struct {
	Status string `json:"status"`
	Data   []any  `json:"data"`
}

type jsearchPosting struct {
	JobID             string  `json:"job_id"`
	JobTitle          string  `json:"job_title"`
	EmployerName      string  `json:"employer_name"`
	JobPublisher      string  `json:"job_publisher"`
	JobCity           string  `json:"job_city"`
	JobState          string  `json:"job_state"`
	JobCountry        string  `json:"job_country"`
	JobMinSalary      float64 `json:"job_min_salary"`
	JobMaxSalary      float64 `json:"job_max_salary"`
	JobSalaryCurrency string  `json:"job_salary_currency"`
	JobSalaryPeriod   string  `json:"job_salary_period"`
	JobApplyLink      string  `json:"job_apply_link"`
	JobGoogleLink     string  `json:"job_google_link"`
	JobDescription    string  `json:"job_description"`
	JobHighlights     struct {
		Responsibilities []string `json:"Responsibilities"`
		Qualifications   []string `json:"Qualifications"`
	} `json:"job_highlights"`
	JobPostedAt          string `json:"job_posted_at_datetime_utc"`
	JobPostedAtTimestamp int64  `json:"job_posted_at_timestamp"`
	JobEmploymentType    string `json:"job_employment_type"`
	JobIsRemote          bool   `json:"job_is_remote"`
}

func NewJSearch(fetcher Fetcher, apiKey string, opts ...Option) *JSearch {
	return &JSearch{base: newBase(NameJSearch, jsearchURL, fetcher, opts), apiKey: apiKey}
}

func (s *JSearch) Name() string { return s.name }

func (s *JSearch) RemoteOnly() bool { return false }

func (s *JSearch) Fetch(ctx context.Context, role, location string, limit int) ([]jobs.Job, error) {
	if s.apiKey == "" {
		return nil, s.fail("configure", ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(role+" "+location))
	params.Set("page", "1")
	params.Set("num_pages", "1")
	params.Set("date_posted", "week")

	raw, err := s.fetcher.Fetch(ctx, Request{
		Method: http.MethodGet,
		URL:    s.endpoint,
		Params: params,
		Headers: map[string]string{
			"x-rapidapi-key":  s.apiKey,
			"x-rapidapi-host": jsearchHost,
		},
	})
	if err != nil {
		return nil, s.fail("fetch", err)
	}

	var resp jsearchResponse
	if err := decode(raw, &resp); err != nil {
		return nil, s.fail("decode", err)
	}
	if resp.Data == nil {
		return nil, s.fail("decode", fmt.Errorf("response has no data array"))
	}
	items := resp.Data[:capLimit(len(resp.Data), limit)]

	fetchedAt := s.now()
	result := make([]jobs.Job, 0, len(items))
	for _, posting := range decodeItems[jsearchPosting](&s.base, items) {
		result = append(result, posting.toJob(location, fetchedAt))
	}

	s.logger.Debug("fetched jobs", zap.String("role", role), zap.String("location", location), zap.Int("count", len(result)))
	return result, nil
}

// toJob field order:
//
//	location    "job_city, job_state", job_country, requested location
//	salary      min/max in thousands, "currency (period)"
//	link        job_apply_link, job_google_link
//	description job_description, first highlighted responsibility
//	posted      job_posted_at_datetime_utc, job_posted_at_timestamp, fetch time
func (p jsearchPosting) toJob(requested string, fetchedAt time.Time) jobs.Job {
	location := firstNonEmpty(p.JobCountry, requested)
	if p.JobCity != "" && p.JobState != "" {
		location = p.JobCity + ", " + p.JobState
	}

	posted := jobs.ParseTime(p.JobPostedAt, fetchedAt)
	if p.JobPostedAt == "" && p.JobPostedAtTimestamp > 0 {
		posted = time.Unix(p.JobPostedAtTimestamp, 0).UTC()
	}

	var responsibility string
	if len(p.JobHighlights.Responsibilities) > 0 {
		responsibility = p.JobHighlights.Responsibilities[0]
	}

	id := jobs.FallbackID("jsearch", p.JobTitle, p.EmployerName)
	if p.JobID != "" {
		id = "jsearch-" + p.JobID
	}

	job := jobs.Job{
		ID:          id,
		Title:       p.JobTitle,
		Company:     p.EmployerName,
		Location:    location,
		Salary:      p.salary(),
		Link:        firstNonEmpty(p.JobApplyLink, p.JobGoogleLink),
		Description: firstNonEmpty(p.JobDescription, responsibility),
		Source:      NameJSearch,
		PostedDate:  posted,
		IsRemote:    p.JobIsRemote || jobs.IsRemoteText(location),
		JobType:     p.JobEmploymentType,
	}
	job.Fill()
	return job
}

func (p jsearchPosting) salary() string {
	if p.JobMinSalary > 0 && p.JobMaxSalary > 0 {
		return jobs.FormatSalaryK(p.JobMinSalary, p.JobMaxSalary)
	}
	if p.JobSalaryCurrency != "" && p.JobSalaryPeriod != "" {
		return fmt.Sprintf("%s (%s)", p.JobSalaryCurrency, p.JobSalaryPeriod)
	}
	return jobs.SalaryUnspecified
}

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	adzunaBaseURL        = "https://api.adzuna.com/v1/api/jobs"
	adzunaDefaultCountry = "us"
)

// Adzuna queries the Adzuna search API. Both an app id and an app key are
// required.
type Adzuna struct {
	base
	appID   string
	appKey  string
	country string
}

type adzunaResponse struct {
	Count   int   `json:"count"`
	Results []any `json:"results"`
}

type adzunaPosting struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
	RedirectURL string  `json:"redirect_url"`
	Created     string  `json:"created"`
	Contract    string  `json:"contract_time"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	Category struct {
		Label string `json:"label"`
	} `json:"category"`
}

func NewAdzuna(fetcher Fetcher, appID, appKey, country string, opts ...Option) *Adzuna {
	if country == "" {
		country = adzunaDefaultCountry
	}

	return &Adzuna{
		base:    newBase(NameAdzuna, adzunaBaseURL, fetcher, opts),
		appID:   appID,
		appKey:  appKey,
		country: country,
	}
}

func (s *Adzuna) Name() string { return s.name }

func (s *Adzuna) RemoteOnly() bool { return false }

func (s *Adzuna) Fetch(ctx context.Context, role, location string, limit int) ([]jobs.Job, error) {
	if s.appID == "" || s.appKey == "" {
		return nil, s.fail("configure", ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("app_id", s.appID)
	params.Set("app_key", s.appKey)
	params.Set("what", role)
	params.Set("where", location)
	params.Set("sort_by", "date")
	params.Set("content-type", "application/json")
	if limit > 0 {
		params.Set("results_per_page", strconv.Itoa(limit))
	}

	raw, err := s.fetcher.Fetch(ctx, Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/%s/search/1", s.endpoint, s.country),
		Params: params,
	})
	if err != nil {
		return nil, s.fail("fetch", err)
	}

	var resp adzunaResponse
	if err := decode(raw, &resp); err != nil {
		return nil, s.fail("decode", err)
	}
	if resp.Results == nil {
		return nil, s.fail("decode", fmt.Errorf("response has no results array"))
	}
	items := resp.Results[:capLimit(len(resp.Results), limit)]

	fetchedAt := s.now()
	result := make([]jobs.Job, 0, len(items))
	for _, posting := range decodeItems[adzunaPosting](&s.base, items) {
		result = append(result, posting.toJob(location, fetchedAt))
	}

	s.logger.Debug("fetched jobs", zap.String("role", role), zap.String("location", location), zap.Int("count", len(result)))
	return result, nil
}

// toJob field order:
//
//	company  company.display_name
//	location location.display_name, requested location
//	salary   "$min - $max" when both are known
//	posted   created, fetch time
func (p adzunaPosting) toJob(requested string, fetchedAt time.Time) jobs.Job {
	location := firstNonEmpty(p.Location.DisplayName, requested)

	id := jobs.FallbackID("adzuna", p.Title, p.Company.DisplayName)
	if p.ID != "" {
		id = "adzuna-" + p.ID
	}

	job := jobs.Job{
		ID:          id,
		Title:       p.Title,
		Company:     p.Company.DisplayName,
		Location:    location,
		Salary:      jobs.FormatSalaryRange(p.SalaryMin, p.SalaryMax),
		Link:        p.RedirectURL,
		Description: p.Description,
		Source:      NameAdzuna,
		PostedDate:  jobs.ParseTime(p.Created, fetchedAt),
		IsRemote:    jobs.IsRemoteText(location),
		JobType:     p.Contract,
		Category:    p.Category.Label,
	}
	job.Fill()
	return job
}

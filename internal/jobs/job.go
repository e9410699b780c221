package jobs

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Sentinels substituted when a source omits a field.
const (
	TitleUnavailable       = "Job Title Not Available"
	CompanyUnavailable     = "Company Not Available"
	LocationUnspecified    = "Not specified"
	SalaryUnspecified      = "Not specified"
	LinkUnavailable        = "#"
	DescriptionUnavailable = "Job description not available"
)

// Job is a posting normalized from any source.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Salary      string    `json:"salary"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Source      string    `json:"source"`
	PostedDate  time.Time `json:"postedDate"`
	IsRemote    bool      `json:"isRemote"`
	MatchScore  int       `json:"matchScore"`

	JobType  string `json:"jobType,omitempty"`
	Category string `json:"category,omitempty"`
	Featured bool   `json:"featured,omitempty"`
}

// Fill replaces empty fields with their sentinels so a Job never carries
// blank title, company, location, salary, link or description.
func (j *Job) Fill() {
	j.Title = orDefault(j.Title, TitleUnavailable)
	j.Company = orDefault(j.Company, CompanyUnavailable)
	j.Location = orDefault(j.Location, LocationUnspecified)
	j.Salary = orDefault(j.Salary, SalaryUnspecified)
	j.Link = orDefault(j.Link, LinkUnavailable)
	j.Description = orDefault(j.Description, DescriptionUnavailable)
	if j.Tags == nil {
		j.Tags = []string{}
	}
}

// DedupKey identifies duplicates across sources.
func (j *Job) DedupKey() string {
	return Normalize(j.Title) + "|" + Normalize(j.Company)
}

// Normalize lower-cases s and drops every rune that is not a letter or digit.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FallbackID builds an id from title and company for sources that expose no
// native identifier.
func FallbackID(prefix, title, company string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, Normalize(title), Normalize(company))
}

var remoteMarkers = []string{"remote", "work from home", "anywhere"}

// IsRemoteText reports whether a free-form location denotes remote work.
func IsRemoteText(location string) bool {
	loc := strings.ToLower(location)
	for _, marker := range remoteMarkers {
		if strings.Contains(loc, marker) {
			return true
		}
	}
	return false
}

// Dedup keeps the first job for every DedupKey and returns the survivors in
// their original order together with the ids of the dropped ones.
func Dedup(items []Job) ([]Job, []string) {
	seen := make(map[string]struct{}, len(items))
	kept := make([]Job, 0, len(items))
	var dropped []string

	for _, job := range items {
		key := job.DedupKey()
		if _, ok := seen[key]; ok {
			dropped = append(dropped, job.ID)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, job)
	}

	return kept, dropped
}

// ReportBySource counts jobs per source.
func ReportBySource(items []Job) map[string]int {
	report := make(map[string]int)
	for _, job := range items {
		report[job.Source]++
	}
	return report
}

// Sources lists distinct sources in first-seen order.
func Sources(items []Job) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, job := range items {
		if _, ok := seen[job.Source]; ok {
			continue
		}
		seen[job.Source] = struct{}{}
		sources = append(sources, job.Source)
	}
	return sources
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

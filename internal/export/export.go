package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	HighMatchScore   = 60
	MediumMatchScore = 40

	CSVLimit    = 50
	ReportLimit = 15
)

var csvHeader = []string{"Title", "Company", "Location", "Salary", "Match Score", "Source", "Link"}

type Metadata struct {
	UserProfile jobs.UserProfile `json:"userProfile"`
	GeneratedAt time.Time        `json:"generatedAt"`
	TotalJobs   int              `json:"totalJobs"`
	Sources     []string         `json:"sources"`
	SearchTerms []string         `json:"searchTerms"`
	Locations   []string         `json:"locations"`
}

// Summary buckets jobs by match score.
type Summary struct {
	Total           int            `json:"total"`
	HighMatch       int            `json:"highMatch"`
	MediumMatch     int            `json:"mediumMatch"`
	LowMatch        int            `json:"lowMatch"`
	SourceBreakdown map[string]int `json:"sourceBreakdown"`
}

// Report is the exported result of one search. Jobs are expected to be
// ranked already.
type Report struct {
	SearchMetadata Metadata   `json:"searchMetadata"`
	Summary        Summary    `json:"summary"`
	Jobs           []jobs.Job `json:"jobs"`
}

func Build(profile jobs.UserProfile, ranked []jobs.Job, generatedAt time.Time) *Report {
	summary := Summary{
		Total:           len(ranked),
		SourceBreakdown: jobs.ReportBySource(ranked),
	}
	for _, job := range ranked {
		switch {
		case job.MatchScore >= HighMatchScore:
			summary.HighMatch++
		case job.MatchScore >= MediumMatchScore:
			summary.MediumMatch++
		default:
			summary.LowMatch++
		}
	}

	sources := jobs.Sources(ranked)
	if sources == nil {
		sources = []string{}
	}
	if ranked == nil {
		ranked = []jobs.Job{}
	}

	return &Report{
		SearchMetadata: Metadata{
			UserProfile: profile,
			GeneratedAt: generatedAt.UTC(),
			TotalJobs:   len(ranked),
			Sources:     sources,
			SearchTerms: profile.Preferences.Roles,
			Locations:   profile.Preferences.Locations,
		},
		Summary: summary,
		Jobs:    ranked,
	}
}

// Top returns at most n leading jobs.
func (r *Report) Top(n int) []jobs.Job {
	return r.Jobs[:min(n, len(r.Jobs))]
}

func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes the header and at most limit jobs.
func (r *Report) WriteCSV(w io.Writer, limit int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, job := range r.Top(limit) {
		record := []string{
			job.Title,
			job.Company,
			job.Location,
			job.Salary,
			strconv.Itoa(job.MatchScore),
			job.Source,
			job.Link,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFiles writes <output>.json and <output>.csv. A trailing .json on
// output is ignored.
func (r *Report) WriteFiles(output string) (string, string, error) {
	base := strings.TrimSuffix(output, ".json")
	jsonPath, csvPath := base+".json", base+".csv"

	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	if err := writeFile(jsonPath, r.WriteJSON); err != nil {
		return "", "", err
	}
	if err := writeFile(csvPath, func(w io.Writer) error { return r.WriteCSV(w, CSVLimit) }); err != nil {
		return "", "", err
	}

	return jsonPath, csvPath, nil
}

// DumpToTmpFile writes the report into the temporary directory and returns
// the JSON and CSV paths.
func (r *Report) DumpToTmpFile() (string, string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", "", err
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		return "", "", err
	}

	return r.WriteFiles(name)
}

// Log prints the summary and the best jobs.
func (r *Report) Log(logger *zap.Logger, top int) {
	logger.Info("search report",
		zap.Int("total", r.Summary.Total),
		zap.Int("high_match", r.Summary.HighMatch),
		zap.Int("medium_match", r.Summary.MediumMatch),
		zap.Int("low_match", r.Summary.LowMatch),
		zap.Any("sources", r.Summary.SourceBreakdown),
	)

	for idx, job := range r.Top(top) {
		logger.Info(fmt.Sprintf("%d. %s at %s", idx+1, job.Title, job.Company),
			zap.String("location", job.Location),
			zap.String("salary", job.Salary),
			zap.Int("match_score", job.MatchScore),
			zap.String("link", job.Link),
			zap.String("source", job.Source),
			zap.String("posted", job.PostedDate.Format(time.DateOnly)),
		)
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return file.Close()
}

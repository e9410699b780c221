package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-aggregator/internal/jobs"
)

var generatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func ranked(n int) []jobs.Job {
	items := make([]jobs.Job, n)
	for i := range items {
		source := "RemoteOK"
		if i%2 == 1 {
			source = "Adzuna"
		}
		items[i] = jobs.Job{
			ID:         fmt.Sprintf("job-%d", i),
			Title:      fmt.Sprintf("Developer %d", i),
			Company:    "Acme, Inc.",
			Location:   "Remote",
			Salary:     "$70k - $120k",
			Link:       "https://example.com/" + fmt.Sprint(i),
			Source:     source,
			MatchScore: 100 - i,
			PostedDate: generatedAt,
		}
	}
	return items
}

func testProfile() jobs.UserProfile {
	return jobs.NewProfile("react,node", "Frontend Developer,React Developer", "Remote,India", "junior")
}

func TestBuild(t *testing.T) {
	items := []jobs.Job{
		{ID: "1", MatchScore: 85, Source: "RemoteOK"},
		{ID: "2", MatchScore: 60, Source: "LinkedIn"},
		{ID: "3", MatchScore: 59, Source: "RemoteOK"},
		{ID: "4", MatchScore: 40, Source: "JSearch"},
		{ID: "5", MatchScore: 39, Source: "RemoteOK"},
	}

	report := Build(testProfile(), items, generatedAt)

	assert.Equal(t, Summary{
		Total:           5,
		HighMatch:       2,
		MediumMatch:     2,
		LowMatch:        1,
		SourceBreakdown: map[string]int{"RemoteOK": 3, "LinkedIn": 1, "JSearch": 1},
	}, report.Summary)

	meta := report.SearchMetadata
	assert.Equal(t, 5, meta.TotalJobs)
	assert.Equal(t, []string{"RemoteOK", "LinkedIn", "JSearch"}, meta.Sources)
	assert.Equal(t, []string{"Frontend Developer", "React Developer"}, meta.SearchTerms)
	assert.Equal(t, []string{"Remote", "India"}, meta.Locations)
	assert.Equal(t, generatedAt, meta.GeneratedAt)
}

func TestWriteJSON(t *testing.T) {
	report := Build(testProfile(), nil, generatedAt)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	meta := decoded["searchMetadata"].(map[string]any)
	assert.Equal(t, "2024-06-01T12:00:00Z", meta["generatedAt"])
	assert.Equal(t, []any{}, meta["sources"])
	assert.Equal(t, "junior", meta["userProfile"].(map[string]any)["preferences"].(map[string]any)["experience"])
	assert.Equal(t, []any{}, decoded["jobs"])
}

func TestWriteCSVLimitsRows(t *testing.T) {
	report := Build(testProfile(), ranked(60), generatedAt)

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, CSVLimit))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, CSVLimit+1)

	assert.Equal(t, []string{"Title", "Company", "Location", "Salary", "Match Score", "Source", "Link"}, records[0])
	assert.Equal(t, []string{"Developer 0", "Acme, Inc.", "Remote", "$70k - $120k", "100", "RemoteOK", "https://example.com/0"}, records[1])
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	report := Build(testProfile(), ranked(3), generatedAt)

	jsonPath, csvPath, err := report.WriteFiles(filepath.Join(dir, "out", "results.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "results.json"), jsonPath)
	assert.Equal(t, filepath.Join(dir, "out", "results.csv"), csvPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Jobs, 3)
	assert.Equal(t, 3, decoded.Summary.HighMatch)

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(csvData)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestDumpToTmpFile(t *testing.T) {
	report := Build(testProfile(), ranked(1), generatedAt)

	jsonPath, csvPath, err := report.DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Remove(jsonPath)
		os.Remove(csvPath)
	})

	assert.FileExists(t, jsonPath)
	assert.FileExists(t, csvPath)
	assert.Equal(t, ".csv", filepath.Ext(csvPath))
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	report := Build(testProfile(), ranked(20), generatedAt)

	report.Log(zap.New(core), ReportLimit)

	require.Equal(t, 1, logs.FilterMessage("search report").Len())
	assert.Equal(t, 1+ReportLimit, logs.Len())
	assert.Equal(t, "1. Developer 0 at Acme, Inc.", logs.All()[1].Message)
}

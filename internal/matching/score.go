package matching

import (
	"math"
	"strings"
	"time"

	"github.com/spigell/job-aggregator/internal/jobs"
)

const (
	skillsWeight   = 60
	roleBonus      = 25
	locationBonus  = 10
	recencyBonus   = 5
	recencyHorizon = 7 * 24 * time.Hour
)

// Scorer computes match scores in the range [0, 100].
type Scorer struct {
	now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// WithClock replaces the clock used for the recency bonus.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Score weighs skill overlap, role fit, location fit and recency.
func (s *Scorer) Score(job jobs.Job, profile jobs.UserProfile) int {
	var score float64

	skills := profile.Skills
	found := 0
	text := strings.ToLower(job.Title + " " + job.Description)
	for _, skill := range skills {
		if hasSkill(text, job.Tags, strings.ToLower(strings.TrimSpace(skill))) {
			found++
		}
	}
	score += skillsWeight * float64(found) / float64(max(len(skills), 1))

	title := strings.ToLower(job.Title)
	for _, role := range profile.Preferences.Roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" && strings.Contains(title, role) {
			score += roleBonus
			break
		}
	}

	if JobMatchesLocation(job, profile.Preferences.Locations) {
		score += locationBonus
	}

	if !job.PostedDate.IsZero() && s.now().Sub(job.PostedDate) <= recencyHorizon {
		score += recencyBonus
	}

	return int(math.Round(score))
}

// ScoreAll returns a copy of items with MatchScore set.
func (s *Scorer) ScoreAll(items []jobs.Job, profile jobs.UserProfile) []jobs.Job {
	scored := make([]jobs.Job, len(items))
	for i, job := range items {
		job.MatchScore = s.Score(job, profile)
		scored[i] = job
	}
	return scored
}

func hasSkill(text string, tags []string, skill string) bool {
	if skill == "" {
		return false
	}
	if strings.Contains(text, skill) {
		return true
	}
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), skill) {
			return true
		}
	}
	return false
}

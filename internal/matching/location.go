package matching

import (
	"strings"
	"unicode"

	"github.com/spigell/job-aggregator/internal/jobs"
)

// aliases maps historical or colloquial city names onto one canonical form.
var aliases = map[string]string{
	"bengaluru": "bangalore",
	"bombay":    "mumbai",
	"calcutta":  "kolkata",
	"madras":    "chennai",
	"gurgaon":   "gurugram",
	"nyc":       "new york",
	"sf":        "san francisco",
	"la":        "los angeles",
	"dc":        "washington",
	"munchen":   "munich",
	"münchen":   "munich",
	"köln":      "cologne",
	"koln":      "cologne",
	"wien":      "vienna",
	"praha":     "prague",
	"warszawa":  "warsaw",
	"uk":        "united kingdom",
	"usa":       "united states",
}

// Canonical lower-cases a location, drops punctuation and resolves aliases
// word by word.
func Canonical(location string) string {
	words := strings.FieldsFunc(strings.ToLower(location), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, word := range words {
		if canonical, ok := aliases[word]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}

// IsLocationMatch reports whether a job location satisfies any of the
// requested locations. Remote jobs match when remote work was requested or
// allowRemote is set. Otherwise the canonical forms must contain one
// another. Empty strings never match.
func IsLocationMatch(jobLocation string, requested []string, allowRemote bool) bool {
	return matchLocation(jobLocation, jobs.IsRemoteText(jobLocation), requested, allowRemote)
}

// JobMatchesLocation is IsLocationMatch that also honours the job's remote
// flag.
func JobMatchesLocation(job jobs.Job, requested []string) bool {
	return matchLocation(job.Location, job.IsRemote || jobs.IsRemoteText(job.Location), requested, false)
}

func matchLocation(location string, remote bool, requested []string, allowRemote bool) bool {
	if remote && (allowRemote || wantsRemote(requested)) {
		return true
	}

	loc := Canonical(location)
	if loc == "" {
		return false
	}

	for _, r := range requested {
		want := Canonical(r)
		if want == "" {
			continue
		}
		if strings.Contains(loc, want) || strings.Contains(want, loc) {
			return true
		}
	}
	return false
}

func wantsRemote(requested []string) bool {
	for _, r := range requested {
		if jobs.IsRemoteText(r) {
			return true
		}
	}
	return false
}

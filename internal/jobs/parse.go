package jobs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime reads the date formats seen across sources. Unix seconds are
// accepted too. The fallback is returned when nothing parses.
func ParseTime(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}

	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}

	return fallback
}

// FormatSalaryK renders a range in thousands, e.g. "$70k - $120k".
// Values below 1000 are assumed to be thousands already.
func FormatSalaryK(minSalary, maxSalary float64) string {
	low, high := inThousands(minSalary), inThousands(maxSalary)
	switch {
	case low > 0 && high > 0:
		return fmt.Sprintf("$%dk - $%dk", low, high)
	case low > 0:
		return fmt.Sprintf("$%dk+", low)
	case high > 0:
		return fmt.Sprintf("Up to $%dk", high)
	default:
		return SalaryUnspecified
	}
}

// FormatSalaryRange renders an exact dollar range, e.g. "$50000 - $65000".
func FormatSalaryRange(minSalary, maxSalary float64) string {
	if minSalary <= 0 || maxSalary <= 0 {
		return SalaryUnspecified
	}
	return fmt.Sprintf("$%d - $%d", int64(math.Round(minSalary)), int64(math.Round(maxSalary)))
}

func inThousands(v float64) int64 {
	if v <= 0 {
		return 0
	}
	if v >= 1000 {
		v /= 1000
	}
	return int64(math.Round(v))
}

package model

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/inovacc/aimodels/internal/mars"
)

// ResolveDate turns the --date flag value into a concrete YYYYMMDD date.
// Zero or a negative number means that many days before today (UTC), so
// the default -1 is yesterday.
func ResolveDate(date int, now time.Time) int {
	if date > 0 {
		return date
	}
	d := now.UTC().AddDate(0, 0, date)
	return d.Year()*10000 + int(d.Month())*100 + d.Day()
}

// NormalizeTime validates the --time flag value and returns the analysis
// hour. Both "12" and "1200" forms are accepted; only the four synoptic
// times are valid.
func NormalizeTime(t int) (int, error) {
	if t < 100 {
		t *= 100
	}
	switch t {
	case 0, 600, 1200, 1800:
		return t / 100, nil
	default:
		return 0, fmt.Errorf("invalid analysis time %d: must be one of 0, 6, 12, 18", t)
	}
}

// AnalysisDateTimes expands a base analysis date/time with the model's
// lagged input offsets.
func AnalysisDateTimes(date, hour int, lagged []int) []mars.DateTime {
	if len(lagged) == 0 {
		lagged = []int{0}
	}

	base := time.Date(date/10000, time.Month(date/100%100), date%100, hour, 0, 0, 0, time.UTC)

	out := make([]mars.DateTime, 0, len(lagged))
	for _, lag := range lagged {
		t := base.Add(time.Duration(lag) * time.Hour)
		out = append(out, mars.DateTime{
			Date: t.Year()*10000 + int(t.Month())*100 + t.Day(),
			Time: t.Hour(),
		})
	}
	return out
}

// StagingDateTimes reads one ISO 8601 datetime per line and expands each
// with the lagged offsets. Used to encode hindcast-like runs.
func StagingDateTimes(path string, lagged []int) ([]mars.DateTime, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("staging dates: %w", err)
	}
	defer f.Close()

	if len(lagged) == 0 {
		lagged = []int{0}
	}

	var out []mars.DateTime
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		base, err := parseISODateTime(line)
		if err != nil {
			return nil, fmt.Errorf("staging dates: line %q: %w", line, err)
		}

		for _, lag := range lagged {
			t := base.Add(time.Duration(lag) * time.Hour)
			out = append(out, mars.DateTime{
				Date: t.Year()*10000 + int(t.Month())*100 + t.Day(),
				Time: t.Hour(),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("staging dates: %w", err)
	}

	return out, nil
}

func parseISODateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime")
}

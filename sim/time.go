package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UndefinedTime marks a time that has not been set.
const UndefinedTime = -math.MaxFloat64

// SecondsPerDay is the length of a simulated day.
const SecondsPerDay = 86400.0

// IsDefined reports whether t is a set time.
func IsDefined(t float64) bool {
	return t != UndefinedTime
}

// ParseTime parses "HH:MM:SS" or "HH:MM" into seconds. Hours may exceed 23.
func ParseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UndefinedTime, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM[:SS]", s)
	}
	var total float64
	factors := []float64{3600, 60, 1}
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || (i > 0 && v >= 60) {
			return 0, fmt.Errorf("invalid time %q: component %q out of range", s, part)
		}
		total += v * factors[i]
	}
	return total, nil
}

// FormatTime renders seconds as "HH:MM:SS".
func FormatTime(t float64) string {
	if !IsDefined(t) {
		return "undefined"
	}
	sign := ""
	if t < 0 {
		sign = "-"
		t = -t
	}
	sec := int64(t)
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, sec/3600, (sec%3600)/60, sec%60)
}

// IntervalDuration returns the duration from start to end on a 24h clock:
// when end lies before start the interval wraps past midnight.
func IntervalDuration(start, end float64) float64 {
	if end < start {
		return end + SecondsPerDay - start
	}
	return end - start
}

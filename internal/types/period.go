package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a lookback span such as "60d". Label is kept verbatim because
// some providers take it as a query value.
type Period struct {
	Label string
	Span  time.Duration
}

func (p Period) String() string { return p.Label }

var periodUnits = []struct {
	suffix string
	unit   time.Duration
}{
	// longest suffixes first so "mo" wins over "m"
	{"mo", 30 * 24 * time.Hour},
	{"wk", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
}

// ParsePeriod parses "<n><unit>" with unit one of m, h, d, wk, mo.
func ParsePeriod(s string) (Period, error) {
	label := strings.TrimSpace(s)
	for _, u := range periodUnits {
		if !strings.HasSuffix(label, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(label, u.suffix))
		if err != nil || n <= 0 {
			return Period{}, fmt.Errorf("invalid period %q", s)
		}
		return Period{Label: label, Span: time.Duration(n) * u.unit}, nil
	}
	return Period{}, fmt.Errorf("invalid period %q: unknown unit", s)
}

// ParsePeriods parses a fallback list, preserving order.
func ParsePeriods(labels []string) ([]Period, error) {
	out := make([]Period, 0, len(labels))
	for _, l := range labels {
		p, err := ParsePeriod(l)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// IntervalDuration returns the bar length of an interval string like "15m",
// "1h" or "1d".
func IntervalDuration(interval string) (time.Duration, error) {
	p, err := ParsePeriod(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	return p.Span, nil
}

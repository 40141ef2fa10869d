// Package humanduration parses the human-readable interval grammar spec.md
// §6 assigns to dataHorizonPeriod: an optional sign followed by one or more
// <integer><unit> tokens, unit in {y, M, d, h, m, s, ms}.
//
// Unlike time.ParseDuration, years/months/days are calendar units (handled
// with time.Time.AddDate), not fixed multiples of 24h, and the unit letters
// are case-sensitive: "M" is months, "m" is minutes.
package humanduration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Period is a parsed dataHorizonPeriod value.
type Period struct {
	negative                                     bool
	years, months, days, hours, minutes, seconds int
	milliseconds                                 int
}

var tokenRe = regexp.MustCompile(`^(\d+)(ms|y|M|d|h|m|s)`)

// Parse parses a dataHorizonPeriod string such as "1M", "1h", "30d",
// "500ms", or a signed, multi-token value like "-1y6M".
func Parse(s string) (Period, error) {
	var p Period
	rest := strings.TrimSpace(s)
	if rest == "" {
		return p, fmt.Errorf("humanduration: empty period")
	}
	switch rest[0] {
	case '+':
		rest = rest[1:]
	case '-':
		p.negative = true
		rest = rest[1:]
	}
	if rest == "" {
		return p, fmt.Errorf("humanduration: %q has a sign but no tokens", s)
	}
	consumed := 0
	for rest != "" {
		m := tokenRe.FindStringSubmatch(rest)
		if m == nil {
			return p, fmt.Errorf("humanduration: %q: invalid token at %q", s, rest)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return p, fmt.Errorf("humanduration: %q: %w", s, err)
		}
		switch m[2] {
		case "y":
			p.years += n
		case "M":
			p.months += n
		case "d":
			p.days += n
		case "h":
			p.hours += n
		case "m":
			p.minutes += n
		case "s":
			p.seconds += n
		case "ms":
			p.milliseconds += n
		}
		rest = rest[len(m[0]):]
		consumed++
	}
	if consumed == 0 {
		return p, fmt.Errorf("humanduration: %q: no tokens", s)
	}
	return p, nil
}

// MustParse is like Parse but panics on error; intended for package-level
// configuration constants, not for parsing caller-supplied config.
func MustParse(s string) Period {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsZero reports whether the period represents no elapsed time at all.
func (p Period) IsZero() bool {
	return p.years == 0 && p.months == 0 && p.days == 0 &&
		p.hours == 0 && p.minutes == 0 && p.seconds == 0 && p.milliseconds == 0
}

package domain

import (
	"strings"
	"time"
)

// Season selects the months of the year a run uses.
type Season int

const (
	// SeasonAll keeps every month. It is what an omitted or unknown season
	// token resolves to.
	SeasonAll Season = iota
	SeasonSpring
	SeasonSummer
	SeasonFall
)

// ParseSeason maps a season token to a Season. Unknown tokens (including the
// empty string) resolve to SeasonAll; known reports whether the token was
// recognised.
func ParseSeason(s string) (season Season, known bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spring":
		return SeasonSpring, true
	case "summer":
		return SeasonSummer, true
	case "fall":
		return SeasonFall, true
	default:
		return SeasonAll, false
	}
}

// String returns the season token. SeasonAll renders as "all".
func (s Season) String() string {
	switch s {
	case SeasonSpring:
		return "spring"
	case SeasonSummer:
		return "summer"
	case SeasonFall:
		return "fall"
	default:
		return "all"
	}
}

// Months returns the calendar months of the season, nil for SeasonAll.
func (s Season) Months() []time.Month {
	switch s {
	case SeasonSpring:
		return []time.Month{time.April, time.May, time.June}
	case SeasonSummer:
		return []time.Month{time.July, time.August, time.September}
	case SeasonFall:
		return []time.Month{time.October, time.November, time.December}
	default:
		return nil
	}
}

// Contains reports whether m belongs to the season.
func (s Season) Contains(m time.Month) bool {
	months := s.Months()
	if months == nil {
		return true
	}
	for _, sm := range months {
		if sm == m {
			return true
		}
	}
	return false
}

package domain

import (
	"fmt"
	"time"
)

// Cast is one vertical ocean profile.
type Cast struct {
	Lon   float64
	Lat   float64
	Time  time.Time
	Depth []float64 // Positive down, metres.
	// Values holds one sample per Depth entry for each variable present; NaN
	// marks a missing sample.
	Values map[Variable][]float64
}

// YearRange is an inclusive range of calendar years.
type YearRange struct {
	First int
	Last  int
}

// Contains reports whether year y is within the range.
func (r YearRange) Contains(y int) bool {
	return y >= r.First && y <= r.Last
}

// Validate checks that the range is not inverted.
func (r YearRange) Validate() error {
	if r.First > r.Last {
		return fmt.Errorf("year range %d-%d is inverted", r.First, r.Last)
	}
	return nil
}

// Single returns the range covering one year.
func Single(year int) YearRange {
	return YearRange{First: year, Last: year}
}

// Filter restricts which casts and levels enter a run.
type Filter struct {
	Grid     RegularGrid
	Season   Season
	Years    *YearRange // nil keeps every year.
	MaxDepth float64    // Levels must be strictly shallower.
}

// Keep reports whether cast c passes the horizontal, seasonal and annual
// criteria. Depth filtering is done per level by KeepLevel.
func (f Filter) Keep(c Cast) bool {
	if !f.Grid.Covers(c.Lon, c.Lat) {
		return false
	}
	if !f.Season.Contains(c.Time.Month()) {
		return false
	}
	if f.Years != nil && !f.Years.Contains(c.Time.Year()) {
		return false
	}
	return true
}

// KeepLevel reports whether a sample at depth z is retained.
func (f Filter) KeepLevel(z float64) bool {
	return z < f.MaxDepth
}

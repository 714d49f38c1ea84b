package domain

import (
	"fmt"
	"strings"
)

// DivisionCode identifies a NAFO sub-area division.
type DivisionCode string

const (
	Div2J  DivisionCode = "2J"
	Div3K  DivisionCode = "3K"
	Div3L  DivisionCode = "3L"
	Div3N  DivisionCode = "3N"
	Div3O  DivisionCode = "3O"
	Div3Ps DivisionCode = "3Ps"
)

// AllDivisions lists every known division in catalog order.
var AllDivisions = []DivisionCode{Div2J, Div3K, Div3L, Div3N, Div3O, Div3Ps}

// SpringDivisions are the divisions kept by the spring mask.
var SpringDivisions = []DivisionCode{Div3L, Div3N, Div3O, Div3Ps}

// StatsDivisions are the divisions summarised when none are named.
var StatsDivisions = []DivisionCode{Div3L, Div3N, Div3O}

// ParseDivision returns the code matching s, case-insensitively.
func ParseDivision(s string) (DivisionCode, error) {
	s = strings.TrimSpace(s)
	for _, d := range AllDivisions {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown division %q: %w", s, ErrNotFound)
}

// ParseDivisions parses a comma separated division list. An empty string
// yields nil.
func ParseDivisions(s string) ([]DivisionCode, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var codes []DivisionCode
	for _, tok := range strings.Split(s, ",") {
		d, err := ParseDivision(tok)
		if err != nil {
			return nil, err
		}
		codes = append(codes, d)
	}
	return codes, nil
}

// Region answers point membership for the polygon masker and statistics.
// Boundaries count as inside.
type Region interface {
	// InDivisions reports whether (lon, lat) is inside any of the divisions.
	InDivisions(codes []DivisionCode, lon, lat float64) bool
	// Excluded reports whether (lon, lat) is inside the exclusion contour.
	Excluded(lon, lat float64) bool
}

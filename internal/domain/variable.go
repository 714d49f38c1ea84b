package domain

import (
	"fmt"
	"math"
	"strings"
)

// Variable is a gridded ocean property.
type Variable int

const (
	Temperature Variable = iota
	Salinity
)

const (
	// MaxValidTemperature is the exclusive upper bound for a temperature bin to
	// count as a good sample during aggregation.
	MaxValidTemperature = 30.0
	// MinSalinity and MaxSalinity bound the accepted binned salinity.
	MinSalinity = 28.0
	MaxSalinity = 36.75
)

// ParseVariable maps "temperature"/"salinity" (or "T"/"S") to a Variable.
func ParseVariable(s string) (Variable, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "temperature", "temp", "t":
		return Temperature, nil
	case "salinity", "sal", "s":
		return Salinity, nil
	default:
		return 0, fmt.Errorf("unknown variable %q", s)
	}
}

// String returns the variable name as used in profile datasets.
func (v Variable) String() string {
	if v == Salinity {
		return "salinity"
	}
	return "temperature"
}

// RecordName is the name of the bottom field in persisted records.
func (v Variable) RecordName() string {
	if v == Salinity {
		return "Sbot"
	}
	return "Tbot"
}

// CountsAsValid reports whether a binned value counts as a good sample when
// deciding how to fill a grid cell's column.
func (v Variable) CountsAsValid(x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return false
	}
	if v == Temperature {
		return x < MaxValidTemperature
	}
	return true
}

// Accept reports whether a binned value is kept at ingestion. Salinity outside
// [MinSalinity, MaxSalinity] is discarded.
func (v Variable) Accept(x float64) bool {
	if math.IsNaN(x) {
		return false
	}
	if v == Salinity {
		return x >= MinSalinity && x <= MaxSalinity
	}
	return true
}

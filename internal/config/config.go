// Package config turns command line flags, environment variables and an
// optional configuration file into run parameters.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"go.azmp.io/bottom-fields/internal/domain"
)

// Defaults of the climatology run.
const (
	DefaultYearMin = 1981
	DefaultYearMax = 2010
	DefaultDZ      = 5.0
	DefaultZMin    = 10.0
	DefaultZMax    = 1000.0
	DefaultDC      = 0.1
	DefaultLonMin  = -60.0
	DefaultLonMax  = -45.0
	DefaultLatMin  = 42.0
	DefaultLatMax  = 56.0
)

// Run holds the resolved configuration of a climatology, year or stats run.
type Run struct {
	Params            domain.RunParams
	SeasonToken       string
	Casts             []string
	Bathymetry        string
	Exclusion         string
	Output            string
	OutputDir         string
	StrictCache       bool
	StrictSinglePoint bool
	Workers           int

	Year        int
	Climatology string
	YearOutput  string
	Divisions   []domain.DivisionCode
	Shelf       string
	ShelfCoast  string
}

// Server holds the configuration of the product server.
type Server struct {
	Port       string
	ProductDir string
	Exclusion  string
}

// FromViper reads a Run from cfg. Paths have environment variables expanded.
// Unknown season tokens are kept in SeasonToken and resolve to all months.
func FromViper(cfg *viper.Viper) (*Run, error) {
	variable, err := domain.ParseVariable(cfg.GetString("variable"))
	if err != nil {
		return nil, err
	}

	years, err := getInts(cfg, "years")
	if err != nil {
		return nil, err
	}
	if len(years) != 2 {
		return nil, fmt.Errorf("years must have two values, got %v", years)
	}
	zlims, err := pair(cfg, "zlims")
	if err != nil {
		return nil, err
	}
	lon, err := pair(cfg, "lon-lims")
	if err != nil {
		return nil, err
	}
	lat, err := pair(cfg, "lat-lims")
	if err != nil {
		return nil, err
	}

	divisions, err := domain.ParseDivisions(strings.Join(getStrings(cfg, "divisions"), ","))
	if err != nil {
		return nil, err
	}

	token := cfg.GetString("season")
	season, _ := domain.ParseSeason(token)
	r := &Run{
		Params: domain.RunParams{
			Variable:          variable,
			Season:            season,
			Years:             domain.YearRange{First: years[0], Last: years[1]},
			DZ:                cfg.GetFloat64("dz"),
			ZMax:              zlims[1],
			DC:                cfg.GetFloat64("dc"),
			LonMin:            lon[0],
			LonMax:            lon[1],
			LatMin:            lat[0],
			LatMax:            lat[1],
			StrictSinglePoint: cfg.GetBool("strict-single-point"),
		},
		SeasonToken:       token,
		Bathymetry:        expand(cfg.GetString("bathymetry")),
		Exclusion:         expand(cfg.GetString("exclusion")),
		Output:            expand(cfg.GetString("output")),
		OutputDir:         expand(cfg.GetString("output-dir")),
		StrictCache:       cfg.GetBool("strict-cache"),
		StrictSinglePoint: cfg.GetBool("strict-single-point"),
		Workers:           cfg.GetInt("workers"),
		Year:              cfg.GetInt("year"),
		Climatology:       expand(cfg.GetString("climatology")),
		YearOutput:        expand(cfg.GetString("year-output")),
		Divisions:         divisions,
		Shelf:             expand(cfg.GetString("shelf")),
		ShelfCoast:        expand(cfg.GetString("shelf-coast")),
	}
	for _, c := range getStrings(cfg, "casts") {
		r.Casts = append(r.Casts, expand(c))
	}
	if zlims[0] > zlims[1] {
		return nil, fmt.Errorf("zlims [%g, %g] are inverted", zlims[0], zlims[1])
	}
	if r.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", r.Workers)
	}
	return r, nil
}

// ServerFromViper reads the server configuration from cfg.
func ServerFromViper(cfg *viper.Viper) Server {
	return Server{
		Port:       cfg.GetString("port"),
		ProductDir: expand(cfg.GetString("product-dir")),
		Exclusion:  expand(cfg.GetString("exclusion")),
	}
}

// LogLevel parses the log-level option.
func LogLevel(cfg *viper.Viper) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(cfg.GetString("log-level"))
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log-level: %w", err)
	}
	return lvl, nil
}

func pair(cfg *viper.Viper, name string) ([2]float64, error) {
	v, err := getFloats(cfg, name)
	if err != nil {
		return [2]float64{}, err
	}
	if len(v) != 2 {
		return [2]float64{}, fmt.Errorf("%s must have two values, got %v", name, v)
	}
	return [2]float64{v[0], v[1]}, nil
}

func expand(path string) string {
	return os.ExpandEnv(path)
}

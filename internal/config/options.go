package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that set options, with dashes
// turned into underscores: BOTTOMGRID_OUTPUT_DIR sets output-dir.
const EnvPrefix = "BOTTOMGRID"

// Option is one configuration option. Commands lists the flag sets, by
// command name, that expose it as a flag; the first set owns the flag.
type Option struct {
	Name, Usage, Shorthand string
	Default                interface{}
	Commands               []string
}

// Command names used in Options.
const (
	CmdRoot        = "root"
	CmdClimatology = "climatology"
	CmdYear        = "year"
	CmdStats       = "stats"
	CmdServe       = "serve"
)

// Options are the configuration options available to bottomgrid.
var Options = []Option{
	{
		Name:     "config",
		Usage:    "config specifies the configuration file location (TOML, YAML or JSON).",
		Default:  "",
		Commands: []string{CmdRoot},
	},
	{
		Name:     "log-level",
		Usage:    "log-level sets the logging level (debug, info, warn, error).",
		Default:  "info",
		Commands: []string{CmdRoot},
	},
	{
		Name:      "variable",
		Usage:     "variable selects the gridded quantity: temperature or salinity.",
		Shorthand: "v",
		Default:   "temperature",
		Commands:  []string{CmdClimatology},
	},
	{
		Name:      "season",
		Usage:     "season restricts the casts to spring (Apr-Jun), summer (Jul-Sep) or fall (Oct-Dec). Any other value uses every month.",
		Shorthand: "s",
		Default:   "",
		Commands:  []string{CmdClimatology, CmdYear},
	},
	{
		Name:     "years",
		Usage:    "years is the inclusive [first, last] year range of a climatology.",
		Default:  []int{DefaultYearMin, DefaultYearMax},
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "zlims",
		Usage:    "zlims is the [min, max] depth range in metres; levels at or below max are dropped.",
		Default:  []float64{DefaultZMin, DefaultZMax},
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "dz",
		Usage:    "dz is the vertical bin width in metres.",
		Default:  DefaultDZ,
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "dc",
		Usage:    "dc is the horizontal grid spacing in degrees.",
		Default:  DefaultDC,
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "lon-lims",
		Usage:    "lon-lims is the [west, east] longitude range of the grid.",
		Default:  []float64{DefaultLonMin, DefaultLonMax},
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "lat-lims",
		Usage:    "lat-lims is the [south, north] latitude range of the grid.",
		Default:  []float64{DefaultLatMin, DefaultLatMax},
		Commands: []string{CmdClimatology},
	},
	{
		Name:      "casts",
		Usage:     "casts lists the profile NetCDF files, as globs or explicit paths.",
		Shorthand: "c",
		Default:   []string{},
		Commands:  []string{CmdClimatology, CmdYear},
	},
	{
		Name:     "bathymetry",
		Usage:    "bathymetry is the GEBCO NetCDF file. stats traces the shelf break from it when building a shelf definition.",
		Default:  "",
		Commands: []string{CmdClimatology, CmdStats},
	},
	{
		Name:     "exclusion",
		Usage:    "exclusion is the fall exclusion contour, as GeoJSON, an (n, 2) .npy array or lon,lat text.",
		Default:  "",
		Commands: []string{CmdClimatology, CmdYear, CmdServe},
	},
	{
		Name:      "output",
		Usage:     "output is the climatology record path. When empty, a name derived from the run parameters is used in output-dir.",
		Shorthand: "o",
		Default:   "",
		Commands:  []string{CmdClimatology},
	},
	{
		Name:     "output-dir",
		Usage:    "output-dir holds climatology records with derived names.",
		Default:  ".",
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "strict-cache",
		Usage:    "strict-cache rejects an existing record produced with different parameters instead of reusing it.",
		Default:  false,
		Commands: []string{CmdClimatology},
	},
	{
		Name:     "strict-single-point",
		Usage:    "strict-single-point keeps only the good bin of a column with a single good bin.",
		Default:  false,
		Commands: []string{CmdClimatology, CmdYear},
	},
	{
		Name:     "workers",
		Usage:    "workers bounds the parallel rows and layers. Zero uses every CPU.",
		Default:  0,
		Commands: []string{CmdClimatology, CmdYear},
	},
	{
		Name:      "year",
		Usage:     "year is the calendar year of a single-year field.",
		Shorthand: "y",
		Default:   0,
		Commands:  []string{CmdYear},
	},
	{
		Name:     "climatology",
		Usage:    "climatology is the reference record of a single-year field, or the record summarised by stats.",
		Default:  "",
		Commands: []string{CmdYear, CmdStats},
	},
	{
		Name:     "year-output",
		Usage:    "year-output optionally saves the single-year field as a record.",
		Default:  "",
		Commands: []string{CmdYear},
	},
	{
		Name:     "divisions",
		Usage:    "divisions lists the NAFO divisions summarised by stats.",
		Default:  []string{"3L", "3N", "3O"},
		Commands: []string{CmdStats},
	},
	{
		Name:     "shelf",
		Usage:    "shelf is an (n, 2) .npy NL shelf definition summarised by stats instead of divisions. A missing file is built from the 1000 m isobath and saved.",
		Default:  "",
		Commands: []string{CmdStats},
	},
	{
		Name:     "shelf-coast",
		Usage:    "shelf-coast is the coastal contour closing a new shelf definition, in any exclusion format.",
		Default:  "",
		Commands: []string{CmdStats},
	},
	{
		Name:      "port",
		Usage:     "port is the HTTP listening port.",
		Shorthand: "p",
		Default:   "8080",
		Commands:  []string{CmdServe},
	},
	{
		Name:     "product-dir",
		Usage:    "product-dir is the directory of records served over HTTP.",
		Default:  "./data/products",
		Commands: []string{CmdServe},
	},
}

// BindFlags declares every option on the flag sets of the named commands and
// binds it to cfg. Sets missing from sets are skipped.
func BindFlags(cfg *viper.Viper, sets map[string]*pflag.FlagSet) error {
	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()

	for _, option := range Options {
		var owner *pflag.FlagSet
		for _, name := range option.Commands {
			set, ok := sets[name]
			if !ok {
				continue
			}
			if owner != nil {
				// Don't create the same flag twice.
				set.AddFlag(owner.Lookup(option.Name))
				continue
			}
			if err := addFlag(set, option); err != nil {
				return err
			}
			owner = set
		}
		if owner == nil {
			cfg.SetDefault(option.Name, option.Default)
			continue
		}
		if err := cfg.BindPFlag(option.Name, owner.Lookup(option.Name)); err != nil {
			return fmt.Errorf("failed to bind option %s: %w", option.Name, err)
		}
	}
	return nil
}

func addFlag(set *pflag.FlagSet, option Option) error {
	switch d := option.Default.(type) {
	case string:
		set.StringP(option.Name, option.Shorthand, d, option.Usage)
	case []string:
		set.StringSliceP(option.Name, option.Shorthand, d, option.Usage)
	case bool:
		set.BoolP(option.Name, option.Shorthand, d, option.Usage)
	case int:
		set.IntP(option.Name, option.Shorthand, d, option.Usage)
	case []int:
		set.IntSliceP(option.Name, option.Shorthand, d, option.Usage)
	case float64:
		set.Float64P(option.Name, option.Shorthand, d, option.Usage)
	case []float64:
		set.Float64SliceP(option.Name, option.Shorthand, d, option.Usage)
	default:
		return fmt.Errorf("option %s: invalid default type %T", option.Name, option.Default)
	}
	return nil
}

// ReadFile reads the configuration file named by the config option, if any.
func ReadFile(cfg *viper.Viper) error {
	if path := cfg.GetString("config"); path != "" {
		cfg.SetConfigFile(path)
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("problem reading configuration file: %w", err)
		}
	}
	return nil
}

// getFloats returns a numeric list from cfg, accounting for the fact that it
// might be a JSON array or a comma separated string if it was set from a
// command line flag or an environment variable.
func getFloats(cfg *viper.Viper, name string) ([]float64, error) {
	i := cfg.Get(name)
	switch v := i.(type) {
	case []float64:
		return v, nil
	case []int:
		out := make([]float64, len(v))
		for k, x := range v {
			out[k] = float64(x)
		}
		return out, nil
	case []interface{}:
		out := make([]float64, len(v))
		for k, x := range v {
			f, err := cast.ToFloat64E(x)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", name, err)
			}
			out[k] = f
		}
		return out, nil
	case []string:
		return parseFloats(name, v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var out []float64
			if err := json.NewDecoder(bytes.NewBufferString(s)).Decode(&out); err != nil {
				return nil, fmt.Errorf("option %s: %w", name, err)
			}
			return out, nil
		}
		return parseFloats(name, strings.Split(s, ","))
	default:
		return nil, fmt.Errorf("invalid type for option %s: %#v", name, i)
	}
}

func parseFloats(name string, parts []string) ([]float64, error) {
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := cast.ToFloat64E(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", name, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// getStrings returns a string list from cfg, splitting a comma separated
// value set from the environment.
func getStrings(cfg *viper.Viper, name string) []string {
	var out []string
	for _, s := range cfg.GetStringSlice(name) {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// getInts is getFloats for whole numbers.
func getInts(cfg *viper.Viper, name string) ([]int, error) {
	if v, err := cast.ToIntSliceE(cfg.Get(name)); err == nil {
		return v, nil
	}
	f, err := getFloats(cfg, name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(f))
	for i, x := range f {
		if x != float64(int(x)) {
			return nil, fmt.Errorf("option %s: %g is not a whole number", name, x)
		}
		out[i] = int(x)
	}
	return out, nil
}

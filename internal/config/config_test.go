package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.azmp.io/bottom-fields/internal/domain"
)

// newConfig binds the options to fresh flag sets and parses args as the
// climatology command line.
func newConfig(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	cfg := viper.New()
	sets := map[string]*pflag.FlagSet{
		CmdRoot:        pflag.NewFlagSet(CmdRoot, pflag.ContinueOnError),
		CmdClimatology: pflag.NewFlagSet(CmdClimatology, pflag.ContinueOnError),
		CmdYear:        pflag.NewFlagSet(CmdYear, pflag.ContinueOnError),
		CmdStats:       pflag.NewFlagSet(CmdStats, pflag.ContinueOnError),
		CmdServe:       pflag.NewFlagSet(CmdServe, pflag.ContinueOnError),
	}
	if err := BindFlags(cfg, sets); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	fs := sets[CmdClimatology]
	fs.AddFlagSet(sets[CmdRoot])
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := ReadFile(cfg); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	r, err := FromViper(newConfig(t))
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	p := r.Params
	if p.Variable != domain.Temperature || p.Season != domain.SeasonAll {
		t.Errorf("unexpected variable or season: %v %v", p.Variable, p.Season)
	}
	if p.Years.First != DefaultYearMin || p.Years.Last != DefaultYearMax {
		t.Errorf("years = %+v", p.Years)
	}
	if p.DZ != DefaultDZ || p.ZMax != DefaultZMax || p.DC != DefaultDC {
		t.Errorf("dz %g zmax %g dc %g", p.DZ, p.ZMax, p.DC)
	}
	if p.LonMin != DefaultLonMin || p.LonMax != DefaultLonMax || p.LatMin != DefaultLatMin || p.LatMax != DefaultLatMax {
		t.Errorf("unexpected region %+v", p)
	}
	if len(r.Divisions) != 3 || r.Divisions[0] != domain.Div3L {
		t.Errorf("divisions = %v", r.Divisions)
	}
	if r.OutputDir != "." {
		t.Errorf("output-dir = %q", r.OutputDir)
	}
}

func TestFlags(t *testing.T) {
	r, err := FromViper(newConfig(t,
		"-v", "salinity",
		"--season", "fall",
		"--years", "1991,2020",
		"--zlims", "0,500",
		"--lon-lims", "-56,-50",
		"--dc", "0.25",
		"--casts", "a.nc,b/*.nc",
		"--strict-single-point",
	))
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	p := r.Params
	if p.Variable != domain.Salinity || p.Season != domain.SeasonFall {
		t.Errorf("unexpected variable or season: %v %v", p.Variable, p.Season)
	}
	if p.Years.First != 1991 || p.Years.Last != 2020 {
		t.Errorf("years = %+v", p.Years)
	}
	if p.ZMax != 500 || p.DC != 0.25 || p.LonMin != -56 || p.LonMax != -50 {
		t.Errorf("unexpected params %+v", p)
	}
	if len(r.Casts) != 2 || r.Casts[1] != "b/*.nc" {
		t.Errorf("casts = %v", r.Casts)
	}
	if !r.StrictSinglePoint || !p.StrictSinglePoint {
		t.Error("strict-single-point not set")
	}
}

func TestUnknownSeason(t *testing.T) {
	r, err := FromViper(newConfig(t, "--season", "winter"))
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if r.Params.Season != domain.SeasonAll || r.SeasonToken != "winter" {
		t.Errorf("winter should resolve to all months, got %v (%q)", r.Params.Season, r.SeasonToken)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BOTTOMGRID_LAT_LIMS", "45,50")
	t.Setenv("BOTTOMGRID_DIVISIONS", "3ps,2j")
	t.Setenv("DATA", "/data")
	t.Setenv("BOTTOMGRID_BATHYMETRY", "$DATA/gebco.nc")

	r, err := FromViper(newConfig(t))
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if r.Params.LatMin != 45 || r.Params.LatMax != 50 {
		t.Errorf("lat-lims = %g, %g", r.Params.LatMin, r.Params.LatMax)
	}
	if len(r.Divisions) != 2 || r.Divisions[0] != domain.Div3Ps || r.Divisions[1] != domain.Div2J {
		t.Errorf("divisions = %v", r.Divisions)
	}
	if r.Bathymetry != "/data/gebco.nc" {
		t.Errorf("bathymetry = %q", r.Bathymetry)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	content := `variable = "temperature"
season = "spring"
years = [2000, 2015]
zlims = [10, 300]
output = "out.nc"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := FromViper(newConfig(t, "--config", path))
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if r.Params.Season != domain.SeasonSpring || r.Params.ZMax != 300 || r.Output != "out.nc" {
		t.Errorf("unexpected run %+v", r)
	}
	if r.Params.Years.First != 2000 || r.Params.Years.Last != 2015 {
		t.Errorf("years = %+v", r.Params.Years)
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"variable", []string{"-v", "oxygen"}},
		{"years", []string{"--years", "1991"}},
		{"zlims", []string{"--zlims", "500,10"}},
		{"division", []string{}},
		{"workers", []string{"--workers", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "division" {
				t.Setenv("BOTTOMGRID_DIVISIONS", "4X")
			}
			if _, err := FromViper(newConfig(t, tt.args...)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	lvl, err := LogLevel(newConfig(t, "--log-level", "debug"))
	if err != nil || lvl != logrus.DebugLevel {
		t.Errorf("LogLevel = %v, %v", lvl, err)
	}
	if _, err := LogLevel(newConfig(t, "--log-level", "loud")); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

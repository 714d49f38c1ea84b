// Package profiles reads ocean profile casts from a collection of NetCDF
// files.
package profiles

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/domain"
)

// Variable names of the profile dataset layout.
const (
	lonVarName   = "longitude"
	latVarName   = "latitude"
	timeVarName  = "time"
	levelVarName = "level"
)

// Reader loads casts from NetCDF profile datasets.
type Reader struct {
	log logrus.FieldLogger
}

// NewReader creates a profile reader.
func NewReader(log logrus.FieldLogger) *Reader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reader{log: log}
}

// Files expands the file-set patterns into a sorted list of distinct paths.
// A pattern that matches nothing is an error wrapping domain.ErrMissingInput.
func Files(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no profile files given: %w", domain.ErrMissingInput)
	}
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(p); statErr != nil {
				return nil, fmt.Errorf("no profile files match %q: %w", p, domain.ErrMissingInput)
			}
			matches = []string{p}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

// Load reads every cast of the file set, concatenated along the cast
// dimension in file order. Each cast keeps the vertical axis of its own file.
func (r *Reader) Load(patterns []string) ([]domain.Cast, error) {
	files, err := Files(patterns)
	if err != nil {
		return nil, err
	}
	var casts []domain.Cast
	for _, path := range files {
		fc, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read profiles from %s: %w", path, err)
		}
		casts = append(casts, fc...)
	}
	r.log.WithFields(logrus.Fields{
		"stage": "ingest",
		"files": len(files),
		"casts": len(casts),
	}).Info("Get historical data")
	return casts, nil
}

func readFile(path string) ([]domain.Cast, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open NetCDF file: %w", err)
	}
	defer nc.Close()

	lons, err := readVector(nc, lonVarName)
	if err != nil {
		return nil, err
	}
	lats, err := readVector(nc, latVarName)
	if err != nil {
		return nil, err
	}
	levels, err := readVector(nc, levelVarName)
	if err != nil {
		return nil, err
	}
	times, err := readTimes(nc)
	if err != nil {
		return nil, err
	}
	n := len(times)
	if len(lons) != n || len(lats) != n {
		return nil, fmt.Errorf("coordinate lengths differ: %d times, %d longitudes, %d latitudes", n, len(lons), len(lats))
	}

	casts := make([]domain.Cast, n)
	for i := range casts {
		casts[i] = domain.Cast{
			Lon:    lons[i],
			Lat:    lats[i],
			Time:   times[i],
			Depth:  levels,
			Values: make(map[domain.Variable][]float64, 2),
		}
	}

	for _, v := range []domain.Variable{domain.Temperature, domain.Salinity} {
		rows, err := readMatrix(nc, v.String(), n, len(levels))
		if errors.Is(err, errAbsent) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for i := range casts {
			casts[i].Values[v] = rows[i]
		}
	}
	return casts, nil
}

var errAbsent = errors.New("variable absent")

// readVector reads a 1-D numeric variable as float64 with fill values as NaN.
func readVector(nc api.Group, name string) ([]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find variable %s: %w", name, err)
	}
	out, err := toFloat64s(v.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	applyFill(out, v.Attributes)
	return out, nil
}

// readMatrix reads a [cast, level] variable. Returns errAbsent when the file
// does not carry it.
func readMatrix(nc api.Group, name string, nCasts, nLevels int) ([][]float64, error) {
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, errAbsent
	}
	if len(v.Dimensions) != 2 {
		return nil, fmt.Errorf("variable %s: expected 2D (time, level), got %dD", name, len(v.Dimensions))
	}

	var rows [][]float64
	switch vals := v.Values.(type) {
	case [][]float64:
		rows = make([][]float64, len(vals))
		for i, row := range vals {
			rows[i] = append([]float64(nil), row...)
		}
	case [][]float32:
		rows = make([][]float64, len(vals))
		for i, row := range vals {
			rows[i] = make([]float64, len(row))
			for k, x := range row {
				rows[i][k] = float64(x)
			}
		}
	default:
		return nil, fmt.Errorf("variable %s: unsupported type %T", name, v.Values)
	}

	if v.Dimensions[0] == levelVarName {
		rows = transposeRows(rows)
	}
	if len(rows) != nCasts {
		return nil, fmt.Errorf("variable %s has %d casts, expected %d", name, len(rows), nCasts)
	}
	for i, row := range rows {
		if len(row) != nLevels {
			return nil, fmt.Errorf("variable %s cast %d has %d levels, expected %d", name, i, len(row), nLevels)
		}
		applyFill(row, v.Attributes)
	}
	return rows, nil
}

func transposeRows(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return rows
	}
	out := make([][]float64, len(rows[0]))
	for j := range out {
		out[j] = make([]float64, len(rows))
		for i := range rows {
			out[j][i] = rows[i][j]
		}
	}
	return out
}

// readTimes decodes the CF time coordinate.
func readTimes(nc api.Group) ([]time.Time, error) {
	v, err := nc.GetVariable(timeVarName)
	if err != nil {
		return nil, fmt.Errorf("failed to find variable %s: %w", timeVarName, err)
	}
	raw, err := toFloat64s(v.Values)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", timeVarName, err)
	}
	units := "seconds since 1970-01-01"
	if u, ok := attrString(v.Attributes, "units"); ok {
		units = u
	}
	step, epoch, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(raw))
	for i, x := range raw {
		if out[i], err = OffsetTime(epoch, step, x); err != nil {
			return nil, fmt.Errorf("variable %s: %w", timeVarName, err)
		}
	}
	return out, nil
}

// maxOffsetDays bounds time offsets to about 27000 years either side of the
// epoch.
const maxOffsetDays = 1e7

// OffsetTime returns epoch plus x steps. Whole days are added on the
// calendar so offsets beyond the range of time.Duration stay exact.
func OffsetTime(epoch time.Time, step time.Duration, x float64) (time.Time, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return time.Time{}, fmt.Errorf("time value %v is not finite", x)
	}
	const day = 24 * time.Hour
	total := x * step.Seconds()
	days := math.Floor(total / day.Seconds())
	if math.Abs(days) > maxOffsetDays {
		return time.Time{}, fmt.Errorf("time value %v %v is out of range", x, step)
	}
	rem := total - days*day.Seconds()
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(math.Round(rem * float64(time.Second)))), nil
}

// ParseTimeUnits parses a CF "<unit> since <date>" string.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("invalid time units %q", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "s":
		step = time.Second
	case "minutes", "minute", "min":
		step = time.Minute
	case "hours", "hour", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("unsupported time unit %q", parts[0])
	}
	ref := strings.TrimSpace(parts[1])
	layouts := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("invalid reference date %q", ref)
}

func toFloat64s(values interface{}) ([]float64, error) {
	switch vals := values.(type) {
	case []float64:
		return append([]float64(nil), vals...), nil
	case []float32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(vals))
		for i, x := range vals {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", values)
	}
}

// applyFill replaces _FillValue and missing_value entries with NaN.
func applyFill(values []float64, attrs api.AttributeMap) {
	for _, key := range []string{"_FillValue", "missing_value"} {
		fill, ok := attrFloat(attrs, key)
		if !ok {
			continue
		}
		for i, x := range values {
			if x == fill || (math.IsNaN(fill) && math.IsNaN(x)) {
				values[i] = math.NaN()
			}
		}
	}
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	val, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch x := val.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	val, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

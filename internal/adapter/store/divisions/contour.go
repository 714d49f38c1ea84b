package divisions

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/sbinet/npyio"

	"go.azmp.io/bottom-fields/internal/domain"
)

// minRingPoints is the smallest vertex count of a usable contour.
const minRingPoints = 3

// LoadExclusion reads an exclusion contour. Files ending in .json or .geojson
// hold a GeoJSON Polygon, closed LineString, Feature or FeatureCollection.
// Files ending in .npy hold an (n, 2) array of lon, lat vertices. Anything
// else is read as lon,lat text with an optional header row.
func LoadExclusion(path string) (geom.Polygonal, error) {
	//nolint:gosec // G304: path comes from configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Join(fmt.Errorf("exclusion contour %s", path), domain.ErrMissingInput)
		}
		return nil, fmt.Errorf("failed to read exclusion contour: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		return decodeGeoJSON(data)
	case ".npy":
		return decodeNpy(bytes.NewReader(data))
	default:
		return decodeText(strings.NewReader(string(data)))
	}
}

type geoJSONDocument struct {
	Type     string          `json:"type"`
	Geometry json.RawMessage `json:"geometry"`
	Features []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"features"`
}

func decodeGeoJSON(data []byte) (geom.Polygonal, error) {
	var doc geoJSONDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON contour: %w", err)
	}

	var raws []json.RawMessage
	switch doc.Type {
	case "Feature":
		raws = append(raws, doc.Geometry)
	case "FeatureCollection":
		for _, f := range doc.Features {
			raws = append(raws, f.Geometry)
		}
	default:
		raws = append(raws, data)
	}

	var mp geom.MultiPolygon
	for _, raw := range raws {
		g, err := geojson.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON contour: %w", err)
		}
		p, err := asPolygon(g)
		if err != nil {
			return nil, err
		}
		mp = append(mp, p)
	}
	switch len(mp) {
	case 0:
		return nil, fmt.Errorf("GeoJSON contour holds no geometry")
	case 1:
		return mp[0], nil
	}
	return mp, nil
}

// asPolygon accepts polygons and closes line strings into rings.
func asPolygon(g geom.Geom) (geom.Polygon, error) {
	switch t := g.(type) {
	case geom.Polygon:
		if len(t) == 0 || len(t[0]) < minRingPoints {
			return nil, fmt.Errorf("contour polygon has too few vertices")
		}
		return t, nil
	case geom.LineString:
		if len(t) < minRingPoints {
			return nil, fmt.Errorf("contour line has %d vertices, need at least %d", len(t), minRingPoints)
		}
		return geom.Polygon{[]geom.Point(t)}, nil
	default:
		return nil, fmt.Errorf("unsupported contour geometry %T", g)
	}
}

// decodeNpy reads a NumPy array of shape (n, 2) in either memory order.
func decodeNpy(r io.Reader) (geom.Polygonal, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid npy contour: %w", err)
	}
	shape := nr.Header.Descr.Shape
	if len(shape) != 2 || shape[1] != 2 {
		return nil, fmt.Errorf("npy contour has shape %v, want (n, 2)", shape)
	}

	var values []float64
	switch rt := npyio.TypeFrom(nr.Header.Descr.Type); {
	case rt == nil:
		return nil, fmt.Errorf("npy contour has unsupported dtype %q", nr.Header.Descr.Type)
	case rt.Kind() == reflect.Float64:
		err = nr.Read(&values)
	case rt.Kind() == reflect.Float32:
		var f32 []float32
		err = nr.Read(&f32)
		values = make([]float64, len(f32))
		for i, v := range f32 {
			values[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("npy contour has non-float dtype %q", nr.Header.Descr.Type)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read npy contour: %w", err)
	}

	n := shape[0]
	if len(values) != 2*n {
		return nil, fmt.Errorf("npy contour holds %d values, want %d", len(values), 2*n)
	}
	if n < minRingPoints {
		return nil, fmt.Errorf("contour has %d vertices, need at least %d", n, minRingPoints)
	}
	ring := make([]geom.Point, n)
	for i := range ring {
		if nr.Header.Descr.Fortran {
			ring[i] = geom.Point{X: values[i], Y: values[n+i]}
		} else {
			ring[i] = geom.Point{X: values[2*i], Y: values[2*i+1]}
		}
	}
	return geom.Polygon{ring}, nil
}

func decodeText(r io.Reader) (geom.Polygonal, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	var ring []geom.Point
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read contour record: %w", err)
		}
		line++
		if len(record) == 1 {
			record = strings.Fields(record[0])
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("contour line %d: expected lon,lat, got %v", line, record)
		}

		lon, errLon := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if errLon != nil || errLat != nil {
			// A header row is allowed.
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("contour line %d: invalid coordinate %v", line, record)
		}
		ring = append(ring, geom.Point{X: lon, Y: lat})
	}

	if len(ring) < minRingPoints {
		return nil, fmt.Errorf("contour has %d vertices, need at least %d", len(ring), minRingPoints)
	}
	return geom.Polygon{ring}, nil
}

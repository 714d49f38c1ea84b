package usecase

import (
	"fmt"
	"math"

	"go.azmp.io/bottom-fields/internal/adapter/interp"
	"go.azmp.io/bottom-fields/internal/adapter/store/climatology"
	"go.azmp.io/bottom-fields/internal/adapter/store/divisions"
	"go.azmp.io/bottom-fields/internal/domain"
	"go.azmp.io/bottom-fields/internal/stats"
)

// ProductSummary describes a stored record without its arrays.
type ProductSummary struct {
	Name     string    `json:"name"`
	Variable string    `json:"variable"`
	Season   string    `json:"season"`
	LonLims  []float64 `json:"lon_lims"`
	LatLims  []float64 `json:"lat_lims"`
	DC       float64   `json:"dc"`
	Bins     int       `json:"depth_bins"`
	DZ       float64   `json:"dz"`
	Casts    int       `json:"casts"`
	Valid    int       `json:"valid_cells"`
	Min      *float64  `json:"min"`
	Max      *float64  `json:"max"`
	Mean     *float64  `json:"mean"`
}

// ProductDetail is a summary plus the bottom field, no data as null.
type ProductDetail struct {
	ProductSummary
	Lon    []float64    `json:"lon"`
	Lat    []float64    `json:"lat"`
	Bottom [][]*float64 `json:"bottom"`
}

// DivisionInfo lists one division's ring.
type DivisionInfo struct {
	Code     string       `json:"code"`
	Vertices [][2]float64 `json:"vertices"`
}

// ProductService answers read-only queries on the records of a product
// directory.
type ProductService struct {
	catalog   *climatology.Catalog
	divisions *divisions.Catalog
}

// NewProductService creates a new product service.
func NewProductService(catalog *climatology.Catalog, div *divisions.Catalog) *ProductService {
	return &ProductService{catalog: catalog, divisions: div}
}

// List returns the available product names.
func (s *ProductService) List() ([]string, error) {
	return s.catalog.List()
}

// Summary returns the description of a product.
func (s *ProductService) Summary(name string) (*ProductSummary, error) {
	rec, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	sum := Summarize(name, rec)
	return &sum, nil
}

// Detail returns a product with its bottom field.
func (s *ProductService) Detail(name string) (*ProductDetail, error) {
	rec, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	rows := make([][]*float64, rec.Bottom.NLat)
	for i := range rows {
		rows[i] = make([]*float64, rec.Bottom.NLon)
		for j := range rows[i] {
			if v, ok := rec.Bottom.At(i, j); ok {
				rows[i][j] = &v
			}
		}
	}
	return &ProductDetail{
		ProductSummary: Summarize(name, rec),
		Lon:            rec.Grid.Lon,
		Lat:            rec.Grid.Lat,
		Bottom:         rows,
	}, nil
}

// Value samples a product's bottom field at (lat, lon) by bilinear
// interpolation over the surrounding cells with data.
func (s *ProductService) Value(name string, lat, lon float64) (float64, error) {
	rec, err := s.catalog.Get(name)
	if err != nil {
		return 0, err
	}
	g := interp.Grid2D{
		X:      rec.Grid.Lon,
		Y:      rec.Grid.Lat,
		Values: rec.Bottom.Rows(),
		Margin: rec.Grid.DC / 2,
	}
	return g.InterpolateAt(lon, lat)
}

// Stats summarises a product over the named divisions, or the default
// statistics divisions when none are named.
func (s *ProductService) Stats(name string, codes []domain.DivisionCode) (*stats.Result, error) {
	rec, err := s.catalog.Get(name)
	if err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		codes = domain.StatsDivisions
	}
	region, err := s.divisions.Union(codes)
	if err != nil {
		return nil, err
	}
	res := stats.Compute(rec.Bottom, rec.Bathymetry, rec.Grid, region)
	return &res, nil
}

// Divisions lists the division rings.
func (s *ProductService) Divisions() ([]DivisionInfo, error) {
	codes := s.divisions.Codes()
	out := make([]DivisionInfo, 0, len(codes))
	for _, code := range codes {
		v, err := s.divisions.Vertices(code)
		if err != nil {
			return nil, fmt.Errorf("failed to read division %s: %w", code, err)
		}
		out = append(out, DivisionInfo{Code: string(code), Vertices: v})
	}
	return out, nil
}

// Summarize describes rec under name.
func Summarize(name string, rec *domain.ClimatologyRecord) ProductSummary {
	lon0, lon1 := rec.Grid.LonLims()
	lat0, lat1 := rec.Grid.LatLims()
	fs := rec.Bottom.Summarize()
	sum := ProductSummary{
		Name:     name,
		Variable: rec.Variable.String(),
		Season:   rec.Season.String(),
		LonLims:  []float64{lon0, lon1},
		LatLims:  []float64{lat0, lat1},
		DC:       rec.Grid.DC,
		Bins:     rec.Bins.Len(),
		DZ:       rec.Bins.DZ,
		Casts:    len(rec.CastLon),
		Valid:    fs.Valid,
	}
	if fs.Valid > 0 {
		sum.Min, sum.Max, sum.Mean = finite(fs.Min), finite(fs.Max), finite(fs.Mean)
	}
	return sum
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

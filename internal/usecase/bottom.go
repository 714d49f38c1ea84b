package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/adapter/store"
	"go.azmp.io/bottom-fields/internal/adapter/store/climatology"
	"go.azmp.io/bottom-fields/internal/domain"
	"go.azmp.io/bottom-fields/internal/gridding"
)

// ClimatologyRequest describes a multi-year climatology run.
type ClimatologyRequest struct {
	Params     domain.RunParams
	Casts      []string // Globs or explicit paths of the profile dataset.
	Bathymetry string
	// Output is the record path. When empty a content-addressed name is
	// derived in OutputDir.
	Output    string
	OutputDir string
}

// Validate checks the request before any input is read.
func (r *ClimatologyRequest) Validate() error {
	p := r.Params
	if len(r.Casts) == 0 {
		return fmt.Errorf("no profile files given")
	}
	if r.Bathymetry == "" {
		return fmt.Errorf("no bathymetry file given")
	}
	if err := p.Years.Validate(); err != nil {
		return err
	}
	if p.DZ <= 0 {
		return fmt.Errorf("depth bin width must be positive, got %g", p.DZ)
	}
	if p.ZMax <= p.DZ {
		return fmt.Errorf("maximum depth %g must exceed the bin width %g", p.ZMax, p.DZ)
	}
	if p.DC <= 0 {
		return fmt.Errorf("grid spacing must be positive, got %g", p.DC)
	}
	if p.LonMin >= p.LonMax || p.LatMin >= p.LatMax {
		return fmt.Errorf("empty region lon [%g, %g] lat [%g, %g]", p.LonMin, p.LonMax, p.LatMin, p.LatMax)
	}
	return nil
}

// Path returns the record path of the request.
func (r *ClimatologyRequest) Path() string {
	if r.Output != "" {
		return r.Output
	}
	return climatology.DefaultPath(r.OutputDir, r.Params)
}

// YearRequest describes a single-year run on a climatology's grid.
type YearRequest struct {
	Year        int
	Season      domain.Season
	Casts       []string
	Climatology string // Path of the reference record.
}

// YearResult pairs a single-year field with its reference climatology.
type YearResult struct {
	Year        int
	Record      *domain.ClimatologyRecord // Year field on the climatology grid.
	Climatology *domain.ClimatologyRecord
	// Anomaly is year minus climatology where both hold data.
	Anomaly domain.Field
}

// Options tunes the pipeline.
type Options struct {
	StrictSinglePoint bool
	Workers           int
}

// BottomFieldUseCase runs the gridding pipeline against the configured
// inputs and climatology cache.
type BottomFieldUseCase struct {
	casts  store.CastLoader
	bathy  store.BathymetryLoader
	cache  *climatology.Cache
	region domain.Region
	opts   Options
	log    logrus.FieldLogger
}

// NewBottomFieldUseCase creates a new bottom field use case.
func NewBottomFieldUseCase(casts store.CastLoader, bathy store.BathymetryLoader, cache *climatology.Cache, region domain.Region, opts Options, log logrus.FieldLogger) *BottomFieldUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BottomFieldUseCase{
		casts:  casts,
		bathy:  bathy,
		cache:  cache,
		region: region,
		opts:   opts,
		log:    log,
	}
}

func (uc *BottomFieldUseCase) pipeline(strict bool) *gridding.Pipeline {
	return &gridding.Pipeline{
		Region: uc.region,
		Aggregate: gridding.AggregateOptions{
			StrictSinglePoint: strict,
			Workers:           uc.opts.Workers,
		},
		Log: uc.log,
	}
}

// Climatology returns the record for req, computing and persisting it unless
// one already exists at the request's path.
func (uc *BottomFieldUseCase) Climatology(ctx context.Context, req ClimatologyRequest) (*domain.ClimatologyRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid climatology request: %w", err)
	}
	p := req.Params
	p.StrictSinglePoint = p.StrictSinglePoint || uc.opts.StrictSinglePoint
	path := req.Path()

	if rec, ok, err := uc.cache.Lookup(path, p); err != nil || ok {
		return rec, err
	}

	grid, err := domain.GridFromBounds(p.LonMin, p.LonMax, p.LatMin, p.LatMax, p.DC)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}
	uc.log.WithFields(logrus.Fields{
		"lon":   grid.NLon(),
		"lat":   grid.NLat(),
		"dc":    grid.DC,
		"years": fmt.Sprintf("%d-%d", p.Years.First, p.Years.Last),
	}).Info("Building climatology")

	bathy, err := uc.bathy.LoadField(req.Bathymetry, grid)
	if err != nil {
		return nil, fmt.Errorf("failed to load bathymetry: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all, err := uc.casts.Load(req.Casts)
	if err != nil {
		return nil, fmt.Errorf("failed to load casts: %w", err)
	}
	years := p.Years
	kept := gridding.FilterCasts(all, domain.Filter{
		Grid:     grid,
		Season:   p.Season,
		Years:    &years,
		MaxDepth: p.ZMax,
	}, uc.log)

	maxDepth := gridding.MaxDepth(kept)
	if math.IsNaN(maxDepth) {
		uc.log.Warn("No cast survived filtering, the climatology will hold no data")
		maxDepth = p.ZMax
	}
	bins, err := domain.NewDepthBins(p.DZ, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to build depth bins: %w", err)
	}

	res, err := uc.pipeline(p.StrictSinglePoint).Run(ctx, gridding.Inputs{
		Variable:   p.Variable,
		Season:     p.Season,
		Grid:       grid,
		Bathymetry: bathy,
		Bins:       bins,
		Casts:      kept,
	})
	if err != nil {
		return nil, err
	}

	rec := &domain.ClimatologyRecord{
		Variable:   p.Variable,
		Season:     p.Season,
		Bottom:     res.Bottom,
		Grid:       grid,
		Bathymetry: bathy,
		Bins:       bins,
		CastLon:    res.CastLon,
		CastLat:    res.CastLat,
	}
	if err := uc.cache.Store(path, p, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Year grids a single year of casts with the grid, bathymetry and depth bins
// of an existing climatology, and compares the two.
func (uc *BottomFieldUseCase) Year(ctx context.Context, req YearRequest) (*YearResult, error) {
	if req.Climatology == "" {
		return nil, fmt.Errorf("invalid year request: no climatology given")
	}
	if len(req.Casts) == 0 {
		return nil, fmt.Errorf("invalid year request: no profile files given")
	}

	clim, err := uc.cache.Load(req.Climatology)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = errors.Join(err, domain.ErrMissingInput)
		}
		return nil, err
	}
	if clim.Bins.Len() == 0 {
		return nil, fmt.Errorf("climatology %s has no depth bins", req.Climatology)
	}
	uc.log.WithFields(logrus.Fields{
		"year":        req.Year,
		"climatology": req.Climatology,
	}).Info("Building single-year field")

	all, err := uc.casts.Load(req.Casts)
	if err != nil {
		return nil, fmt.Errorf("failed to load casts: %w", err)
	}
	year := domain.Single(req.Year)
	kept := gridding.FilterCasts(all, domain.Filter{
		Grid:     clim.Grid,
		Season:   req.Season,
		Years:    &year,
		MaxDepth: clim.Bins.Centers[clim.Bins.Len()-1],
	}, uc.log)

	res, err := uc.pipeline(uc.opts.StrictSinglePoint).Run(ctx, gridding.Inputs{
		Variable:   clim.Variable,
		Season:     req.Season,
		Grid:       clim.Grid,
		Bathymetry: clim.Bathymetry,
		Bins:       clim.Bins,
		Casts:      kept,
	})
	if err != nil {
		return nil, err
	}

	anomaly, err := res.Bottom.Sub(clim.Bottom)
	if err != nil {
		return nil, fmt.Errorf("failed to compare with climatology: %w", err)
	}
	return &YearResult{
		Year: req.Year,
		Record: &domain.ClimatologyRecord{
			Variable:   clim.Variable,
			Season:     req.Season,
			Bottom:     res.Bottom,
			Grid:       clim.Grid,
			Bathymetry: clim.Bathymetry,
			Bins:       clim.Bins,
			CastLon:    res.CastLon,
			CastLat:    res.CastLat,
		},
		Climatology: clim,
		Anomaly:     anomaly,
	}, nil
}

package gridding

import (
	"context"

	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/domain"
)

// Inputs are the grid-level inputs of one run. Casts must already be filtered.
type Inputs struct {
	Variable   domain.Variable
	Season     domain.Season
	Grid       domain.RegularGrid
	Bathymetry domain.Field
	Bins       domain.DepthBins
	Casts      []domain.Cast
}

// Result is the output of one run.
type Result struct {
	Bottom  domain.Field
	CastLon []float64 // Casts that contributed data.
	CastLat []float64
	Quality BottomQuality
}

// Pipeline runs binning, aggregation, horizontal interpolation, masking and
// bottom extraction in order.
type Pipeline struct {
	Region    domain.Region
	Aggregate AggregateOptions
	Log       logrus.FieldLogger
}

// Run grids in.Casts onto in.Grid. An empty cast set yields an all no-data
// field, not an error.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithFields(logrus.Fields{
		"variable": in.Variable.String(),
		"season":   in.Season.String(),
	})

	binned := BinCasts(in.Casts, in.Variable, in.Bins)
	log.WithFields(logrus.Fields{
		"stage": "binning",
		"casts": binned.Len(),
		"bins":  in.Bins.Len(),
	}).Info("Casts binned")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cube, agg, err := Aggregate(ctx, binned, in.Grid, in.Variable, p.Aggregate)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"stage":        "aggregate",
		"cells":        agg.Filled,
		"occupied":     agg.Occupied,
		"single_point": agg.SinglePoint,
	}).Info("Cube filled")

	if _, err := InterpolateLayers(ctx, cube, in.Grid, p.Aggregate.Workers, log); err != nil {
		return nil, err
	}

	masked := MaskShallow(cube, in.Bathymetry, ShallowLimit)
	log.WithFields(logrus.Fields{"stage": "bathymetry", "cells": masked}).Info("Shallow cells masked")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bottom, q := ExtractBottom(cube, in.Bins, in.Bathymetry)
	log.WithFields(logrus.Fields{
		"stage":   "bottom",
		"near":    q.Near,
		"far":     q.Far,
		"too_far": q.TooFar,
	}).Info("Bottom values extracted")

	if in.Season == domain.SeasonFall && !p.hasExclusion() {
		log.Warn("No exclusion contour configured, fall field is not masked")
	}
	if p.Region != nil {
		MaskDivisions(bottom, in.Grid, in.Season, p.Region, log)
	}

	return &Result{
		Bottom:  bottom,
		CastLon: binned.Lon,
		CastLat: binned.Lat,
		Quality: q,
	}, nil
}

func (p *Pipeline) hasExclusion() bool {
	if p.Region == nil {
		return false
	}
	ex, ok := p.Region.(interface{ HasExclusion() bool })
	return ok && ex.HasExclusion()
}

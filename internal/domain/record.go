package domain

// ClimatologyRecord is the persisted result of a climatology run. It is the
// only entity written to disk and carries everything a single-year run needs
// to be comparable: grid, bathymetry and depth bins.
type ClimatologyRecord struct {
	Variable    Variable
	Season      Season
	Bottom      Field
	Grid        RegularGrid
	Bathymetry  Field
	Bins        DepthBins
	CastLon     []float64 // Locations of the casts that entered the run.
	CastLat     []float64
	Fingerprint string // Hash of the run parameters, empty for foreign records.
}

// RunParams are the parameters that define a climatology product. Two runs
// with equal RunParams produce the same record.
type RunParams struct {
	Variable Variable
	Season   Season
	Years    YearRange
	DZ       float64
	ZMax     float64 // Levels at or below ZMax are dropped.
	DC       float64
	LonMin   float64
	LonMax   float64
	LatMin   float64
	LatMax   float64
	// StrictSinglePoint selects the clean handling of columns with a single
	// good bin (see gridding.AggregateOptions).
	StrictSinglePoint bool
}

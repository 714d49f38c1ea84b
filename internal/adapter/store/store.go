// Package store declares the input and persistence boundaries of the
// gridding pipeline.
package store

import "go.azmp.io/bottom-fields/internal/domain"

// BathymetryLoader resamples a seafloor elevation source onto a grid.
type BathymetryLoader interface {
	// LoadField returns elevation (negative below sea level) at every cell
	// centre of grid. Cells outside the source coverage have no data.
	LoadField(path string, grid domain.RegularGrid) (domain.Field, error)
}

// CastLoader loads profile casts from a multi-file dataset.
type CastLoader interface {
	// Load reads every cast of the file set. Patterns are globs; explicit
	// paths are used as given.
	Load(patterns []string) ([]domain.Cast, error)
}

// RecordStore persists climatology records.
type RecordStore interface {
	// Exists reports whether a record is stored at path.
	Exists(path string) bool
	// Save writes the record to path, replacing any existing file.
	Save(path string, rec *domain.ClimatologyRecord) error
	// Load reads the record at path.
	Load(path string) (*domain.ClimatologyRecord, error)
}

package climatology

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"go.azmp.io/bottom-fields/internal/adapter/store"
	"go.azmp.io/bottom-fields/internal/domain"
	"go.azmp.io/bottom-fields/internal/hash"
)

// Fingerprint returns the content key of a set of run parameters.
func Fingerprint(p domain.RunParams) string {
	return hash.Hash(p)
}

// DefaultPath returns a content-addressed record path in dir for callers that
// do not name the output themselves.
func DefaultPath(dir string, p domain.RunParams) string {
	name := fmt.Sprintf("%s_climato_%s_%d-%d_%s.nc",
		p.Variable.RecordName(), p.Season, p.Years.First, p.Years.Last, hash.Short(p))
	return filepath.Join(dir, name)
}

// Cache memoizes climatology runs by output path. A record found at the path
// is returned as stored; its fingerprint is compared with the requested
// parameters.
type Cache struct {
	store  store.RecordStore
	strict bool
	log    logrus.FieldLogger
}

// NewCache creates a cache over rs. With strict set, a record produced with
// different parameters is rejected with domain.ErrStaleRecord; otherwise it
// is loaded with a warning.
func NewCache(rs store.RecordStore, strict bool, log logrus.FieldLogger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Cache{store: rs, strict: strict, log: log}
}

// Lookup returns the record stored at path, or ok=false when there is none.
// Records without a fingerprint are accepted as is.
func (c *Cache) Lookup(path string, p domain.RunParams) (rec *domain.ClimatologyRecord, ok bool, err error) {
	if path == "" || !c.store.Exists(path) {
		return nil, false, nil
	}
	rec, err = c.store.Load(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cached climatology: %w", err)
	}
	want := Fingerprint(p)
	if rec.Fingerprint != "" && rec.Fingerprint != want {
		if c.strict {
			return nil, false, fmt.Errorf("%s was produced with different parameters: %w", path, domain.ErrStaleRecord)
		}
		c.log.WithFields(logrus.Fields{
			"path":   path,
			"stored": rec.Fingerprint,
			"wanted": want,
		}).Warn("Cached climatology was produced with different parameters, using it anyway")
	}
	c.log.WithField("path", path).Info("Climatology exists, reading directly")
	return rec, true, nil
}

// Store persists rec at path after stamping it with the fingerprint of p.
func (c *Cache) Store(path string, p domain.RunParams, rec *domain.ClimatologyRecord) error {
	rec.Fingerprint = Fingerprint(p)
	if err := c.store.Save(path, rec); err != nil {
		return fmt.Errorf("failed to save climatology to %s: %w", path, err)
	}
	c.log.WithField("path", path).Info("Climatology saved")
	return nil
}

// Load reads the record at path without any fingerprint check.
func (c *Cache) Load(path string) (*domain.ClimatologyRecord, error) {
	rec, err := c.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load climatology: %w", err)
	}
	return rec, nil
}

package climatology

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.azmp.io/bottom-fields/internal/adapter/store"
	"go.azmp.io/bottom-fields/internal/domain"
)

// Catalog serves the records of a product directory by name. A product name
// is the record file name without its .nc suffix.
type Catalog struct {
	dir   string
	store store.RecordStore
	cache map[string]*domain.ClimatologyRecord // Loaded records.
	mu    sync.RWMutex
}

// NewCatalog creates a catalog over dir.
func NewCatalog(dir string, rs store.RecordStore) *Catalog {
	return &Catalog{
		dir:   dir,
		store: rs,
		cache: make(map[string]*domain.ClimatologyRecord),
	}
}

// List returns the product names found in the directory, sorted.
func (c *Catalog) List() ([]string, error) {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("product directory does not exist: %s", c.dir)
	}
	var names []string
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != c.dir {
				return fs.SkipDir
			}
			return nil
		}
		if name, ok := strings.CutSuffix(d.Name(), ".nc"); ok && name != "" {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk product directory: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the named record, loading it on first use.
func (c *Catalog) Get(name string) (*domain.ClimatologyRecord, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid product name %q: %w", name, domain.ErrNotFound)
	}

	c.mu.RLock()
	if rec, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return rec, nil
	}
	c.mu.RUnlock()

	path := filepath.Join(c.dir, name+".nc")
	if !c.store.Exists(path) {
		return nil, fmt.Errorf("product %s: %w", name, domain.ErrNotFound)
	}
	rec, err := c.store.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", name, err)
	}

	c.mu.Lock()
	c.cache[name] = rec
	c.mu.Unlock()
	return rec, nil
}

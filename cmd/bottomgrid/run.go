package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go.azmp.io/bottom-fields/internal/adapter/store/bathymetry"
	"go.azmp.io/bottom-fields/internal/adapter/store/climatology"
	"go.azmp.io/bottom-fields/internal/adapter/store/divisions"
	"go.azmp.io/bottom-fields/internal/adapter/store/profiles"
	"go.azmp.io/bottom-fields/internal/config"
	"go.azmp.io/bottom-fields/internal/domain"
	"go.azmp.io/bottom-fields/internal/gridding"
	"go.azmp.io/bottom-fields/internal/stats"
	"go.azmp.io/bottom-fields/internal/usecase"
)

var climatologyCmd = &cobra.Command{
	Use:   "climatology",
	Short: "Build (or reuse) a multi-year bottom climatology.",
	Long: `climatology grids every cast of the selected years and season and saves
the bottom field with its grid, bathymetry and depth bins. An existing record
at the output path is reused instead of being recomputed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRun()
		if err != nil {
			return err
		}
		uc, err := newUseCase(r)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		req := usecase.ClimatologyRequest{
			Params:     r.Params,
			Casts:      r.Casts,
			Bathymetry: r.Bathymetry,
			Output:     r.Output,
			OutputDir:  r.OutputDir,
		}
		rec, err := uc.Climatology(ctx, req)
		if err != nil {
			return err
		}
		log.WithField("path", req.Path()).Info("Climatology ready")
		printSummary(cmd.OutOrStdout(), "bottom", rec.Bottom)
		fmt.Fprintf(cmd.OutOrStdout(), "casts: %d\n", len(rec.CastLon))
		return nil
	},
}

var yearCmd = &cobra.Command{
	Use:   "year",
	Short: "Grid a single year on a climatology's grid and compare the two.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRun()
		if err != nil {
			return err
		}
		if r.Year == 0 {
			return fmt.Errorf("year is required")
		}
		uc, err := newUseCase(r)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := uc.Year(ctx, usecase.YearRequest{
			Year:        r.Year,
			Season:      r.Params.Season,
			Casts:       r.Casts,
			Climatology: r.Climatology,
		})
		if err != nil {
			return err
		}
		if r.YearOutput != "" {
			if err := climatology.NewNetCDFStore().Save(r.YearOutput, res.Record); err != nil {
				return err
			}
			log.WithField("path", r.YearOutput).Info("Saved single-year field")
		}

		w := cmd.OutOrStdout()
		printSummary(w, fmt.Sprintf("%d", res.Year), res.Record.Bottom)
		printSummary(w, "climatology", res.Climatology.Bottom)
		printSummary(w, "anomaly", res.Anomaly)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise a record over NAFO divisions or the NL shelf.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadRun()
		if err != nil {
			return err
		}
		if r.Climatology == "" {
			return fmt.Errorf("climatology is required")
		}
		rec, err := climatology.NewNetCDFStore().Load(r.Climatology)
		if err != nil {
			return err
		}

		var (
			region geom.Polygonal
			codes  []domain.DivisionCode
		)
		if r.Shelf != "" {
			if region, err = loadShelf(r, rec); err != nil {
				return err
			}
		} else {
			codes = r.Divisions
			if len(codes) == 0 {
				codes = domain.StatsDivisions
			}
			if region, err = divisions.NewCatalog(nil).Union(codes); err != nil {
				return err
			}
		}
		res := stats.Compute(rec.Bottom, rec.Bathymetry, rec.Grid, region)

		e := json.NewEncoder(cmd.OutOrStdout())
		e.SetIndent("", "  ")
		return e.Encode(struct {
			Record    string                `json:"record"`
			Divisions []domain.DivisionCode `json:"divisions,omitempty"`
			Shelf     string                `json:"shelf,omitempty"`
			Stats     stats.Result          `json:"stats"`
		}{r.Climatology, codes, r.Shelf, res})
	},
}

var shelves = divisions.NewShelfStore()

// loadShelf reads the shelf definition, building it on first use from the
// bathymetry file, or the record's own bathymetry, and the coastal contour.
func loadShelf(r *config.Run, rec *domain.ClimatologyRecord) (geom.Polygon, error) {
	return shelves.Get(r.Shelf, func() (geom.Polygon, error) {
		if r.ShelfCoast == "" {
			return nil, fmt.Errorf("shelf-coast is required to build %s", r.Shelf)
		}
		contour, err := divisions.LoadExclusion(r.ShelfCoast)
		if err != nil {
			return nil, err
		}
		coast, err := divisions.OuterRing(contour)
		if err != nil {
			return nil, err
		}

		bathy, grid := rec.Bathymetry, rec.Grid
		if r.Bathymetry != "" {
			p := r.Params
			if grid, err = domain.GridFromBounds(p.LonMin, p.LonMax, p.LatMin, p.LatMax, p.DC); err != nil {
				return nil, err
			}
			if bathy, err = bathymetry.NewLocalStore(log).LoadField(r.Bathymetry, grid); err != nil {
				return nil, err
			}
		}
		log.WithField("path", r.Shelf).Info("Building shelf definition")
		return divisions.BuildShelf(bathy, grid, coast)
	})
}

// loadRun reads the run configuration and resolves the season token,
// warning about tokens that select every month.
func loadRun() (*config.Run, error) {
	r, err := config.FromViper(Cfg)
	if err != nil {
		return nil, err
	}
	r.Params.Season, _ = gridding.ParseSeasonToken(r.SeasonToken, log)
	return r, nil
}

func newUseCase(r *config.Run) (*usecase.BottomFieldUseCase, error) {
	region, err := newRegion(r.Exclusion, log)
	if err != nil {
		return nil, err
	}
	cache := climatology.NewCache(climatology.NewNetCDFStore(), r.StrictCache, log)
	return usecase.NewBottomFieldUseCase(
		profiles.NewReader(log),
		bathymetry.NewLocalStore(log),
		cache,
		region,
		usecase.Options{StrictSinglePoint: r.StrictSinglePoint, Workers: r.Workers},
		log,
	), nil
}

// newRegion builds the division catalog, with the fall exclusion contour
// when a path is given.
func newRegion(exclusion string, log logrus.FieldLogger) (*divisions.Catalog, error) {
	if exclusion == "" {
		return divisions.NewCatalog(nil), nil
	}
	contour, err := divisions.LoadExclusion(exclusion)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusion contour: %w", err)
	}
	log.WithField("path", exclusion).Info("Loaded exclusion contour")
	return divisions.NewCatalog(contour), nil
}

func printSummary(w io.Writer, label string, f domain.Field) {
	s := f.Summarize()
	if s.Valid == 0 {
		fmt.Fprintf(w, "%s: no data\n", label)
		return
	}
	fmt.Fprintf(w, "%s: %d cells, min %.3f, max %.3f, mean %.3f\n",
		label, s.Valid, s.Min, s.Max, s.Mean)
}

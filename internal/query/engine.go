// Package query answers radius queries: cover the circle with geohash ranges,
// scan them concurrently, join metadata and keep exact haversine matches.
package query

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/core/observability"
	"github.com/mohammed-shakir/geoitems/internal/geocode"
	"github.com/mohammed-shakir/geoitems/internal/geohash"
)

const (
	DefaultRadiusMeters   = 5000.0
	DefaultScanWorkers    = 16
	DefaultGeocodeTimeout = 3 * time.Second
	DefaultStoreOpTimeout = time.Second
)

// Request locates a query either by Address or by Center. When both are set
// the address is used. A nil RadiusMeters means DefaultRadiusMeters.
type Request struct {
	Address      string
	Center       *model.Point
	RadiusMeters *float64
}

type Scanner interface {
	ScanRange(ctx context.Context, p model.PartitionKey, start, end model.Geohash) iter.Seq2[model.IndexEntry, error]
}

type MetadataReader interface {
	GetMany(ctx context.Context, ids []model.ItemID) (map[model.ItemID]model.ItemMetadata, error)
}

// Zero fields take the package defaults.
type Config struct {
	DefaultRadiusMeters float64
	ScanWorkers         int
	GeocodeTimeout      time.Duration
	StoreOpTimeout      time.Duration
}

type Engine struct {
	log      *slog.Logger
	cfg      Config
	geocoder geocode.Geocoder
	coverer  *geohash.Coverer
	index    Scanner
	meta     MetadataReader
}

func New(
	log *slog.Logger,
	cfg Config,
	geocoder geocode.Geocoder,
	coverer *geohash.Coverer,
	index Scanner,
	meta MetadataReader,
) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.DefaultRadiusMeters <= 0 {
		cfg.DefaultRadiusMeters = DefaultRadiusMeters
	}
	if cfg.ScanWorkers <= 0 {
		cfg.ScanWorkers = DefaultScanWorkers
	}
	if cfg.GeocodeTimeout <= 0 {
		cfg.GeocodeTimeout = DefaultGeocodeTimeout
	}
	if cfg.StoreOpTimeout <= 0 {
		cfg.StoreOpTimeout = DefaultStoreOpTimeout
	}
	return &Engine{
		log:      log,
		cfg:      cfg,
		geocoder: geocoder,
		coverer:  coverer,
		index:    index,
		meta:     meta,
	}
}

// Query returns every stored item within the radius, ordered by id.
// A scan failure or cancellation fails the whole query.
func (e *Engine) Query(ctx context.Context, req Request) ([]model.Item, error) {
	center, radius, err := e.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	ids, err := e.candidates(ctx, center, radius)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.Item{}, nil
	}

	metas, err := e.meta.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	if orphans := len(ids) - len(metas); orphans > 0 {
		observability.AddOrphanEntries(orphans)
		e.log.DebugContext(ctx, "skipping index entries without metadata", "count", orphans)
	}

	out := make([]model.Item, 0, len(metas))
	for _, id := range ids {
		m, ok := metas[id]
		if !ok {
			continue
		}
		if geohash.Haversine(center, m.Point) > radius {
			continue
		}
		out = append(out, model.Item{ID: m.ID, Name: m.Name, Address: m.Address, Point: m.Point})
	}
	return out, nil
}

// Candidates returns the deduplicated ids found by the range scans, before
// the metadata join and distance filter, ordered by id.
func (e *Engine) Candidates(ctx context.Context, req Request) ([]model.ItemID, error) {
	center, radius, err := e.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.candidates(ctx, center, radius)
}

func (e *Engine) resolve(ctx context.Context, req Request) (model.Point, float64, error) {
	radius := e.cfg.DefaultRadiusMeters
	if req.RadiusMeters != nil {
		radius = *req.RadiusMeters
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return model.Point{}, 0, fmt.Errorf("%w: radius %v must be a finite non-negative number",
			model.ErrInvalidInput, radius)
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		if req.Center == nil {
			return model.Point{}, 0, model.ErrInvalidQuery
		}
		p, err := model.NewPoint(req.Center.Lat, req.Center.Lng)
		if err != nil {
			return model.Point{}, 0, fmt.Errorf("%w: %w", model.ErrInvalidQuery, err)
		}
		return p, radius, nil
	}

	if req.Center != nil {
		e.log.WarnContext(ctx, "both address and coordinates supplied, using address")
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.GeocodeTimeout)
	defer cancel()
	p, found, err := e.geocoder.Geocode(gctx, address)
	if err != nil {
		return model.Point{}, 0, fmt.Errorf("%w: %w", model.ErrGeocodeFailure, err)
	}
	if !found {
		return model.Point{}, 0, fmt.Errorf("%w: no match for address", model.ErrInvalidQuery)
	}
	return p, radius, nil
}

func (e *Engine) candidates(ctx context.Context, center model.Point, radius float64) ([]model.ItemID, error) {
	ranges, err := e.coverer.Cover(center, radius)
	if err != nil {
		return nil, err
	}

	found := make([][]model.ItemID, len(ranges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.ScanWorkers)
	for i, r := range ranges {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, e.cfg.StoreOpTimeout)
			defer cancel()
			for entry, err := range e.index.ScanRange(sctx, r.Partition, r.Start, r.End) {
				if err != nil {
					return err
				}
				found[i] = append(found[i], entry.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ids []model.ItemID
	for _, f := range found {
		ids = append(ids, f...)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	observability.ObserveQuery(len(ranges), len(ids))
	e.log.DebugContext(ctx, "radius scan",
		"center", center.String(), "radius_m", radius, "ranges", len(ranges), "candidates", len(ids))
	return ids, nil
}

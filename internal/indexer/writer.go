// Package indexer creates items: it geocodes the address, then writes the
// geo index entry followed by the metadata record.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/core/observability"
	"github.com/mohammed-shakir/geoitems/internal/events"
	"github.com/mohammed-shakir/geoitems/internal/geocode"
	"github.com/mohammed-shakir/geoitems/internal/geohash"
	"github.com/mohammed-shakir/geoitems/internal/itemid"
)

const (
	DefaultGeocodeTimeout = 3 * time.Second
	DefaultStoreOpTimeout = 500 * time.Millisecond
)

type IndexWriter interface {
	Put(ctx context.Context, e model.IndexEntry) error
}

type MetadataWriter interface {
	Put(ctx context.Context, m model.ItemMetadata) error
}

type EventSink interface {
	Publish(ev events.ItemCreated)
}

type Config struct {
	GeocodeTimeout time.Duration
	StoreOpTimeout time.Duration
}

type Writer struct {
	log      *slog.Logger
	geocoder geocode.Geocoder
	coverer  *geohash.Coverer
	index    IndexWriter
	meta     MetadataWriter
	sink     EventSink
	cfg      Config

	newID func() model.ItemID // for tests
	now   func() time.Time
}

// New wires a Writer. sink may be nil when event publication is disabled.
func New(
	log *slog.Logger,
	cfg Config,
	geocoder geocode.Geocoder,
	coverer *geohash.Coverer,
	index IndexWriter,
	meta MetadataWriter,
	sink EventSink,
) *Writer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.GeocodeTimeout <= 0 {
		cfg.GeocodeTimeout = DefaultGeocodeTimeout
	}
	if cfg.StoreOpTimeout <= 0 {
		cfg.StoreOpTimeout = DefaultStoreOpTimeout
	}
	return &Writer{
		log:      log,
		geocoder: geocoder,
		coverer:  coverer,
		index:    index,
		meta:     meta,
		sink:     sink,
		cfg:      cfg,
		newID:    itemid.New,
		now:      time.Now,
	}
}

// CreateItem returns the new item's id. Once the index write has been issued
// the caller's cancellation no longer applies. A metadata failure after a
// successful index write leaves an orphan entry and still returns the id.
func (w *Writer) CreateItem(ctx context.Context, name, address string) (model.ItemID, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" {
		return "", fmt.Errorf("%w: name and address are required", model.ErrInvalidInput)
	}

	pt, err := w.resolve(ctx, address)
	if err != nil {
		return "", err
	}

	id := w.newID()
	entry, err := w.coverer.Entry(pt, id)
	if err != nil {
		return "", err
	}

	wctx := context.WithoutCancel(ctx)

	if err := w.put(wctx, func(c context.Context) error { return w.index.Put(c, entry) }); err != nil {
		w.log.ErrorContext(ctx, "index write failed", "id", string(id), "err", err)
		return "", asStoreFailure(err)
	}

	meta := model.ItemMetadata{
		ID:      id,
		Name:    name,
		Address: address,
		Point:   pt,
		Geohash: entry.Geohash,
	}
	if err := w.put(wctx, func(c context.Context) error { return w.meta.Put(c, meta) }); err != nil {
		observability.IncOrphanWrite()
		w.log.WarnContext(ctx, "metadata write failed, index entry orphaned",
			"id", string(id), "partition", uint64(entry.Partition), "err", err)
		return id, nil
	}

	if w.sink != nil {
		w.sink.Publish(events.NewItemCreated(meta, w.now()))
	}

	w.log.DebugContext(ctx, "item created",
		"id", string(id), "partition", uint64(entry.Partition), "geohash", uint64(entry.Geohash))
	return id, nil
}

func (w *Writer) resolve(ctx context.Context, address string) (model.Point, error) {
	gctx, cancel := context.WithTimeout(ctx, w.cfg.GeocodeTimeout)
	defer cancel()

	pt, found, err := w.geocoder.Geocode(gctx, address)
	if err != nil {
		return model.Point{}, fmt.Errorf("%w: %w", model.ErrGeocodeFailure, err)
	}
	if !found {
		return model.Point{}, fmt.Errorf("%w: no match for address", model.ErrGeocodeFailure)
	}
	return pt, nil
}

func (w *Writer) put(ctx context.Context, op func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, w.cfg.StoreOpTimeout)
	defer cancel()
	return op(c)
}

func asStoreFailure(err error) error {
	if errors.Is(err, model.ErrStoreFailure) || errors.Is(err, model.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrStoreFailure, err)
}

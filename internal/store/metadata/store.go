// Package metadata stores ItemMetadata records keyed by ItemID.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/store/keys"
	"github.com/mohammed-shakir/geoitems/internal/store/redisstore"
)

const DefaultBatchSize = 256

type record struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Geohash uint64  `json:"geohash"`
}

type Store struct {
	cli          *redisstore.Client
	table        string
	batch        int
	batchTimeout time.Duration

	mget func(ctx context.Context, keys []string) (map[string][]byte, error)
}

type Option func(*Store)

// WithBatchTimeout bounds each MGET batch of GetMany separately; zero leaves only the caller's deadline.
func WithBatchTimeout(d time.Duration) Option {
	return func(s *Store) { s.batchTimeout = d }
}

func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batch = n
		}
	}
}

func New(cli *redisstore.Client, table string, opts ...Option) *Store {
	s := &Store{cli: cli, table: table, batch: DefaultBatchSize}
	for _, o := range opts {
		o(s)
	}
	s.mget = cli.MGet
	return s
}

// Put writes the record once; a retried put for an existing id succeeds without rewriting.
func (s *Store) Put(ctx context.Context, m model.ItemMetadata) error {
	if strings.TrimSpace(string(m.ID)) == "" {
		return fmt.Errorf("%w: metadata without id", model.ErrInvalidInput)
	}
	body, err := json.Marshal(record{
		ID:      string(m.ID),
		Name:    m.Name,
		Address: m.Address,
		Lat:     m.Point.Lat,
		Lng:     m.Point.Lng,
		Geohash: uint64(m.Geohash),
	})
	if err != nil {
		return fmt.Errorf("metadata encode %q: %w", m.ID, err)
	}
	if _, err := s.cli.SetNX(ctx, keys.MetadataKey(s.table, m.ID), body); err != nil {
		return fmt.Errorf("%w: metadata put %q: %w", model.ErrStoreFailure, m.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id model.ItemID) (model.ItemMetadata, bool, error) {
	raw, ok, err := s.cli.Get(ctx, keys.MetadataKey(s.table, id))
	if err != nil {
		return model.ItemMetadata{}, false, fmt.Errorf("%w: metadata get %q: %w", model.ErrStoreFailure, id, err)
	}
	if !ok {
		return model.ItemMetadata{}, false, nil
	}
	m, ok := decode(raw)
	return m, ok, nil
}

// GetMany returns the records that exist; missing or unreadable ids are absent from the map.
func (s *Store) GetMany(ctx context.Context, ids []model.ItemID) (map[model.ItemID]model.ItemMetadata, error) {
	out := make(map[model.ItemID]model.ItemMetadata, len(ids))
	for start := 0; start < len(ids); start += s.batch {
		end := min(start+s.batch, len(ids))
		chunk := ids[start:end]

		ks := make([]string, len(chunk))
		for i, id := range chunk {
			ks[i] = keys.MetadataKey(s.table, id)
		}
		raw, err := s.mgetBatch(ctx, ks)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata mget %d ids: %w", model.ErrStoreFailure, len(chunk), err)
		}
		for i, id := range chunk {
			b, ok := raw[ks[i]]
			if !ok {
				continue
			}
			if m, ok := decode(b); ok && m.ID == id {
				out[id] = m
			}
		}
	}
	return out, nil
}

func (s *Store) mgetBatch(ctx context.Context, ks []string) (map[string][]byte, error) {
	if s.batchTimeout <= 0 {
		return s.mget(ctx, ks)
	}
	bctx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()
	return s.mget(bctx, ks)
}

func decode(b []byte) (model.ItemMetadata, bool) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return model.ItemMetadata{}, false
	}
	p, err := model.NewPoint(r.Lat, r.Lng)
	if err != nil {
		return model.ItemMetadata{}, false
	}
	return model.ItemMetadata{
		ID:      model.ItemID(r.ID),
		Name:    r.Name,
		Address: r.Address,
		Point:   p,
		Geohash: model.Geohash(r.Geohash),
	}, true
}

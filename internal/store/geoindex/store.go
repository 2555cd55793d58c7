// Package geoindex stores IndexEntry rows as one Redis sorted set per partition,
// scored by geohash.
package geoindex

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/store/keys"
	"github.com/mohammed-shakir/geoitems/internal/store/redisstore"
)

const DefaultPageSize = 500

type Store struct {
	cli      *redisstore.Client
	table    string
	pageSize int64
}

func New(cli *redisstore.Client, table string, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{cli: cli, table: table, pageSize: int64(pageSize)}
}

// Put is idempotent: re-adding the same entry leaves the set unchanged.
func (s *Store) Put(ctx context.Context, e model.IndexEntry) error {
	if strings.TrimSpace(string(e.ID)) == "" {
		return fmt.Errorf("%w: index entry without id", model.ErrInvalidInput)
	}
	key := keys.IndexKey(s.table, e.Partition)
	if err := s.cli.ZAdd(ctx, key, redisstore.Member{Name: string(e.ID), Score: uint64(e.Geohash)}); err != nil {
		return fmt.Errorf("%w: geoindex put %q: %w", model.ErrStoreFailure, e.ID, err)
	}
	return nil
}

// ScanRange lazily yields entries of one partition with start <= geohash <= end,
// in geohash order. Pages are fetched by offset; concurrent inserts can make an
// entry appear twice but never hide one, since entries are never removed.
func (s *Store) ScanRange(
	ctx context.Context,
	p model.PartitionKey,
	start, end model.Geohash,
) iter.Seq2[model.IndexEntry, error] {
	return func(yield func(model.IndexEntry, error) bool) {
		if end < start {
			return
		}
		key := keys.IndexKey(s.table, p)
		var offset int64
		for {
			if err := ctx.Err(); err != nil {
				yield(model.IndexEntry{}, err)
				return
			}
			page, err := s.cli.ZRangeByScore(ctx, key, uint64(start), uint64(end), offset, s.pageSize)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("%w: geoindex scan partition %d: %w", model.ErrStoreFailure, p, err)
				}
				yield(model.IndexEntry{}, err)
				return
			}
			for _, m := range page {
				e := model.IndexEntry{Partition: p, Geohash: model.Geohash(m.Score), ID: model.ItemID(m.Name)}
				if !yield(e, nil) {
					return
				}
			}
			if int64(len(page)) < s.pageSize {
				return
			}
			offset += int64(len(page))
		}
	}
}

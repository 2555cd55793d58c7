package geoindex

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/store/keys"
	"github.com/mohammed-shakir/geoitems/internal/store/redisstore"
)

func newMini(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	cli, err := redisstore.New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })

	return cli, mr
}

func collect(t *testing.T, s *Store, ctx context.Context, p model.PartitionKey, start, end model.Geohash) []model.IndexEntry {
	t.Helper()
	var out []model.IndexEntry
	for e, err := range s.ScanRange(ctx, p, start, end) {
		if err != nil {
			t.Fatalf("ScanRange: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestPut_ScanRange_OrderedWithinPartition(t *testing.T) {
	cli, mr := newMini(t)
	s := New(cli, "items", 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	entries := []model.IndexEntry{
		{Partition: 7, Geohash: 700, ID: "c"},
		{Partition: 7, Geohash: 100, ID: "a"},
		{Partition: 7, Geohash: 300, ID: "b"},
		{Partition: 7, Geohash: 900, ID: "d"},
		{Partition: 8, Geohash: 300, ID: "other"},
	}
	for _, e := range entries {
		if err := s.Put(ctx, e); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if !mr.Exists(keys.IndexKey("items", 7)) || !mr.Exists(keys.IndexKey("items", 8)) {
		t.Fatal("expected one sorted set per partition")
	}

	got := collect(t, s, ctx, 7, 100, 700)
	want := []model.ItemID{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries want %d: %+v", len(got), len(want), got)
	}
	for i, e := range got {
		if e.ID != want[i] || e.Partition != 7 {
			t.Fatalf("entry %d = %+v want id %s", i, e, want[i])
		}
	}
}

func TestPut_IsIdempotent(t *testing.T) {
	cli, mr := newMini(t)
	s := New(cli, "items", 0)
	ctx := context.Background()

	e := model.IndexEntry{Partition: 1, Geohash: 42, ID: "dup"}
	for range 3 {
		if err := s.Put(ctx, e); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	members, err := mr.ZMembers(keys.IndexKey("items", 1))
	if err != nil {
		t.Fatalf("ZMembers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("members=%v want one", members)
	}
}

func TestPut_RejectsEmptyID(t *testing.T) {
	cli, _ := newMini(t)
	s := New(cli, "items", 0)
	if err := s.Put(context.Background(), model.IndexEntry{Partition: 1, Geohash: 1}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestScanRange_PagesThroughLargePartition(t *testing.T) {
	cli, _ := newMini(t)
	s := New(cli, "items", 7)
	ctx := context.Background()

	for i := range 50 {
		e := model.IndexEntry{Partition: 3, Geohash: model.Geohash(i), ID: model.ItemID(fmt.Sprintf("id-%02d", i))}
		if err := s.Put(ctx, e); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	got := collect(t, s, ctx, 3, 0, 49)
	if len(got) != 50 {
		t.Fatalf("got %d entries want 50", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Geohash < got[i-1].Geohash {
			t.Fatalf("entries out of order at %d", i)
		}
	}
}

func TestScanRange_StopsWhenConsumerBreaks(t *testing.T) {
	cli, _ := newMini(t)
	s := New(cli, "items", 1)
	ctx := context.Background()
	for i := range 5 {
		_ = s.Put(ctx, model.IndexEntry{Partition: 0, Geohash: model.Geohash(i), ID: model.ItemID(fmt.Sprint(i))})
	}
	n := 0
	for _, err := range s.ScanRange(ctx, 0, 0, 10) {
		if err != nil {
			t.Fatalf("ScanRange: %v", err)
		}
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("n=%d", n)
	}
}

func TestScanRange_EmptyAndInvertedRanges(t *testing.T) {
	cli, _ := newMini(t)
	s := New(cli, "items", 0)
	ctx := context.Background()
	if got := collect(t, s, ctx, 99, 0, 1<<40); len(got) != 0 {
		t.Fatalf("empty partition returned %v", got)
	}
	_ = s.Put(ctx, model.IndexEntry{Partition: 1, Geohash: 5, ID: "x"})
	if got := collect(t, s, ctx, 1, 10, 1); len(got) != 0 {
		t.Fatalf("inverted range returned %v", got)
	}
}

func TestScanRange_CanceledContext(t *testing.T) {
	cli, _ := newMini(t)
	s := New(cli, "items", 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range s.ScanRange(ctx, 1, 0, 10) {
		gotErr = err
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", gotErr)
	}
}

func TestScanRange_StoreFailure(t *testing.T) {
	cli, mr := newMini(t)
	s := New(cli, "items", 0)
	mr.SetError("ERR injected read failure")

	var gotErr error
	for _, err := range s.ScanRange(context.Background(), 1, 0, 10) {
		gotErr = err
	}
	if !errors.Is(gotErr, model.ErrStoreFailure) {
		t.Fatalf("want ErrStoreFailure, got %v", gotErr)
	}
}

package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestNew_RequiresAddr(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestZAdd_ZRangeByScore_PagesInScoreOrder(t *testing.T) {
	rc, _ := newMini(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	big := uint64(1)<<52 - 3
	for _, m := range []Member{{"c", 30}, {"a", 10}, {"b", 20}, {"z", big}, {"out", 99}} {
		if err := rc.ZAdd(ctx, "zs", m); err != nil {
			t.Fatalf("ZAdd: %v", err)
		}
	}
	// idempotent re-add
	if err := rc.ZAdd(ctx, "zs", Member{"a", 10}); err != nil {
		t.Fatalf("ZAdd again: %v", err)
	}

	page, err := rc.ZRangeByScore(ctx, "zs", 10, 30, 0, 2)
	if err != nil {
		t.Fatalf("ZRangeByScore: %v", err)
	}
	if len(page) != 2 || page[0].Name != "a" || page[1].Name != "b" {
		t.Fatalf("first page=%+v", page)
	}
	page, err = rc.ZRangeByScore(ctx, "zs", 10, 30, 2, 2)
	if err != nil {
		t.Fatalf("ZRangeByScore: %v", err)
	}
	if len(page) != 1 || page[0].Name != "c" || page[0].Score != 30 {
		t.Fatalf("second page=%+v", page)
	}

	page, err = rc.ZRangeByScore(ctx, "zs", big, big, 0, 10)
	if err != nil {
		t.Fatalf("ZRangeByScore: %v", err)
	}
	if len(page) != 1 || page[0].Score != big {
		t.Fatalf("52-bit score not preserved: %+v", page)
	}
}

func TestSetNX_Get_MGet(t *testing.T) {
	rc, _ := newMini(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	wrote, err := rc.SetNX(ctx, "k1", []byte("v1"))
	if err != nil || !wrote {
		t.Fatalf("SetNX first: wrote=%v err=%v", wrote, err)
	}
	wrote, err = rc.SetNX(ctx, "k1", []byte("other"))
	if err != nil || wrote {
		t.Fatalf("SetNX second: wrote=%v err=%v", wrote, err)
	}

	v, ok, err := rc.Get(ctx, "k1")
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}
	if _, ok, err := rc.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	got, err := rc.MGet(ctx, []string{"k1", "missing"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 1 || string(got["k1"]) != "v1" {
		t.Fatalf("MGet=%v", got)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.ZAdd(ctx, "k", Member{"m", 1}); err == nil {
		t.Fatalf("expected error on ZAdd with canceled context")
	}
	if _, err := rc.ZRangeByScore(ctx, "k", 0, 1, 0, 1); err == nil {
		t.Fatalf("expected error on ZRangeByScore with canceled context")
	}
	if _, err := rc.MGet(ctx, []string{"k"}); err == nil {
		t.Fatalf("expected error on MGet with canceled context")
	}
}

func TestMetrics_Incremented(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = rc.ZAdd(ctx, "m1", Member{"x", 1})
	_, _ = rc.MGet(ctx, []string{"m1"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `store_op_total{op="zadd"`) ||
		!strings.Contains(body, `store_op_total{op="mget"`) {
		t.Fatalf("missing store_op_total metrics; got:\n%s", body)
	}
	if !strings.Contains(body, `store_op_duration_seconds_bucket{op="zadd"`) {
		t.Fatalf("missing store_op_duration_seconds histogram; got:\n%s", body)
	}
}

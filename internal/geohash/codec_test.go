package geohash

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
)

func mustPoint(t *testing.T, lat, lng float64) model.Point {
	t.Helper()
	p, err := model.NewPoint(lat, lng)
	if err != nil {
		t.Fatalf("NewPoint(%v,%v): %v", lat, lng, err)
	}
	return p
}

func TestEncode_PrecisionOne_Quadrants(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     model.Geohash
	}{
		{-10, -10, 0b00},
		{10, -10, 0b01},
		{-10, 10, 0b10},
		{10, 10, 0b11},
		{0, 0, 0b11},
		{90, 180, 0b11},
		{-90, -180, 0b00},
	}
	for _, tc := range cases {
		got, err := Encode(mustPoint(t, tc.lat, tc.lng), 1)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if got != tc.want {
			t.Fatalf("Encode(%v,%v,1)=%02b want %02b", tc.lat, tc.lng, got, tc.want)
		}
	}
}

func TestEncode_RejectsBadPrecision(t *testing.T) {
	p := mustPoint(t, 1, 1)
	for _, prec := range []int{0, -1, MaxPrecision + 1} {
		if _, err := Encode(p, prec); !errors.Is(err, model.ErrInvalidInput) {
			t.Fatalf("precision %d: want ErrInvalidInput, got %v", prec, err)
		}
	}
}

func TestDecodeBoundingBox_ContainsEncodedPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for prec := MinPrecision; prec <= MaxPrecision; prec++ {
		for range 200 {
			p := mustPoint(t, rng.Float64()*180-90, rng.Float64()*360-180)
			h, err := Encode(p, prec)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if uint64(h)>>(2*prec) != 0 {
				t.Fatalf("hash %d wider than %d bits", h, 2*prec)
			}
			box, err := DecodeBoundingBox(h, prec)
			if err != nil {
				t.Fatalf("DecodeBoundingBox: %v", err)
			}
			if !box.Contains(p) {
				t.Fatalf("precision %d: box %+v does not contain %v", prec, box, p)
			}
		}
	}
}

func TestDecodeBoundingBox_CellSizeHalvesPerBit(t *testing.T) {
	box, err := DecodeBoundingBox(0, 2)
	if err != nil {
		t.Fatalf("DecodeBoundingBox: %v", err)
	}
	// bits: lng lo, lat lo, lng lo, lat lo
	want := Box{MinLat: -90, MaxLat: -45, MinLng: -180, MaxLng: -90}
	if box != want {
		t.Fatalf("box=%+v want %+v", box, want)
	}
}

func TestDecodeBoundingBox_RejectsOversizedHash(t *testing.T) {
	if _, err := DecodeBoundingBox(model.Geohash(1<<10), 5); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestPartition_IsHashPrefix(t *testing.T) {
	p := mustPoint(t, 40.7128, -74.0060)
	h, err := Encode(p, 26)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	part, err := Partition(h, 26, 10)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	coarse, err := Encode(p, 5)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if uint64(part) != uint64(coarse) {
		t.Fatalf("partition=%d want coarse hash %d", part, coarse)
	}
	if _, err := Partition(h, 26, 53); err == nil {
		t.Fatal("expected error for partition bits wider than hash")
	}
}

func TestHaversine_MatchesOrb(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		a := mustPoint(t, rng.Float64()*180-90, rng.Float64()*360-180)
		b := mustPoint(t, rng.Float64()*180-90, rng.Float64()*360-180)
		got := Haversine(a, b)
		want := geo.DistanceHaversine(orb.Point{a.Lng, a.Lat}, orb.Point{b.Lng, b.Lat})
		if math.Abs(got-want) > 1e-6*math.Max(1, want) {
			t.Fatalf("Haversine(%v,%v)=%f orb=%f", a, b, got, want)
		}
	}
}

func TestHaversine_KnownDistances(t *testing.T) {
	ny := mustPoint(t, 40.7128, -74.0060)
	la := mustPoint(t, 34.0522, -118.2437)
	if d := Haversine(ny, ny); d != 0 {
		t.Fatalf("self distance=%f", d)
	}
	if d := Haversine(ny, la); d < 3.9e6 || d > 4.0e6 {
		t.Fatalf("NY-LA distance=%f outside expected band", d)
	}
}

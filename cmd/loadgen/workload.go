package main

import (
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strconv"
)

// query is one radius lookup in the pool
type query struct {
	Lat, Lng float64
	RadiusM  float64
}

func (q query) String() string {
	return fmt.Sprintf("%.5f,%.5f@%.0fm", q.Lat, q.Lng, q.RadiusM)
}

func (q query) values() url.Values {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(q.Lat, 'f', 6, 64))
	v.Set("lng", strconv.FormatFloat(q.Lng, 'f', 6, 64))
	v.Set("radius", strconv.FormatFloat(q.RadiusM, 'f', 0, 64))
	return v
}

var hubs = [][2]float64{
	{40.7128, -74.0060},  // New York
	{34.0522, -118.2437}, // Los Angeles
	{41.8781, -87.6298},  // Chicago
	{29.7604, -95.3698},  // Houston
}

var radii = []float64{500, 2000, 5000, 25000}

// makeQueries builds a pool whose first quarter (at least 8) sits around hubs;
// the rest are scattered over the continental US.
func makeQueries(count int, r *rand.Rand) []query {
	if count <= 0 {
		return nil
	}
	out := make([]query, 0, count)
	hot := min(count, int(math.Max(8, float64(count/4))))

	for i := range hot {
		h := hubs[i%len(hubs)]
		out = append(out, query{
			Lat:     h[0] + (r.Float64()-0.5)*0.2,
			Lng:     h[1] + (r.Float64()-0.5)*0.2,
			RadiusM: radii[r.Intn(len(radii))],
		})
	}
	for len(out) < count {
		out = append(out, query{
			Lat:     25 + r.Float64()*(49-25),
			Lng:     -124 + r.Float64()*(124-67),
			RadiusM: radii[r.Intn(len(radii))],
		})
	}
	return out
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}

// Package geohash encodes coordinates into an interleaved integer key space
// and computes the key-space ranges that cover a query circle.
//
// Precision is counted in bits per axis, so a hash of precision p occupies
// the low 2p bits of a uint64. Longitude takes the first (most significant)
// bit of every pair. At the maximum precision of 26 a hash fits in 52 bits,
// which a Redis sorted-set score represents exactly.
package geohash

import (
	"fmt"
	"math"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
)

const (
	MinPrecision = 1
	MaxPrecision = 26

	// EarthRadiusMeters matches orb.EarthRadius.
	EarthRadiusMeters = 6378137.0
)

// Box is a closed latitude/longitude rectangle that never crosses the antimeridian.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

var World = Box{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}

func (b Box) Contains(p model.Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

func (b Box) Intersects(o Box) bool {
	return b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat &&
		b.MinLng <= o.MaxLng && b.MaxLng >= o.MinLng
}

// Within reports whether b lies entirely inside o.
func (b Box) Within(o Box) bool {
	return b.MinLat >= o.MinLat && b.MaxLat <= o.MaxLat &&
		b.MinLng >= o.MinLng && b.MaxLng <= o.MaxLng
}

// split halves the box along the axis that owns bit number depth.
func (b Box) split(depth int) (lo, hi Box) {
	lo, hi = b, b
	if depth%2 == 0 {
		mid := (b.MinLng + b.MaxLng) / 2
		lo.MaxLng, hi.MinLng = mid, mid
	} else {
		mid := (b.MinLat + b.MaxLat) / 2
		lo.MaxLat, hi.MinLat = mid, mid
	}
	return lo, hi
}

func ValidatePrecision(precision int) error {
	if precision < MinPrecision || precision > MaxPrecision {
		return fmt.Errorf("%w: geohash precision %d outside [%d,%d]",
			model.ErrInvalidInput, precision, MinPrecision, MaxPrecision)
	}
	return nil
}

// Encode interleaves precision bits of longitude and latitude.
func Encode(p model.Point, precision int) (model.Geohash, error) {
	if err := ValidatePrecision(precision); err != nil {
		return 0, err
	}
	minLat, maxLat := -90.0, 90.0
	minLng, maxLng := -180.0, 180.0

	var h uint64
	for i := 0; i < 2*precision; i++ {
		h <<= 1
		if i%2 == 0 {
			mid := (minLng + maxLng) / 2
			if p.Lng >= mid {
				h |= 1
				minLng = mid
			} else {
				maxLng = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if p.Lat >= mid {
				h |= 1
				minLat = mid
			} else {
				maxLat = mid
			}
		}
	}
	return model.Geohash(h), nil
}

// DecodeBoundingBox returns the cell a hash of the given precision represents.
func DecodeBoundingBox(h model.Geohash, precision int) (Box, error) {
	if err := ValidatePrecision(precision); err != nil {
		return Box{}, err
	}
	bits := 2 * precision
	if uint64(h)>>bits != 0 {
		return Box{}, fmt.Errorf("%w: geohash %d exceeds %d bits", model.ErrInvalidInput, h, bits)
	}
	return cellBox(uint64(h), bits), nil
}

// cellBox replays the first depth bits of prefix (which holds exactly depth bits).
func cellBox(prefix uint64, depth int) Box {
	b := World
	for i := 0; i < depth; i++ {
		lo, hi := b.split(i)
		if prefix>>(depth-1-i)&1 == 1 {
			b = hi
		} else {
			b = lo
		}
	}
	return b
}

// Partition returns the leading partitionBits bits of h.
func Partition(h model.Geohash, precision, partitionBits int) (model.PartitionKey, error) {
	if err := ValidatePartitionBits(precision, partitionBits); err != nil {
		return 0, err
	}
	return model.PartitionKey(uint64(h) >> (2*precision - partitionBits)), nil
}

func ValidatePartitionBits(precision, partitionBits int) error {
	if err := ValidatePrecision(precision); err != nil {
		return err
	}
	if partitionBits < 1 || partitionBits > 2*precision {
		return fmt.Errorf("%w: partition bits %d outside [1,%d]",
			model.ErrInvalidInput, partitionBits, 2*precision)
	}
	return nil
}

// Haversine returns the great-circle distance in meters.
func Haversine(a, b model.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if s > 1 {
		s = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(s))
}

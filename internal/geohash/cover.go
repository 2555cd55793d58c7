package geohash

import (
	"fmt"
	"math"
	"sort"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
)

const (
	DefaultMaxCells = 128
	MinMaxCells     = 4

	// A radius wider than one partition scans every partition it touches, so a
	// world-sized query issues 1<<partitionBits range scans.
	MaxPartitionBits = 16

	// pads the circle box by about a centimetre so boundary points survive rounding
	boundsPadDeg = 1e-7
)

// Range is an inclusive geohash interval inside a single partition.
type Range struct {
	Partition model.PartitionKey
	Start     model.Geohash
	End       model.Geohash
}

func (r Range) Contains(h model.Geohash) bool {
	return h >= r.Start && h <= r.End
}

type CoverConfig struct {
	Precision     int
	PartitionBits int
	// MaxCells bounds refinement; partial cells left at the limit are emitted whole.
	MaxCells int
}

type Coverer struct {
	precision     int
	partitionBits int
	maxCells      int
}

func NewCoverer(cfg CoverConfig) (*Coverer, error) {
	if err := ValidatePartitionBits(cfg.Precision, cfg.PartitionBits); err != nil {
		return nil, err
	}
	if cfg.PartitionBits > MaxPartitionBits {
		return nil, fmt.Errorf("%w: partition bits %d above %d",
			model.ErrInvalidInput, cfg.PartitionBits, MaxPartitionBits)
	}
	maxCells := cfg.MaxCells
	if maxCells == 0 {
		maxCells = DefaultMaxCells
	}
	if maxCells < MinMaxCells {
		maxCells = MinMaxCells
	}
	return &Coverer{
		precision:     cfg.Precision,
		partitionBits: cfg.PartitionBits,
		maxCells:      maxCells,
	}, nil
}

func (c *Coverer) Precision() int     { return c.precision }
func (c *Coverer) PartitionBits() int { return c.partitionBits }

// Entry computes the geohash and partition of p under the coverer's settings.
func (c *Coverer) Entry(p model.Point, id model.ItemID) (model.IndexEntry, error) {
	h, err := Encode(p, c.precision)
	if err != nil {
		return model.IndexEntry{}, err
	}
	part, err := Partition(h, c.precision, c.partitionBits)
	if err != nil {
		return model.IndexEntry{}, err
	}
	return model.IndexEntry{Partition: part, Geohash: h, ID: id}, nil
}

// Cover returns merged ranges, sorted by partition then start, whose union
// contains the geohash of every point within radiusMeters of center.
func (c *Coverer) Cover(center model.Point, radiusMeters float64) ([]Range, error) {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) || radiusMeters < 0 {
		return nil, fmt.Errorf("%w: radius %v must be a finite non-negative number",
			model.ErrInvalidInput, radiusMeters)
	}
	if _, err := model.NewPoint(center.Lat, center.Lng); err != nil {
		return nil, err
	}

	targets := CircleBounds(center, radiusMeters)
	cells := c.subdivide(targets)

	var out []Range
	for _, n := range cells {
		out = c.appendRanges(out, n)
	}
	return mergeRanges(out), nil
}

type cell struct {
	prefix uint64
	depth  int
	box    Box
}

type relation int

const (
	disjoint relation = iota
	partial
	inside
)

func classify(b Box, targets []Box) relation {
	rel := disjoint
	for _, t := range targets {
		if b.Within(t) {
			return inside
		}
		if b.Intersects(t) {
			rel = partial
		}
	}
	return rel
}

// subdivide walks the interleaved bit tree breadth first.
func (c *Coverer) subdivide(targets []Box) []cell {
	total := 2 * c.precision
	frontier := []cell{{prefix: 0, depth: 0, box: World}}
	var out []cell

	for len(frontier) > 0 {
		var edge []cell
		for _, n := range frontier {
			switch classify(n.box, targets) {
			case inside:
				out = append(out, n)
			case partial:
				edge = append(edge, n)
			}
		}
		if len(edge) == 0 {
			break
		}
		if edge[0].depth == total || len(out)+2*len(edge) > c.maxCells {
			out = append(out, edge...)
			break
		}
		next := make([]cell, 0, 2*len(edge))
		for _, n := range edge {
			lo, hi := n.box.split(n.depth)
			next = append(next,
				cell{prefix: n.prefix << 1, depth: n.depth + 1, box: lo},
				cell{prefix: n.prefix<<1 | 1, depth: n.depth + 1, box: hi},
			)
		}
		frontier = next
	}
	return out
}

// appendRanges converts a cell to hash ranges, one per partition it spans.
func (c *Coverer) appendRanges(out []Range, n cell) []Range {
	total := 2 * c.precision
	shift := total - n.depth
	start := n.prefix << shift
	end := start + (uint64(1) << shift) - 1

	pshift := total - c.partitionBits
	if n.depth >= c.partitionBits {
		return append(out, Range{
			Partition: model.PartitionKey(start >> pshift),
			Start:     model.Geohash(start),
			End:       model.Geohash(end),
		})
	}
	width := uint64(1) << pshift
	for q := start >> pshift; q <= end>>pshift; q++ {
		out = append(out, Range{
			Partition: model.PartitionKey(q),
			Start:     model.Geohash(q << pshift),
			End:       model.Geohash(q<<pshift + width - 1),
		})
	}
	return out
}

func mergeRanges(in []Range) []Range {
	if len(in) == 0 {
		return in
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].Partition != in[j].Partition {
			return in[i].Partition < in[j].Partition
		}
		return in[i].Start < in[j].Start
	})
	out := []Range{in[0]}
	for _, r := range in[1:] {
		last := &out[len(out)-1]
		if r.Partition == last.Partition && r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// CircleBounds returns one box, or two when the circle crosses the antimeridian,
// that together contain every point within radiusMeters of center.
func CircleBounds(center model.Point, radiusMeters float64) []Box {
	d := radiusMeters / EarthRadiusMeters
	if d >= math.Pi {
		return []Box{World}
	}
	lat := center.Lat * math.Pi / 180
	lng := center.Lng * math.Pi / 180

	minLat, maxLat := lat-d, lat+d
	var minLng, maxLng float64
	if minLat > -math.Pi/2 && maxLat < math.Pi/2 {
		dLng := math.Asin(math.Sin(d) / math.Cos(lat))
		minLng, maxLng = lng-dLng, lng+dLng
	} else {
		// the cap contains a pole
		minLat = math.Max(minLat, -math.Pi/2)
		maxLat = math.Min(maxLat, math.Pi/2)
		minLng, maxLng = -math.Pi, math.Pi
	}

	b := Box{
		MinLat: math.Max(minLat*180/math.Pi-boundsPadDeg, -90),
		MaxLat: math.Min(maxLat*180/math.Pi+boundsPadDeg, 90),
		MinLng: minLng*180/math.Pi - boundsPadDeg,
		MaxLng: maxLng*180/math.Pi + boundsPadDeg,
	}
	if b.MaxLng-b.MinLng >= 360 {
		b.MinLng, b.MaxLng = -180, 180
		return []Box{b}
	}
	switch {
	case b.MinLng < -180:
		west := b
		west.MinLng, west.MaxLng = b.MinLng+360, 180
		east := b
		east.MinLng = -180
		return []Box{west, east}
	case b.MaxLng > 180:
		east := b
		east.MaxLng = 180
		west := b
		west.MinLng, west.MaxLng = -180, b.MaxLng-360
		return []Box{east, west}
	}
	return []Box{b}
}

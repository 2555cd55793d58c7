package geocode

import (
	"context"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/core/observability"
)

// Cached memoizes positive matches of an inner Geocoder. Misses and errors
// are never cached so a corrected upstream answer is picked up on retry.
type Cached struct {
	inner Geocoder
	lru   *expirable.LRU[uint64, model.Point]
}

// NewCached returns inner unchanged when size <= 0.
func NewCached(inner Geocoder, size int, ttl time.Duration) Geocoder {
	if size <= 0 {
		return inner
	}
	return &Cached{
		inner: inner,
		lru:   expirable.NewLRU[uint64, model.Point](size, nil, ttl),
	}
}

func (c *Cached) Geocode(ctx context.Context, address string) (model.Point, bool, error) {
	k := cacheKey(address)
	if p, ok := c.lru.Get(k); ok {
		observability.IncGeocodeCacheHit()
		return p, true, nil
	}
	observability.IncGeocodeCacheMiss()

	p, found, err := c.inner.Geocode(ctx, address)
	if err != nil || !found {
		return p, found, err
	}
	c.lru.Add(k, p)
	return p, true, nil
}

func (c *Cached) Len() int { return c.lru.Len() }

// cacheKey hashes the address after trimming, lower-casing and collapsing whitespace.
func cacheKey(address string) uint64 {
	norm := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	return xxhash.Sum64String(norm)
}

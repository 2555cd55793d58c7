// Package geocode resolves human addresses to coordinates.
package geocode

import (
	"context"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
)

// Geocoder returns found=false when the provider has no match for the address.
// Providers may be slow, rate limited, and non-deterministic.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (p model.Point, found bool, err error)
}

// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
)

// Point is a validated WGS84 coordinate. Construct it with NewPoint.
type Point struct {
	Lat float64
	Lng float64
}

// NewPoint rejects out-of-range or non-finite coordinates instead of clamping them.
func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return Point{}, fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
	}
	if lat < -90 || lat > 90 {
		return Point{}, fmt.Errorf("%w: latitude %v outside [-90,90]", ErrInvalidInput, lat)
	}
	if lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("%w: longitude %v outside [-180,180]", ErrInvalidInput, lng)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

type Geohash uint64

type PartitionKey uint64

type ItemID string

// IndexEntry is one row of the geo index, sorted by (Partition, Geohash).
type IndexEntry struct {
	Partition PartitionKey
	Geohash   Geohash
	ID        ItemID
}

// ItemMetadata holds display attributes joined to IndexEntry by ID.
type ItemMetadata struct {
	ID      ItemID
	Name    string
	Address string
	Point   Point
	Geohash Geohash
}

// Item is a query result.
type Item struct {
	ID      ItemID
	Name    string
	Address string
	Point   Point
}

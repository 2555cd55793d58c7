package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidQuery signals a query without a usable center point.
	ErrInvalidQuery = fmt.Errorf("%w: unable to resolve query location", ErrInvalidInput)
	// ErrGeocodeFailure signals that the geocoder errored or found no match.
	ErrGeocodeFailure = errors.New("geocode failure")
	// ErrStoreFailure signals a rejected key-value store read or write.
	ErrStoreFailure = errors.New("store failure")
)

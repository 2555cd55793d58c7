// Package itemid generates short opaque item identifiers.
package itemid

import (
	"github.com/lithammer/shortuuid/v4"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
)

// flickr base58: no 0, O, I or l
const alphabet = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Length of every generated id; 58^22 > 2^128.
const Length = 22

// New encodes a random UUIDv4 in base58. No coordination between callers is needed.
func New() model.ItemID {
	return model.ItemID(shortuuid.NewWithAlphabet(alphabet))
}

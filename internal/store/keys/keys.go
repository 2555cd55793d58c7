// Package keys defines the Redis key layout for the geo index and metadata tables.
package keys

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
)

// IndexKey names the sorted set holding one partition of the geo index.
func IndexKey(table string, p model.PartitionKey) string {
	return "geo:" + sanitizeTable(table) + ":" + strconv.FormatUint(uint64(p), 10)
}

// MetadataKey names the record holding one item's display attributes.
func MetadataKey(table string, id model.ItemID) string {
	return "item:" + sanitizeTable(table) + ":" + strings.TrimSpace(string(id))
}

func sanitizeTable(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// ':' is the key separator, so it is replaced too
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}

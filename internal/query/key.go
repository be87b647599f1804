package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cache entry as an ordered tuple of segments. The first
// segment names the resource domain ("cases", "tasks", "dashboard"), the
// second the operation kind, and the rest disambiguate (ids, encoded
// parameter objects). Two semantically equal requests always build the
// same Key.
type Key struct {
	segs []string
}

// NewKey builds a key from a domain, a kind and optional disambiguators.
func NewKey(domain, kind string, parts ...string) Key {
	segs := make([]string, 0, 2+len(parts))
	segs = append(segs, domain, kind)
	segs = append(segs, parts...)
	return Key{segs: segs}
}

// Prefix builds a partial key used for invalidation matching.
func Prefix(segs ...string) Key {
	return Key{segs: append([]string(nil), segs...)}
}

// With returns a copy of the key extended by the given segments.
func (k Key) With(parts ...string) Key {
	segs := make([]string, 0, len(k.segs)+len(parts))
	segs = append(segs, k.segs...)
	segs = append(segs, parts...)
	return Key{segs: segs}
}

// String renders the key for logging and map indexing. Segments are
// joined with a unit separator so a segment containing "/" cannot
// collide with a deeper key.
func (k Key) String() string {
	return strings.Join(k.segs, "\x1f")
}

// HasPrefix reports whether p matches k on whole-segment boundaries.
// Prefix("cases", "detail") matches ("cases", "detail", "42") but not
// ("cases", "details").
func (k Key) HasPrefix(p Key) bool {
	if len(p.segs) > len(k.segs) {
		return false
	}
	for i, s := range p.segs {
		if k.segs[i] != s {
			return false
		}
	}
	return true
}

// EncodeParams canonicalizes a parameter object into a key segment.
// encoding/json writes map keys sorted and struct fields in declaration
// order, so deep-equal values of the same type always produce the same
// segment. Array order is significant.
func EncodeParams(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Parameter objects are plain data structs; an unmarshalable one
		// is a programming error.
		panic(fmt.Sprintf("query: encode params: %v", err))
	}
	return string(b)
}

// Package marker recognizes identifiers that opt into srcset processing and
// derives the underlying resource locator from them.
package marker

import (
	"strings"
)

// Marker is an identifier convention. Match and Strip must agree: Strip of an
// identifier Match accepts returns it without the marker and nothing else changed.
// Mark is the inverse and leaves already marked identifiers alone.
type Marker interface {
	Match(id string) bool
	Strip(id string) string
	Mark(id string) string
}

// DefaultQueryKey is the reserved query parameter, as in `photo.png?srcset`.
const DefaultQueryKey = "srcset"

// Query marks identifiers carrying a reserved query parameter, with or without a value.
type Query struct {
	Key string
}

// QueryMarker returns a Query marker for key, or DefaultQueryKey when key is empty.
func QueryMarker(key string) Query {
	if key == "" {
		key = DefaultQueryKey
	}
	return Query{Key: key}
}

func (q Query) Match(id string) bool {
	_, query, _ := split(id)
	for _, part := range strings.Split(query, "&") {
		if paramKey(part) == q.Key {
			return true
		}
	}
	return false
}

// Strip removes every occurrence of the parameter, keeping the order and raw
// encoding of the remaining ones.
func (q Query) Strip(id string) string {
	p, query, frag := split(id)
	if query == "" {
		return id
	}
	kept := make([]string, 0, 4)
	for _, part := range strings.Split(query, "&") {
		if part == "" || paramKey(part) == q.Key {
			continue
		}
		kept = append(kept, part)
	}
	out := p
	if len(kept) > 0 {
		out += "?" + strings.Join(kept, "&")
	}
	return out + frag
}

func (q Query) Mark(id string) string {
	if q.Match(id) {
		return id
	}
	p, query, frag := split(id)
	if query != "" {
		query += "&"
	}
	return p + "?" + query + q.Key + frag
}

// Suffix marks identifiers whose path ends in a fixed suffix, as in `photo.png.srcset`.
type Suffix struct {
	Suffix string
}

// SuffixMarker returns a Suffix marker.
func SuffixMarker(suffix string) Suffix {
	return Suffix{Suffix: suffix}
}

func (s Suffix) Match(id string) bool {
	p, _, _ := split(id)
	return s.Suffix != "" && strings.HasSuffix(p, s.Suffix) && len(p) > len(s.Suffix)
}

func (s Suffix) Strip(id string) string {
	p, query, frag := split(id)
	if !strings.HasSuffix(p, s.Suffix) {
		return id
	}
	out := strings.TrimSuffix(p, s.Suffix)
	if query != "" {
		out += "?" + query
	}
	return out + frag
}

func (s Suffix) Mark(id string) string {
	if s.Match(id) {
		return id
	}
	p, query, frag := split(id)
	out := p + s.Suffix
	if query != "" {
		out += "?" + query
	}
	return out + frag
}

// Path returns the resource path of id: the marker is stripped and any
// remaining query string or fragment dropped.
func Path(m Marker, id string) string {
	p, _, _ := split(m.Strip(id))
	return p
}

// split breaks id into path, raw query (without '?') and fragment (with '#').
func split(id string) (p, query, frag string) {
	if i := strings.IndexByte(id, '#'); i >= 0 {
		id, frag = id[:i], id[i:]
	}
	if i := strings.IndexByte(id, '?'); i >= 0 {
		return id[:i], id[i+1:], frag
	}
	return id, "", frag
}

func paramKey(part string) string {
	if i := strings.IndexByte(part, '='); i >= 0 {
		return part[:i]
	}
	return part
}

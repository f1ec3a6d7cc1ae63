package http

import (
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Header represents a single raw HTTP header name/value pair.
type Header struct {
	Key   string
	Value string
}

type headerEntry struct {
	name   string // display name as first written (or last replaced)
	values []string
}

// Headers is an immutable, case-insensitive, order-preserving header map.
//
// Lookups normalize the name (lower-case, "_" to "-", leading "http-"
// stripped), so "Content-Type", "content-type" and "HTTP_CONTENT_TYPE" all
// address the same entry. The display name used by All and Fields is the one
// recorded by the first Add or the latest Set.
//
// Set, Add and Remove return a new Headers and never modify the receiver,
// so a Headers value may be shared freely. The zero value is an empty map.
type Headers struct {
	keys    []string // normalized keys in insertion order
	entries map[string]headerEntry
}

// serverHeaderKeys are environment keys treated as headers without an HTTP_ prefix.
var serverHeaderKeys = map[string]bool{
	"CONTENT_TYPE":    true,
	"CONTENT_LENGTH":  true,
	"PHP_AUTH_USER":   true,
	"PHP_AUTH_PW":     true,
	"PHP_AUTH_DIGEST": true,
	"AUTH_TYPE":       true,
}

// NormalizeHeaderName returns the lookup key for a header name.
func NormalizeHeaderName(name string) string {
	key := strings.ReplaceAll(strings.ToLower(name), "_", "-")
	return strings.TrimPrefix(key, "http-")
}

// NewHeaders builds a header map from raw pairs, in order. Repeated names
// accumulate values.
func NewHeaders(pairs []Header) (Headers, error) {
	var h Headers
	for _, p := range pairs {
		next, err := h.Add(p.Key, p.Value)
		if err != nil {
			return Headers{}, err
		}
		h = next
	}
	return h, nil
}

// HeadersFromMap builds a header map from a name to values mapping such as
// net/http's Header. Names are visited in sorted order.
func HeadersFromMap(m map[string][]string) (Headers, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var h Headers
	for _, name := range names {
		next, err := h.Add(name, m[name]...)
		if err != nil {
			return Headers{}, err
		}
		h = next
	}
	return h, nil
}

// HeadersFromServer builds a header map from an environment-style map.
// Keys prefixed with HTTP_ and the special keys CONTENT_TYPE, CONTENT_LENGTH,
// PHP_AUTH_USER, PHP_AUTH_PW, PHP_AUTH_DIGEST and AUTH_TYPE become headers;
// the environment key is kept as the display name. Keys are visited in
// sorted order. Values are taken as-is: the server map is a trusted snapshot.
func HeadersFromServer(server map[string]string) Headers {
	names := make([]string, 0, len(server))
	for key := range server {
		if serverHeaderKeys[key] || strings.HasPrefix(key, "HTTP_") {
			names = append(names, key)
		}
	}
	sort.Strings(names)

	h := Headers{
		keys:    make([]string, 0, len(names)),
		entries: make(map[string]headerEntry, len(names)),
	}
	for _, key := range names {
		norm := NormalizeHeaderName(key)
		if _, ok := h.entries[norm]; !ok {
			h.keys = append(h.keys, norm)
		}
		h.entries[norm] = headerEntry{name: key, values: []string{server[key]}}
	}
	return h
}

// Set replaces all values of name and records name as its display name.
// An existing header keeps its position. At least one value is required.
func (h Headers) Set(name string, values ...string) (Headers, error) {
	if err := validateHeader("Set", name, values); err != nil {
		return h, err
	}
	key := NormalizeHeaderName(name)
	out := h.clone()
	out.put(key, headerEntry{name: name, values: copyStrings(values)})
	return out, nil
}

// Add appends values to name. An existing header keeps its display name;
// an absent one is created as by Set.
func (h Headers) Add(name string, values ...string) (Headers, error) {
	if err := validateHeader("Add", name, values); err != nil {
		return h, err
	}
	key := NormalizeHeaderName(name)
	entry, ok := h.entries[key]
	if !ok {
		entry = headerEntry{name: name}
	}
	merged := make([]string, 0, len(entry.values)+len(values))
	merged = append(merged, entry.values...)
	merged = append(merged, values...)

	out := h.clone()
	out.put(key, headerEntry{name: entry.name, values: merged})
	return out, nil
}

// Remove returns a header map without name. Removing an absent header
// returns an equal map.
func (h Headers) Remove(name string) Headers {
	key := NormalizeHeaderName(name)
	if _, ok := h.entries[key]; !ok {
		return h
	}
	out := Headers{
		keys:    make([]string, 0, len(h.keys)-1),
		entries: make(map[string]headerEntry, len(h.entries)-1),
	}
	for _, k := range h.keys {
		if k == key {
			continue
		}
		out.keys = append(out.keys, k)
		out.entries[k] = h.entries[k]
	}
	return out
}

// Get returns a copy of the values of name, or an empty slice if absent.
func (h Headers) Get(name string) []string {
	entry, ok := h.entries[NormalizeHeaderName(name)]
	if !ok {
		return []string{}
	}
	return copyStrings(entry.values)
}

// Line returns the values of name joined with ",", or "" if absent.
func (h Headers) Line(name string) string {
	entry, ok := h.entries[NormalizeHeaderName(name)]
	if !ok {
		return ""
	}
	return strings.Join(entry.values, ",")
}

// Has reports whether name is present (case-insensitive).
func (h Headers) Has(name string) bool {
	_, ok := h.entries[NormalizeHeaderName(name)]
	return ok
}

// All returns every header keyed by display name.
func (h Headers) All() map[string][]string {
	out := make(map[string][]string, len(h.keys))
	for _, k := range h.keys {
		entry := h.entries[k]
		out[entry.name] = copyStrings(entry.values)
	}
	return out
}

// Names returns the display names in insertion order.
func (h Headers) Names() []string {
	names := make([]string, len(h.keys))
	for i, k := range h.keys {
		names[i] = h.entries[k].name
	}
	return names
}

// Fields returns one pair per value, in insertion order, using display names.
func (h Headers) Fields() []Header {
	var fields []Header
	for _, k := range h.keys {
		entry := h.entries[k]
		for _, v := range entry.values {
			fields = append(fields, Header{Key: entry.name, Value: v})
		}
	}
	return fields
}

// Len returns the number of distinct headers.
func (h Headers) Len() int {
	return len(h.keys)
}

// clone returns a copy whose key order and entry table may be modified.
// Entries themselves are never mutated, so their value slices are shared.
func (h Headers) clone() Headers {
	out := Headers{
		keys:    make([]string, len(h.keys), len(h.keys)+1),
		entries: make(map[string]headerEntry, len(h.entries)+1),
	}
	copy(out.keys, h.keys)
	for k, v := range h.entries {
		out.entries[k] = v
	}
	return out
}

func (h *Headers) put(key string, entry headerEntry) {
	if _, ok := h.entries[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.entries[key] = entry
}

func validateHeader(op, name string, values []string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return newError(op, ErrInvalidArgument, "invalid header name %q", name)
	}
	if len(values) == 0 {
		return newError(op, ErrInvalidArgument, "no values for header %q", name)
	}
	for _, v := range values {
		if !httpguts.ValidHeaderFieldValue(v) {
			return newError(op, ErrInvalidArgument, "invalid value for header %q", name)
		}
	}
	return nil
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

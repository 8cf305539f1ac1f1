// Package querystate maps typed values to and from URL query parameters.
//
// A Parser knows how to read and write one kind of value (integers, strings,
// separator-joined arrays) and carries the default value and the update
// options that go with it. A Store wraps the URL of the current request and
// collects writes, so a handler can apply several changes and then redirect
// the client to the resulting URL in one step.
//
//	page := querystate.Integer().WithDefault(1).WithOptions(querystate.Options{
//	    History:        querystate.HistoryReplace,
//	    ClearOnDefault: true,
//	})
//	n, _ := querystate.Get(store, "page", page)
//	querystate.Set(store, "page", page, n+1)
package querystate

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// History controls how a URL change is recorded by the browser.
type History string

const (
	// HistoryReplace rewrites the current history entry.
	HistoryReplace History = "replace"
	// HistoryPush adds a new history entry.
	HistoryPush History = "push"
)

// Options are the update options attached to a parser.
type Options struct {
	History History // replace or push (default: replace)

	// Scroll asks the client to scroll to the top after the update.
	Scroll bool

	// Shallow updates do not require the data source to be queried again.
	Shallow bool

	// ClearOnDefault removes the key from the URL when the written value
	// equals the parser default.
	ClearOnDefault bool

	// Throttle is the minimum interval between client-side URL updates.
	Throttle time.Duration
}

// Parser reads and writes values of type T from a single query parameter.
// Parsers are immutable; WithDefault and WithOptions return modified copies.
type Parser[T any] struct {
	parse     func(string) (T, bool)
	serialize func(T) string
	eq        func(a, b T) bool

	def    T
	hasDef bool
	opts   Options
}

// Integer parses base-10 integers. Surrounding whitespace is ignored;
// anything else that strconv.Atoi rejects is treated as absent.
func Integer() Parser[int] {
	return Parser[int]{
		parse: func(raw string) (int, bool) {
			i, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return 0, false
			}
			return i, true
		},
		serialize: strconv.Itoa,
		eq:        func(a, b int) bool { return a == b },
	}
}

// String passes the raw value through unchanged.
func String() Parser[string] {
	return Parser[string]{
		parse:     func(raw string) (string, bool) { return raw, true },
		serialize: func(v string) string { return v },
		eq:        func(a, b string) bool { return a == b },
	}
}

// ArrayOf parses separator-joined lists of items.
//
// An empty parameter is an empty list. Items are written with "%" and the
// separator percent-escaped ("%" becomes "%25", "," becomes "%2C") so they
// survive the round trip. Empty items and items the item parser rejects are
// dropped.
func ArrayOf[T any](item Parser[T], separator string) Parser[[]T] {
	if separator == "" {
		separator = ","
	}
	encodedSep := url.QueryEscape(separator)
	escape := strings.NewReplacer("%", "%25", separator, encodedSep)
	unescape := strings.NewReplacer("%25", "%", encodedSep, separator)

	return Parser[[]T]{
		parse: func(raw string) ([]T, bool) {
			out := []T{}
			if raw == "" {
				return out, true
			}
			for _, part := range strings.Split(raw, separator) {
				if part == "" {
					continue
				}
				v, ok := item.parse(unescape.Replace(part))
				if !ok {
					continue
				}
				out = append(out, v)
			}
			return out, true
		},
		serialize: func(values []T) string {
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = escape.Replace(item.serialize(v))
			}
			return strings.Join(parts, separator)
		},
		eq: func(a, b []T) bool {
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if !item.eq(a[i], b[i]) {
					return false
				}
			}
			return true
		},
	}
}

// WithDefault returns a copy of p that reads absent or invalid values as v.
func (p Parser[T]) WithDefault(v T) Parser[T] {
	p.def = v
	p.hasDef = true
	return p
}

// WithOptions returns a copy of p with the given update options.
func (p Parser[T]) WithOptions(opts Options) Parser[T] {
	if opts.History == "" {
		opts.History = HistoryReplace
	}
	p.opts = opts
	return p
}

// Options returns the update options of p.
func (p Parser[T]) Options() Options {
	if p.opts.History == "" {
		p.opts.History = HistoryReplace
	}
	return p.opts
}

// Default returns the default value and whether one was configured.
func (p Parser[T]) Default() (T, bool) {
	return p.def, p.hasDef
}

// Parse decodes a raw query value. It does not apply the default.
func (p Parser[T]) Parse(raw string) (T, bool) {
	return p.parse(raw)
}

// Serialize encodes v as a raw query value.
func (p Parser[T]) Serialize(v T) string {
	return p.serialize(v)
}

// Equal reports whether two values encode the same state.
func (p Parser[T]) Equal(a, b T) bool {
	return p.eq(a, b)
}

// isDefault reports whether v should be omitted from the URL.
func (p Parser[T]) isDefault(v T) bool {
	return p.opts.ClearOnDefault && p.hasDef && p.eq(v, p.def)
}

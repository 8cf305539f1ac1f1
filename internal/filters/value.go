// Package filters converts raw column filter values read from the URL into
// the column filter list the table model works with, and back.
package filters

import (
	"slices"
	"strings"
)

// Kind tells which variant a Value holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindArray
)

// Value is a raw filter value: absent, a single string, or a string array.
// The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	arr  []string
}

// None returns the absent value.
func None() Value { return Value{} }

// String wraps a single string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Strings wraps a string array. A nil slice is stored as an empty array.
func Strings(values []string) Value {
	return Value{kind: KindArray, arr: append([]string{}, values...)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether v holds no value at all.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsEmpty reports whether v is absent, an empty string or an empty array.
// Setting an empty value on a column removes its filter.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindString:
		return v.str == ""
	case KindArray:
		return len(v.arr) == 0
	default:
		return true
	}
}

// Text returns v as one string. Arrays are joined with commas.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindArray:
		return strings.Join(v.arr, ",")
	default:
		return ""
	}
}

// List returns v as a string slice. A non-empty string becomes a
// one-element slice.
func (v Value) List() []string {
	switch v.kind {
	case KindString:
		if v.str == "" {
			return nil
		}
		return []string{v.str}
	case KindArray:
		return append([]string(nil), v.arr...)
	default:
		return nil
	}
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindArray:
		return slices.Equal(v.arr, o.arr)
	default:
		return true
	}
}

// ColumnFilter is one entry of the table model's column filter state.
type ColumnFilter struct {
	ID    string
	Value Value
}

// Package pagination converts between the table model's 0-indexed page
// state and the 1-indexed page parameters carried in the URL.
package pagination

import "math"

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// UnknownPageCount marks a data source that cannot tell how many pages exist.
const UnknownPageCount = -1

// State is the table model's pagination state. PageIndex starts at 0.
type State struct {
	PageIndex int
	PageSize  int
}

// Params are the URL pagination parameters. Page starts at 1.
type Params struct {
	Page    int
	PerPage int
}

// FromParams converts URL parameters into model state.
// Pages below 1 clamp to the first page; a non-positive per-page value falls
// back to defaultSize (or DefaultPageSize when that is not positive either).
func FromParams(p Params, defaultSize int) State {
	if defaultSize < 1 {
		defaultSize = DefaultPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.PerPage
	if size < 1 {
		size = defaultSize
	}
	return State{PageIndex: page - 1, PageSize: size}
}

// ToParams converts model state into URL parameters.
func ToParams(s State) Params {
	index := s.PageIndex
	if index < 0 {
		index = 0
	}
	return Params{Page: index + 1, PerPage: s.PageSize}
}

// Clamp keeps the page index inside [0, pageCount-1]. An unknown or empty
// page count only clamps the lower bound.
func (s State) Clamp(pageCount int) State {
	if s.PageIndex < 0 {
		s.PageIndex = 0
	}
	if pageCount > 0 && s.PageIndex > pageCount-1 {
		s.PageIndex = pageCount - 1
	}
	return s
}

// Offset returns the number of rows before the current page. It saturates
// at math.MaxInt instead of overflowing on absurd page indexes.
func (s State) Offset() int {
	if s.PageIndex < 0 || s.PageSize < 1 {
		return 0
	}
	if s.PageIndex > math.MaxInt/s.PageSize {
		return math.MaxInt
	}
	return s.PageIndex * s.PageSize
}

// PageCount returns the number of pages needed for total rows.
// It is at least 1 so an empty result still has a page to show.
func PageCount(total int64, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		pages = 1
	}
	return pages
}

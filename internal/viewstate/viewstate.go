// Package viewstate keeps the in-memory part of a table's UI state (sorting,
// row selection, column visibility) between requests.
//
// A browser session sees the same state on every page load of a table until
// the entry expires. Keys combine the session id with the table id.
package viewstate

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/JonMunkholm/datatable/internal/table"
)

// ErrClosed is returned by stores that were closed.
var ErrClosed = errors.New("viewstate: store closed")

// State is the UI state of one table that does not live in the URL.
type State struct {
	Sorting          []table.ColumnSort `json:"sorting"`
	RowSelection     map[string]bool    `json:"rowSelection"`
	ColumnVisibility map[string]bool    `json:"columnVisibility"`
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return &State{}
	}
	return &State{
		Sorting:          slices.Clone(s.Sorting),
		RowSelection:     maps.Clone(s.RowSelection),
		ColumnVisibility: maps.Clone(s.ColumnVisibility),
	}
}

// IsZero reports whether s holds no state at all.
func (s *State) IsZero() bool {
	return s == nil || (len(s.Sorting) == 0 && len(s.RowSelection) == 0 && len(s.ColumnVisibility) == 0)
}

// Store persists State per key. Implementations must be safe for
// concurrent use.
type Store interface {
	// Load returns the state under key. Missing or expired entries return
	// (nil, nil).
	Load(ctx context.Context, key string) (*State, error)

	// Save stores s under key and refreshes its expiry.
	Save(ctx context.Context, key string, s *State) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

// Key builds the store key for a session and table.
func Key(sessionID, tableID string) string {
	return sessionID + ":" + tableID
}

package querystate

import (
	"net/url"
	"sync"
)

// Store holds the query parameters of one URL and records writes to them.
// It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	path   string
	values url.Values

	writes  int
	history History
	shallow bool
	scroll  bool
}

// NewStore creates a store for u. A nil URL yields an empty store rooted at "/".
func NewStore(u *url.URL) *Store {
	s := &Store{path: "/", values: url.Values{}, shallow: true}
	if u == nil {
		return s
	}
	if u.Path != "" {
		s.path = u.Path
	}
	for k, v := range u.Query() {
		s.values[k] = append([]string(nil), v...)
	}
	return s
}

// Get reads key with p. It returns the parsed value when the key is present
// and valid, the parser default otherwise, and reports whether either was
// available.
func Get[T any](s *Store, key string, p Parser[T]) (T, bool) {
	if raw, ok := s.Raw(key); ok {
		if v, ok := p.Parse(raw); ok {
			return v, true
		}
	}
	return p.Default()
}

// Set writes v under key using p's serialization and options. Values equal
// to the default are removed when the parser clears on default.
func Set[T any](s *Store, key string, p Parser[T], v T) {
	opts := p.Options()
	if p.isDefault(v) {
		s.Delete(key, opts)
		return
	}
	s.setRaw(key, p.Serialize(v), opts)
}

// Clear removes key, recording p's update options.
func Clear[T any](s *Store, key string, p Parser[T]) {
	s.Delete(key, p.Options())
}

// Raw returns the first raw value stored under key.
func (s *Store) Raw(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Delete removes key from the URL.
func (s *Store) Delete(key string, opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	s.record(opts)
}

func (s *Store) setRaw(key, raw string, opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = []string{raw}
	s.record(opts)
}

// record merges the options of one write into the pending navigation.
// Push beats replace; any non-shallow write makes the navigation non-shallow.
func (s *Store) record(opts Options) {
	if s.writes == 0 {
		s.history = opts.History
	} else if opts.History == HistoryPush {
		s.history = HistoryPush
	}
	if !opts.Shallow {
		s.shallow = false
	}
	if opts.Scroll {
		s.scroll = true
	}
	s.writes++
}

// Changed reports whether any write was recorded.
func (s *Store) Changed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes > 0
}

// History returns the history mode of the pending navigation.
func (s *Store) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history == "" {
		return HistoryReplace
	}
	return s.history
}

// Shallow reports whether every recorded write was shallow.
func (s *Store) Shallow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shallow
}

// Scroll reports whether any recorded write asked to scroll to the top.
func (s *Store) Scroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scroll
}

// Values returns a copy of the current query parameters.
func (s *Store) Values() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(url.Values, len(s.values))
	for k, v := range s.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// URL returns the current path and query as a relative URL.
func (s *Store) URL() *url.URL {
	values := s.Values()
	return &url.URL{Path: s.path, RawQuery: values.Encode()}
}

// String returns the current URL in path?query form.
func (s *Store) String() string {
	return s.URL().String()
}

// Clone returns an independent copy with no recorded writes.
func (s *Store) Clone() *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Store{path: s.path, values: make(url.Values, len(s.values)), shallow: true}
	for k, v := range s.values {
		c.values[k] = append([]string(nil), v...)
	}
	return c
}

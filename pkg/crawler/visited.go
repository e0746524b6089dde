package crawler

import "sync"

// VisitedSet holds the canonical URLs dispatched during one run. Entries are
// never removed.
type VisitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedSet creates an empty set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// TryMark inserts url and reports whether this call inserted it. The check and
// the insert happen under one lock, so exactly one caller wins per URL.
func (v *VisitedSet) TryMark(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.urls[url]; ok {
		return false
	}
	v.urls[url] = struct{}{}
	return true
}

// Contains reports whether url has been marked
func (v *VisitedSet) Contains(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.urls[url]
	return ok
}

// Len returns the number of marked URLs
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}

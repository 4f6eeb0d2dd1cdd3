package pipeline

import (
	"sync"
)

// Sessions holds one Pipeline per page URL, so each page can be triggered once
// until Reset is called.
type Sessions struct {
	mu      sync.Mutex
	factory func(pageURL string) *Pipeline
	byPage  map[string]*Pipeline
}

// NewSessions creates Sessions that build the pipeline for a page with factory.
func NewSessions(factory func(pageURL string) *Pipeline) *Sessions {
	return &Sessions{factory: factory, byPage: make(map[string]*Pipeline)}
}

// Get returns the pipeline for pageURL, creating it on first use.
func (s *Sessions) Get(pageURL string) *Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byPage[pageURL]
	if !ok {
		p = s.factory(pageURL)
		s.byPage[pageURL] = p
	}
	return p
}

// Reset discards every pipeline and returns how many there were.
func (s *Sessions) Reset() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.byPage)
	s.byPage = make(map[string]*Pipeline)
	return n
}

// Len returns the number of pages with a pipeline.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPage)
}

package geocode

import (
	"context"
	"sync"
)

// Sequencer keeps only the newest of overlapping lookups alive. Each lookup
// carries a sequence number; starting a newer one cancels the previous
// lookup's context, and results for anything but the newest are discarded.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
	issued uint64
	cancel context.CancelFunc
}

// Next reserves the next sequence number for callers that do not bring one.
// Numbers are never handed out twice, and always exceed any started lookup.
func (s *Sequencer) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued = max(s.issued, s.latest) + 1
	return s.issued
}

// Start registers seq as the newest lookup. ok is false when a lookup with an
// equal or higher number has already started; the caller should drop the
// request. done must be called once the lookup finishes.
func (s *Sequencer) Start(parent context.Context, seq uint64) (ctx context.Context, done func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.latest {
		return nil, func() {}, false
	}
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.latest = seq
	s.issued = max(s.issued, seq)
	s.cancel = cancel
	return ctx, func() {
		s.mu.Lock()
		if s.latest == seq {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}, true
}

// Current reports whether seq is still the newest lookup.
func (s *Sequencer) Current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest == seq
}
